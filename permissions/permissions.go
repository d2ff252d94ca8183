// Package permissions evaluates three-valued permission checks.
//
// Every check answers Allow, Deny or Abstain. An operation is denied when any check answers
// Deny; abstentions are ignored and an empty set allows everything.
package permissions

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/internal/types"
)

// Decision is the answer of one permission check
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	}
	return "abstain"
}

// Action names the CRUD verb being checked
type Action string

const (
	List          Action = "list"
	Retrieve      Action = "retrieve"
	Create        Action = "create"
	Update        Action = "update"
	PartialUpdate Action = "partial_update"
	Destroy       Action = "destroy"
)

// Request is the caller input a check decides on
type Request struct {
	Action  Action
	User    *types.UserContext
	ID      uuid.UUID
	Payload interface{}
}

// Permission is a coarse-grained check that does not depend on a loaded entity
type Permission interface {
	Check(ctx context.Context, req *Request) (Decision, error)
}

// EntityPermission is a check on one loaded entity
type EntityPermission interface {
	CheckEntity(ctx context.Context, req *Request, entity interface{}) (Decision, error)
}

// Set is the ordered list of checks guarding one resource
type Set struct {
	Permissions       []Permission
	EntityPermissions []EntityPermission
}

// Evaluate runs the coarse-grained checks in order
func (s Set) Evaluate(ctx context.Context, req *Request) error {
	for i, p := range s.Permissions {
		d, err := p.Check(ctx, req)
		if err != nil {
			return fmt.Errorf("permission check %d failed: %w", i, err)
		}
		if d == Deny {
			return crudErrors.NewPermissionDenied(fmt.Sprintf("%s denied", req.Action))
		}
	}
	return nil
}

// EvaluateEntity runs the entity-grained checks in order
func (s Set) EvaluateEntity(ctx context.Context, req *Request, entity interface{}) error {
	for i, p := range s.EntityPermissions {
		d, err := p.CheckEntity(ctx, req, entity)
		if err != nil {
			return fmt.Errorf("entity permission check %d failed: %w", i, err)
		}
		if d == Deny {
			return crudErrors.NewPermissionDenied(fmt.Sprintf("%s denied on %v", req.Action, req.ID))
		}
	}
	return nil
}
