package permissions

import (
	"context"

	"github.com/gofrs/uuid"
)

// Func adapts a function into a Permission
type Func func(ctx context.Context, req *Request) (Decision, error)

func (f Func) Check(ctx context.Context, req *Request) (Decision, error) {
	return f(ctx, req)
}

// EntityFunc adapts a typed function into an EntityPermission. Entities of another type abstain.
type EntityFunc[E any] func(ctx context.Context, req *Request, entity E) (Decision, error)

func (f EntityFunc[E]) CheckEntity(ctx context.Context, req *Request, entity interface{}) (Decision, error) {
	e, ok := entity.(E)
	if !ok {
		return Abstain, nil
	}
	return f(ctx, req, e)
}

// IsAuthenticated denies anonymous callers
func IsAuthenticated() Permission {
	return Func(func(_ context.Context, req *Request) (Decision, error) {
		if !req.User.Authenticated() {
			return Deny, nil
		}
		return Allow, nil
	})
}

// HasRole allows callers holding one of roles and denies everyone else
func HasRole(roles ...string) Permission {
	return Func(func(_ context.Context, req *Request) (Decision, error) {
		if req.User.Authenticated() {
			for _, role := range roles {
				if req.User.SystemRole == role {
					return Allow, nil
				}
			}
		}
		return Deny, nil
	})
}

// ReadOnly denies every action except list and retrieve
func ReadOnly() Permission {
	return Func(func(_ context.Context, req *Request) (Decision, error) {
		if req.Action == List || req.Action == Retrieve {
			return Allow, nil
		}
		return Deny, nil
	})
}

// ForActions applies p to the listed actions only and abstains on the others
func ForActions(p Permission, actions ...Action) Permission {
	return Func(func(ctx context.Context, req *Request) (Decision, error) {
		for _, a := range actions {
			if req.Action == a {
				return p.Check(ctx, req)
			}
		}
		return Abstain, nil
	})
}

// Owned is implemented by entities that belong to a user
type Owned interface {
	OwnerUserID() uuid.UUID
}

// IsOwner allows admins and the owner of the entity and denies everyone else.
// Entities that are not Owned abstain.
func IsOwner() EntityPermission {
	return EntityFunc[Owned](func(_ context.Context, req *Request, entity Owned) (Decision, error) {
		if !req.User.Authenticated() {
			return Deny, nil
		}
		if req.User.IsAdmin() || entity.OwnerUserID() == req.User.UserID {
			return Allow, nil
		}
		return Deny, nil
	})
}
