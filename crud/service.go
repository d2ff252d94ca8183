// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package crud orchestrates list, retrieve, create, update and destroy for one resource.
// A request runs a fixed pipeline of fallible steps:
//
//	permission -> load -> entity permission -> project -> validate -> transaction(pre-event -> persist -> post-event) -> reload
//
// and every step returns a typed error from the errors package.
package crud

import (
	"context"

	"github.com/gofrs/uuid"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/events"
	"github.com/qolzam/telar/apps/crud/pagination"
	"github.com/qolzam/telar/apps/crud/permissions"
	"github.com/qolzam/telar/apps/crud/projection"
	"github.com/qolzam/telar/apps/crud/query"
	"github.com/qolzam/telar/apps/crud/schema"
	"github.com/qolzam/telar/apps/crud/validation"
)

// Entity is a persisted row identified by a UUID
type Entity interface {
	EntityID() uuid.UUID
}

// Store loads and persists entities. Calls must join the transaction carried by ctx.
type Store[E any] interface {
	Query() *query.Builder
	Load(ctx context.Context, id uuid.UUID) (*E, error)
	Insert(ctx context.Context, entity *E) error
	Update(ctx context.Context, entity *E) error
	Remove(ctx context.Context, entity *E) error
}

// Mapper turns validated payloads into entities
type Mapper[E, P any] interface {
	// NewEntity builds the entity a create request persists
	NewEntity(ctx context.Context, req *permissions.Request, payload *P) (*E, error)
	// MergeEntity applies payload to entity. fields lists the keys present in a partial update;
	// it is nil for a full update, which replaces every writable field.
	MergeEntity(ctx context.Context, entity *E, payload *P, fields []string) error
}

// MapperFuncs adapts two functions into a Mapper
type MapperFuncs[E, P any] struct {
	New   func(ctx context.Context, req *permissions.Request, payload *P) (*E, error)
	Merge func(ctx context.Context, entity *E, payload *P, fields []string) error
}

func (m MapperFuncs[E, P]) NewEntity(ctx context.Context, req *permissions.Request, payload *P) (*E, error) {
	return m.New(ctx, req, payload)
}

func (m MapperFuncs[E, P]) MergeEntity(ctx context.Context, entity *E, payload *P, fields []string) error {
	return m.Merge(ctx, entity, payload, fields)
}

// Transactor runs fn in one unit of work carried by the context handed to fn
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// Projector shapes payloads on the way in and entities on the way out
type Projector interface {
	Project(source, target interface{}, group validation.RuleGroup) error
	ProjectInput(input map[string]interface{}, target interface{}, group validation.RuleGroup) ([]string, error)
}

// Config wires a Service. Entities are E, decoded payloads P and output representations O.
type Config[E Entity, P, O any] struct {
	Resource    *schema.Resource
	Store       Store[E]
	Mapper      Mapper[E, P]
	Validator   validation.Validator
	Projector   Projector
	Bus         *events.Bus
	Transactor  Transactor
	Permissions permissions.Set
	Pagination  pagination.Options
}

// Service runs the CRUD pipeline for one resource. It keeps no state between requests.
type Service[E Entity, P, O any] struct {
	resource    *schema.Resource
	store       Store[E]
	mapper      Mapper[E, P]
	validator   validation.Validator
	projector   Projector
	bus         *events.Bus
	tx          Transactor
	permissions permissions.Set
	pagination  pagination.Options
}

// NewService checks cfg and fills the optional collaborators: a struct-tag validator,
// a projection.Projector, an empty event bus and the default page size
func NewService[E Entity, P, O any](cfg Config[E, P, O]) (*Service[E, P, O], error) {
	if cfg.Resource == nil {
		return nil, crudErrors.NewConfigurationError("crud service has no resource")
	}
	if err := cfg.Resource.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.Store == nil:
		return nil, crudErrors.NewConfigurationError("crud service for %s has no store", cfg.Resource.Name)
	case cfg.Mapper == nil:
		return nil, crudErrors.NewConfigurationError("crud service for %s has no mapper", cfg.Resource.Name)
	case cfg.Transactor == nil:
		return nil, crudErrors.NewConfigurationError("crud service for %s has no transactor", cfg.Resource.Name)
	}

	s := &Service[E, P, O]{
		resource:    cfg.Resource,
		store:       cfg.Store,
		mapper:      cfg.Mapper,
		validator:   cfg.Validator,
		projector:   cfg.Projector,
		bus:         cfg.Bus,
		tx:          cfg.Transactor,
		permissions: cfg.Permissions,
		pagination:  cfg.Pagination,
	}
	if s.validator == nil {
		s.validator = validation.NewStructValidator()
	}
	if s.projector == nil {
		s.projector = projection.New()
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}
	if s.pagination.DefaultLimit == 0 && s.pagination.MaxLimit == 0 {
		s.pagination = pagination.DefaultOptions()
	}
	return s, nil
}

// Resource returns the mapping the service operates on
func (s *Service[E, P, O]) Resource() *schema.Resource {
	return s.resource
}

// Bus returns the event bus mutations publish on. Register handlers at wiring time only.
func (s *Service[E, P, O]) Bus() *events.Bus {
	return s.bus
}
