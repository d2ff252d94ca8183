package crud

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/qolzam/telar/apps/crud/chain"
	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/filters"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	"github.com/qolzam/telar/apps/crud/pagination"
	"github.com/qolzam/telar/apps/crud/permissions"
	"github.com/qolzam/telar/apps/crud/validation"
)

// List runs the search, where and ordering filters the resource enables, then the caller's filters,
// then the requested pagination
func (s *Service[E, P, O]) List(ctx context.Context, req ListRequest) (*ListResult[O], error) {
	if err := s.permissions.Evaluate(ctx, &permissions.Request{Action: permissions.List, User: req.User}); err != nil {
		return nil, err
	}

	c, err := s.listChain(req)
	if err != nil {
		return nil, err
	}

	if c.HasPagination() {
		page, err := chain.MapPaginatedContainer(ctx, c, s.output)
		if err != nil {
			s.logStoreError(ctx, "list", err)
			return nil, err
		}
		return &ListResult[O]{Results: page.Results, Container: page}, nil
	}

	results, err := chain.ReduceEntities(ctx, c, s.output)
	if err != nil {
		s.logStoreError(ctx, "list", err)
		return nil, err
	}
	return &ListResult[O]{Results: results}, nil
}

func (s *Service[E, P, O]) listChain(req ListRequest) (*chain.Chain[E], error) {
	if req.Page != nil && req.LimitOffset != nil {
		return nil, crudErrors.NewValidationError(crudErrors.Violation{
			Property:    "pagination",
			Constraints: map[string]string{"exclusive": "page and offset pagination cannot be combined"},
		})
	}

	c := chain.New[E](s.store.Query())
	if len(s.resource.Search) > 0 {
		c.AddFilter(filters.SearchFactory(req.Search, s.resource.SearchOptions()))
	}
	if len(s.resource.Filtering) > 0 {
		c.AddFilter(filters.WhereFactory(req.Where, s.resource.WhereOptions()))
	}
	if len(s.resource.Ordering.Fields) > 0 {
		c.AddFilter(filters.OrderingFactory(req.Ordering, s.resource.OrderingOptions()))
	}
	for _, f := range req.Filters {
		c.AddFilter(f)
	}

	switch {
	case req.Page != nil:
		c.SetPagination(pagination.PageFactory(*req.Page, s.pagination))
	case req.LimitOffset != nil:
		c.SetPagination(pagination.LimitOffsetFactory(*req.LimitOffset, s.pagination))
	}
	return c, nil
}

// Retrieve loads one entity. An entity-grained denial is reported as PermissionDenied even
// though the entity exists.
func (s *Service[E, P, O]) Retrieve(ctx context.Context, req RetrieveRequest) (O, error) {
	var zero O
	preq := &permissions.Request{Action: permissions.Retrieve, User: req.User, ID: req.ID}

	entity, err := s.authorize(ctx, preq, req.ID)
	if err != nil {
		return zero, err
	}
	return s.output(*entity)
}

// authorize runs the coarse checks, loads the target and runs the entity-grained checks
func (s *Service[E, P, O]) authorize(ctx context.Context, preq *permissions.Request, id uuid.UUID) (*E, error) {
	if err := s.permissions.Evaluate(ctx, preq); err != nil {
		return nil, err
	}
	entity, err := s.store.Load(ctx, id)
	if err != nil {
		s.logStoreError(ctx, "load", err)
		return nil, err
	}
	if err := s.permissions.EvaluateEntity(ctx, preq, *entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service[E, P, O]) output(entity E) (O, error) {
	var out O
	if err := s.projector.Project(&entity, &out, validation.Read); err != nil {
		return out, fmt.Errorf("failed to project %s: %w", s.resource.Name, err)
	}
	return out, nil
}

// logStoreError reports failures that carry no engine kind, which means the database or a
// collaborator broke rather than the request being wrong
func (s *Service[E, P, O]) logStoreError(ctx context.Context, op string, err error) {
	if !crudErrors.HasKind(err) {
		log.ErrorWithContext(ctx, "[crud] %s %s: %v", op, s.resource.Name, err)
	}
}
