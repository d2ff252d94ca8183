// Package chain composes filters and an optional pagination strategy over one base query.
package chain

import (
	"context"
	"fmt"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/filters"
	"github.com/qolzam/telar/apps/crud/pagination"
	"github.com/qolzam/telar/apps/crud/query"
)

// Chain sequences filters, then pagination, over a base builder that is never modified.
// Every terminal call runs the query again; callers wanting one round trip call one terminal once.
type Chain[T any] struct {
	base       *query.Builder
	filters    []filters.Factory
	pagination pagination.Factory
}

// New creates a chain over qb
func New[T any](qb *query.Builder) *Chain[T] {
	return &Chain[T]{base: qb}
}

// AddFilter appends a filter. Filters apply in registration order.
func (c *Chain[T]) AddFilter(f filters.Factory) *Chain[T] {
	c.filters = append(c.filters, f)
	return c
}

// SetPagination attaches the pagination strategy, applied after every filter
func (c *Chain[T]) SetPagination(f pagination.Factory) *Chain[T] {
	c.pagination = f
	return c
}

// HasPagination reports whether the chain produces paginated containers
func (c *Chain[T]) HasPagination() bool {
	return c.pagination != nil
}

func (c *Chain[T]) build() (filtered *query.Builder, strategy pagination.Strategy, err error) {
	qb := c.base.Clone()
	for _, factory := range c.filters {
		f, err := factory(qb)
		if err != nil {
			return nil, nil, err
		}
		qb = f.Apply()
	}
	if c.pagination == nil {
		return qb, nil, nil
	}

	filtered = qb.Clone()
	strategy, err = c.pagination(qb)
	if err != nil {
		return nil, nil, err
	}
	return filtered, strategy, nil
}

// Filter returns a builder with every filter and the pagination applied
func (c *Chain[T]) Filter() (*query.Builder, error) {
	qb, strategy, err := c.build()
	if err != nil {
		return nil, err
	}
	if strategy != nil {
		return strategy.Apply(), nil
	}
	return qb, nil
}

// ToEntities runs the filtered query. It is only valid on chains without pagination.
func (c *Chain[T]) ToEntities(ctx context.Context) ([]T, error) {
	if c.HasPagination() {
		return nil, crudErrors.NewConfigurationError("chain on %s has pagination, use ToPaginatedContainer", c.base.Table())
	}
	qb, _, err := c.build()
	if err != nil {
		return nil, err
	}
	rows := []T{}
	if err := qb.GetMany(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.base.Table(), err)
	}
	return rows, nil
}

// ToPaginatedContainer counts the filtered rows, then fetches the requested page
func (c *Chain[T]) ToPaginatedContainer(ctx context.Context) (*pagination.Container[T], error) {
	if !c.HasPagination() {
		return nil, crudErrors.NewConfigurationError("chain on %s has no pagination, use ToEntities", c.base.Table())
	}
	filtered, strategy, err := c.build()
	if err != nil {
		return nil, err
	}

	count, err := filtered.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", c.base.Table(), err)
	}

	rows := []T{}
	if err := strategy.Apply().GetMany(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.base.Table(), err)
	}
	return pagination.NewContainer(strategy, count, rows), nil
}

// ReduceEntities runs the chain and converts each entity with fn
func ReduceEntities[T, R any](ctx context.Context, c *Chain[T], fn func(T) (R, error)) ([]R, error) {
	rows, err := c.ToEntities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		r, err := fn(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// MapPaginatedContainer runs the chain and converts each result of the page with fn
func MapPaginatedContainer[T, R any](ctx context.Context, c *Chain[T], fn func(T) (R, error)) (*pagination.Container[R], error) {
	page, err := c.ToPaginatedContainer(ctx)
	if err != nil {
		return nil, err
	}
	return pagination.MapContainer(page, fn)
}
