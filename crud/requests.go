package crud

import (
	"github.com/gofrs/uuid"

	"github.com/qolzam/telar/apps/crud/filters"
	"github.com/qolzam/telar/apps/crud/pagination"
	"github.com/qolzam/telar/apps/crud/internal/types"
)

// ListRequest is a parsed list query. At most one of Page and LimitOffset may be set;
// with neither the full filtered result is returned.
type ListRequest struct {
	User        *types.UserContext
	Where       filters.WhereQuery
	Ordering    filters.OrderingQuery
	Search      string
	Page        *pagination.PageRequest
	LimitOffset *pagination.LimitOffsetRequest
	// Filters run after the search, where and ordering filters built from the request
	Filters []filters.Factory
}

// ListResult holds either a plain result list or a paginated container
type ListResult[O any] struct {
	Results   []O
	Container *pagination.Container[O]
}

// Paginated reports whether the result is a page
func (r *ListResult[O]) Paginated() bool {
	return r.Container != nil
}

// RetrieveRequest asks for one entity
type RetrieveRequest struct {
	User *types.UserContext
	ID   uuid.UUID
}

// CreateRequest carries a raw payload keyed by json field names
type CreateRequest struct {
	User  *types.UserContext
	Input map[string]interface{}
}

// UpdateRequest replaces an entity, or with Partial set changes only the keys present in Input
type UpdateRequest struct {
	User    *types.UserContext
	ID      uuid.UUID
	Input   map[string]interface{}
	Partial bool
}

// DestroyRequest removes one entity
type DestroyRequest struct {
	User *types.UserContext
	ID   uuid.UUID
}
