package filters

import (
	"strings"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	"github.com/qolzam/telar/apps/crud/query"
)

// OrderingQuery is a list of sort tokens. A leading "-" sorts descending.
type OrderingQuery []string

// OrderingOptions configures an OrderingFilter
type OrderingOptions struct {
	AllowedFields   AllowedFields
	DefaultOrdering OrderingQuery
}

// OrderClause is one resolved ORDER BY entry
type OrderClause struct {
	Field     string
	Column    string
	Direction query.Direction
}

// OrderingFilter turns sort tokens into ORDER BY clauses
type OrderingFilter struct {
	qb      *query.Builder
	clauses []OrderClause
}

// NewOrderingFilter resolves ordering against the allowed fields. When no token survives the
// default ordering is used, and when that is empty too the first allowed field ascending.
func NewOrderingFilter(qb *query.Builder, ordering OrderingQuery, opts OrderingOptions) (*OrderingFilter, error) {
	if len(opts.AllowedFields) == 0 {
		return nil, crudErrors.NewConfigurationError("ordering filter on %s has no allowed fields", qb.Table())
	}

	clauses := resolveOrdering(ordering, opts.AllowedFields)
	if len(clauses) == 0 {
		clauses = resolveOrdering(opts.DefaultOrdering, opts.AllowedFields)
	}
	if len(clauses) == 0 {
		first := opts.AllowedFields[0]
		clauses = []OrderClause{{Field: first.Name, Column: first.column(), Direction: query.Asc}}
	}

	return &OrderingFilter{qb: qb, clauses: clauses}, nil
}

// OrderingFactory defers NewOrderingFilter until a builder is available
func OrderingFactory(ordering OrderingQuery, opts OrderingOptions) Factory {
	return func(qb *query.Builder) (Filter, error) {
		return NewOrderingFilter(qb, ordering, opts)
	}
}

func resolveOrdering(tokens OrderingQuery, allowed AllowedFields) []OrderClause {
	var clauses []OrderClause
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		dir := query.Asc
		if strings.HasPrefix(token, "-") {
			dir = query.Desc
			token = token[1:]
		}
		field, ok := allowed.Lookup(token)
		if !ok {
			if token != "" {
				log.Debug("ordering: dropped unknown field %q", token)
			}
			continue
		}
		clauses = append(clauses, OrderClause{Field: field.Name, Column: field.column(), Direction: dir})
	}
	return clauses
}

// Clauses returns the resolved clauses in application order
func (f *OrderingFilter) Clauses() []OrderClause {
	return append([]OrderClause(nil), f.clauses...)
}

// Apply adds one ORDER BY clause per resolved token
func (f *OrderingFilter) Apply() *query.Builder {
	for _, c := range f.clauses {
		f.qb.OrderBy(c.Column, c.Direction)
	}
	return f.qb
}
