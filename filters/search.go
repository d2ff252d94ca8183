package filters

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/query"
)

// SearchOptions lists the fields a free-text term is matched against
type SearchOptions struct {
	Fields AllowedFields
}

// SearchFilter matches a case-insensitive substring against any configured field
type SearchFilter struct {
	qb    *query.Builder
	preds []sq.Sqlizer
}

// NewSearchFilter builds the OR group for term. A blank term adds nothing.
func NewSearchFilter(qb *query.Builder, term string, opts SearchOptions) (*SearchFilter, error) {
	if len(opts.Fields) == 0 {
		return nil, crudErrors.NewConfigurationError("search filter on %s has no fields", qb.Table())
	}

	f := &SearchFilter{qb: qb}
	term = strings.TrimSpace(term)
	if term == "" {
		return f, nil
	}

	p := qb.NextParam("search")
	pattern := "%" + strings.ToLower(term) + "%"
	for _, field := range opts.Fields {
		f.preds = append(f.preds, query.Predicate{
			Expr:   fmt.Sprintf("LOWER(%s) LIKE :%s", field.namedColumn(), p),
			Params: map[string]interface{}{p: pattern},
		})
	}
	return f, nil
}

// SearchFactory defers NewSearchFilter until a builder is available
func SearchFactory(term string, opts SearchOptions) Factory {
	return func(qb *query.Builder) (Filter, error) {
		return NewSearchFilter(qb, term, opts)
	}
}

// Apply AND-s the OR group onto the builder
func (f *SearchFilter) Apply() *query.Builder {
	return f.qb.AndWhereAny(f.preds...)
}
