// Package filters narrows a query.Builder from request data without executing it.
// Request tokens naming unknown fields or operators are dropped, never rejected.
// Missing static configuration is a ConfigurationError raised at construction.
package filters

import (
	"strings"

	"github.com/qolzam/telar/apps/crud/query"
)

// Filter adds predicates or ordering to the builder it was constructed with
type Filter interface {
	Apply() *query.Builder
}

// Factory constructs a Filter over qb. Chains call factories on a fresh builder per execution.
type Factory func(qb *query.Builder) (Filter, error)

// Field maps a public field name to the column expression it stands for
type Field struct {
	Name   string
	Column string
}

func (f Field) column() string {
	if f.Column == "" {
		return f.Name
	}
	return f.Column
}

// namedColumn is column escaped for a :name template, so casts like price::numeric survive
func (f Field) namedColumn() string {
	return strings.ReplaceAll(f.column(), ":", "::")
}

// AllowedFields is an ordered set of fields a request may reference
type AllowedFields []Field

// FieldNames allows each name, using the name itself as the column
func FieldNames(names ...string) AllowedFields {
	fields := make(AllowedFields, 0, len(names))
	for _, name := range names {
		fields = append(fields, Field{Name: name, Column: name})
	}
	return fields
}

// FieldColumns allows name/column pairs in order, e.g. FieldColumns("price", "price::numeric").
// A trailing name without a column maps to itself.
func FieldColumns(pairs ...string) AllowedFields {
	fields := make(AllowedFields, 0, (len(pairs)+1)/2)
	for i := 0; i < len(pairs); i += 2 {
		f := Field{Name: pairs[i], Column: pairs[i]}
		if i+1 < len(pairs) {
			f.Column = pairs[i+1]
		}
		fields = append(fields, f)
	}
	return fields
}

// Lookup finds the field published under name
func (a AllowedFields) Lookup(name string) (Field, bool) {
	for _, f := range a {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the public names in order
func (a AllowedFields) Names() []string {
	names := make([]string, len(a))
	for i, f := range a {
		names[i] = f.Name
	}
	return names
}
