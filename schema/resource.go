// Package schema describes entity resources as data: the table behind a resource and the
// fields a request may filter, order and search on. A Registry is built once at wiring time.
package schema

import (
	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/filters"
	"gopkg.in/yaml.v3"
)

// Field maps a public name to a column. In YAML it is either a bare name or {name, column}.
type Field struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand
func (f *Field) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Name = value.Value
		return nil
	}
	type plain Field
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*f = Field(p)
	return nil
}

// Ordering lists sortable fields and the ordering used when a request names none
type Ordering struct {
	Fields  []Field  `yaml:"fields"`
	Default []string `yaml:"default,omitempty"`
}

// Resource is the persistence mapping of one entity type
type Resource struct {
	Name       string   `yaml:"name"`
	Table      string   `yaml:"table"`
	PrimaryKey string   `yaml:"primary_key"`
	Columns    []string `yaml:"columns"`
	Filtering  []Field  `yaml:"filtering,omitempty"`
	Ordering   Ordering `yaml:"ordering,omitempty"`
	Search     []Field  `yaml:"search,omitempty"`
}

// Validate checks the mapping is usable
func (r *Resource) Validate() error {
	switch {
	case r.Name == "":
		return crudErrors.NewConfigurationError("resource has no name")
	case r.Table == "":
		return crudErrors.NewConfigurationError("resource %s has no table", r.Name)
	case r.PrimaryKey == "":
		return crudErrors.NewConfigurationError("resource %s has no primary key", r.Name)
	case len(r.Columns) == 0:
		return crudErrors.NewConfigurationError("resource %s has no columns", r.Name)
	}
	for _, c := range r.Columns {
		if c == r.PrimaryKey {
			return nil
		}
	}
	return crudErrors.NewConfigurationError("resource %s does not select its primary key %s", r.Name, r.PrimaryKey)
}

func allowed(fields []Field) filters.AllowedFields {
	out := make(filters.AllowedFields, 0, len(fields))
	for _, f := range fields {
		out = append(out, filters.Field{Name: f.Name, Column: f.Column})
	}
	return out
}

// WhereOptions returns the where filter configuration
func (r *Resource) WhereOptions() filters.WhereOptions {
	return filters.WhereOptions{AllowedFields: allowed(r.Filtering)}
}

// OrderingOptions returns the ordering filter configuration
func (r *Resource) OrderingOptions() filters.OrderingOptions {
	return filters.OrderingOptions{
		AllowedFields:   allowed(r.Ordering.Fields),
		DefaultOrdering: filters.OrderingQuery(r.Ordering.Default),
	}
}

// SearchOptions returns the search filter configuration
func (r *Resource) SearchOptions() filters.SearchOptions {
	return filters.SearchOptions{Fields: allowed(r.Search)}
}
