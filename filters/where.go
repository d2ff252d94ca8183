package filters

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	"github.com/qolzam/telar/apps/crud/query"
)

// Condition is one "field__operator" key and its raw request value
type Condition struct {
	Key   string
	Value string
}

// WhereQuery is the ordered list of conditions parsed from a request
type WhereQuery []Condition

// WhereOptions configures a WhereFilter
type WhereOptions struct {
	AllowedFields AllowedFields
}

var conditionKey = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)__([a-z]+)$`)

type operator func(qb *query.Builder, field Field, value string) (query.Predicate, bool)

var operators = map[string]operator{
	"eq":      compare("="),
	"ne":      compare("!="),
	"gt":      compare(">"),
	"lt":      compare("<"),
	"gte":     compare(">="),
	"lte":     compare("<="),
	"starts":  like("LIKE", "%s%%"),
	"ends":    like("LIKE", "%%%s"),
	"cont":    like("LIKE", "%%%s%%"),
	"excl":    like("NOT LIKE", "%%%s%%"),
	"in":      list("IN"),
	"notin":   list("NOT IN"),
	"isnull":  null("IS NULL"),
	"notnull": null("IS NOT NULL"),
	"between": between,
}

// Operators returns the supported operator tokens
func Operators() []string {
	return []string{"eq", "ne", "gt", "lt", "gte", "lte", "starts", "ends", "cont", "excl", "in", "notin", "isnull", "notnull", "between"}
}

func compare(op string) operator {
	return func(qb *query.Builder, field Field, value string) (query.Predicate, bool) {
		p := qb.NextParam(field.Name)
		return query.Predicate{
			Expr:   fmt.Sprintf("%s %s :%s", field.namedColumn(), op, p),
			Params: map[string]interface{}{p: value},
		}, true
	}
}

func like(op, pattern string) operator {
	return func(qb *query.Builder, field Field, value string) (query.Predicate, bool) {
		p := qb.NextParam(field.Name)
		return query.Predicate{
			Expr:   fmt.Sprintf("%s %s :%s", field.namedColumn(), op, p),
			Params: map[string]interface{}{p: fmt.Sprintf(pattern, value)},
		}, true
	}
}

func list(op string) operator {
	return func(qb *query.Builder, field Field, value string) (query.Predicate, bool) {
		values := splitValues(value)
		if len(values) == 0 {
			return query.Predicate{}, false
		}
		p := qb.NextParam(field.Name)
		return query.Predicate{
			Expr:   fmt.Sprintf("%s %s (:%s)", field.namedColumn(), op, p),
			Params: map[string]interface{}{p: values},
		}, true
	}
}

func null(op string) operator {
	return func(_ *query.Builder, field Field, _ string) (query.Predicate, bool) {
		return query.Predicate{Expr: fmt.Sprintf("%s %s", field.column(), op)}, true
	}
}

func between(qb *query.Builder, field Field, value string) (query.Predicate, bool) {
	values := splitValues(value)
	if len(values) != 2 {
		return query.Predicate{}, false
	}
	low, high := qb.NextParam(field.Name), qb.NextParam(field.Name)
	return query.Predicate{
		Expr:   fmt.Sprintf("%s BETWEEN :%s AND :%s", field.namedColumn(), low, high),
		Params: map[string]interface{}{low: values[0], high: values[1]},
	}, true
}

func splitValues(value string) []string {
	var values []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// WhereFilter compiles conditions into predicates through the fixed operator table
type WhereFilter struct {
	qb         *query.Builder
	predicates []query.Predicate
}

// NewWhereFilter compiles where against the allowed fields. Parameter names are reserved on qb.
func NewWhereFilter(qb *query.Builder, where WhereQuery, opts WhereOptions) (*WhereFilter, error) {
	if len(opts.AllowedFields) == 0 {
		return nil, crudErrors.NewConfigurationError("where filter on %s has no allowed fields", qb.Table())
	}

	f := &WhereFilter{qb: qb}
	var dropped WhereQuery
	for _, cond := range where {
		m := conditionKey.FindStringSubmatch(cond.Key)
		if m == nil {
			dropped = append(dropped, cond)
			continue
		}
		field, ok := opts.AllowedFields.Lookup(m[1])
		if !ok {
			dropped = append(dropped, cond)
			continue
		}
		op, ok := operators[m[2]]
		if !ok {
			dropped = append(dropped, cond)
			continue
		}
		pred, ok := op(qb, field, cond.Value)
		if !ok {
			dropped = append(dropped, cond)
			continue
		}
		f.predicates = append(f.predicates, pred)
	}
	if len(dropped) > 0 {
		log.Debug("where: dropped %d condition(s) on %s", len(dropped), qb.Table())
		log.Dump(dropped)
	}
	return f, nil
}

// WhereFactory defers NewWhereFilter until a builder is available
func WhereFactory(where WhereQuery, opts WhereOptions) Factory {
	return func(qb *query.Builder) (Filter, error) {
		return NewWhereFilter(qb, where, opts)
	}
}

// Predicates returns the compiled predicates, one per surviving condition
func (f *WhereFilter) Predicates() []query.Predicate {
	return append([]query.Predicate(nil), f.predicates...)
}

// Apply AND-s every predicate inside one bracketed group onto the builder
func (f *WhereFilter) Apply() *query.Builder {
	if len(f.predicates) == 0 {
		return f.qb
	}
	group := make(sq.And, 0, len(f.predicates))
	for _, p := range f.predicates {
		group = append(group, p)
	}
	return f.qb.AndWhere(group)
}
