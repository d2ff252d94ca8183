package query

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Direction is an ORDER BY direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Builder composes a SELECT over one table. Predicates only ever narrow the result set:
// every call to AndWhere or AndWhereAny is AND-ed onto what is already there.
type Builder struct {
	source  Source
	table   string
	columns []string
	where   []sq.Sqlizer
	orderBy []string
	limit   *uint64
	offset  *uint64
	params  map[string]struct{}
	counter map[string]int
}

// New creates a builder selecting columns from table. No columns selects *.
func New(source Source, table string, columns ...string) *Builder {
	return &Builder{
		source:  source,
		table:   table,
		columns: columns,
		params:  make(map[string]struct{}),
		counter: make(map[string]int),
	}
}

// Table returns the table the builder selects from
func (b *Builder) Table() string {
	return b.table
}

// Source returns the source the builder runs against
func (b *Builder) Source() Source {
	return b.source
}

// AndWhere narrows the query with pred
func (b *Builder) AndWhere(pred sq.Sqlizer) *Builder {
	b.where = append(b.where, pred)
	return b
}

// AndWhereAny narrows the query with a bracketed OR group of preds
func (b *Builder) AndWhereAny(preds ...sq.Sqlizer) *Builder {
	if len(preds) == 0 {
		return b
	}
	b.where = append(b.where, sq.Or(preds))
	return b
}

// OrderBy appends one ORDER BY clause
func (b *Builder) OrderBy(expr string, dir Direction) *Builder {
	b.orderBy = append(b.orderBy, fmt.Sprintf("%s %s", expr, dir))
	return b
}

// Orderings returns the ORDER BY clauses in the order they were added
func (b *Builder) Orderings() []string {
	return append([]string(nil), b.orderBy...)
}

// Limit bounds the number of rows returned
func (b *Builder) Limit(n uint64) *Builder {
	b.limit = &n
	return b
}

// Offset skips the first n rows
func (b *Builder) Offset(n uint64) *Builder {
	b.offset = &n
	return b
}

// NextParam reserves a parameter name derived from base that is unique within this query
func (b *Builder) NextParam(base string) string {
	base = paramName(base)
	for {
		b.counter[base]++
		name := fmt.Sprintf("%s_%d", base, b.counter[base])
		if _, taken := b.params[name]; !taken {
			b.params[name] = struct{}{}
			return name
		}
	}
}

func paramName(base string) string {
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "p"
	}
	return sb.String()
}

// Clone returns an independent copy. Predicates are shared, they are immutable once added.
func (b *Builder) Clone() *Builder {
	c := &Builder{
		source:  b.source,
		table:   b.table,
		columns: append([]string(nil), b.columns...),
		where:   append([]sq.Sqlizer(nil), b.where...),
		orderBy: append([]string(nil), b.orderBy...),
		params:  make(map[string]struct{}, len(b.params)),
		counter: make(map[string]int, len(b.counter)),
	}
	if b.limit != nil {
		n := *b.limit
		c.limit = &n
	}
	if b.offset != nil {
		n := *b.offset
		c.offset = &n
	}
	for k := range b.params {
		c.params[k] = struct{}{}
	}
	for k, v := range b.counter {
		c.counter[k] = v
	}
	return c
}

func (b *Builder) placeholder() sq.PlaceholderFormat {
	if b.source == nil {
		return sq.Question
	}
	return b.source.Dialect().Placeholder()
}

func (b *Builder) filtered(columns ...string) sq.SelectBuilder {
	sb := sq.Select(columns...).From(b.table).PlaceholderFormat(b.placeholder())
	for _, w := range b.where {
		sb = sb.Where(w)
	}
	return sb
}

// ToSQL renders the full SELECT with ordering, limit and offset
func (b *Builder) ToSQL() (string, []interface{}, error) {
	columns := b.columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	sb := b.filtered(columns...)
	if len(b.orderBy) > 0 {
		sb = sb.OrderBy(b.orderBy...)
	}
	if b.limit != nil {
		sb = sb.Limit(*b.limit)
	}
	if b.offset != nil {
		sb = sb.Offset(*b.offset)
	}
	return sb.ToSql()
}

// CountSQL renders a COUNT over the same predicates, ignoring ordering, limit and offset
func (b *Builder) CountSQL() (string, []interface{}, error) {
	return b.filtered("COUNT(*)").ToSql()
}

func (b *Builder) executor(ctx context.Context) (sqlx.ExtContext, error) {
	if b.source == nil {
		return nil, fmt.Errorf("query on %s has no source", b.table)
	}
	return b.source.Executor(ctx), nil
}

// GetMany scans every matching row into dest, a pointer to a slice
func (b *Builder) GetMany(ctx context.Context, dest interface{}) error {
	stmt, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query on %s: %w", b.table, err)
	}
	exec, err := b.executor(ctx)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, exec, dest, stmt, args...)
}

// GetOne scans the first matching row into dest. It returns sql.ErrNoRows when nothing matches.
func (b *Builder) GetOne(ctx context.Context, dest interface{}) error {
	stmt, args, err := b.Clone().Limit(1).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query on %s: %w", b.table, err)
	}
	exec, err := b.executor(ctx)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exec, dest, stmt, args...)
}

// Count returns the number of rows matching the predicates
func (b *Builder) Count(ctx context.Context) (int64, error) {
	stmt, args, err := b.CountSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build count on %s: %w", b.table, err)
	}
	exec, err := b.executor(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := sqlx.GetContext(ctx, exec, &n, stmt, args...); err != nil {
		return 0, err
	}
	return n, nil
}
