package query

import (
	"github.com/jmoiron/sqlx"
)

// Predicate is a SQL condition written with :name parameters.
// Slice parameters expand to one positional parameter per element.
type Predicate struct {
	Expr   string
	Params map[string]interface{}
}

// ToSql renders the predicate with ? placeholders so it can be nested in squirrel clauses
func (p Predicate) ToSql() (string, []interface{}, error) {
	if len(p.Params) == 0 {
		return p.Expr, nil, nil
	}
	expr, args, err := sqlx.Named(p.Expr, p.Params)
	if err != nil {
		return "", nil, err
	}
	return sqlx.In(expr, args...)
}
