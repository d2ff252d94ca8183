package query

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Dialect names a supported SQL flavour
type Dialect string

const (
	Postgres Dialect = "postgresql"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite3"
)

// Valid reports whether d is a supported dialect
func (d Dialect) Valid() bool {
	switch d {
	case Postgres, MySQL, SQLite:
		return true
	}
	return false
}

// DriverName returns the database/sql driver registered for d
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "postgres"
	}
	return string(d)
}

// Placeholder returns the positional parameter format of d
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// Source is where a Builder runs. Executor must return the transaction carried by ctx when there is one.
type Source interface {
	Executor(ctx context.Context) sqlx.ExtContext
	Dialect() Dialect
}
