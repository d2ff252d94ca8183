// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/query"
	"github.com/qolzam/telar/apps/crud/schema"
)

// Store persists entities of type E in the table of a resource. E is scanned and bound by its db tags,
// which must cover the resource columns.
type Store[E any] struct {
	source   query.Source
	resource *schema.Resource

	insertSQL string
	updateSQL string
	deleteSQL string
}

// NewStore creates a store for resource. Statements are prepared as text once here.
func NewStore[E any](source query.Source, resource *schema.Resource) (*Store[E], error) {
	if source == nil {
		return nil, crudErrors.NewConfigurationError("store for %s has no database", resource.Name)
	}
	if err := resource.Validate(); err != nil {
		return nil, err
	}

	named := make([]string, 0, len(resource.Columns))
	sets := make([]string, 0, len(resource.Columns))
	for _, c := range resource.Columns {
		named = append(named, ":"+c)
		if c != resource.PrimaryKey {
			sets = append(sets, fmt.Sprintf("%s = :%s", c, c))
		}
	}
	pk := resource.PrimaryKey

	return &Store[E]{
		source:   source,
		resource: resource,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			resource.Table, strings.Join(resource.Columns, ", "), strings.Join(named, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
			resource.Table, strings.Join(sets, ", "), pk, pk),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE %s = :%s", resource.Table, pk, pk),
	}, nil
}

// Resource returns the mapping the store writes through
func (s *Store[E]) Resource() *schema.Resource {
	return s.resource
}

// Query returns a fresh builder selecting the resource columns
func (s *Store[E]) Query() *query.Builder {
	return query.New(s.source, s.resource.Table, s.resource.Columns...)
}

// Load fetches one entity by primary key
func (s *Store[E]) Load(ctx context.Context, id uuid.UUID) (*E, error) {
	var entity E
	err := s.Query().AndWhere(sq.Eq{s.resource.PrimaryKey: id.String()}).GetOne(ctx, &entity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, crudErrors.NewEntityNotFound(s.resource.Name, id)
		}
		return nil, fmt.Errorf("failed to load %s: %w", s.resource.Name, err)
	}
	return &entity, nil
}

// Insert writes a new row
func (s *Store[E]) Insert(ctx context.Context, entity *E) error {
	if _, err := sqlx.NamedExecContext(ctx, s.source.Executor(ctx), s.insertSQL, entity); err != nil {
		return s.translate("insert", err)
	}
	return nil
}

// Update rewrites every non-key column of the row. A row that vanished since it was loaded is
// reported as not found. MySQL connections need clientFoundRows so unchanged rows still count.
func (s *Store[E]) Update(ctx context.Context, entity *E) error {
	return s.exec(ctx, "update", s.updateSQL, entity)
}

// Remove deletes the row of entity
func (s *Store[E]) Remove(ctx context.Context, entity *E) error {
	return s.exec(ctx, "delete", s.deleteSQL, entity)
}

// exec runs a statement that must touch exactly the row of entity
func (s *Store[E]) exec(ctx context.Context, op, stmt string, entity *E) error {
	res, err := sqlx.NamedExecContext(ctx, s.source.Executor(ctx), stmt, entity)
	if err != nil {
		return s.translate(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", op, s.resource.Name, err)
	}
	if n == 0 {
		return crudErrors.NewEntityNotFound(s.resource.Name, primaryKeyOf(entity))
	}
	return nil
}

func primaryKeyOf(entity interface{}) interface{} {
	if e, ok := entity.(interface{ EntityID() uuid.UUID }); ok {
		return e.EntityID()
	}
	return "unknown"
}

// translate turns unique-key violations into validation errors and wraps everything else
func (s *Store[E]) translate(op string, err error) error {
	if property, ok := uniqueViolation(err); ok {
		if property == "" {
			property = s.resource.PrimaryKey
		}
		return crudErrors.NewValidationError(crudErrors.Violation{
			Property:    property,
			Constraints: map[string]string{"unique": fmt.Sprintf("%s %s already exists", s.resource.Name, property)},
		})
	}
	return fmt.Errorf("failed to %s %s: %w", op, s.resource.Name, err)
}

// uniqueViolation reports whether err is a unique-key violation of any supported driver
// and, when the driver tells, the offending column
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return columnFromConstraint(pqErr.Constraint), true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		// "UNIQUE constraint failed: products.sku"
		msg := liteErr.Error()
		if i := strings.LastIndex(msg, "."); i >= 0 {
			return msg[i+1:], true
		}
		return "", true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return "", true
	}
	return "", false
}

// columnFromConstraint guesses the column from PostgreSQL's default <table>_<column>_key naming
func columnFromConstraint(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}
