// Package testutil provides SQLite-backed fixtures shared by the package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/crud/internal/database/sqldb"
	"github.com/qolzam/telar/apps/crud/query"
	"github.com/qolzam/telar/apps/crud/schema"
)

const productsDDL = `
CREATE TABLE products (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	price    REAL NOT NULL DEFAULT 0,
	sku      TEXT NOT NULL UNIQUE,
	owner_id TEXT NOT NULL
)`

const resourcesYAML = `
resources:
  - name: product
    table: products
    primary_key: id
    columns: [id, name, category, price, sku, owner_id]
    filtering: [name, category, price]
    ordering:
      fields: [price, name]
    search: [name, category]
`

// Product is the entity the package tests operate on
type Product struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Category string    `db:"category" json:"category"`
	Price    float64   `db:"price" json:"price"`
	SKU      string    `db:"sku" json:"sku"`
	OwnerID  uuid.UUID `db:"owner_id" json:"ownerId"`
}

// EntityID returns the product id
func (p Product) EntityID() uuid.UUID {
	return p.ID
}

// OwnerUserID returns the id of the user owning the product
func (p Product) OwnerUserID() uuid.UUID {
	return p.OwnerID
}

// NewSQLiteClient opens a private in-memory database holding an empty products table.
// The pool is capped at one connection so every statement sees the same database.
func NewSQLiteClient(t *testing.T) *sqldb.Client {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(productsDDL)
	require.NoError(t, err)

	return sqldb.NewClientFromDB(db, query.SQLite)
}

// ProductResource returns the mapping of the products table
func ProductResource(t *testing.T) *schema.Resource {
	t.Helper()
	reg, err := schema.LoadRegistry([]byte(resourcesYAML))
	require.NoError(t, err)
	r, ok := reg.Lookup("product")
	require.True(t, ok)
	return r
}

// NewProduct returns a product with a fresh id and a SKU derived from it
func NewProduct(name, category string, price float64) Product {
	id := uuid.Must(uuid.NewV4())
	return Product{
		ID:       id,
		Name:     name,
		Category: category,
		Price:    price,
		SKU:      "sku-" + id.String()[:8],
		OwnerID:  uuid.Nil,
	}
}

// SeedProducts inserts products outside of any transaction
func SeedProducts(t *testing.T, client *sqldb.Client, products ...Product) {
	t.Helper()
	for _, p := range products {
		_, err := client.DB().NamedExecContext(context.Background(),
			`INSERT INTO products (id, name, category, price, sku, owner_id)
			 VALUES (:id, :name, :category, :price, :sku, :owner_id)`, p)
		require.NoError(t, err)
	}
}

// CountProducts returns the number of rows in products
func CountProducts(t *testing.T, client *sqldb.Client) int {
	t.Helper()
	var n int
	require.NoError(t, client.DB().Get(&n, "SELECT COUNT(*) FROM products"))
	return n
}

// Fruit seeds the three products the filter tests query
func Fruit(t *testing.T, client *sqldb.Client) []Product {
	t.Helper()
	products := []Product{
		NewProduct("Apple", "fruit", 100),
		NewProduct("Banana", "fruit", 75),
		NewProduct("Cherry", "berry", 50),
	}
	SeedProducts(t, client, products...)
	return products
}
