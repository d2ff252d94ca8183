package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/filters"
)

func TestLoadRegistryFile(t *testing.T) {
	reg, err := LoadRegistryFile(filepath.Join("testdata", "resources.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"order", "product"}, reg.Names())

	product, ok := reg.Lookup("product")
	require.True(t, ok)
	assert.Equal(t, "products", product.Table)
	assert.Equal(t, "id", product.PrimaryKey)

	assert.Equal(t, []string{"name", "category", "price"}, product.WhereOptions().AllowedFields.Names())

	ordering := product.OrderingOptions()
	assert.Equal(t, []string{"price", "name"}, ordering.AllowedFields.Names())
	assert.Equal(t, filters.OrderingQuery{"-price"}, ordering.DefaultOrdering)

	search := product.SearchOptions().Fields
	require.Len(t, search, 2)
	assert.Equal(t, filters.Field{Name: "category", Column: "LOWER(category)"}, search[1])

	order, ok := reg.Lookup("order")
	require.True(t, ok)
	assert.Empty(t, order.WhereOptions().AllowedFields)
}

func TestRegisterRejectsBadResources(t *testing.T) {
	reg := NewRegistry()
	good := &Resource{Name: "product", Table: "products", PrimaryKey: "id", Columns: []string{"id"}}
	require.NoError(t, reg.Register(good))

	err := reg.Register(good)
	assert.ErrorIs(t, err, crudErrors.ErrConfiguration)

	err = reg.Register(&Resource{Name: "x", Table: "xs", PrimaryKey: "id", Columns: []string{"name"}})
	assert.ErrorIs(t, err, crudErrors.ErrConfiguration)

	err = reg.Register(&Resource{Name: "y", PrimaryKey: "id", Columns: []string{"id"}})
	assert.ErrorIs(t, err, crudErrors.ErrConfiguration)

	assert.Panics(t, func() { reg.MustRegister(&Resource{}) })
}

func TestLoadRegistryRejectsMalformedYAML(t *testing.T) {
	_, err := LoadRegistry([]byte("resources: ["))
	require.Error(t, err)
}
