package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	platformconfig "github.com/qolzam/telar/apps/crud/internal/platform/config"
	"github.com/qolzam/telar/apps/crud/pagination"
)

func sqliteConfig(t *testing.T, extra map[string]string) *platformconfig.Config {
	t.Helper()
	env := map[string]string{
		"JWT_SECRET":               "test-secret",
		"DB_TYPE":                  "sqlite3",
		"DB_DSN":                   ":memory:",
		"DB_MAX_OPEN_CONNS":        "1",
		"RESOURCES_FILE":           "testdata/resources.yaml",
		"PAGINATION_DEFAULT_LIMIT": "20",
		"PAGINATION_MAX_LIMIT":     "40",
	}
	for k, v := range extra {
		env[k] = v
	}
	cfg, err := platformconfig.LoadFromMap(env)
	require.NoError(t, err)
	return cfg
}

func TestNewBaseService(t *testing.T) {
	ctx := context.Background()
	s, err := NewBaseService(ctx, sqliteConfig(t, nil))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.HealthCheck(ctx))
	assert.Equal(t, []string{"order", "product"}, s.Registry.Names())
	assert.Equal(t, pagination.Options{DefaultLimit: 20, MaxLimit: 40}, s.Pagination())
	assert.Empty(t, s.Bus.Handlers("product.created"))

	r, err := s.Resource("product")
	require.NoError(t, err)
	assert.Equal(t, "products", r.Table)

	_, err = s.Resource("invoice")
	assert.ErrorIs(t, err, crudErrors.ErrConfiguration)
}

func TestNewBaseService_RedisNotifier(t *testing.T) {
	s, err := NewBaseService(context.Background(), sqliteConfig(t, map[string]string{
		"EVENTS_REDIS_ENABLED": "true",
		"REDIS_ADDRESS":        "127.0.0.1:0",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for _, name := range []string{"product.created", "product.updated", "order.destroyed"} {
		require.Len(t, s.Bus.Handlers(name), 1, name)
		assert.Equal(t, "redis-notifier", s.Bus.Handlers(name)[0].Name())
	}
	assert.Empty(t, s.Bus.Handlers("product.creating"))
}

func TestNewBaseService_Errors(t *testing.T) {
	_, err := NewBaseService(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewBaseService(context.Background(), sqliteConfig(t, map[string]string{"RESOURCES_FILE": "testdata/missing.yaml"}))
	assert.Error(t, err)
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()
	s, err := NewBaseService(ctx, sqliteConfig(t, nil))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB.DB().Exec("CREATE TABLE orders (id TEXT PRIMARY KEY, total REAL)")
	require.NoError(t, err)

	require.NoError(t, s.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.DB.Executor(ctx).ExecContext(ctx, "INSERT INTO orders (id, total) VALUES ('a', 1)")
		return err
	}))

	var n int
	require.NoError(t, s.DB.DB().Get(&n, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), s.DB.Metrics().Stats().Committed)
}
