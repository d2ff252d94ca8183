// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromMap(t *testing.T) {
	t.Parallel()

	t.Run("Loads all provided values correctly", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFromMap(map[string]string{
			"JWT_SECRET":               "test-secret",
			"DB_TYPE":                  "sqlite3",
			"DB_DSN":                   "file::memory:",
			"DB_MAX_OPEN_CONNS":        "1",
			"DB_CONN_MAX_LIFETIME":     "321",
			"PAGINATION_DEFAULT_LIMIT": "20",
			"PAGINATION_MAX_LIMIT":     "50",
			"EVENTS_REDIS_ENABLED":     "true",
			"EVENTS_CHANNEL_PREFIX":    "shop.",
			"REDIS_ADDRESS":            "redis:6379",
			"RESOURCES_FILE":           "testdata/resources.yaml",
			"DEBUG":                    "true",
		})
		require.NoError(t, err)

		require.Equal(t, "test-secret", cfg.JWT.Secret)
		require.Equal(t, "sqlite3", cfg.Database.Type)
		require.Equal(t, "file::memory:", cfg.Database.DSN)
		require.Equal(t, 1, cfg.Database.MaxOpenConns)
		require.Equal(t, 321*time.Second, cfg.Database.ConnMaxLifetime)
		require.Equal(t, 20, cfg.Pagination.DefaultLimit)
		require.Equal(t, 50, cfg.Pagination.MaxLimit)
		require.True(t, cfg.Events.RedisEnabled)
		require.Equal(t, "shop.", cfg.Events.ChannelPrefix)
		require.Equal(t, "redis:6379", cfg.Redis.Address)
		require.Equal(t, "testdata/resources.yaml", cfg.Resources.File)
		require.True(t, cfg.Server.Debug)
	})

	t.Run("Applies defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFromMap(map[string]string{"JWT_SECRET": "s"})
		require.NoError(t, err)

		require.Equal(t, "postgresql", cfg.Database.Type)
		require.Equal(t, 10, cfg.Pagination.DefaultLimit)
		require.Equal(t, 100, cfg.Pagination.MaxLimit)
		require.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
		require.Equal(t, "host=localhost port=5432 dbname=telar user=postgres sslmode=disable connect_timeout=10", cfg.Database.PostgresDSN())
	})

	t.Run("Rejects invalid settings", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFromMap(map[string]string{
			"DB_TYPE":                  "oracle",
			"PAGINATION_DEFAULT_LIMIT": "30",
			"PAGINATION_MAX_LIMIT":     "10",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "DB_TYPE must be one of")
		require.Contains(t, err.Error(), "PAGINATION_MAX_LIMIT")
		require.Contains(t, err.Error(), "JWT_SECRET is required")
	})
}
