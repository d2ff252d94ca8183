// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqldb

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/qolzam/telar/apps/crud/internal/database/observability"
	"github.com/qolzam/telar/apps/crud/internal/platform/config"
	"github.com/qolzam/telar/apps/crud/query"
)

// Client wraps sqlx.DB and provides connection pooling, health checks, and transaction management.
// It is the query.Source every builder and store of the engine executes against.
type Client struct {
	db      *sqlx.DB
	dialect query.Dialect
	metrics *observability.MetricsCollector
}

// NewClient opens and pings a database of the configured type
func NewClient(ctx context.Context, cfg config.DatabaseConfig) (*Client, error) {
	dialect := query.Dialect(cfg.Type)
	if !dialect.Valid() {
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	dsn := cfg.DSN
	switch dialect {
	case query.Postgres:
		dsn = cfg.PostgresDSN()
	case query.MySQL:
		var err error
		if dsn, err = mysqlDSN(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.ConnectContext(ctx, dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	return NewClientFromDB(db, dialect), nil
}

// mysqlDSN turns on clientFoundRows so UPDATE reports matched rows, not only changed ones
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// NewClientFromDB wraps an already opened connection pool
func NewClientFromDB(db *sqlx.DB, dialect query.Dialect) *Client {
	return &Client{
		db:      db,
		dialect: dialect,
		metrics: observability.NewMetricsCollector(),
	}
}

// DB returns the underlying *sqlx.DB connection
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Dialect returns the SQL dialect of the connection
func (c *Client) Dialect() query.Dialect {
	return c.dialect
}

// Metrics returns the transaction metrics of this client
func (c *Client) Metrics() *observability.MetricsCollector {
	return c.metrics
}

// Executor returns the transaction carried by ctx or the connection pool
func (c *Client) Executor(ctx context.Context) sqlx.ExtContext {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}
