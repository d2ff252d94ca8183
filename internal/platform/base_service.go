// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package platform

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
	"github.com/qolzam/telar/apps/crud/events"
	"github.com/qolzam/telar/apps/crud/internal/database/sqldb"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	platformconfig "github.com/qolzam/telar/apps/crud/internal/platform/config"
	"github.com/qolzam/telar/apps/crud/pagination"
	"github.com/qolzam/telar/apps/crud/schema"
)

// BaseService holds the collaborators every resource service is wired from.
// It is built once at startup and shared by reference.
type BaseService struct {
	DB       *sqldb.Client
	Registry *schema.Registry
	Bus      *events.Bus

	redis  *redis.Client
	config *platformconfig.Config
}

// NewBaseService connects the database, loads the resource registry and, when enabled,
// attaches the redis notifier for committed mutations
func NewBaseService(ctx context.Context, cfg *platformconfig.Config) (*BaseService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("platform configuration is required")
	}
	log.SetDebug(cfg.Server.Debug)

	registry, err := schema.LoadRegistryFile(cfg.Resources.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}

	client, err := sqldb.NewClient(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	s := NewBaseServiceWithDB(client, registry, cfg)
	if cfg.Events.RedisEnabled {
		s.redis = events.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database, cfg.Redis.PoolSize)
		s.Bus.RegisterHandler(events.NewRedisNotifier(s.redis, cfg.Events.ChannelPrefix, committedEvents(registry)...))
		log.Info("[platform] publishing committed mutations to redis %s", cfg.Redis.Address)
	}
	return s, nil
}

// NewBaseServiceWithDB creates a BaseService around an existing client.
// This is used for tests to inject isolated databases.
func NewBaseServiceWithDB(client *sqldb.Client, registry *schema.Registry, cfg *platformconfig.Config) *BaseService {
	return &BaseService{
		DB:       client,
		Registry: registry,
		Bus:      events.NewBus(),
		config:   cfg,
	}
}

// committedEvents names the *-ed event of every registered resource
func committedEvents(registry *schema.Registry) []string {
	var names []string
	for _, r := range registry.Names() {
		for _, verb := range []events.Verb{events.Created, events.Updated, events.Destroyed} {
			names = append(names, events.Name(r, verb))
		}
	}
	return names
}

// Resource looks up a registered resource. A missing resource is a wiring mistake.
func (s *BaseService) Resource(name string) (*schema.Resource, error) {
	r, ok := s.Registry.Lookup(name)
	if !ok {
		return nil, crudErrors.NewConfigurationError("resource %s is not registered", name)
	}
	return r, nil
}

// Pagination returns the configured page size bounds
func (s *BaseService) Pagination() pagination.Options {
	if s.config == nil {
		return pagination.DefaultOptions()
	}
	return pagination.Options{
		DefaultLimit: s.config.Pagination.DefaultLimit,
		MaxLimit:     s.config.Pagination.MaxLimit,
	}
}

// WithTransaction runs fn in one database transaction
func (s *BaseService) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.DB.WithTransaction(ctx, fn)
}

// HealthCheck pings the database and, when configured, redis
func (s *BaseService) HealthCheck(ctx context.Context) error {
	if err := s.DB.Ping(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// Close closes the database and redis connections
func (s *BaseService) Close() error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn("[platform] failed to close redis: %v", err)
		}
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
