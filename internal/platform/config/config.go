package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the configuration consumed when wiring the CRUD engine
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Pagination PaginationConfig `json:"pagination"`
	Events     EventsConfig     `json:"events"`
	Redis      RedisConfig      `json:"redis"`
	JWT        JWTConfig        `json:"jwt"`
	Resources  ResourcesConfig  `json:"resources"`
}

// ServerConfig holds process-level switches
type ServerConfig struct {
	Debug bool `json:"debug"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Type            string           `json:"type"`
	DSN             string           `json:"dsn"`
	Postgres        PostgreSQLConfig `json:"postgres"`
	MaxOpenConns    int              `json:"maxOpenConns"`
	MaxIdleConns    int              `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration    `json:"connMaxLifetime"`
}

// PostgreSQLConfig holds PostgreSQL-specific connection parts, used when no DSN is given
type PostgreSQLConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Database       string `json:"database"`
	SSLMode        string `json:"sslMode"`
	ConnectTimeout int    `json:"connectTimeout"`
}

// PaginationConfig bounds the page size accepted from requests
type PaginationConfig struct {
	DefaultLimit int `json:"defaultLimit"`
	MaxLimit     int `json:"maxLimit"`
}

// EventsConfig controls lifecycle notifications
type EventsConfig struct {
	RedisEnabled  bool   `json:"redisEnabled"`
	ChannelPrefix string `json:"channelPrefix"`
}

// RedisConfig holds redis connection settings for the notifier
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	Database int    `json:"database"`
	PoolSize int    `json:"poolSize"`
}

// JWTConfig holds the HMAC secret used to read principals from bearer tokens
type JWTConfig struct {
	Secret string `json:"secret"`
	Issuer string `json:"issuer"`
}

// ResourcesConfig points at the YAML resource registry
type ResourcesConfig struct {
	File string `json:"file"`
}

// LoadFromEnv loads configuration with the following precedence:
// 1. Explicit environment variables
// 2. Values from the .env file (if it exists)
// 3. Hardcoded defaults
func LoadFromEnv() (*Config, error) {
	envPaths := []string{".env", "../.env", "../../.env"}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 && kv[i+1:] != "" {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return LoadFromMap(env)
}

// LoadFromMap loads configuration from an in-memory map.
// Tests use it to exercise configuration logic without touching the process environment.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	get := func(key, defaultValue string) string {
		if value, exists := envMap[key]; exists {
			return value
		}
		return defaultValue
	}
	getInt := func(key string, defaultValue int) int {
		if value, exists := envMap[key]; exists {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		return defaultValue
	}
	getBool := func(key string, defaultValue bool) bool {
		if value, exists := envMap[key]; exists {
			if boolValue, err := strconv.ParseBool(value); err == nil {
				return boolValue
			}
		}
		return defaultValue
	}
	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if value, exists := envMap[key]; exists {
			if d, err := time.ParseDuration(value); err == nil {
				return d
			}
			if seconds, err := strconv.Atoi(value); err == nil {
				return time.Duration(seconds) * time.Second
			}
		}
		return defaultValue
	}

	config := &Config{
		Server: ServerConfig{
			Debug: getBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Type: get("DB_TYPE", "postgresql"),
			DSN:  get("DB_DSN", ""),
			Postgres: PostgreSQLConfig{
				Host:           get("POSTGRES_HOST", "localhost"),
				Port:           getInt("POSTGRES_PORT", 5432),
				Username:       get("POSTGRES_USERNAME", "postgres"),
				Password:       get("POSTGRES_PASSWORD", ""),
				Database:       get("POSTGRES_DATABASE", "telar"),
				SSLMode:        get("POSTGRES_SSL_MODE", "disable"),
				ConnectTimeout: getInt("POSTGRES_CONNECT_TIMEOUT", 10),
			},
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getInt("PAGINATION_DEFAULT_LIMIT", 10),
			MaxLimit:     getInt("PAGINATION_MAX_LIMIT", 100),
		},
		Events: EventsConfig{
			RedisEnabled:  getBool("EVENTS_REDIS_ENABLED", false),
			ChannelPrefix: get("EVENTS_CHANNEL_PREFIX", "crud."),
		},
		Redis: RedisConfig{
			Address:  get("REDIS_ADDRESS", "localhost:6379"),
			Password: get("REDIS_PASSWORD", ""),
			Database: getInt("REDIS_DATABASE", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 10),
		},
		JWT: JWTConfig{
			Secret: get("JWT_SECRET", ""),
			Issuer: get("JWT_ISSUER", "telar-crud"),
		},
		Resources: ResourcesConfig{
			File: get("RESOURCES_FILE", "resources.yaml"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	validDbTypes := []string{"postgresql", "mysql", "sqlite3"}
	if !contains(validDbTypes, c.Database.Type) {
		errors = append(errors, fmt.Sprintf("DB_TYPE must be one of: %s", strings.Join(validDbTypes, ", ")))
	}
	if c.Database.Type != "postgresql" && strings.TrimSpace(c.Database.DSN) == "" {
		errors = append(errors, "DB_DSN is required for "+c.Database.Type)
	}

	if c.Pagination.DefaultLimit < 1 {
		errors = append(errors, "PAGINATION_DEFAULT_LIMIT must be positive")
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		errors = append(errors, "PAGINATION_MAX_LIMIT must not be lower than PAGINATION_DEFAULT_LIMIT")
	}

	if c.Events.RedisEnabled && strings.TrimSpace(c.Redis.Address) == "" {
		errors = append(errors, "REDIS_ADDRESS is required when EVENTS_REDIS_ENABLED is set")
	}

	if strings.TrimSpace(c.JWT.Secret) == "" {
		errors = append(errors, "JWT_SECRET is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// PostgresDSN returns the configured DSN or one built from the individual connection parts
func (c DatabaseConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	p := c.Postgres
	parts := []string{
		fmt.Sprintf("host=%s", p.Host),
		fmt.Sprintf("port=%d", p.Port),
		fmt.Sprintf("dbname=%s", p.Database),
	}
	if p.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", p.Username))
	}
	if p.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", p.Password))
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", p.SSLMode))
	if p.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", p.ConnectTimeout))
	}
	return strings.Join(parts, " ")
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
