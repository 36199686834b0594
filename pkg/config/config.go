// Package config loads service configuration. Configuration can come from
// a YAML file (config.yaml) or environment variables; environment
// variables always override YAML values. Secrets (passwords, encryption
// keys) must only come from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dealbase-engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis cache for DNC pre-flight checks (optional)
	Redis RedisConfig `yaml:"redis"`

	// Skip trace provider configuration
	SkipTrace SkipTraceConfig `yaml:"skip_trace"`

	// Path to the qualification policy file (score threshold, extra
	// lifecycle edges). Empty means built-in defaults.
	PolicyPath string `yaml:"policy_path" env:"POLICY_PATH" env-default:""`

	// ContactEncryptionKey encrypts owner phone numbers at rest.
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	// Server will fail to start if this is not set.
	ContactEncryptionKey string `yaml:"-" env:"CONTACT_ENCRYPTION_KEY"` // Secret - not in YAML

	// PhoneHashKey keys the one-way phone lookup hash. It must be stable
	// for the life of the data: changing it orphans every stored
	// consent_records.phone_hash and do_not_call_entries.phone_hash.
	PhoneHashKey string `yaml:"-" env:"PHONE_HASH_KEY"` // Secret - not in YAML
}

// AuthConfig holds authentication-related configuration. Identity is
// resolved by an external provider; this service only verifies its tokens.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated.
	// Set to false for local development without the identity provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dealbase"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dealbase_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis configuration. An empty host disables the cache
// and DNC checks go straight to Postgres.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// SkipTraceConfig holds settings for the external owner-lookup provider.
type SkipTraceConfig struct {
	BaseURL string `yaml:"base_url" env:"SKIP_TRACE_BASE_URL" env-default:""`
	APIKey  string `yaml:"-" env:"SKIP_TRACE_API_KEY"` // Secret - not in YAML
	// WorkerEnabled starts the in-process claim loop. Disable when a
	// dedicated runner deployment owns the queue.
	WorkerEnabled bool `yaml:"worker_enabled" env:"SKIP_TRACE_WORKER_ENABLED" env-default:"false"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if cfg.ContactEncryptionKey == "" {
		return nil, fmt.Errorf("CONTACT_ENCRYPTION_KEY must be set")
	}
	if cfg.PhoneHashKey == "" {
		return nil, fmt.Errorf("PHONE_HASH_KEY must be set")
	}

	return cfg, nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		parts := strings.Split(pair, "=")
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
