package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration for the platform service.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Security     SecurityConfig     `yaml:"security"`
	Cache        CacheConfig        `yaml:"cache"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Events       EventsConfig       `yaml:"events"`
	Agents       AgentsConfig       `yaml:"agents"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Integrations IntegrationsConfig `yaml:"integrations"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig configures the Postgres store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// SecurityConfig configures authentication and CORS.
type SecurityConfig struct {
	EnableAuth     bool          `yaml:"enable_auth"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	KeyStorePath   string        `yaml:"key_store_path"`
}

// CacheConfig configures response caching.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend"` // "memory" or "redis"
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	MaxSize       int           `yaml:"max_size"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
	RedisURL      string        `yaml:"redis_url"`
}

// RateLimitConfig configures per-key request limits.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Backend           string `yaml:"backend"` // "memory" or "redis"
	RedisURL          string `yaml:"redis_url"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	NATSEnabled bool   `yaml:"nats_enabled"`
	NATSURL     string `yaml:"nats_url"`
	StreamName  string `yaml:"stream_name"`
}

// AgentsConfig configures the orchestrator.
type AgentsConfig struct {
	Cooldown       time.Duration `yaml:"cooldown"`
	ExecuteTimeout time.Duration `yaml:"execute_timeout"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// IntegrationsConfig holds the external service credentials the platform
// can use. All of them are optional; an empty key disables the integration.
type IntegrationsConfig struct {
	StripeKey          string `yaml:"stripe_key"`
	AnthropicKey       string `yaml:"anthropic_key"`
	AirtableKey        string `yaml:"airtable_key"`
	GitHubToken        string `yaml:"github_token"`
	NetlifyToken       string `yaml:"netlify_token"`
	RenderKey          string `yaml:"render_key"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8585,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Security: SecurityConfig{
			EnableAuth:   true,
			TokenTTL:     24 * time.Hour,
			KeyStorePath: ".keys.json",
		},
		Cache: CacheConfig{
			Enabled:       true,
			Backend:       "memory",
			DefaultTTL:    1 * time.Hour,
			MaxSize:       10000,
			CleanupPeriod: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			Backend:           "memory",
		},
		Events: EventsConfig{
			StreamName: "REVINTEL",
		},
		Agents: AgentsConfig{
			Cooldown:       5 * time.Minute,
			ExecuteTimeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "revintel",
		},
	}
}

// LoadConfigFromFile loads configuration from a YAML file at the specified
// path. Environment variable references (e.g. ${DATABASE_URL}) are expanded
// before parsing, and well-known environment variables override the file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnvOverrides()
	return config, nil
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("REVINTEL_JWT_SECRET"); secret != "" {
		c.Security.JWTSecret = secret
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.Cache.RedisURL = url
		c.RateLimit.RedisURL = url
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Events.NATSURL = url
		c.Events.NATSEnabled = true
	}
	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		c.Integrations.StripeKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Integrations.AnthropicKey = key
	}
	if key := os.Getenv("AIRTABLE_API_KEY"); key != "" {
		c.Integrations.AirtableKey = key
	}
	if key := os.Getenv("GITHUB_TOKEN"); key != "" {
		c.Integrations.GitHubToken = key
	}
}

// Validate checks that required settings are present. Missing optional
// integration keys are reported as warnings for the startup log, not errors.
func (c *Config) Validate() ([]string, error) {
	if c.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required (or set DATABASE_URL)")
	}
	if c.Security.EnableAuth && c.Security.JWTSecret == "" {
		return nil, fmt.Errorf("security.jwt_secret is required when auth is enabled (or set REVINTEL_JWT_SECRET)")
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return nil, fmt.Errorf("server.http_port %d is out of range", c.Server.HTTPPort)
	}

	var warnings []string
	optional := []struct {
		name string
		key  string
	}{
		{"stripe", c.Integrations.StripeKey},
		{"anthropic", c.Integrations.AnthropicKey},
		{"airtable", c.Integrations.AirtableKey},
		{"github", c.Integrations.GitHubToken},
		{"netlify", c.Integrations.NetlifyToken},
		{"render", c.Integrations.RenderKey},
	}
	for _, opt := range optional {
		if opt.key == "" {
			warnings = append(warnings, fmt.Sprintf("integration %s not configured; disabled", opt.name))
		}
	}
	return warnings, nil
}
