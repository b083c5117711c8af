package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	PolicyEngine  PolicyEngineConfig
	Approval      ApprovalConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PolicyEngineConfig holds the connection settings for the external
// policy decision engine.
type PolicyEngineConfig struct {
	URL          string        // base URL, e.g. http://opa:8181
	DecisionPath string        // data API path, e.g. wavefleet/authz/result
	Timeout      time.Duration // hard deadline per evaluation call
}

// ApprovalConfig holds approval workflow configuration
type ApprovalConfig struct {
	TTL           time.Duration // pending requests older than this are auto-rejected
	SweepSchedule string        // cron expression for the expiry sweep
}

// CacheConfig holds the TTLs for the two independent authorization caches.
// A zero TTL disables the corresponding cache.
type CacheConfig struct {
	TenantAccessTTL   time.Duration
	PolicyDecisionTTL time.Duration
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "wavefleet"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "wavefleet"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		PolicyEngine: PolicyEngineConfig{
			URL:          getEnv("POLICY_ENGINE_URL", "http://localhost:8181"),
			DecisionPath: getEnv("POLICY_DECISION_PATH", "wavefleet/authz/result"),
			Timeout:      parseDuration("POLICY_ENGINE_TIMEOUT", "3s"),
		},
		Approval: ApprovalConfig{
			TTL:           parseDuration("APPROVAL_TTL", "48h"),
			SweepSchedule: getEnv("APPROVAL_SWEEP_SCHEDULE", "@every 15m"),
		},
		Cache: CacheConfig{
			TenantAccessTTL:   parseDuration("CACHE_TENANT_ACCESS_TTL", "15s"),
			PolicyDecisionTTL: parseDuration("CACHE_POLICY_DECISION_TTL", "30s"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "wavefleet-authz"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 50)),
			Burst:             parseInt("RATELIMIT_BURST", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.PolicyEngine.URL == "" {
		return fmt.Errorf("POLICY_ENGINE_URL is required")
	}
	if c.PolicyEngine.DecisionPath == "" {
		return fmt.Errorf("POLICY_DECISION_PATH is required")
	}
	if c.PolicyEngine.Timeout <= 0 {
		return fmt.Errorf("POLICY_ENGINE_TIMEOUT must be positive")
	}
	if c.Approval.TTL <= 0 {
		return fmt.Errorf("APPROVAL_TTL must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
