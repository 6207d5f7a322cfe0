package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Keys          KeysConfig
	Token         TokenConfig
	Sealer        SealerConfig
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

// StoreConfig selects the key store backend
type StoreConfig struct {
	// Backend is one of "redis", "postgres", "memory". The memory backend
	// loses all keys on restart and is for development only.
	Backend string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableTLS    bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// KeysConfig holds rotation policy configuration
type KeysConfig struct {
	// Lifetime is the total duration a key may serve as signing key.
	Lifetime time.Duration
	// RotationBuffer is how long before Lifetime expiry a replacement
	// must already be minted.
	RotationBuffer time.Duration
	// MinRetainedKeys is the floor on active keys regardless of age.
	MinRetainedKeys int
}

// TokenConfig holds token issuance configuration
type TokenConfig struct {
	Issuer string
	TTL    time.Duration
}

// SealerConfig holds the at-rest encryption master key
type SealerConfig struct {
	// MasterKey is the decoded 32-byte key from SEALER_MASTER_KEY
	// (base64). Generate one with: openssl rand -base64 32
	MasterKey []byte
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
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "redis"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           parseInt("REDIS_DB", 0),
			DialTimeout:  parseDuration("REDIS_DIAL_TIMEOUT", "5s"),
			ReadTimeout:  parseDuration("REDIS_READ_TIMEOUT", "3s"),
			WriteTimeout: parseDuration("REDIS_WRITE_TIMEOUT", "3s"),
			EnableTLS:    parseBool("REDIS_TLS", false),
		},
		Database: LoadDatabase(),
		Keys: KeysConfig{
			Lifetime:        parseDuration("KEYS_LIFETIME", "720h"),
			RotationBuffer:  parseDuration("KEYS_ROTATION_BUFFER", "168h"),
			MinRetainedKeys: parseInt("KEYS_MIN_RETAINED", 2),
		},
		Token: TokenConfig{
			Issuer: getEnv("TOKEN_ISSUER", "signet"),
			TTL:    parseDuration("TOKEN_TTL", "1h"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "signet"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 50)),
			Burst:             parseInt("RATELIMIT_BURST", 100),
		},
	}

	if raw := os.Getenv("SEALER_MASTER_KEY"); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("SEALER_MASTER_KEY is not valid base64: %w", err)
		}
		cfg.Sealer.MasterKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDatabase loads only the database section. Used by the migrate
// command, which needs no sealer or store selection.
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnv("DB_PORT", "5432"),
		User:         getEnv("DB_USER", "signet"),
		Password:     getEnv("DB_PASSWORD", ""),
		Database:     getEnv("DB_NAME", "signet"),
		SSLMode:      getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns: parseInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns: parseInt("DB_MAX_IDLE_CONNS", 5),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be redis, postgres or memory, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
	}
	if len(c.Sealer.MasterKey) != 32 {
		return fmt.Errorf("SEALER_MASTER_KEY must decode to 32 bytes, got %d", len(c.Sealer.MasterKey))
	}
	if c.Keys.RotationBuffer >= c.Keys.Lifetime {
		return fmt.Errorf("KEYS_ROTATION_BUFFER must be shorter than KEYS_LIFETIME")
	}
	if c.Keys.MinRetainedKeys < 1 {
		return fmt.Errorf("KEYS_MIN_RETAINED must be at least 1")
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
