// Package config provides the configuration of the travel planner server.
//
// Configuration is loaded in layers:
//  1. Built-in defaults
//  2. YAML config file (explicit path, TRAVEL_CONFIG, ./config.yaml)
//  3. Environment variable overrides (TRAVEL_ prefix, plus CONVEX_BASE_URL
//     and OPENAI_API_KEY)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the travel planner.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Model        ModelConfig        `yaml:"model"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Engine       EngineConfig       `yaml:"engine"`
	Store        StoreConfig        `yaml:"store"`
	Lock         LockConfig         `yaml:"lock"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8585
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0, streams have no deadline
	CORSOrigins  []string      `yaml:"cors_origins"`  // default: the Vite and dev ports
}

// ModelConfig selects the reasoning model.
type ModelConfig struct {
	Provider   string `yaml:"provider"`     // "openai", default: "openai"
	Name       string `yaml:"name"`         // default: "gpt-4o-mini"
	APIKey     string `yaml:"api_key"`      // falls back to OPENAI_API_KEY
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url"`     // optional, OpenAI-compatible endpoint
}

// CapabilitiesConfig holds settings of the external capabilities.
type CapabilitiesConfig struct {
	BaseURL            string        `yaml:"base_url"`              // travel backend, required
	HTTPTimeout        time.Duration `yaml:"http_timeout"`          // default: 10s
	WebSearchPerMinute float64       `yaml:"web_search_per_minute"` // default: 30, 0 disables limiting
	WebSearchBurst     int           `yaml:"web_search_burst"`      // default: 3
	ToolConcurrency    int           `yaml:"tool_concurrency"`      // default: 0, one goroutine per call
}

// EngineConfig holds workflow engine settings.
type EngineConfig struct {
	MaxSteps int `yaml:"max_steps"` // default: 0, unlimited
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	Type     string         `yaml:"type"` // "memory", "redis", "postgres" or "sqlite", default: "memory"
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Sqlite   SqliteConfig   `yaml:"sqlite"`
}

// RedisConfig holds Redis connection settings, shared by the store and the lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"` // default: "localhost:6379"
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"` // default: "travelplanner:"
	TTL      time.Duration `yaml:"ttl"`    // checkpoint expiry, default: 0
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	Table          string `yaml:"table"`            // default: "checkpoints"
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// SqliteConfig holds SQLite settings.
type SqliteConfig struct {
	Path  string `yaml:"path"`  // default: "travelplanner.db"
	Table string `yaml:"table"` // default: "checkpoints"
}

// LockConfig selects how runs are serialized per thread.
type LockConfig struct {
	Type string        `yaml:"type"` // "local" or "redis", default: "local"
	TTL  time.Duration `yaml:"ttl"`  // redis lock expiry, default: 10m
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error or none, default: "info"
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8585,
			ReadTimeout: 30 * time.Second,
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://localhost:3000",
				"http://127.0.0.1:5173",
				"http://127.0.0.1:3000",
			},
		},
		Model: ModelConfig{
			Provider: "openai",
			Name:     "gpt-4o-mini",
		},
		Capabilities: CapabilitiesConfig{
			HTTPTimeout:        10 * time.Second,
			WebSearchPerMinute: 30,
			WebSearchBurst:     3,
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "travelplanner:",
			},
			Postgres: PostgresConfig{
				Table:          "checkpoints",
				MigrateOnStart: true,
			},
			Sqlite: SqliteConfig{
				Path:  "travelplanner.db",
				Table: "checkpoints",
			},
		},
		Lock: LockConfig{
			Type: "local",
			TTL:  10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
