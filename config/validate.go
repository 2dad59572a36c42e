package config

import (
	"errors"
	"fmt"

	"github.com/ManupaDev/multi-agent-travel-planner/log"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	if c.Capabilities.BaseURL == "" {
		errs = append(errs, fmt.Errorf("capabilities.base_url is required (or set CONVEX_BASE_URL)"))
	}
	if c.Capabilities.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("capabilities.http_timeout must be > 0, got %s", c.Capabilities.HTTPTimeout))
	}
	if c.Capabilities.WebSearchPerMinute < 0 {
		errs = append(errs, fmt.Errorf("capabilities.web_search_per_minute must be >= 0, got %v", c.Capabilities.WebSearchPerMinute))
	}
	if c.Capabilities.ToolConcurrency < 0 {
		errs = append(errs, fmt.Errorf("capabilities.tool_concurrency must be >= 0, got %d", c.Capabilities.ToolConcurrency))
	}

	switch c.Model.Provider {
	case "openai":
	default:
		errs = append(errs, fmt.Errorf("model.provider must be \"openai\", got %q", c.Model.Provider))
	}
	if c.Model.Name == "" {
		errs = append(errs, fmt.Errorf("model.name is required"))
	}

	if c.Engine.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("engine.max_steps must be >= 0, got %d", c.Engine.MaxSteps))
	}

	switch c.Store.Type {
	case "memory", "sqlite":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("store.redis.addr is required when store.type is \"redis\""))
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" && c.Store.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("store.postgres.dsn or store.postgres.dsn_file is required when store.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("store.type must be \"memory\", \"redis\", \"postgres\" or \"sqlite\", got %q", c.Store.Type))
	}
	if c.Store.Type == "sqlite" && c.Store.Sqlite.Path == "" {
		errs = append(errs, fmt.Errorf("store.sqlite.path is required when store.type is \"sqlite\""))
	}

	switch c.Lock.Type {
	case "local":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("store.redis.addr is required when lock.type is \"redis\""))
		}
		if c.Lock.TTL <= 0 {
			errs = append(errs, fmt.Errorf("lock.ttl must be > 0, got %s", c.Lock.TTL))
		}
	default:
		errs = append(errs, fmt.Errorf("lock.type must be \"local\" or \"redis\", got %q", c.Lock.Type))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
