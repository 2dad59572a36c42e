package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "TRAVEL_CONFIG"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, TRAVEL_CONFIG env, ./config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(configPath); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile returns the explicit path, then TRAVEL_CONFIG, then
// ./config.yaml when it exists. Returns empty string if no file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile parses a YAML file into cfg. Fields not present in the file
// keep their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables onto config fields. Malformed
// numbers and durations are reported instead of being ignored.
func applyEnvOverrides(cfg *Config) error {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// Names shared with the frontend tooling.
	setString("CONVEX_BASE_URL", &cfg.Capabilities.BaseURL)
	setString("OPENAI_API_KEY", &cfg.Model.APIKey)

	setString("TRAVEL_CAPABILITIES_BASE_URL", &cfg.Capabilities.BaseURL)
	setString("TRAVEL_MODEL_PROVIDER", &cfg.Model.Provider)
	setString("TRAVEL_MODEL", &cfg.Model.Name)
	setString("TRAVEL_MODEL_API_KEY", &cfg.Model.APIKey)
	setString("TRAVEL_MODEL_BASE_URL", &cfg.Model.BaseURL)
	setString("TRAVEL_STORE", &cfg.Store.Type)
	setString("TRAVEL_REDIS_ADDR", &cfg.Store.Redis.Addr)
	setString("TRAVEL_REDIS_PASSWORD", &cfg.Store.Redis.Password)
	setString("TRAVEL_POSTGRES_DSN", &cfg.Store.Postgres.DSN)
	setString("TRAVEL_SQLITE_PATH", &cfg.Store.Sqlite.Path)
	setString("TRAVEL_LOCK", &cfg.Lock.Type)
	setString("TRAVEL_LOG_LEVEL", &cfg.Log.Level)

	if v := os.Getenv("TRAVEL_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"TRAVEL_PORT", &cfg.Server.Port},
		{"TRAVEL_MAX_STEPS", &cfg.Engine.MaxSteps},
		{"TRAVEL_TOOL_CONCURRENCY", &cfg.Capabilities.ToolConcurrency},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("TRAVEL_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRAVEL_HTTP_TIMEOUT: %w", err)
		}
		cfg.Capabilities.HTTPTimeout = d
	}
	return nil
}

// resolveFileReferences reads _file fields into their value fields when the
// value is not already set.
func resolveFileReferences(cfg *Config) error {
	if cfg.Model.APIKeyFile != "" && cfg.Model.APIKey == "" {
		val, err := readSecretFile(cfg.Model.APIKeyFile)
		if err != nil {
			return fmt.Errorf("model.api_key_file: %w", err)
		}
		cfg.Model.APIKey = val
	}
	if cfg.Store.Postgres.DSNFile != "" && cfg.Store.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Store.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("store.postgres.dsn_file: %w", err)
		}
		cfg.Store.Postgres.DSN = val
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
