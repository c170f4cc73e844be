package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rhuss/helo/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. .env file (HELO_ENV_FILE or ./.env), never overriding set variables
//  3. YAML config file (explicit path, HELO_CONFIG env, ./config.yaml, /etc/helo/config.yaml)
//  4. Environment variable overrides
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		debug.Log("config", "loading config file", "path", filePath)
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads variables from HELO_ENV_FILE, or ./.env when unset.
// A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv("HELO_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	debug.Log("config", "loaded env file", "path", path)
	return nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. HELO_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/helo/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("HELO_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/helo/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps HELO_* environment variables to config fields.
// Malformed values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	if v := os.Getenv("HELO_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HELO_PORT: %w", err))
		} else {
			cfg.Server.Port = port
		}
	}
	envDuration(&errs, "HELO_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration(&errs, "HELO_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration(&errs, "HELO_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envDuration(&errs, "HELO_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	if v := os.Getenv("HELO_MAX_BODY_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("HELO_MAX_BODY_SIZE: %w", err))
		} else {
			cfg.Server.MaxBodySize = n
		}
	}

	if v := os.Getenv("HELO_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	// HELO_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("HELO_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HELO_API_KEYS: %w", err))
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
	if v := os.Getenv("HELO_JWT_SECRET"); v != "" {
		cfg.Auth.JWT.Secret = v
	}
	if v := os.Getenv("HELO_JWT_PUBLIC_KEY_FILE"); v != "" {
		cfg.Auth.JWT.PublicKeyFile = v
	}
	if v := os.Getenv("HELO_JWT_ISSUER"); v != "" {
		cfg.Auth.JWT.Issuer = v
	}
	if v := os.Getenv("HELO_JWT_AUDIENCE"); v != "" {
		cfg.Auth.JWT.Audience = v
	}

	if v := os.Getenv("HELO_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("HELO_RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("HELO_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HELO_RATE_LIMIT_BURST: %w", err))
		} else {
			cfg.RateLimit.Burst = burst
		}
	}

	if v := os.Getenv("HELO_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HELO_METRICS_ENABLED: %w", err))
		} else {
			cfg.Observability.Metrics.Enabled = enabled
		}
	}

	return errors.Join(errs...)
}

func envDuration(errs *[]error, name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = d
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []struct {
		Key         string `json:"key"`
		KeyFile     string `json:"key_file"`
		Subject     string `json:"subject"`
		TenantID    string `json:"tenant_id"`
		ServiceTier string `json:"service_tier"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	out := make([]APIKeyConfig, len(keys))
	for i, k := range keys {
		out[i] = APIKeyConfig(k)
	}
	return out, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	// auth.jwt.secret_file -> auth.jwt.secret
	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
