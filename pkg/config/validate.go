package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with a descriptive field path.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}
	for name, d := range map[string]int64{
		"server.read_timeout":     int64(c.Server.ReadTimeout),
		"server.write_timeout":    int64(c.Server.WriteTimeout),
		"server.shutdown_timeout": int64(c.Server.ShutdownTimeout),
		"server.request_timeout":  int64(c.Server.RequestTimeout),
		"server.max_body_size":    c.Server.MaxBodySize,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	for i, er := range c.ErrorResponses {
		if er.Status < 100 || er.Status > 999 {
			errs = append(errs, fmt.Errorf("error_responses[%d].status must be a valid status code, got %d", i, er.Status))
		}
		for name := range er.Headers {
			if name == "" {
				errs = append(errs, fmt.Errorf("error_responses[%d].headers has an empty name", i))
			}
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].key or key_file is required", i))
			}
			if k.Subject == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].subject is required", i))
			}
		}
	case "jwt":
		hasSecret := c.Auth.JWT.Secret != ""
		hasKey := c.Auth.JWT.PublicKeyFile != ""
		if hasSecret == hasKey {
			errs = append(errs, fmt.Errorf("exactly one of auth.jwt.secret and auth.jwt.public_key_file is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}
	for i, p := range c.Auth.BypassPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("auth.bypass_paths[%d] must start with \"/\", got %q", i, p))
		}
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RequestsPerSecond))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be >= 1 when rate_limit.rps is set, got %d", c.RateLimit.Burst))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToUpper(c.Log.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of TRACE, DEBUG, INFO, WARN, ERROR, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
