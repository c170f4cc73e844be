// Package config provides unified configuration for the helo server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. .env file (variables already set in the environment win)
//  3. YAML config file (discovered or explicitly specified)
//  4. Environment variable overrides (HELO_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"time"

	"github.com/rhuss/helo/pkg/api"
)

// Config holds all configuration for the helo server.
type Config struct {
	Server         ServerConfig          `yaml:"server"`
	ContentTypes   ContentTypesConfig    `yaml:"content_types"`
	ErrorResponses []ErrorResponseConfig `yaml:"error_responses"`
	Auth           AuthConfig            `yaml:"auth"`
	RateLimit      RateLimitConfig       `yaml:"rate_limit"`
	Observability  ObservabilityConfig   `yaml:"observability"`
	Log            LogConfig             `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 0 (streams stay open)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // default: 0 (disabled)
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
}

// ContentTypesConfig overrides the content type sent for each body
// representation. Empty values keep the built-in default.
type ContentTypesConfig struct {
	HTML string `yaml:"html"`
	JSON string `yaml:"json"`
	Form string `yaml:"form"`
}

// ErrorResponseConfig describes a canned response sent when a request fails
// with the given status before anything has been written.
type ErrorResponseConfig struct {
	Status  int               `yaml:"status"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type        string         `yaml:"type"`         // "none", "apikey" or "jwt", default: "none"
	APIKeys     []APIKeyConfig `yaml:"api_keys"`     // API key entries for type=apikey
	JWT         JWTConfig      `yaml:"jwt"`          // settings for type=jwt
	BypassPaths []string       `yaml:"bypass_paths"` // paths served without authentication
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	TenantID    string `yaml:"tenant_id"`
	ServiceTier string `yaml:"service_tier"`
}

// JWTConfig holds bearer token validation settings. Exactly one of Secret
// (HMAC) and PublicKeyFile (RSA, PEM encoded) must be set.
type JWTConfig struct {
	Secret        string `yaml:"secret"`
	SecretFile    string `yaml:"secret_file"` // _file variant for secret
	PublicKeyFile string `yaml:"public_key_file"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	TenantClaim   string `yaml:"tenant_claim"` // default: "tenant_id"
	ScopeClaim    string `yaml:"scope_claim"`  // default: "scope"
}

// RateLimitConfig holds per-subject rate limiting settings. A zero rate
// disables rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"rps"`
	Burst             int     `yaml:"burst"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LogConfig holds logging settings. The HELO_LOG_LEVEL and HELO_DEBUG
// environment variables take precedence at startup.
type LogConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				TenantClaim: "tenant_id",
				ScopeClaim:  "scope",
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// ErrorResponseList converts the configured error responses into responses
// suitable for transport.Stack.SetErrorResponse. Every call returns fresh
// values.
func (c *Config) ErrorResponseList() []*api.Response {
	out := make([]*api.Response, 0, len(c.ErrorResponses))
	for _, er := range c.ErrorResponses {
		resp := &api.Response{
			StatusCode: er.Status,
			Chunk:      []byte(er.Body),
		}
		if len(er.Headers) > 0 {
			m := make(map[string]any, len(er.Headers))
			for name, value := range er.Headers {
				m[name] = value
			}
			resp.Headers = api.HeadersFrom(m)
		}
		out = append(out, resp)
	}
	return out
}
