package main

import (
	"fmt"

	"github.com/rhuss/helo/pkg/auth"
	"github.com/rhuss/helo/pkg/auth/apikey"
	"github.com/rhuss/helo/pkg/auth/jwt"
	"github.com/rhuss/helo/pkg/auth/noop"
	"github.com/rhuss/helo/pkg/config"
	"github.com/rhuss/helo/pkg/transport"
)

// newAuthPlugin builds the authentication plugin for cfg.Auth and
// cfg.RateLimit.
func newAuthPlugin(cfg *config.Config) (*transport.Plugin, error) {
	chain := &auth.AuthChain{DefaultDecision: auth.No}

	switch cfg.Auth.Type {
	case "none":
		chain.Authenticators = []auth.Authenticator{&noop.Authenticator{}}
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			id := auth.Identity{Subject: k.Subject, ServiceTier: k.ServiceTier}
			if k.TenantID != "" {
				id.Metadata = map[string]string{"tenant_id": k.TenantID}
			}
			entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Identity: id})
		}
		chain.Authenticators = []auth.Authenticator{apikey.New(entries)}
	case "jwt":
		jc := jwt.Config{
			Issuer:      cfg.Auth.JWT.Issuer,
			Audience:    cfg.Auth.JWT.Audience,
			TenantClaim: cfg.Auth.JWT.TenantClaim,
			ScopesClaim: cfg.Auth.JWT.ScopeClaim,
		}
		if cfg.Auth.JWT.Secret != "" {
			jc.Secret = []byte(cfg.Auth.JWT.Secret)
		} else {
			key, err := jwt.LoadPublicKey(cfg.Auth.JWT.PublicKeyFile)
			if err != nil {
				return nil, err
			}
			jc.PublicKey = key
		}
		authn, err := jwt.New(jc)
		if err != nil {
			return nil, err
		}
		chain.Authenticators = []auth.Authenticator{authn}
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	var limiter auth.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = auth.NewInProcessLimiter(nil, auth.TierConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
	}

	return auth.Plugin(chain, limiter, cfg.Auth.BypassPaths), nil
}
