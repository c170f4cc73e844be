package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/debug"
	"github.com/rhuss/helo/pkg/transport"
)

// Plugin creates a transport plugin from an AuthChain and optional
// RateLimiter. Requests whose path is in bypassPaths skip authentication.
// Failed authentication answers 401, an exhausted rate limit answers 429,
// both with a JSON error body. Otherwise the identity is attached to the
// request and the chain continues.
func Plugin(chain *AuthChain, limiter RateLimiter, bypassPaths []string) *transport.Plugin {
	bypass := make(map[string]bool, len(bypassPaths))
	for _, p := range bypassPaths {
		bypass[p] = true
	}

	return &transport.Plugin{
		Middleware: func(next transport.Handler) transport.Handler {
			return func(ctx context.Context, req *api.Request) (*api.Response, error) {
				if bypass[req.Pathname] {
					return next(ctx, req)
				}

				result := chain.Authenticate(ctx, req)

				if result.Decision != Yes || result.Identity == nil {
					slog.Warn("authentication failed",
						"path", req.Pathname,
						"request_id", req.ID,
						"error", result.Err,
					)
					return unauthorized(), nil
				}

				if result.Identity.Subject == "" {
					slog.Error("authenticator returned identity with empty subject")
					return api.NewErrorResponse(http.StatusInternalServerError, &api.APIError{
						Type:    api.ErrorTypeServerError,
						Message: "internal authentication error",
					}), nil
				}

				debug.Log("auth", "authentication succeeded",
					"subject", result.Identity.Subject,
					"path", req.Pathname,
				)

				if limiter != nil {
					if err := limiter.Allow(ctx, result.Identity); err != nil {
						slog.Warn("rate limit exceeded",
							"subject", result.Identity.Subject,
							"tier", result.Identity.ServiceTier,
						)
						return tooManyRequests(), nil
					}
				}

				SetIdentity(req, result.Identity)
				return next(ctx, req)
			}
		},
	}
}

func unauthorized() *api.Response {
	resp := api.NewErrorResponse(http.StatusUnauthorized, &api.APIError{
		Type:    api.ErrorTypeUnauthorized,
		Message: "authentication required",
	})
	resp.Headers = api.NewHeaders().Set("WWW-Authenticate", "Bearer")
	return resp
}

func tooManyRequests() *api.Response {
	resp := api.NewErrorResponse(http.StatusTooManyRequests, &api.APIError{
		Type:    api.ErrorTypeTooManyRequests,
		Message: "rate limit exceeded",
	})
	resp.Headers = api.NewHeaders().Set("Retry-After", 1)
	return resp
}

// BearerToken returns the token of an "Authorization: Bearer" header. ok is
// false when the header is missing or uses another scheme.
func BearerToken(req *api.Request) (token string, ok bool) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// DefaultBypassPaths lists paths that skip authentication.
var DefaultBypassPaths = []string{"/healthz", "/readyz"}
