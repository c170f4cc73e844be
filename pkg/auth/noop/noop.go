// Package noop provides an authenticator that accepts all requests.
// Used when authentication is disabled.
package noop

import (
	"context"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/auth"
)

// Authenticator always returns Yes with the anonymous identity.
type Authenticator struct{}

func (a *Authenticator) Authenticate(_ context.Context, _ *api.Request) auth.AuthResult {
	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: auth.Anonymous(),
	}
}
