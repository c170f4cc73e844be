package auth

import "github.com/rhuss/helo/pkg/api"

// identityKey is a private type for the request value key.
type identityKey struct{}

// SetIdentity attaches the authenticated identity to the request.
func SetIdentity(req *api.Request, id *Identity) {
	req.Set(identityKey{}, id)
}

// IdentityFrom retrieves the authenticated identity.
// Returns nil if no identity is set (unauthenticated or bypassed).
func IdentityFrom(req *api.Request) *Identity {
	if v, ok := req.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}
