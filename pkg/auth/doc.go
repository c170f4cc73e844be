// Package auth provides pluggable authentication for helo stacks.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is installed as a transport.Plugin. Its middleware short-circuits
// the chain with a JSON error response when authentication or the rate
// limit fails, and otherwise attaches the identity to the request.
package auth
