package transport

import (
	"net/http"

	"github.com/rhuss/helo/pkg/api"
)

// StatusFromKind maps a failure kind to the status code of its error
// response.
func StatusFromKind(kind api.ErrorKind) int {
	switch kind {
	case api.KindCancel:
		return http.StatusServiceUnavailable
	case api.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StatusFromError classifies err and returns the status code of its error
// response.
func StatusFromError(err error) int {
	return StatusFromKind(api.KindOf(err))
}

// eventForKind returns the failure notification emitted for kind.
func eventForKind(kind api.ErrorKind) EventKind {
	switch kind {
	case api.KindCancel:
		return EventCancelError
	case api.KindTimeout:
		return EventTimeoutError
	default:
		return EventInternalError
	}
}
