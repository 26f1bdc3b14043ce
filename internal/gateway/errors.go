package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork marks transport-level failures (DNS, timeout, reset). Callers
// treat it like the corresponding domain error for messaging purposes.
var ErrNetwork = errors.New("marketplace api unreachable")

// APIError is a non-2xx response from the marketplace API. Message carries
// the server's own text when one was sent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("marketplace api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("marketplace api: status %d", e.StatusCode)
}

// IsAuth reports whether the failure means the session token is missing,
// expired or insufficient, in which case the bot redirects to login.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// AsAPIError unwraps err into an *APIError if there is one in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
