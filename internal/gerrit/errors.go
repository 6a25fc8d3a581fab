package gerrit

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx HTTP response from the Gerrit server. The status
// is preserved so callers can special-case 404 where documented.
type APIError struct {
	Status  int
	Path    string
	Message string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("gerrit: %s: HTTP %d: %s", e.Path, e.Status, msg)
}

// NetworkError is a transport-level failure before any HTTP status arrived.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gerrit: %s: network error: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is a rejected authentication. It carries a remediation hint
// because the fix is almost always a stale HTTP password.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gerrit: authentication failed (HTTP %d): check your username and HTTP password (Settings → HTTP Credentials), then re-run 'gert setup'", e.Status)
}

// ParseError is a response that did not match the endpoint's schema.
// It indicates either a bug here or server-side skew.
type ParseError struct {
	Endpoint string
	Detail   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gerrit: %s: %s: %v", e.Endpoint, e.Detail, e.Err)
	}
	return fmt.Sprintf("gerrit: %s: %s", e.Endpoint, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
