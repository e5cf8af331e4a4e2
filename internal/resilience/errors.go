package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError wraps an error that may succeed on a later attempt
// (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// StatusCoder is implemented by API client errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusCode extracts the HTTP status from err's chain, or 0 when none is present.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, carries a transient HTTP status, or matches common
// transient network patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if code := StatusCode(err); code != 0 {
		return IsTransientHTTPStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsSoftBlockStatus reports whether a scrape target refused us
// (401, 403 or 429) as opposed to failing outright.
func IsSoftBlockStatus(statusCode int) bool {
	return statusCode == http.StatusUnauthorized ||
		statusCode == http.StatusForbidden ||
		statusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err carries a 429.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsPermanentModelError reports whether err says the model itself cannot
// serve requests (unknown model or a request it will always reject).
func IsPermanentModelError(err error) bool {
	switch StatusCode(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		return true
	}
	return false
}

// IsCredentialRejected reports whether err carries 401, 403 or 429, the
// statuses that rotate an API key.
func IsCredentialRejected(err error) bool {
	return IsSoftBlockStatus(StatusCode(err))
}
