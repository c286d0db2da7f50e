package upload

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNetworkTimeout matches a NetworkError whose cause is a deadline or transport timeout.
var ErrNetworkTimeout = errors.New("network timeout")

// HTTPError is a non-2xx response. Body is the raw response text.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed: status %d, body: %s", e.StatusCode, e.Body)
}

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s: network timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNetworkTimeout) identify timeouts.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkTimeout && e.Timeout()
}

// Timeout reports whether the failure was caused by a deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// StatusCode extracts the HTTP status from err when it carries one.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
