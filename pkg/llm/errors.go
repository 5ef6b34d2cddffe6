package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited indicates the provider rejected the request with HTTP 429
// and retries were exhausted.
var ErrRateLimited = errors.New("llm provider rate limited")

// ErrUnavailable indicates the provider is cold-loading the model (HTTP 503)
// and retries were exhausted.
var ErrUnavailable = errors.New("llm provider unavailable")

// ErrAuthFailed indicates the provider rejected the credentials (HTTP 403).
// Never retried.
var ErrAuthFailed = errors.New("llm provider authentication failed")

// TransportError covers network failures and non-2xx statuses that do not
// map to a more specific condition.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm transport error: %v", e.Err)
	}
	return fmt.Sprintf("llm transport error: unexpected status %d", e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError is returned when a 2xx payload matches none of the
// supported provider response shapes. Fields carries the top-level keys that
// were present, for diagnostics.
type MalformedResponseError struct {
	Fields []string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("llm response matched no known shape, fields: [%s]", strings.Join(e.Fields, ", "))
}
