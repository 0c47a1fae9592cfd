package calendar

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the referenced event no longer exists upstream.
var ErrNotFound = errors.New("calendar event not found")

// ConfigurationError reports a missing calendar id or credential. A client
// built without configuration fails every call with it.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calendar not configured: %s: %v", e.Field, e.Err)
	}
	return "calendar not configured: missing " + e.Field
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ExternalServiceError reports an unreachable provider, a rejected request or a
// non-2xx response. StatusCode is zero for transport failures.
type ExternalServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendar %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
