// Package service holds what the use-case packages below it share.
package service

import "fmt"

// ValidationError reports input the caller must fix; transports map it to a
// client error.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func Invalid(msg string) error {
	return &ValidationError{msg: msg}
}

func Invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
