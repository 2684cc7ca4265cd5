// Package errs defines the domain error kinds shared by the processing
// pipeline, the quiz engine and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

const (
	// KindConfiguration marks a missing or invalid credential. Never masked,
	// always propagated to the caller verbatim.
	KindConfiguration Kind = iota + 1
	// KindInput marks input rejected before any network call (empty,
	// too short, oversized, unsupported format).
	KindInput
	// KindService marks a network or service failure, optionally tagged as
	// a quota/rate-limit condition.
	KindService
	// KindValidation marks a service payload that could not be validated or
	// coerced into the expected shape.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInput:
		return "input"
	case KindService:
		return "service"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// Error is a classified domain error.
type Error struct {
	Kind  Kind
	Msg   string
	Quota bool // set on KindService rate-limit/quota responses
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration returns a configuration error.
func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Msg: msg}
}

// Input returns an input error.
func Input(msg string) error {
	return &Error{Kind: KindInput, Msg: msg}
}

// Inputf returns a formatted input error.
func Inputf(format string, args ...interface{}) error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

// Service wraps err as a service error with a human-readable message.
func Service(msg string, err error) error {
	return &Error{Kind: KindService, Msg: msg, Err: err}
}

// Quota returns a service error tagged as a quota/rate-limit condition.
func Quota(msg string, err error) error {
	return &Error{Kind: KindService, Msg: msg, Quota: true, Err: err}
}

// Validation returns a validation error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// KindOf returns the kind of err, or 0 when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// IsQuota reports whether err is a quota-tagged service error.
func IsQuota(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Quota
}
