// Package errs provides structured error types shared by the venue adapter.
package errs

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Code identifies an adapter error category.
type Code string

const (
	// CodeConfig indicates invalid construction parameters, such as a partial credential pair.
	CodeConfig Code = "config"
	// CodeTimeout indicates the transport could not connect within the retry window.
	CodeTimeout Code = "connection_timeout"
	// CodeNetwork indicates a transport failure after the session was established.
	CodeNetwork Code = "network"
	// CodeInvalid indicates a locally refused request (batch size, interval, depth level, order shape).
	CodeInvalid Code = "invalid_request"
	// CodeRateLimited indicates the outbound command throttle refused the request.
	CodeRateLimited Code = "rate_limited"
	// CodeUnavailable indicates the session is closed or errored.
	CodeUnavailable Code = "unavailable"
	// CodeAuth indicates the login frame could not be delivered.
	CodeAuth Code = "auth"
)

// E captures structured error information produced across the adapter.
type E struct {
	Op          string
	Code        Code
	Message     string
	Remediation string
	Fields      map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and error code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:   strings.TrimSpace(op),
		Code: code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithRemediation attaches remediation guidance to the error.
func WithRemediation(remediation string) Option {
	trimmed := strings.TrimSpace(remediation)
	return func(e *E) {
		e.Remediation = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// WithField appends a single key/value pair of context.
func WithField(key, value string) Option {
	return func(e *E) {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string, 1)
		}
		e.Fields[trimmedKey] = strings.TrimSpace(value)
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	op := e.Op
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.Remediation != "" {
		parts = append(parts, "remediation="+strconv.Quote(e.Remediation))
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+strconv.Quote(e.Fields[k]))
		}
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}
	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether err carries an *E with the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *E
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// Invalid returns a validation error for a locally refused request.
func Invalid(op, msg string, opts ...Option) *E {
	return New(op, CodeInvalid, append([]Option{WithMessage(msg)}, opts...)...)
}
