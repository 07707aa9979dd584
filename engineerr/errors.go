// Package engineerr provides the engine's error taxonomy: a fixed set of
// kinds callers can switch on or match with errors.Is, wrapped in a
// contextual error carrying the component and operation that failed.
package engineerr

import "fmt"

// Kind is the closed set of error categories the engine distinguishes.
// Kind is itself an error so sentinel comparisons work with errors.Is
// without constructing an *Error.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ConfigError         Kind = "config_error"
	TransportError      Kind = "transport_error"
	Timeout             Kind = "timeout"
	ContextOverflow     Kind = "context_overflow"
	RefusalDetected     Kind = "refusal_detected"
	Duplicate           Kind = "duplicate"
	Malformed           Kind = "malformed"
	RuleResolutionError Kind = "rule_resolution_error"
	PersistenceError    Kind = "persistence_error"
	ValidationError     Kind = "validation_error"
)

// Error is a structured error carrying the component/operation that
// produced it, its Kind, and an optional underlying cause.
type Error struct {
	Component string
	Operation string
	Kind      Kind
	Detail    string
	Cause     error
}

// New creates an *Error with the given component, operation, kind, and cause.
func New(component, operation string, kind Kind, cause error) *Error {
	return &Error{Component: component, Operation: operation, Kind: kind, Cause: cause}
}

// WithDetail sets a short free-form detail string (e.g. the offending key)
// and returns the same error for chaining.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

func (e *Error) Error() string {
	base := fmt.Sprintf("[%s] %s: %s", e.Component, e.Operation, e.Kind)
	if e.Detail != "" {
		base += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

// Unwrap exposes both the Kind and the Cause to errors.Is/errors.As chains:
// errors.Is(err, engineerr.Timeout) and errors.As(err, &cause) both work.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Is reports whether target is this error's Kind, so errors.Is(err, X) works
// even though Kind is compared by value rather than identity.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}
