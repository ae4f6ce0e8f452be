package loom

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below.
var (
	// ErrNotFound reports a lookup of an id the store does not hold.
	ErrNotFound = errors.New("loom: instance not found")

	// ErrNotSingular reports a navigation that needed one instance and got
	// zero or several.
	ErrNotSingular = errors.New("loom: instance not singular")

	// ErrIncompletePersist reports a persisted directory without a manifest,
	// or whose files disagree with it.
	ErrIncompletePersist = errors.New("loom: incomplete persisted store")
)

// NotFoundError is raised when a navigation follows a key to an instance
// that is missing from the store.
type NotFoundError struct {
	label string
	id    any
}

func (e *NotFoundError) Error() string {
	msg := "loom: " + e.label + " not found"
	if e.id != nil {
		msg += fmt.Sprintf(" (id=%v)", e.id)
	}
	return msg
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Label is the name of the object that was looked up.
func (e *NotFoundError) Label() string { return e.label }

// ID is the key that missed, or nil.
func (e *NotFoundError) ID() any { return e.id }

// NewNotFoundError returns a NotFoundError for the object label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a NotFoundError carrying the missed key.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound reports whether err is or wraps a NotFoundError or ErrNotFound.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError is raised when a navigation that promises one instance
// finds another number of them. A count of -1 means it was not recorded.
type NotSingularError struct {
	label string
	count int
}

func (e *NotSingularError) Error() string {
	if e.count < 0 {
		return "loom: " + e.label + " not singular"
	}
	return fmt.Sprintf("loom: %s not singular (got %d results, expected 1)", e.label, e.count)
}

// Is makes errors.Is(err, ErrNotSingular) hold.
func (e *NotSingularError) Is(target error) bool { return target == ErrNotSingular }

// Label is the name of the object that was navigated to.
func (e *NotSingularError) Label() string { return e.label }

// Count is the number of instances found, or -1.
func (e *NotSingularError) Count() int { return e.count }

// NewNotSingularError returns a NotSingularError without a count.
func NewNotSingularError(label string) *NotSingularError {
	return NewNotSingularErrorWithCount(label, -1)
}

// NewNotSingularErrorWithCount returns a NotSingularError for count instances.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular reports whether err is or wraps a NotSingularError or
// ErrNotSingular.
func IsNotSingular(err error) bool {
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// PersistError locates a failure of Persist or Load.
type PersistError struct {
	Op   string // "persist" or "load"
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return "loom: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsPersistError reports whether err wraps a PersistError.
func IsPersistError(err error) bool {
	var e *PersistError
	return errors.As(err, &e)
}

// AggregateError joins a failure with the errors of cleaning up after it.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "loom: no errors"
	case 1:
		return e.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("loom: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  [%d] %v", i+1, err)
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// NewAggregateError drops nil errors. It returns nil when none is left, the
// error itself when one is left, and an *AggregateError otherwise.
func NewAggregateError(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &AggregateError{Errors: kept}
}
