package merge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrMergeConflict indicates an ambiguous block layout, such as a tag
	// repeated among siblings.
	ErrMergeConflict = errors.New("loom: merge conflict")
	// ErrMalformedDirective indicates a marker that cannot be decoded or
	// markers that do not pair up.
	ErrMalformedDirective = errors.New("loom: malformed directive")
	// ErrStaleScope marks a prior block with no fresh counterpart.
	ErrStaleScope = errors.New("loom: stale scope")
)

// ConflictError reports a block layout the merge cannot resolve.
type ConflictError struct {
	Path    string
	Tag     string
	Line    int // 1-based
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("loom: merge conflict")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Tag != "" {
		fmt.Fprintf(&b, " on scope %q", e.Tag)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrMergeConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// IsConflict reports whether the error is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// StaleScope is the warning recorded for a dropped prior block.
type StaleScope struct {
	Tag     string
	Ordinal int
}

// Error implements the error interface.
func (s StaleScope) Error() string {
	return fmt.Sprintf("loom: stale scope %q (occurrence %d) dropped", s.Tag, s.Ordinal)
}

// Is reports whether the target matches ErrStaleScope.
func (s StaleScope) Is(target error) bool {
	return target == ErrStaleScope
}

func malformed(line int, tag, format string, args ...any) *ConflictError {
	return &ConflictError{Line: line, Tag: tag, Message: fmt.Sprintf(format, args...), Cause: ErrMalformedDirective}
}
