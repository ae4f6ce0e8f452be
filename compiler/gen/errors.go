package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors of this package through their Is
// methods.
var (
	// ErrInvalidSchema indicates a metamodel that cannot be rendered.
	ErrInvalidSchema = errors.New("loom: invalid schema")
	// ErrMissingConfig matches every ConfigError.
	ErrMissingConfig = errors.New("loom: missing configuration")
	// ErrUnknownTypeReference indicates a type or relationship pointing at
	// an object absent from the domain.
	ErrUnknownTypeReference = errors.New("loom: unknown type reference")
	// ErrFileIO indicates a failed read or write of generated output.
	ErrFileIO = errors.New("loom: file i/o")
	// ErrGenerationFailed matches every GenerationError.
	ErrGenerationFailed = errors.New("loom: code generation failed")
)

// SchemaError reports a metamodel that cannot be turned into a graph:
// duplicate or unusable names, malformed relationships.
type SchemaError struct {
	Type    string // Object name
	Field   string // Attribute name (if applicable)
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("loom: schema error")
	if e.Type != "" {
		b.WriteString(" on object ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" attribute ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError returns a SchemaError on the object typeName and, when set,
// its attribute fieldName.
func NewSchemaError(typeName, fieldName, message string, cause error) *SchemaError {
	return &SchemaError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError reports an option value the generator cannot use.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("loom: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("loom: config error for %q: %s", e.Option, e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// ReferenceError reports an attribute type or a relationship whose target
// object does not exist. Relationship is zero for attribute references.
type ReferenceError struct {
	Object       string
	Attribute    string
	Relationship int
	Target       string
}

func (e *ReferenceError) Error() string {
	var b strings.Builder
	b.WriteString("loom: unknown type reference")
	if e.Relationship > 0 {
		fmt.Fprintf(&b, " in relationship R%d", e.Relationship)
	}
	if e.Object != "" {
		b.WriteString(" from ")
		b.WriteString(e.Object)
		if e.Attribute != "" {
			b.WriteString(".")
			b.WriteString(e.Attribute)
		}
	}
	fmt.Fprintf(&b, ": object %q is not part of the domain", e.Target)
	return b.String()
}

// Is reports whether the target matches ErrUnknownTypeReference.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrUnknownTypeReference
}

// FileError reports a failed file operation on generated output.
type FileError struct {
	Op    string // "read", "write", "mkdir", "remove"
	Path  string
	Cause error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("loom: %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrFileIO.
func (e *FileError) Is(target error) bool {
	return target == ErrFileIO
}

// GenerationError reports a failure while synthesizing, merging or writing a
// file. Phase names the step.
type GenerationError struct {
	Phase   string // "object", "store", "merge", etc.
	File    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("loom: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsSchemaError reports whether the error is a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsReferenceError reports whether the error is a ReferenceError.
func IsReferenceError(err error) bool {
	var refErr *ReferenceError
	return errors.As(err, &refErr)
}

// IsFileError reports whether the error is a FileError.
func IsFileError(err error) bool {
	var fileErr *FileError
	return errors.As(err, &fileErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
