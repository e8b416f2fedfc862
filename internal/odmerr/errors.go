// Package odmerr defines the failure kinds raised while mapping stored data
// onto documents and document sets.
package odmerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaConfiguration reports a schema declaration that cannot be honored,
	// such as an element class that is not a document.
	ErrSchemaConfiguration = errors.New("schema configuration error")
	// ErrUsage reports a caller mistake, such as a non-numeric set index.
	ErrUsage = errors.New("usage error")
	// ErrValidation reports a value rejected by the declared validators.
	ErrValidation = errors.New("validation error")
)

// Error is a failure with enough context to explain where it happened.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Op is the operation that failed (e.g. "set", "get").
	Op string
	// Path is the storage path involved, if any.
	Path string
	// Message is the human-readable description.
	Message string
	// Messages holds aggregated validator messages for validation failures.
	Messages []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.Error())

	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}

	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "\n"))
	}

	return b.String()
}

// Unwrap lets errors.Is match the sentinel kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// SchemaConfiguration builds an ErrSchemaConfiguration failure.
func SchemaConfiguration(op, path, format string, args ...any) *Error {
	return &Error{Kind: ErrSchemaConfiguration, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Usage builds an ErrUsage failure.
func Usage(op, path, format string, args ...any) *Error {
	return &Error{Kind: ErrUsage, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Validation builds an ErrValidation failure carrying every validator message.
func Validation(op, path string, messages []string) *Error {
	return &Error{Kind: ErrValidation, Op: op, Path: path, Messages: append([]string(nil), messages...)}
}

// Messages returns the validator messages carried by err, if it is a validation failure.
func Messages(err error) []string {
	var e *Error
	if errors.As(err, &e) && errors.Is(e.Kind, ErrValidation) {
		return e.Messages
	}

	return nil
}
