package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild  Phase = "build"  // value tree to BSON bytes
	PhaseDecode Phase = "decode" // BSON bytes to value tree
	PhaseAccess Phase = "access" // typed reads out of a value tree
	PhaseConfig Phase = "config" // named configuration lookup
)

// Kind categorizes the error
type Kind string

const (
	KindStructural   Kind = "structural"
	KindRange        Kind = "range"
	KindInvalidUTF8  Kind = "invalid_utf8"
	KindTypeMismatch Kind = "type_mismatch"
	KindMissingValue Kind = "missing_value"
	KindNotFound     Kind = "not_found"
	KindInvalidData  Kind = "invalid_data"
	KindTruncated    Kind = "truncated"
	KindConsumed     Kind = "consumed"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Got    string
	Want   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Got != "" || e.Want != "" {
		b.WriteString(": ")
		if e.Got != "" && e.Want != "" {
			b.WriteString("got ")
			b.WriteString(e.Got)
			b.WriteString(", want ")
			b.WriteString(e.Want)
		} else if e.Got != "" {
			b.WriteString("got ")
			b.WriteString(e.Got)
		} else {
			b.WriteString("want ")
			b.WriteString(e.Want)
		}
	}

	if e.Detail != "" {
		if e.Got != "" || e.Want != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Got sets the type name that was actually seen
func (b *Builder) Got(t string) *Builder {
	b.err.Got = t
	return b
}

// Want sets the type name that was expected
func (b *Builder) Want(t string) *Builder {
	b.err.Want = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Structural creates a structural error (document built from a non-container root)
func Structural(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStructural,
		Detail: detail,
	}
}

// OutOfRange creates a range error for values the format cannot represent
func OutOfRange(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRange,
		Path:   path,
		Want:   targetType,
		Detail: fmt.Sprintf("value %v does not fit %s", value, targetType),
		Value:  value,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("BSON strings must be valid UTF-8 (got %x)", preview),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, got, want string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindTypeMismatch,
		Path:  path,
		Got:   got,
		Want:  want,
	}
}

// MissingValue creates an error for using an elided value where one is required
func MissingValue(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMissingValue,
		Path:   path,
		Detail: "value is missing",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Truncated creates an error for input ending before a full read
func Truncated(phase Phase, offset, need int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Detail: fmt.Sprintf("need %d more byte(s) at offset %d", need, offset),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Consumed creates an error for reusing an already-extracted builder
func Consumed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConsumed,
		Detail: fmt.Sprintf("%s already extracted", what),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
