package resources

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorruptContainer reports a structural violation in a resource container:
	// bad magic, negative or out of range offsets and lengths, truncated reads.
	ErrCorruptContainer = errors.New("resources: corrupt container")

	// ErrUnsupportedType reports a well-formed value whose type code has no decoder.
	ErrUnsupportedType = errors.New("resources: unsupported resource type")

	// ErrTypeMismatch reports a lookup that asked for a different type than the stored one.
	ErrTypeMismatch = errors.New("resources: resource type mismatch")

	// ErrMissingUltimateFallback indicates that not even the invariant locale has a container.
	ErrMissingUltimateFallback = errors.New("resources: missing ultimate fallback resources")

	// ErrClosed is returned by lookups on a released resource set.
	ErrClosed = errors.New("resources: resource set closed")
)

// Error carries the context of a failed container or lookup operation.
// errors.Is matches it against the sentinel stored in Kind.
type Error struct {
	Kind   error
	Op     string
	Name   string
	Offset int64
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func corruptf(op string, offset int64, format string, args ...any) *Error {
	return &Error{Kind: ErrCorruptContainer, Op: op, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

func corruptCause(op string, offset int64, cause error) *Error {
	return &Error{Kind: ErrCorruptContainer, Op: op, Offset: offset, Detail: "truncated read", Cause: cause}
}

func typeMismatch(name string, want string, got TypeCode) *Error {
	return &Error{
		Kind:   ErrTypeMismatch,
		Op:     "lookup",
		Name:   name,
		Offset: -1,
		Detail: fmt.Sprintf("want %s, stored %s", want, got),
	}
}
