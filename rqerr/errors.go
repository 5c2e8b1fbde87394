// Package rqerr defines the typed error kinds the interpreter raises (spec
// §7) and the source-span bookkeeping needed to report them in context.
package rqerr

import "fmt"

// Span locates an error in the original source text.
type Span struct {
	StartPos, EndPos       int
	StartLine, StartColumn int
	EndLine, EndColumn     int
}

func (s Span) String() string {
	if s.StartLine == 0 {
		return ""
	}
	return fmt.Sprintf("line %d, column %d", s.StartLine, s.StartColumn)
}

// Kind distinguishes the error kinds of spec.md §7.
type Kind int

const (
	Syntax Kind = iota
	Type
	Value
	NameNotFound
	Attribute
	Join
	Compile
	DatabaseQuery
	DatabaseConnect
	NotImplemented
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "SyntaxError"
	case Type:
		return "TypeError"
	case Value:
		return "ValueError"
	case NameNotFound:
		return "NameNotFound"
	case Attribute:
		return "AttributeError"
	case Join:
		return "JoinError"
	case Compile:
		return "CompileError"
	case DatabaseQuery:
		return "DatabaseQueryError"
	case DatabaseConnect:
		return "DatabaseConnectError"
	case NotImplemented:
		return "NotImplementedError"
	default:
		return "Error"
	}
}

// Error is the single error type for all user-language failures. It
// carries a source span (zero value if none is known), an optional
// wrapped cause, and a Stacktrace field for call-site descriptions; no
// code in relq appends to Stacktrace, so it is empty.
type Error struct {
	Kind       Kind
	Message    string
	Span       Span
	Cause      error
	Stacktrace []string
}

func (e *Error) Error() string {
	if e.Span.StartLine != 0 {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Span, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithSpan returns a copy of the error carrying span, if the error does
// not already have one. Mirrors the Preql pattern of attaching the
// nearest enclosing statement's meta when an error bubbles up without one.
func (e *Error) WithSpan(span Span) *Error {
	if e.Span.StartLine != 0 {
		return e
	}
	cp := *e
	cp.Span = span
	return &cp
}

func New(kind Kind, span Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

func Wrap(kind Kind, span Span, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span, Cause: cause}
}

func NewTypeError(span Span, format string, args ...any) *Error {
	return New(Type, span, format, args...)
}

func NewValueError(span Span, format string, args ...any) *Error {
	return New(Value, span, format, args...)
}

func NewNameNotFound(span Span, name string) *Error {
	return New(NameNotFound, span, "name not found: '%s'", name)
}

func NewAttributeError(span Span, format string, args ...any) *Error {
	return New(Attribute, span, format, args...)
}

func NewJoinError(span Span, format string, args ...any) *Error {
	return New(Join, span, format, args...)
}

func NewSyntaxError(span Span, format string, args ...any) *Error {
	return New(Syntax, span, format, args...)
}

func NewCompileError(span Span, format string, args ...any) *Error {
	return New(Compile, span, format, args...)
}

func NewNotImplemented(span Span, format string, args ...any) *Error {
	return New(NotImplemented, span, format, args...)
}

func NewDatabaseQueryError(sql string, cause error) *Error {
	return Wrap(DatabaseQuery, Span{}, cause, "query failed: %s (sql: %s)", cause, sql)
}

func NewDatabaseConnectError(uri string, cause error) *Error {
	return Wrap(DatabaseConnect, Span{}, cause, "could not connect to %s: %s", uri, cause)
}

// ReturnSignal unwinds a user-function call up to its call boundary,
// carrying the returned value. It is one of the two non-error control
// signals noted in spec.md §9; it implements error only so it can travel
// through the same propagation path as every other failure.
type ReturnSignal struct {
	Value any
}

func (r *ReturnSignal) Error() string { return "return outside function" }

// InsufficientAccessLevel is raised when an operation requires a higher
// access level (spec.md §4.3.7) than the current State allows. It is the
// second of the two non-error control signals.
type InsufficientAccessLevel struct {
	Required, Have int
}

func (e *InsufficientAccessLevel) Error() string {
	return fmt.Sprintf("insufficient access level: need %d, have %d", e.Required, e.Have)
}

// AsError reports whether err is one of this package's *Error values and
// returns it, mirroring PreqlError-vs-everything-else catch semantics in
// Try/catch (spec.md §4.3.6).
func AsError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
