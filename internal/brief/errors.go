package brief

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by brief operations. Match them with errors.Is.
var (
	ErrAlreadyExists        = errors.New("brief already exists")
	ErrNotFound             = errors.New("brief not found")
	ErrUnknownField         = errors.New("unknown field")
	ErrFinalized            = errors.New("brief is final")
	ErrValidationIncomplete = errors.New("required fields are missing")
	ErrArchived             = errors.New("brief is archived")
	ErrInvalidCode          = errors.New("invalid client code")
	ErrInvalidValue         = errors.New("invalid value")
)

// Error carries the client code and field path an operation failed on.
type Error struct {
	Op      string
	Code    string
	Path    string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "%q", e.Code)
	if e.Path != "" {
		fmt.Fprintf(&b, " field %q", e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if len(e.Missing) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, code, path string, err error) *Error {
	return &Error{Op: op, Code: code, Path: path, Err: err}
}

// ErrorKind returns the name of the error kind err matches, or "" when it is not
// a brief error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUnknownField):
		return "UnknownField"
	case errors.Is(err, ErrFinalized):
		return "Finalized"
	case errors.Is(err, ErrValidationIncomplete):
		return "ValidationIncomplete"
	case errors.Is(err, ErrArchived):
		return "Archived"
	case errors.Is(err, ErrInvalidCode):
		return "InvalidCode"
	case errors.Is(err, ErrInvalidValue):
		return "InvalidValue"
	default:
		return ""
	}
}

// MissingFields extracts the missing paths from a ValidationIncomplete
// error.
func MissingFields(err error) []string {
	var be *Error
	if errors.As(err, &be) {
		return append([]string(nil), be.Missing...)
	}
	return nil
}
