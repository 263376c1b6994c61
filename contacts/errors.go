package contacts

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification. They are reachable through
// errors.Is even when the concrete error is an *OpError wrapped inside an
// areabook.Error coming out of a pipeline.
var (
	ErrBadArea    = errors.New("invalid area name")
	ErrNotFound   = errors.New("area not found")
	ErrIO         = errors.New("read failure")
	ErrParse      = errors.New("malformed record")
	ErrValidation = errors.New("record failed validation")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindBadArea    ErrorKind = "bad_area"
	KindNotFound   ErrorKind = "not_found"
	KindIO         ErrorKind = "io"
	KindParse      ErrorKind = "parse"
	KindValidation ErrorKind = "validation"
)

var kindSentinels = map[ErrorKind]error{
	KindBadArea:    ErrBadArea,
	KindNotFound:   ErrNotFound,
	KindIO:         ErrIO,
	KindParse:      ErrParse,
	KindValidation: ErrValidation,
}

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: relevant file path
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is maps the error's kind onto the package sentinels, so
// errors.Is(err, contacts.ErrNotFound) works without the caller knowing
// about OpError.
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

// KindOf classifies an error, unwrapping as needed. Errors that did not
// originate in this package report an empty kind.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
