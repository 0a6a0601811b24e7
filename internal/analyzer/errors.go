package analyzer

import (
	"errors"
	"fmt"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/reader"
)

// ErrorKind classifies hard failures.
type ErrorKind string

const (
	KindUnreadableFile ErrorKind = "unreadable_file"
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	KindInvalidRequest ErrorKind = "invalid_request"
)

// SchemaMismatchMessage is reported when a returns file does not line up
// with its sales file.
const SchemaMismatchMessage = "The returns file should have the same columns as the sales file, plus a cancel_return_date column."

var (
	// ErrUnreadableFile matches every unreadable-file failure.
	ErrUnreadableFile = reader.ErrUnreadableFile
	// ErrSchemaMismatch matches paired-file column mismatches.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidRequest matches malformed requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// Error is a hard failure that ends the pipeline without a document.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on the kind sentinel even when Err is a different
// cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreadableFile:
		return e.Kind == KindUnreadableFile
	case ErrSchemaMismatch:
		return e.Kind == KindSchemaMismatch
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	}
	return false
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func unreadable(name string, err error) *Error {
	return newError(KindUnreadableFile, fmt.Sprintf("could not read %s", name), err)
}

func invalidRequest(message string) *Error {
	return newError(KindInvalidRequest, message, nil)
}

func schemaMismatch() *Error {
	return newError(KindSchemaMismatch, SchemaMismatchMessage, nil)
}

// AsError extracts the hard failure from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
