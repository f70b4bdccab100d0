package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an application error
type Kind int

const (
	// KindValidation is a local, pre-network rejection of user input.
	KindValidation Kind = iota + 1000
	// KindNotFound means the target id is absent at the store.
	KindNotFound
	// KindRemote covers every other store, transport or timeout failure.
	KindRemote
	// KindStale marks a response that arrived for a view that no longer matches.
	KindStale
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindNotFound:
		return "not_found"
	case KindRemote:
		return "remote_failure"
	case KindStale:
		return "stale_view"
	default:
		return "unknown"
	}
}

// FieldErrors maps a form field to its user-facing message
type FieldErrors map[string]string

func (f FieldErrors) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return strings.Join(parts, "; ")
}

// AppError represents an application error
type AppError struct {
	Kind    Kind        `json:"kind"`
	Op      string      `json:"op,omitempty"`
	Message string      `json:"message"`
	Fields  FieldErrors `json:"fields,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error from per-field messages.
func Validation(fields FieldErrors) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: "validation failed: " + fields.String(),
		Fields:  fields,
	}
}

func NotFound(op, message string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

func Remote(op, message string, err error) *AppError {
	return &AppError{
		Kind:    KindRemote,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

func Stale(op string, id int64) *AppError {
	return &AppError{
		Kind:    KindStale,
		Op:      op,
		Message: fmt.Sprintf("discarded stale response for patient %d", id),
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or 0.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsRemote(err error) bool     { return KindOf(err) == KindRemote }
func IsStale(err error) bool      { return KindOf(err) == KindStale }

// FieldsOf returns the per-field messages of a validation error.
func FieldsOf(err error) FieldErrors {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
