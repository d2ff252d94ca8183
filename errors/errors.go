// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Engine error kinds. Every error returned by the CRUD engine matches its kind with errors.Is.
// TransactionFailed also unwraps to the error that aborted the transaction.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrValidationFailed  = errors.New("validation failed")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrEventsFailed      = errors.New("events failed")
)

// Error codes
const (
	CodeConfiguration     = "CONFIGURATION_ERROR"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeEntityNotFound    = "ENTITY_NOT_FOUND"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeTransactionFailed = "TRANSACTION_FAILED"
	CodeEventsFailed      = "EVENTS_FAILED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Error is a coded engine error that keeps its kind and its original cause
type Error struct {
	Code    string
	Message string
	Details string
	Cause   error
	kind    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(kind error, code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause, kind: kind}
}

// NewConfigurationError reports static wiring that cannot work, e.g. a filter with no allowed fields
func NewConfigurationError(format string, a ...interface{}) *Error {
	return newError(ErrConfiguration, CodeConfiguration, fmt.Sprintf(format, a...), nil)
}

// NewPermissionDenied reports a failed coarse or entity-grained permission check
func NewPermissionDenied(message string) *Error {
	return newError(ErrPermissionDenied, CodePermissionDenied, message, nil)
}

// NewEntityNotFound reports a failed id lookup
func NewEntityNotFound(entityType string, id interface{}) *Error {
	e := newError(ErrEntityNotFound, CodeEntityNotFound, fmt.Sprintf("%s not found", entityType), nil)
	e.Details = fmt.Sprintf("%v", id)
	return e
}

// NewTransactionFailed wraps the error that aborted a transactional mutation
func NewTransactionFailed(cause error) *Error {
	return newError(ErrTransactionFailed, CodeTransactionFailed, "transaction rolled back", cause)
}

// Violation is one field-level validation failure. Children hold failures of nested fields.
type Violation struct {
	Property    string            `json:"property"`
	Value       interface{}       `json:"value,omitempty"`
	Constraints map[string]string `json:"constraints,omitempty"`
	Children    []Violation       `json:"children,omitempty"`
}

// ValidationError is the container of violations for one payload
type ValidationError struct {
	Violations []Violation
}

// NewValidationError creates a ValidationError from the given violations
func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, describe(v, ""))
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Properties returns the top-level property names that failed
func (e *ValidationError) Properties() []string {
	names := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		names = append(names, v.Property)
	}
	return names
}

func describe(v Violation, prefix string) string {
	path := v.Property
	if prefix != "" {
		path = prefix + "." + v.Property
	}
	if len(v.Children) > 0 {
		parts := make([]string, 0, len(v.Children))
		for _, c := range v.Children {
			parts = append(parts, describe(c, path))
		}
		return strings.Join(parts, "; ")
	}
	tags := make([]string, 0, len(v.Constraints))
	for tag := range v.Constraints {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return fmt.Sprintf("%s (%s)", path, strings.Join(tags, ", "))
}

// HandlerFailure is the error one event handler produced during a publish
type HandlerFailure struct {
	Handler string
	Err     error
}

// EventsFailedError aggregates every handler failure of a single publish call.
// Committed is set when the failures come from a post-mutation event whose transaction committed.
type EventsFailedError struct {
	Event     string
	Failures  []HandlerFailure
	Committed bool
}

func (e *EventsFailedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Handler, f.Err))
	}
	return fmt.Sprintf("%s: %d handler(s) failed for %s: %s",
		ErrEventsFailed.Error(), len(e.Failures), e.Event, strings.Join(parts, "; "))
}

func (e *EventsFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrEventsFailed)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Committed reports whether err is an events failure reported after a successful commit
func Committed(err error) bool {
	var failed *EventsFailedError
	return errors.As(err, &failed) && failed.Committed
}

// HasKind reports whether err matches one of the engine error kinds. Errors without a kind come
// from the database or another collaborator and are unexpected.
func HasKind(err error) bool {
	for _, kind := range []error{ErrConfiguration, ErrPermissionDenied, ErrEntityNotFound,
		ErrValidationFailed, ErrTransactionFailed, ErrEventsFailed} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is an EntityNotFound error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
