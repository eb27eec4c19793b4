// Package errors defines the error taxonomy shared by adapters, the application
// layer and the tool dispatch server. Callers import it as apperrors.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error kind.
type Code string

const (
	// CodeValidation marks a caller-supplied argument that is missing or malformed.
	CodeValidation Code = "validation_error"
	// CodeNotFound marks an entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeUnsupportedOperation marks a capability the active provider does not implement.
	CodeUnsupportedOperation Code = "unsupported_operation"
	// CodeUnsupportedFilter marks a filter dimension a provider cannot express.
	CodeUnsupportedFilter Code = "unsupported_filter"
	// CodeUpstream marks a failure reported by the backend or its transport.
	CodeUpstream Code = "upstream_error"
	// CodeDecode marks a backend response that could not be mapped.
	CodeDecode Code = "decode_error"
	// CodeUnknownTool marks a tool name the server does not recognize.
	CodeUnknownTool Code = "unknown_tool"
	// CodeUnknownResource marks a resource URI the server does not recognize.
	CodeUnknownResource Code = "unknown_resource"
	// CodeInternal is reported for errors that carry no code.
	CodeInternal Code = "internal"
)

// Error is a classified error. Field names the offending argument or response
// field when one applies; Status carries the upstream HTTP status if known.
type Error struct {
	Code    Code
	Message string
	Field   string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %q)", msg, e.Field)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under code.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation reports a missing or malformed argument.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// MissingField reports a required argument that was not supplied.
func MissingField(field string) *Error {
	return Validation(field, "missing required argument "+field)
}

// NotFound reports that the named entity does not exist.
func NotFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// Unsupported reports an operation the provider does not implement.
func Unsupported(provider, operation string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperation,
		Message: fmt.Sprintf("%s provider does not support %s", provider, operation),
	}
}

// UnsupportedFilter reports a filter dimension the provider cannot express.
func UnsupportedFilter(provider, field string) *Error {
	return &Error{
		Code:    CodeUnsupportedFilter,
		Message: fmt.Sprintf("%s provider cannot filter on %s", provider, field),
		Field:   field,
	}
}

// Upstream reports a backend failure.
func Upstream(status int, message string, cause error) *Error {
	return &Error{Code: CodeUpstream, Message: message, Status: status, Cause: cause}
}

// Decode reports a malformed backend field.
func Decode(field string, cause error) *Error {
	return &Error{Code: CodeDecode, Message: "malformed backend response", Field: field, Cause: cause}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode extracts the code from err, or CodeInternal when there is none.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// FieldOf returns the offending field recorded on err, if any.
func FieldOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Field
	}
	return ""
}

// StatusOf returns the upstream status recorded on err, if any.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return 0
}
