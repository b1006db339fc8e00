/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors provides the structured error type shared across the
// dependency graph, policy, and remediation engines. Every boundary in
// this module returns *AppError instead of a bare error so callers can
// branch on Type and render a stable, safe message to the operator.
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorType classifies an AppError for HTTP-status mapping, logging, and
// caller-side branching. It does not name the Go error type, only the
// taxonomy bucket the spec's error-handling design groups failures into.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	// ErrorTypeResource covers missing/unreadable files and unavailable
	// subprocess tools (the scanner "resource error" bucket).
	ErrorTypeResource ErrorType = "resource"
	// ErrorTypeState covers illegal lifecycle transitions: a change
	// request that is not pending, an approval already decided, a
	// workflow step executed out of order.
	ErrorTypeState ErrorType = "state"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeAuth:       http.StatusUnauthorized,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeConflict:   http.StatusConflict,
	ErrorTypeTimeout:    http.StatusRequestTimeout,
	ErrorTypeRateLimit:  http.StatusTooManyRequests,
	ErrorTypeDatabase:   http.StatusInternalServerError,
	ErrorTypeNetwork:    http.StatusInternalServerError,
	ErrorTypeInternal:   http.StatusInternalServerError,
	ErrorTypeResource:   http.StatusInternalServerError,
	ErrorTypeState:      http.StatusConflict,
}

// AppError is the structured error carried across every package boundary.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

func New(t ErrorType, message string) *AppError {
	code, ok := statusCodes[t]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &AppError{Type: t, Message: message, StatusCode: code}
}

func Newf(t ErrorType, format string, args ...any) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

func Wrap(err error, t ErrorType, message string) *AppError {
	e := New(t, message)
	e.Cause = err
	return e
}

func Wrapf(err error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(err, t, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// Predefined constructors mirroring the taxonomy buckets in §7.

func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewDatabaseError(operation string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeDatabase, "database operation failed: %s", operation)
}

func NewNotFoundError(resource string) *AppError {
	return Newf(ErrorTypeNotFound, "%s not found", resource)
}

func NewAuthError(message string) *AppError {
	return New(ErrorTypeAuth, message)
}

func NewTimeoutError(operation string) *AppError {
	return Newf(ErrorTypeTimeout, "operation timed out: %s", operation)
}

func NewResourceError(resource string, cause error) *AppError {
	return Wrapf(cause, ErrorTypeResource, "resource unavailable: %s", resource)
}

func NewStateError(reasonCode string) *AppError {
	return New(ErrorTypeState, reasonCode)
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Type == t
}

// GetType returns err's ErrorType, or ErrorTypeInternal for plain errors.
func GetType(err error) ErrorType {
	if ae, ok := err.(*AppError); ok {
		return ae.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns err's HTTP status, or 500 for plain errors.
func GetStatusCode(err error) int {
	if ae, ok := err.(*AppError); ok {
		return ae.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorMessages holds the operator-safe messages returned for error types
// whose internal Message may leak implementation detail.
var ErrorMessages = struct {
	ResourceNotFound       string
	AuthenticationFailed   string
	OperationTimeout       string
	RateLimitExceeded      string
	ConcurrentModification string
}{
	ResourceNotFound:       "The requested resource was not found",
	AuthenticationFailed:   "Authentication failed",
	OperationTimeout:       "The operation timed out",
	RateLimitExceeded:      "Rate limit exceeded, please try again later",
	ConcurrentModification: "The resource was modified concurrently, please retry",
}

// SafeErrorMessage returns a message safe to surface to an external
// caller: validation messages pass through verbatim (they describe the
// caller's own input), everything else is replaced by a generic phrase.
func SafeErrorMessage(err error) string {
	ae, ok := err.(*AppError)
	if !ok {
		return "An unexpected error occurred"
	}
	switch ae.Type {
	case ErrorTypeValidation:
		return ae.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeAuth:
		return ErrorMessages.AuthenticationFailed
	case ErrorTypeTimeout:
		return ErrorMessages.OperationTimeout
	case ErrorTypeRateLimit:
		return ErrorMessages.RateLimitExceeded
	case ErrorTypeConflict:
		return ErrorMessages.ConcurrentModification
	default:
		return "An internal error occurred"
	}
}

// LogFields renders err into a structured field map for zap/logrus-style
// sugared loggers.
func LogFields(err error) map[string]any {
	fields := map[string]any{"error": err.Error()}
	ae, ok := err.(*AppError)
	if !ok {
		return fields
	}
	fields["error_type"] = string(ae.Type)
	fields["status_code"] = ae.StatusCode
	if ae.Details != "" {
		fields["error_details"] = ae.Details
	}
	if ae.Cause != nil {
		fields["underlying_error"] = ae.Cause.Error()
	}
	return fields
}

// Chain joins non-nil errors into one error whose message concatenates
// every member with " -> ". It returns nil if every argument is nil, and
// the bare error if exactly one is non-nil.
func Chain(errs ...error) error {
	var parts []string
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
			parts = append(parts, e.Error())
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return fmt.Errorf("%s", strings.Join(parts, " -> "))
	}
}
