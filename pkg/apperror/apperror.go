package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to API clients.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidDateRange      = "INVALID_DATE_RANGE"
	CodeEquipmentNotFound     = "EQUIPMENT_NOT_FOUND"
	CodeServiceNotFound       = "SERVICE_NOT_FOUND"
	CodeRateNotFound          = "RATE_NOT_FOUND"
	CodeQuoteNotFound         = "QUOTE_NOT_FOUND"
	CodeForbidden             = "FORBIDDEN"
	CodeQuoteNotDraft         = "QUOTE_NOT_DRAFT"
	CodeQuoteAlreadySubmitted = "QUOTE_ALREADY_SUBMITTED"
	CodeDatabase              = "DATABASE_ERROR"
)

// Error is a business error carrying a stable code, an HTTP status and a
// human-readable message. Internal causes are wrapped for logging but
// never rendered to the client.
type Error struct {
	Code    string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two apperror values by code, so callers can use
// errors.Is(err, apperror.RateNotFound("")) style sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code string, status int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, http.StatusBadRequest, format, args...)
}

func InvalidDateRange(format string, args ...interface{}) *Error {
	return newError(CodeInvalidDateRange, http.StatusBadRequest, format, args...)
}

func EquipmentNotFound(format string, args ...interface{}) *Error {
	return newError(CodeEquipmentNotFound, http.StatusBadRequest, format, args...)
}

func ServiceNotFound(format string, args ...interface{}) *Error {
	return newError(CodeServiceNotFound, http.StatusBadRequest, format, args...)
}

func RateNotFound(format string, args ...interface{}) *Error {
	return newError(CodeRateNotFound, http.StatusBadRequest, format, args...)
}

func QuoteNotFound(format string, args ...interface{}) *Error {
	return newError(CodeQuoteNotFound, http.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(CodeForbidden, http.StatusForbidden, format, args...)
}

func QuoteNotDraft(format string, args ...interface{}) *Error {
	return newError(CodeQuoteNotDraft, http.StatusBadRequest, format, args...)
}

func QuoteAlreadySubmitted(format string, args ...interface{}) *Error {
	return newError(CodeQuoteAlreadySubmitted, http.StatusBadRequest, format, args...)
}

// Database wraps an infrastructure failure. The cause is kept for server
// logs; clients only see the generic message.
func Database(cause error) *Error {
	return &Error{Code: CodeDatabase, Status: http.StatusInternalServerError, Message: "database operation failed", cause: cause}
}

// HTTPStatus returns the status for err, defaulting to 500 for errors
// outside the taxonomy.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the stable code for err, or DATABASE_ERROR for unknown
// internal failures.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeDatabase
}

// MessageOf returns the client-safe message for err. Unknown internal
// errors collapse to a generic message so connection strings and driver
// details never leak outward.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
