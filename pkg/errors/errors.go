package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Codes are part of the public API; clients switch on them.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternal         = "INTERNAL_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeRateLimited      = "RATE_LIMITED"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"

	CodePastDate     = "PAST_DATE"
	CodeInvalidRange = "INVALID_RANGE"
	CodeSlotConflict = "SLOT_CONFLICT"
	CodeContention   = "CONTENTION"
)

// AppError carries everything the HTTP layer needs to report a failure.
// Err is never rendered.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) StatusCode() int { return e.HTTPStatus }

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCause attaches the domain error so callers can still match it with errors.Is.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, resource+" not found", http.StatusNotFound)
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{"resource": resource, "id": id})
}

func Validation(message string, details map[string]any) *AppError {
	return New(CodeValidation, message, http.StatusUnprocessableEntity).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func PastDate(message string) *AppError {
	return New(CodePastDate, message, http.StatusUnprocessableEntity)
}

func InvalidRange(message string) *AppError {
	return New(CodeInvalidRange, message, http.StatusUnprocessableEntity)
}

func SlotConflict(message string) *AppError {
	return New(CodeSlotConflict, message, http.StatusConflict)
}

// Contention reports a store-level serialization failure. The request may be
// retried once; the slot was not found to be taken.
func Contention(message string, err error) *AppError {
	return New(CodeContention, message, http.StatusConflict).
		WithDetails(map[string]any{"retryable": true}).
		WithCause(err)
}

func Internal(message string, err error) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError).WithCause(err)
}

func Timeout(message string) *AppError {
	return New(CodeTimeout, message, http.StatusGatewayTimeout)
}

func Unavailable(service string) *AppError {
	return New(CodeUnavailable, service+" is temporarily unavailable", http.StatusServiceUnavailable)
}

func RateLimited(retryAfter time.Duration) *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests).
		WithDetails(map[string]any{"retry_after_seconds": int(retryAfter.Seconds())})
}

func PayloadTooLarge(limit int64) *AppError {
	return New(CodePayloadTooLarge, fmt.Sprintf("Request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
}

func UnsupportedMediaType(want string) *AppError {
	return New(CodeUnsupportedMedia, "Content-Type must be "+want, http.StatusUnsupportedMediaType)
}

func MethodNotAllowed(method string) *AppError {
	return New(CodeMethodNotAllowed, "Method "+method+" not allowed", http.StatusMethodNotAllowed)
}

// AsAppError unwraps err to its AppError. Anything else becomes an opaque internal error.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
