// Package errors carries the storefront's typed error codes. Every code maps
// to one HTTP status and decides whether its message and details reach the
// client.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeEmptyCart    Code = "EMPTY_CART"
	CodeInvalidState Code = "INVALID_STATE_TRANSITION"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeStorage      Code = "STORAGE_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// rejected describes a caller mistake; failed describes a server-side fault
// the caller may retry.
func rejected(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details}
}

func failed(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: true, PublicMessage: msg, DetailsAllowed: details}
}

var catalog = map[Code]Metadata{
	CodeValidation:   rejected(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized: rejected(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:    rejected(http.StatusForbidden, "access denied", false),
	CodeNotFound:     rejected(http.StatusNotFound, "resource not found", false),
	CodeConflict:     rejected(http.StatusConflict, "conflict detected", false),
	CodeEmptyCart:    rejected(http.StatusBadRequest, "cart is empty", false),
	CodeInvalidState: rejected(http.StatusBadRequest, "state transition disallowed", true),
	CodeIdempotency:  rejected(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:    rejected(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeStorage:      failed(http.StatusInternalServerError, "internal server error", false),
	CodeInternal:     failed(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:   failed(http.StatusServiceUnavailable, "dependency unavailable", true),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Public is the message a client sees: the error's own text for 4xx codes,
// the catalog text otherwise.
func (m Metadata) Public(err *Error) string {
	if err == nil || err.message == "" || m.HTTPStatus >= http.StatusInternalServerError {
		return m.PublicMessage
	}
	return err.message
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) WithDetails(details any) *Error {
	e.details = details
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string { return e.message }
func (e *Error) Details() any    { return e.details }
func (e *Error) Unwrap() error   { return e.cause }

func (e *Error) Error() string {
	return string(e.code) + ": " + e.message
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
