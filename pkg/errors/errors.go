package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeStock               Code = "INSUFFICIENT_STOCK"
	CodeUndeliverable       Code = "UNDELIVERABLE_ADDRESS"
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeUpstream            Code = "UPSTREAM_ERROR"
	CodeInternalConsistency Code = "INTERNAL_CONSISTENCY_ERROR"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

// Metadata is the transport contract for a Code.
type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage is returned whenever the error's own message is not exposed.
	PublicMessage string
	// ExposeMessage lets the caller see the error's own message.
	ExposeMessage  bool
	DetailsAllowed bool
}

// Client-facing codes expose their message and usually their details.
// Server-side codes collapse to the generic PublicMessage.
var metadataByCode = map[Code]Metadata{
	CodeValidation:    clientMeta(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:  clientMeta(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:     clientMeta(http.StatusForbidden, "access denied", false),
	CodeNotFound:      clientMeta(http.StatusNotFound, "resource not found", false),
	CodeConflict:      clientMeta(http.StatusConflict, "conflict detected", true),
	CodeStock:         clientMeta(http.StatusConflict, "insufficient stock", true),
	CodeUndeliverable: clientMeta(http.StatusUnprocessableEntity, "cannot ship to this address", true),
	CodeConfiguration: clientMeta(http.StatusUnprocessableEntity, "store is not configured for payments", true),
	CodeIdempotency:   clientMeta(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:     clientMeta(http.StatusTooManyRequests, "rate limit exceeded", false),

	CodeUpstream:            {HTTPStatus: http.StatusBadGateway, Retryable: true, PublicMessage: "payment provider unavailable"},
	CodeInternalConsistency: {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error"},
	CodeInternal:            {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:          {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
}

func clientMeta(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, ExposeMessage: true, DetailsAllowed: details}
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error carried from the engines to the HTTP layer.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by code, so errors.Is(err, New(CodeStock, ""))
// finds a stock failure anywhere in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsRetryable reports whether a client may retry the same request.
func IsRetryable(err error) bool {
	return err != nil && MetadataFor(CodeOf(err)).Retryable
}

// IsCode reports whether err carries the provided code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
