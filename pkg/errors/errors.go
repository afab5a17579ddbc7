package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeInvalidSignature Code = "INVALID_SIGNATURE"
	CodeGatewayRejected  Code = "GATEWAY_REJECTED"
)

// Metadata drives how a code is rendered over HTTP. ExposeMessage lets the
// caller's own message replace PublicMessage; it is only set for codes whose
// messages are written for clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:       {http.StatusBadRequest, false, "validation failed", true, true},
	CodeUnauthorized:     {http.StatusUnauthorized, false, "authentication required", false, true},
	CodeForbidden:        {http.StatusForbidden, false, "access denied", false, true},
	CodeNotFound:         {http.StatusNotFound, false, "resource not found", false, true},
	CodeConflict:         {http.StatusConflict, false, "conflict detected", false, true},
	CodeStateConflict:    {http.StatusUnprocessableEntity, false, "state transition disallowed", true, true},
	CodeIdempotency:      {http.StatusConflict, false, "idempotency key reused", true, true},
	CodeRateLimit:        {http.StatusTooManyRequests, false, "rate limit exceeded", false, true},
	CodeInternal:         {http.StatusInternalServerError, true, "internal server error", false, false},
	CodeDependency:       {http.StatusServiceUnavailable, true, "dependency unavailable", true, false},
	CodeInvalidSignature: {http.StatusBadRequest, false, "invalid signature", false, false},
	CodeGatewayRejected:  {http.StatusBadGateway, false, "payment gateway rejected the request", true, true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// PublicMessage is the text safe to return to a client for err's code.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if meta.ExposeMessage && e.Message() != "" {
		return e.Message()
	}
	return meta.PublicMessage
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
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
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
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
