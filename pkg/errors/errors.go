// Package errors defines the typed error codes shared by every layer. The code
// decides the HTTP status, whether a client may retry, and how much of the
// error is shown to the caller.
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

	// CodeInsufficientPoints rejects a redemption above the fresh balance or the subtotal cap.
	CodeInsufficientPoints Code = "INSUFFICIENT_POINTS"
	// CodePricingInvariant marks a breakdown that must be re-priced before anything else happens.
	CodePricingInvariant Code = "PRICING_INVARIANT"
)

// Metadata is the fixed policy attached to a Code.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// DetailsAllowed lets structured details reach the client.
	DetailsAllowed bool
	// ExposeMessage shows the error's own message instead of PublicMessage.
	ExposeMessage bool
}

type policy uint8

const (
	retryable policy = 1 << iota
	details
	expose
)

func meta(status int, public string, p policy) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      p&retryable != 0,
		PublicMessage:  public,
		DetailsAllowed: p&details != 0,
		ExposeMessage:  p&expose != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, "validation failed", details|expose),
	CodeUnauthorized:       meta(http.StatusUnauthorized, "authentication required", expose),
	CodeForbidden:          meta(http.StatusForbidden, "access denied", expose),
	CodeNotFound:           meta(http.StatusNotFound, "resource not found", expose),
	CodeConflict:           meta(http.StatusConflict, "conflict detected", expose),
	CodeStateConflict:      meta(http.StatusUnprocessableEntity, "state transition disallowed", details|expose),
	CodeIdempotency:        meta(http.StatusConflict, "idempotency key reused", details|expose),
	CodeRateLimit:          meta(http.StatusTooManyRequests, "rate limit exceeded", expose),
	CodeInternal:           meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:         meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|details),
	CodeInsufficientPoints: meta(http.StatusUnprocessableEntity, "insufficient loyalty points", details|expose),
	CodePricingInvariant:   meta(http.StatusInternalServerError, "order totals are inconsistent; re-price required", details),
}

// MetadataFor returns the policy for code; unknown codes are treated as internal.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
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

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
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

// PublicMessage is the text a client may see for this error.
func (e *Error) PublicMessage() string {
	m := MetadataFor(e.Code())
	if m.ExposeMessage && e.Message() != "" {
		return e.Message()
	}
	return m.PublicMessage
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

// IsCode reports whether the outermost typed error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// IsRetryable reports whether the caller may safely retry the failed operation.
func IsRetryable(err error) bool {
	typed := As(err)
	return typed != nil && MetadataFor(typed.Code()).Retryable
}

func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
