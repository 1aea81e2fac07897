package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	type want struct {
		status              int
		public              string
		retry, details, msg bool
	}
	cases := map[Code]want{
		CodeValidation:         {http.StatusBadRequest, "validation failed", false, true, true},
		CodeUnauthorized:       {http.StatusUnauthorized, "authentication required", false, false, true},
		CodeForbidden:          {http.StatusForbidden, "access denied", false, false, true},
		CodeNotFound:           {http.StatusNotFound, "resource not found", false, false, true},
		CodeConflict:           {http.StatusConflict, "conflict detected", false, false, true},
		CodeStateConflict:      {http.StatusUnprocessableEntity, "state transition disallowed", false, true, true},
		CodeIdempotency:        {http.StatusConflict, "idempotency key reused", false, true, true},
		CodeRateLimit:          {http.StatusTooManyRequests, "rate limit exceeded", false, false, true},
		CodeInternal:           {http.StatusInternalServerError, "internal server error", true, false, false},
		CodeDependency:         {http.StatusServiceUnavailable, "dependency unavailable", true, true, false},
		CodeInsufficientPoints: {http.StatusUnprocessableEntity, "insufficient loyalty points", false, true, true},
		CodePricingInvariant:   {http.StatusInternalServerError, "order totals are inconsistent; re-price required", false, true, false},
	}
	for code, w := range cases {
		t.Run(string(code), func(t *testing.T) {
			meta := MetadataFor(code)
			assert.Equal(t, w.status, meta.HTTPStatus)
			assert.Equal(t, w.public, meta.PublicMessage)
			assert.Equal(t, w.retry, meta.Retryable, "retryable")
			assert.Equal(t, w.details, meta.DetailsAllowed, "details")
			assert.Equal(t, w.msg, meta.ExposeMessage, "expose")
		})
	}

	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestNewAndWrap(t *testing.T) {
	e := New(CodeValidation, "missing name")
	assert.Equal(t, CodeValidation, e.Code())
	assert.Equal(t, "missing name", e.Message())
	assert.Nil(t, e.Details())
	assert.Equal(t, map[string]any{"name": "is required"}, e.WithDetails(map[string]any{"name": "is required"}).Details())

	cause := stdErrors.New("deadlock")
	wrapped := Wrap(CodeConflict, cause, "save balance")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Contains(t, wrapped.Error(), "save balance")

	require.NotNil(t, As(fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(cause))
}

func TestIsCodeWalksChain(t *testing.T) {
	inner := New(CodeInsufficientPoints, "not enough")
	outer := fmt.Errorf("submit: %w", inner)
	if !IsCode(outer, CodeInsufficientPoints) {
		t.Fatalf("expected IsCode to find wrapped code")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("untyped errors carry no code")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("timeout"), "submit order")) {
		t.Fatalf("dependency errors should be retryable")
	}
	if IsRetryable(New(CodePricingInvariant, "negative total")) {
		t.Fatalf("pricing invariant errors must not be retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are not retryable")
	}
}

func TestPublicMessage(t *testing.T) {
	if got := New(CodeNotFound, "order not found").PublicMessage(); got != "order not found" {
		t.Fatalf("exposed codes should pass the message through, got %q", got)
	}
	if got := New(CodeDependency, "redis dial tcp 10.0.0.4").PublicMessage(); got != "dependency unavailable" {
		t.Fatalf("hidden codes should use the public message, got %q", got)
	}
	if got := Newf(CodeValidation, "%d items", 0).Message(); got != "0 items" {
		t.Fatalf("unexpected formatted message %q", got)
	}
}
