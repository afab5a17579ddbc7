package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"go.uber.org/multierr"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeInvalidSignature, status: http.StatusBadRequest, publicMsg: "invalid signature"},
		{code: CodeGatewayRejected, status: http.StatusBadGateway, publicMsg: "payment gateway rejected the request", detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeGatewayRejected, "declined by gateway")
	outer := fmt.Errorf("create intent: %w", inner)
	if !IsCode(outer, CodeGatewayRejected) {
		t.Fatalf("expected wrapped gateway rejection to be detected")
	}
	if IsCode(outer, CodeDependency) {
		t.Fatalf("unexpected dependency match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpCollectsLogFields(t *testing.T) {
	gatewayErr := Wrap(CodeDependency, stdErrors.New("status 503: upstream"), "transaction lookup failed").
		WithDetails(map[string]any{"gateway_status": 503})
	combined := multierr.Append(gatewayErr, stdErrors.New("second failure"))

	d := Dump(combined)
	if d.Code != CodeDependency || !d.Retryable {
		t.Fatalf("expected retryable dependency dump, got %+v", d)
	}
	if d.GatewayStatus != 503 {
		t.Fatalf("expected gateway status 503 got %d", d.GatewayStatus)
	}
	if len(d.Combined) != 2 {
		t.Fatalf("expected 2 combined errors got %d", len(d.Combined))
	}

	fields := d.Fields()
	if fields["gateway_status"] != 503 {
		t.Fatalf("expected gateway_status field, got %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("pg fields must be omitted for non-database errors")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}

func TestPublicMessageHidesInternalText(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(CodeValidation, "amount must be positive"), "amount must be positive"},
		{New(CodeValidation, ""), "validation failed"},
		{Wrap(CodeInternal, stdErrors.New("pq: relation missing"), "load order"), "internal server error"},
		{New(CodeDependency, "transaction lookup failed"), "dependency unavailable"},
		{New(CodeInvalidSignature, "checksum mismatch"), "invalid signature"},
	}
	for _, tt := range tests {
		if got := tt.err.PublicMessage(); got != tt.want {
			t.Fatalf("code %s expected %q got %q", tt.err.Code(), tt.want, got)
		}
	}
}
