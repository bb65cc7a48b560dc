package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStatusCodeAndPublicMessage(t *testing.T) {
	testCases := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantBody   ErrorResponse
	}{
		{"validation", NewValidationError("name is required", nil), http.StatusBadRequest, ErrorResponse{"Bad Request"}},
		{"format", NewFormatError("bad base64", nil), http.StatusBadRequest, ErrorResponse{"Bad Request"}},
		{"duplicate", NewDuplicateError("username taken", nil), http.StatusBadRequest, ErrorResponse{"Bad Request"}},
		{"auth", NewAuthError("token expired", nil), http.StatusUnauthorized, ErrorResponse{"Not Authorized"}},
		{"authorization", NewAuthorizationError("not the owner", nil), http.StatusUnauthorized, ErrorResponse{"Not Authorized"}},
		{"not found", NewNotFoundError("list 42", nil), http.StatusNotFound, ErrorResponse{"Not Found"}},
		{"consistency", NewConsistencyError("orphan item", nil), http.StatusInternalServerError, ErrorResponse{"Internal Server Error"}},
		{"database fatal", NewDatabaseError("syntax error", nil, false), http.StatusInternalServerError, ErrorResponse{"Internal Server Error"}},
		{"database retryable", NewDatabaseError("timeout", context.DeadlineExceeded, true), http.StatusServiceUnavailable, ErrorResponse{"Service Unavailable"}},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError, ErrorResponse{"Internal Server Error"}},
		{"unknown type", &AppError{Type: ErrorType(99), Message: "?"}, http.StatusInternalServerError, ErrorResponse{"Internal Server Error"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.StatusCode(); got != tc.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tc.wantStatus)
			}
			if diff := cmp.Diff(tc.wantBody, tc.err.ToResponse()); diff != "" {
				t.Errorf("ToResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResponseNeverCarriesInternalMessage(t *testing.T) {
	err := NewNotFoundError("list 6f1c missing in collection lists", errors.New("no rows"))
	if got := err.ToResponse().Error; got != "Not Found" {
		t.Fatalf("public message = %q", got)
	}
}

func TestPublicMessageFallback(t *testing.T) {
	if got := PublicMessage(http.StatusTeapot); got != "Internal Server Error" {
		t.Errorf("PublicMessage(418) = %q", got)
	}
	if got := PublicMessage(http.StatusConflict); got != "Conflict" {
		t.Errorf("PublicMessage(409) = %q", got)
	}
}

func TestFromNormalizesWrappedErrors(t *testing.T) {
	base := NewAuthError("bad signature", nil)
	wrapped := fmt.Errorf("guard: %w", base)

	if got := From(wrapped); got != base {
		t.Errorf("From(wrapped) = %v, want the wrapped AppError", got)
	}
	if !IsAuthError(wrapped) {
		t.Error("IsAuthError(wrapped) = false")
	}

	plain := errors.New("something odd")
	got := From(plain)
	if got.Type != InternalError {
		t.Errorf("From(plain).Type = %v, want internal", got.Type)
	}
	if !errors.Is(got, plain) {
		t.Error("From(plain) lost the original error")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("ctx: %w", NewDatabaseError("timeout", nil, true))) {
		t.Error("retryable database error not detected")
	}
	if IsRetryable(NewDatabaseError("constraint", nil, false)) {
		t.Error("fatal database error reported retryable")
	}
	if IsRetryable(NewInternalError("x", nil)) {
		t.Error("internal error reported retryable")
	}
}
