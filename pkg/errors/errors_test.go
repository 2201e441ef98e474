package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if !errors.Is(wrapped, originalErr) {
		t.Errorf("expected errors.Is to unwrap to the original error")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTenantIsolationCarriesBothUnits(t *testing.T) {
	err := TenantIsolation("unit_a", "unit_b")

	if err.Code != CodeTenantIsolation {
		t.Errorf("expected code %s, got %s", CodeTenantIsolation, err.Code)
	}
	if err.HTTPStatus != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, err.HTTPStatus)
	}
	if err.Details["active_unit_id"] != "unit_a" || err.Details["violating_unit_id"] != "unit_b" {
		t.Errorf("expected both unit ids in details, got %v", err.Details)
	}
}

func TestCrossUnitNotAllowedNamesPolicy(t *testing.T) {
	err := CrossUnitNotAllowed("marketplace_inactive")

	if err.Details["policy"] != "marketplace_inactive" {
		t.Errorf("expected policy in details, got %v", err.Details)
	}
}

func TestReservationTimeoutIsRetryable(t *testing.T) {
	err := ReservationTimeout("prof_1")

	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, err.HTTPStatus)
	}
}

func TestHasCode(t *testing.T) {
	err := QueuePaused("unit_a")

	if !HasCode(err, CodeQueuePaused) {
		t.Errorf("expected HasCode to match %s", CodeQueuePaused)
	}
	if HasCode(err, CodeConflict) {
		t.Errorf("did not expect HasCode to match %s", CodeConflict)
	}
	if HasCode(errors.New("plain"), CodeConflict) {
		t.Errorf("did not expect HasCode to match a plain error")
	}
}

func TestAsAppErrorWrapsUnknownErrors(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)

	if appErr.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, appErr.Code)
	}
	if appErr.Err != plain {
		t.Errorf("expected original error preserved")
	}
}
