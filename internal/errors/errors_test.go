package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"network", NewNetworkError("down", nil), ErrorTypeNetwork, http.StatusBadGateway},
		{"processing", NewProcessingError("oops", nil), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{"timeout", NewTimeoutError("slow", nil), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"internal", NewInternalError("boom", nil), ErrorTypeInternal, http.StatusInternalServerError},
		{"not found", NewNotFoundError("gone", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"malformed opinion", NewMalformedOpinionError("junk", nil), ErrorTypeMalformedOpinion, http.StatusBadGateway},
		{"provider timeout", NewProviderTimeoutError("late", nil), ErrorTypeProviderTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, tt.err.Type)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, tt.err.StatusCode)
			}
		})
	}
}

func TestWrappedLookup(t *testing.T) {
	appErr := NewProviderTimeoutError("strict opinion", context.DeadlineExceeded)
	wrapped := fmt.Errorf("grading comic: %w", appErr)

	if !IsType(wrapped, ErrorTypeProviderTimeout) {
		t.Error("Expected IsType to see through wrapping")
	}
	if got := GetStatusCode(wrapped); got != http.StatusGatewayTimeout {
		t.Errorf("Expected %d, got %d", http.StatusGatewayTimeout, got)
	}
	if GetStatusCode(fmt.Errorf("plain")) != http.StatusInternalServerError {
		t.Error("Expected plain errors to map to 500")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewValidationError("missing front image", fmt.Errorf("no file"))
	want := "validation: missing front image (caused by: no file)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
