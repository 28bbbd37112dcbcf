package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  NotFound("TOPIC_NOT_FOUND", "topic not found"),
			want: "TOPIC_NOT_FOUND: topic not found",
		},
		{
			name: "with wrapped error",
			err:  Storage("STORAGE_FAILURE", "database failure", fmt.Errorf("db error")),
			want: "STORAGE_FAILURE: database failure: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Storage("CODE", "msg", inner)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestAppError_IsBySentinel(t *testing.T) {
	wrapped := fmt.Errorf("creating topic: %w", ErrTopicAlreadyExists)
	if !errors.Is(wrapped, ErrTopicAlreadyExists) {
		t.Error("errors.Is should match the sentinel by code")
	}
	if errors.Is(wrapped, ErrTopicNotFound) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("NOT_FOUND", "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", got.Code)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantKind   Kind
	}{
		{"InvalidArgument", InvalidArgument("IA", "bad arg"), http.StatusBadRequest, KindInvalidArgument},
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound, KindNotFound},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict, KindConflict},
		{"ValidationFailure", ValidationFailure("VF", "bad payload", nil), http.StatusUnprocessableEntity, KindValidationFailure},
		{"Storage", Storage("ST", "io failure", nil), http.StatusInternalServerError, KindStorage},
		{"Config", Config("CG", "config failure", nil), http.StatusInternalServerError, KindConfig},
		{"RemoteDeliveryFailure", RemoteDeliveryFailure("RD", "webhook failed", nil), http.StatusBadGateway, KindRemoteDeliveryFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
			if tt.err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.wantKind)
			}
		})
	}
}
