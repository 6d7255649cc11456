package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewAppError(CodeConflict, "date taken")); got != CodeConflict {
		t.Fatalf("expected CONFLICT, got %s", got)
	}

	// Wrapped AppErrors are still recognized through the chain.
	wrapped := fmt.Errorf("handler: %w", WrapAppError(CodeNotFound, "booking not found", errors.New("mongo: no documents")))
	if got := CodeOf(wrapped); got != CodeNotFound {
		t.Fatalf("expected NOT_FOUND through wrap, got %s", got)
	}

	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("plain errors must default to INTERNAL, got %s", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeForbidden, http.StatusForbidden},
		{CodeInvalidState, http.StatusBadRequest},
		{CodeAlreadyPaid, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeGatewayUnavailable, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.code); got != tc.want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(NewAppError(CodeGatewayUnavailable, "stripe down")) {
		t.Fatalf("gateway errors must be retryable")
	}
	if Retryable(NewAppError(CodeConflict, "date taken")) {
		t.Fatalf("conflicts are not retryable")
	}
}
