package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}

func TestFromClassifiesWrappedErrors(t *testing.T) {
	base := NotFound("Student not found")
	wrapped := fmt.Errorf("toggle: %w", base)

	got := From(wrapped)
	if got.Kind != KindNotFound || got.Message != "Student not found" {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if !errors.Is(wrapped, NotFound("Student not found")) {
		t.Fatal("expected errors.Is to match by kind and message")
	}
	if errors.Is(wrapped, NotFound("Event not found")) {
		t.Fatal("different messages must not match")
	}
}

func TestFromHidesUnclassifiedErrors(t *testing.T) {
	cause := errors.New("pq: connection refused")
	got := From(cause)
	if got.Kind != KindInternal {
		t.Fatalf("expected internal, got %s", got.Kind)
	}
	if got.Message != InternalMessage {
		t.Fatalf("internal message leaked: %q", got.Message)
	}
	if !errors.Is(got, cause) {
		t.Fatal("cause must stay reachable for logging")
	}
	if From(nil) != nil {
		t.Fatal("nil in, nil out")
	}
}
