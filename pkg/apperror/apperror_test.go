package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	t.Run("errors with the same code match", func(t *testing.T) {
		err := RateNotFound("no rate tier covers a 40-day rental of Excavator")
		if !errors.Is(err, RateNotFound("")) {
			t.Fatal("expected same-code errors to match")
		}
		if errors.Is(err, QuoteNotFound("")) {
			t.Fatal("different codes must not match")
		}
	})

	t.Run("wrapping preserves the code", func(t *testing.T) {
		wrapped := fmt.Errorf("submit failed: %w", QuoteAlreadySubmitted("quote HD-2024-0001 was already submitted"))
		if CodeOf(wrapped) != CodeQuoteAlreadySubmitted {
			t.Fatalf("expected code through wrapping, got %s", CodeOf(wrapped))
		}
		if HTTPStatus(wrapped) != http.StatusBadRequest {
			t.Fatalf("expected 400 through wrapping, got %d", HTTPStatus(wrapped))
		}
	})

	t.Run("database errors keep the cause internal", func(t *testing.T) {
		cause := errors.New("pq: connection refused")
		err := Database(cause)
		if !errors.Is(err, cause) {
			t.Fatal("expected the cause to unwrap")
		}
		if MessageOf(err) != "database operation failed" {
			t.Fatalf("client message leaked internals: %q", MessageOf(err))
		}
	})

	t.Run("unknown errors default to an internal status", func(t *testing.T) {
		err := errors.New("something odd")
		if HTTPStatus(err) != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", HTTPStatus(err))
		}
		if MessageOf(err) != "internal server error" {
			t.Fatalf("expected generic message, got %q", MessageOf(err))
		}
	})
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{InvalidDateRange("end before start"), http.StatusBadRequest},
		{EquipmentNotFound("missing"), http.StatusBadRequest},
		{RateNotFound("uncovered"), http.StatusBadRequest},
		{QuoteNotFound("missing"), http.StatusNotFound},
		{Forbidden("not yours"), http.StatusForbidden},
		{QuoteNotDraft("locked"), http.StatusBadRequest},
		{QuoteAlreadySubmitted("done"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if tc.err.Status != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.err.Code, tc.status, tc.err.Status)
		}
	}
}
