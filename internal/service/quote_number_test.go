package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 6, 15, 12, 0, 0, 0, time.UTC) }
}

func seedQuote(t *testing.T, repo *fakeQuoteRepo, number string) {
	t.Helper()
	err := repo.Create(context.Background(), &model.Quote{
		OwnerID:     uuid.New(),
		QuoteNumber: number,
		Status:      model.QuoteStatusDraft,
	})
	if err != nil {
		t.Fatalf("seed quote %s: %v", number, err)
	}
}

func TestQuoteNumberGenerator(t *testing.T) {
	t.Run("empty table starts the sequence", func(t *testing.T) {
		gen := &quoteNumberGenerator{quoteRepo: newFakeQuoteRepo(), now: fixedClock(2024)}

		got, err := gen.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != "HD-2024-0001" {
			t.Fatalf("expected HD-2024-0001, got %s", got)
		}
	})

	t.Run("increments the latest number of the same year", func(t *testing.T) {
		repo := newFakeQuoteRepo()
		seedQuote(t, repo, "HD-2024-0001")
		seedQuote(t, repo, "HD-2024-0007")
		gen := &quoteNumberGenerator{quoteRepo: repo, now: fixedClock(2024)}

		got, err := gen.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != "HD-2024-0008" {
			t.Fatalf("expected HD-2024-0008, got %s", got)
		}
	})

	t.Run("new year restarts at one", func(t *testing.T) {
		repo := newFakeQuoteRepo()
		seedQuote(t, repo, "HD-2024-0132")
		gen := &quoteNumberGenerator{quoteRepo: repo, now: fixedClock(2025)}

		got, err := gen.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != "HD-2025-0001" {
			t.Fatalf("expected HD-2025-0001, got %s", got)
		}
	})

	t.Run("sequence widens past four digits", func(t *testing.T) {
		repo := newFakeQuoteRepo()
		seedQuote(t, repo, "HD-2024-9999")
		gen := &quoteNumberGenerator{quoteRepo: repo, now: fixedClock(2024)}

		got, err := gen.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != "HD-2024-10000" {
			t.Fatalf("expected HD-2024-10000, got %s", got)
		}
	})
}
