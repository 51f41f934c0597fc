package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backend/internal/repository"
	"backend/pkg/apperror"

	"gorm.io/gorm"
)

// QuoteNumberPrefix is the human-readable prefix of every quote number.
const QuoteNumberPrefix = "HD"

// QuoteNumberGenerator produces sequential, per-calendar-year quote
// numbers of the form HD-2024-0007. The read-then-increment is racy on
// its own; CreateQuote relies on the unique index on quote_number and
// retries on duplicate-key errors.
type QuoteNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

type quoteNumberGenerator struct {
	quoteRepo repository.QuoteRepository
	now       func() time.Time
}

func NewQuoteNumberGenerator(quoteRepo repository.QuoteRepository) QuoteNumberGenerator {
	return &quoteNumberGenerator{quoteRepo: quoteRepo, now: time.Now}
}

func (g *quoteNumberGenerator) Next(ctx context.Context) (string, error) {
	year := g.now().Year()
	prefix := fmt.Sprintf("%s-%d-", QuoteNumberPrefix, year)

	latest, err := g.quoteRepo.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Sprintf("%s%04d", prefix, 1), nil
		}
		return "", apperror.Database(err)
	}

	seq := 1
	if strings.HasPrefix(latest.QuoteNumber, prefix) {
		tail := strings.TrimPrefix(latest.QuoteNumber, prefix)
		if n, parseErr := strconv.Atoi(tail); parseErr == nil {
			seq = n + 1
		}
	}
	// A latest quote from a previous year restarts the sequence at 1.

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
