package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
)

// lookbackDays is how far before the requested date the service searches
// for an observation. The ECB publishes rates on TARGET business days only,
// so a report date on a weekend or holiday resolves to the latest quote on
// or before it.
const lookbackDays = 7

// Fetcher fetches daily ECB quotes for a currency over a date window.
type Fetcher interface {
	FetchObservations(ctx context.Context, currency string, start, end time.Time) ([]Observation, error)
}

// Service resolves EUR conversion rates, checking the local cache before
// going to the ECB. Implements tax.RateSource.
type Service struct {
	fetcher Fetcher
	repo    Repository
}

// NewService creates a rate resolution service.
func NewService(fetcher Fetcher, repo Repository) *Service {
	return &Service{fetcher: fetcher, repo: repo}
}

// Rate returns the EUR value of one unit of currency on the given date,
// rounded to price precision. The ECB quotes currency per EUR, so the
// observation is inverted.
func (s *Service) Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == "EUR" {
		return decimal.NewFromInt(1), nil
	}

	cached, err := s.repo.GetRate(ctx, currency, date)
	if err == nil {
		return cached.Value, nil
	}
	if !errors.Is(err, ErrRateNotFound) {
		return decimal.Zero, err
	}

	slog.Info("rate cache miss, querying ECB", "currency", currency, "date", date.Format(ecbDateFormat))

	observations, err := s.fetcher.FetchObservations(ctx, currency, date.AddDate(0, 0, -lookbackDays), date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching ECB observations: %w", err)
	}

	obs, ok := latestOnOrBefore(observations, date)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s at %s", ErrRateNotFound, currency, date.Format(ecbDateFormat))
	}
	if obs.Value.IsZero() {
		return decimal.Zero, fmt.Errorf("ECB quote for %s at %s is zero", currency, obs.Date.Format(ecbDateFormat))
	}

	value := domain.RoundPrice(decimal.NewFromInt(1).Div(obs.Value))

	if err := s.repo.SaveRate(ctx, currency, date, value); err != nil {
		// A failed cache write only costs a refetch next run.
		slog.Warn("failed to cache rate", "currency", currency, "error", err)
	}

	return value, nil
}

func latestOnOrBefore(observations []Observation, date time.Time) (Observation, bool) {
	for i := len(observations) - 1; i >= 0; i-- {
		if !observations[i].Date.After(date) {
			return observations[i], true
		}
	}
	return Observation{}, false
}
