package tax

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fwallner/kest/internal/domain"
)

// ErrZeroQuantity marks a buy or sell whose share count is zero. Such a row
// cannot carry a meaningful per-share price and points at broken input data.
var ErrZeroQuantity = errors.New("transaction has zero quantity")

// RateSource resolves the EUR conversion rate for one unit of a currency on
// a given date.
type RateSource interface {
	Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

// Service runs the tax calculation for a set of configured securities
// against a shared transaction ledger.
type Service struct {
	rates       RateSource
	parallelism int
}

// NewService creates a tax calculation service. parallelism bounds the
// number of securities processed concurrently; values below one mean
// sequential processing.
func NewService(rates RateSource, parallelism int) *Service {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Service{rates: rates, parallelism: parallelism}
}

// Calculate produces one result per config, in config order. Securities are
// independent, so they are processed on an errgroup; any failure aborts the
// whole run rather than returning a mix of valid and corrupted aggregates.
func (s *Service) Calculate(ctx context.Context, configs []domain.FundConfig, transactions []domain.Transaction) ([]domain.TaxCalculationResult, error) {
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	results := make([]domain.TaxCalculationResult, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			result, err := s.processSecurity(gctx, cfg, transactions)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processSecurity resolves the exchange rate, replays the security's
// transactions and assembles the result.
func (s *Service) processSecurity(ctx context.Context, cfg domain.FundConfig, transactions []domain.Transaction) (domain.TaxCalculationResult, error) {
	ecbRate, err := s.resolveRate(ctx, cfg)
	if err != nil {
		return domain.TaxCalculationResult{}, fmt.Errorf("security %s: %w", cfg.ISIN, err)
	}

	scoped := lo.Filter(transactions, func(t domain.Transaction, _ int) bool {
		return t.ISIN == cfg.ISIN && !t.Date.Before(cfg.StartDate) && !t.Date.After(cfg.EndDate)
	})

	events, err := prepareEvents(cfg, scoped, ecbRate)
	if err != nil {
		return domain.TaxCalculationResult{}, err
	}

	state := replay(cfg, events)

	dei := distributionEquivalentIncome(cfg, ecbRate, state.totalQuantityBeforeReport)
	tpa := taxesPaidAbroad(cfg, ecbRate, state.totalQuantityBeforeReport)

	slog.Info("security processed",
		"isin", cfg.ISIN,
		"events", len(events),
		"totalQuantity", state.totalQuantity,
		"capitalGains", state.totalCapitalGains)

	return domain.TaxCalculationResult{
		ISIN:           cfg.ISIN,
		SecurityType:   cfg.SecurityType,
		ReportCurrency: cfg.OekbReportCurrency,

		StartDate:  cfg.StartDate,
		EndDate:    cfg.EndDate,
		ReportDate: cfg.OekbReportDate,

		DistributionEquivalentIncomeFactor: cfg.OekbDistributionEquivalentIncomeFactor,
		TaxesPaidAbroadFactor:              cfg.OekbTaxesPaidAbroadFactor,
		AdjustmentFactor:                   cfg.OekbAdjustmentFactor,

		ECBExchangeRate: ecbRate,

		DistributionEquivalentIncome: dei,
		TaxesPaidAbroad:              tpa,
		TotalCapitalGains:            state.totalCapitalGains,

		StartingQuantity:          cfg.StartingQuantity,
		TotalQuantityBeforeReport: state.totalQuantityBeforeReport,
		TotalQuantity:             state.totalQuantity,

		StartingMovingAvgPrice: cfg.StartingMovingAvgPrice,
		FinalMovingAvgPrice:    state.movingAvgPrice,

		ComputedTransactions: events,
	}, nil
}

// resolveRate looks up the ECB rate at the report date. Securities without
// a report currency are already EUR-denominated and use 1.0; any other
// missing rate is an error, never a silent fallback.
func (s *Service) resolveRate(ctx context.Context, cfg domain.FundConfig) (decimal.Decimal, error) {
	if cfg.OekbReportCurrency == "" || cfg.OekbReportDate == nil {
		return decimal.NewFromInt(1), nil
	}
	rate, err := s.rates.Rate(ctx, cfg.OekbReportCurrency, *cfg.OekbReportDate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("resolving %s rate at %s: %w",
			cfg.OekbReportCurrency, cfg.OekbReportDate.Format("2006-01-02"), err)
	}
	return rate, nil
}
