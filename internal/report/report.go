// Package report renders tax calculation results to the terminal, to an
// Excel workbook and optionally to a Google Sheet. Writers only consume the
// result model; they never reach back into the calculation.
package report

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
	"github.com/fwallner/kest/internal/tax"
)

// Writer renders a set of per-security results to some destination.
type Writer interface {
	Write(ctx context.Context, results []domain.TaxCalculationResult) error
}

// Totals aggregates the tax figures across all securities of a run.
type Totals struct {
	DistributionEquivalentIncome decimal.Decimal
	TaxesPaidAbroad              decimal.Decimal
	TotalCapitalGains            decimal.Decimal
}

// ProjectedTax is the estimated KESt due: 27.5% of deemed income plus
// realized gains, minus the creditable foreign withholding tax.
func (t Totals) ProjectedTax() decimal.Decimal {
	taxable := t.DistributionEquivalentIncome.Add(t.TotalCapitalGains)
	return domain.RoundEuro(taxable.Mul(tax.KestRate).Sub(t.TaxesPaidAbroad))
}

// SumResults computes run-wide totals. Per-security figures are already
// rounded to cents, so the sums are exact.
func SumResults(results []domain.TaxCalculationResult) Totals {
	return lo.Reduce(results, func(acc Totals, r domain.TaxCalculationResult, _ int) Totals {
		return Totals{
			DistributionEquivalentIncome: acc.DistributionEquivalentIncome.Add(r.DistributionEquivalentIncome),
			TaxesPaidAbroad:              acc.TaxesPaidAbroad.Add(r.TaxesPaidAbroad),
			TotalCapitalGains:            acc.TotalCapitalGains.Add(r.TotalCapitalGains),
		}
	}, Totals{
		DistributionEquivalentIncome: decimal.Zero,
		TaxesPaidAbroad:              decimal.Zero,
		TotalCapitalGains:            decimal.Zero,
	})
}
