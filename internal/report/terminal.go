package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
)

const (
	sectionWidth = 80
	tableWidth   = 90

	displayDateFormat = "02/01/2006"
)

// TerminalWriter renders results as sectioned plain text.
type TerminalWriter struct {
	out io.Writer
}

// NewTerminalWriter creates a terminal report writer.
func NewTerminalWriter(out io.Writer) *TerminalWriter {
	return &TerminalWriter{out: out}
}

// Write prints the per-security sections followed by the run-wide summary.
func (w *TerminalWriter) Write(_ context.Context, results []domain.TaxCalculationResult) error {
	for _, r := range results {
		w.printDetails(r)
		w.printTransactions(r)
		w.printCapitalGains(r)
		w.printStats(r)
	}
	w.printFinalSummary(SumResults(results))
	return nil
}

func (w *TerminalWriter) section(title string, width int) {
	fmt.Fprintf(w.out, "\n%s\n", strings.Repeat("=", width))
	fmt.Fprintf(w.out, "%*s\n", (width+len(title))/2, title)
	fmt.Fprintf(w.out, "%s\n\n", strings.Repeat("=", width))
}

func (w *TerminalWriter) printDetails(r domain.TaxCalculationResult) {
	w.section("DETAILS", sectionWidth)

	fmt.Fprintf(w.out, "ISIN: %s\n", r.ISIN)
	fmt.Fprintf(w.out, "Security type: %s\n", r.SecurityType)

	if r.SecurityType == domain.SecurityAccumulatingETF && r.ReportDate != nil {
		fmt.Fprintf(w.out, "\nOeKB factors:\n")
		fmt.Fprintf(w.out, "  - Distribution equivalent income: %s\n", r.DistributionEquivalentIncomeFactor.StringFixed(4))
		fmt.Fprintf(w.out, "  - Taxes paid abroad: %s\n", r.TaxesPaidAbroadFactor.StringFixed(4))
		fmt.Fprintf(w.out, "  - Adjustment: %s\n", r.AdjustmentFactor.StringFixed(4))
		fmt.Fprintf(w.out, "\nECB exchange rate (%s -> EUR) at %s: %s\n",
			r.ReportCurrency, r.ReportDate.Format(displayDateFormat), r.ECBExchangeRate.StringFixed(4))
	}
}

func (w *TerminalWriter) printTransactions(r domain.TaxCalculationResult) {
	w.section("TRANSACTIONS", tableWidth)

	fmt.Fprintf(w.out, "%-12s %-8s %12s %14s %14s %14s %12s\n",
		"Date", "Type", "Quantity", "Share Price", "Total Price", "Moving Avg", "Total Qty")
	fmt.Fprintf(w.out, "%s\n", strings.Repeat("-", tableWidth))

	fmt.Fprintf(w.out, "%-12s %-8s %12s %14s %14s %14s %12s\n",
		r.StartDate.Format(displayDateFormat), "START",
		r.StartingQuantity.StringFixed(3), "N/A", "N/A",
		r.StartingMovingAvgPrice.StringFixed(4), r.StartingQuantity.StringFixed(3))

	for _, t := range r.ComputedTransactions {
		quantity, sharePrice := decimal.Zero, decimal.Zero
		if t.Kind != domain.ComputedAdjustment {
			quantity, sharePrice = t.Quantity, t.SharePrice
		}
		fmt.Fprintf(w.out, "%-12s %-8s %12s %14s %14s %14s %12s\n",
			t.Date.Format(displayDateFormat), t.Kind.TypeName(),
			quantity.StringFixed(3), sharePrice.StringFixed(3),
			t.TotalPrice().StringFixed(4), t.MovingAvgPrice.StringFixed(4),
			t.TotalQuantity.StringFixed(3))
	}
}

func (w *TerminalWriter) printCapitalGains(r domain.TaxCalculationResult) {
	w.section("CAPITAL GAINS", sectionWidth)

	fmt.Fprintf(w.out, "%-50s %10s EUR\n", "Distribution equivalent income (936/937):", r.DistributionEquivalentIncome.StringFixed(2))
	fmt.Fprintf(w.out, "%-50s %10s EUR\n", "Taxes paid abroad (984/998):", r.TaxesPaidAbroad.StringFixed(2))
	fmt.Fprintf(w.out, "%-50s %10s EUR\n", "Capital gains:", r.TotalCapitalGains.StringFixed(2))
}

func (w *TerminalWriter) printStats(r domain.TaxCalculationResult) {
	w.section("STATS", sectionWidth)

	fmt.Fprintf(w.out, "%-46s %s\n", "Starting shares:", r.StartingQuantity.StringFixed(3))
	if r.SecurityType == domain.SecurityAccumulatingETF && r.ReportDate != nil {
		fmt.Fprintf(w.out, "%-46s %s\n",
			fmt.Sprintf("Total shares before OeKB report (%s):", r.ReportDate.Format(displayDateFormat)),
			r.TotalQuantityBeforeReport.StringFixed(3))
	}
	fmt.Fprintf(w.out, "%-46s %s\n", "Current total shares:", r.TotalQuantity.StringFixed(3))
}

func (w *TerminalWriter) printFinalSummary(totals Totals) {
	w.section("FINAL SUMMARY (ALL SECURITIES)", sectionWidth)

	fmt.Fprintf(w.out, "%-50s %10s EUR\n", "Distribution equivalent income (936/937):", totals.DistributionEquivalentIncome.StringFixed(2))
	fmt.Fprintf(w.out, "%-50s %10s EUR\n", "Taxes paid abroad (984/998):", totals.TaxesPaidAbroad.StringFixed(2))
	fmt.Fprintf(w.out, "%-50s %10s EUR\n", "Total capital gains:", totals.TotalCapitalGains.StringFixed(2))
	fmt.Fprintf(w.out, "\n%-50s %10s EUR\n", "Projected taxes to pay:", totals.ProjectedTax().StringFixed(2))
	fmt.Fprintf(w.out, "\nNote: all amounts are rounded to 2 decimal places as required by FinanzOnline.\n")
}
