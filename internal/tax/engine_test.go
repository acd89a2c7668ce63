package tax

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// stubRates returns a fixed rate for every lookup.
type stubRates struct {
	rate decimal.Decimal
	err  error
}

func (s stubRates) Rate(_ context.Context, _ string, _ time.Time) (decimal.Decimal, error) {
	return s.rate, s.err
}

func etfConfig(t *testing.T) domain.FundConfig {
	report := date(2024, time.June, 30)
	return domain.FundConfig{
		ISIN:                                   "IE00B4L5Y983",
		SecurityType:                           domain.SecurityAccumulatingETF,
		StartDate:                              date(2024, time.January, 1),
		EndDate:                                date(2024, time.December, 31),
		StartingQuantity:                       dec(t, "100"),
		StartingMovingAvgPrice:                 dec(t, "10"),
		OekbReportDate:                         &report,
		OekbDistributionEquivalentIncomeFactor: dec(t, "0.5"),
		OekbTaxesPaidAbroadFactor:              dec(t, "0.1"),
		OekbAdjustmentFactor:                   dec(t, "0.2"),
		OekbReportCurrency:                     "USD",
	}
}

func buyTx(t *testing.T, isin string, day time.Time, shares, price string) domain.Transaction {
	return domain.Transaction{
		Date: day, Kind: domain.KindBuy, ISIN: isin,
		Shares: dec(t, shares), Price: dec(t, price), Currency: "EUR",
	}
}

func sellTx(t *testing.T, isin string, day time.Time, shares, price string) domain.Transaction {
	return domain.Transaction{
		Date: day, Kind: domain.KindSell, ISIN: isin,
		Shares: dec(t, shares), Price: dec(t, price), Currency: "EUR",
	}
}

func calculateOne(t *testing.T, cfg domain.FundConfig, rate string, txs []domain.Transaction) domain.TaxCalculationResult {
	t.Helper()
	svc := NewService(stubRates{rate: dec(t, rate)}, 1)
	results, err := svc.Calculate(context.Background(), []domain.FundConfig{cfg}, txs)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0]
}

func TestAccumulatingETFWithAdjustment(t *testing.T) {
	cfg := etfConfig(t)
	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.March, 15), "50", "12"),
	}

	r := calculateOne(t, cfg, "0.9", txs)

	if !r.TotalQuantityBeforeReport.Equal(dec(t, "150")) {
		t.Errorf("TotalQuantityBeforeReport = %s, want 150", r.TotalQuantityBeforeReport)
	}
	if !r.TotalQuantity.Equal(dec(t, "150")) {
		t.Errorf("TotalQuantity = %s, want 150", r.TotalQuantity)
	}
	// (100*10 + 50*12) / 150 = 10.6667, then + 0.9*0.2 = 10.8467
	if !r.FinalMovingAvgPrice.Equal(dec(t, "10.8467")) {
		t.Errorf("FinalMovingAvgPrice = %s, want 10.8467", r.FinalMovingAvgPrice)
	}
	if !r.DistributionEquivalentIncome.Equal(dec(t, "67.50")) {
		t.Errorf("DistributionEquivalentIncome = %s, want 67.50", r.DistributionEquivalentIncome)
	}
	if !r.TaxesPaidAbroad.Equal(dec(t, "13.50")) {
		t.Errorf("TaxesPaidAbroad = %s, want 13.50", r.TaxesPaidAbroad)
	}

	if len(r.ComputedTransactions) != 2 {
		t.Fatalf("got %d events, want buy + adjustment", len(r.ComputedTransactions))
	}
	adj := r.ComputedTransactions[1]
	if adj.Kind != domain.ComputedAdjustment {
		t.Fatalf("second event kind = %s, want ADJ", adj.Kind.TypeName())
	}
	if !adj.AdjustmentFactor.Equal(dec(t, "0.18")) {
		t.Errorf("AdjustmentFactor = %s, want 0.18", adj.AdjustmentFactor)
	}
	if !adj.MovingAvgPrice.Equal(dec(t, "10.8467")) {
		t.Errorf("adjustment snapshot price = %s, want 10.8467", adj.MovingAvgPrice)
	}
}

func TestSellRealizesGainWithoutMovingAverage(t *testing.T) {
	cfg := etfConfig(t)
	cfg.OekbReportDate = nil
	cfg.OekbReportCurrency = ""

	txs := []domain.Transaction{
		sellTx(t, cfg.ISIN, date(2024, time.May, 2), "30", "15"),
	}

	r := calculateOne(t, cfg, "1", txs)

	if !r.TotalCapitalGains.Equal(dec(t, "150.00")) {
		t.Errorf("TotalCapitalGains = %s, want 150.00", r.TotalCapitalGains)
	}
	if !r.FinalMovingAvgPrice.Equal(dec(t, "10")) {
		t.Errorf("FinalMovingAvgPrice = %s, want unchanged 10", r.FinalMovingAvgPrice)
	}
	if !r.TotalQuantity.Equal(dec(t, "70")) {
		t.Errorf("TotalQuantity = %s, want 70", r.TotalQuantity)
	}

	sell := r.ComputedTransactions[0]
	if !sell.MovingAvgPrice.Equal(dec(t, "10")) {
		t.Errorf("sell snapshot price = %s, want pre-sell 10", sell.MovingAvgPrice)
	}
}

func TestNoReportDateSkipsAdjustmentAndOekbFigures(t *testing.T) {
	cfg := etfConfig(t)
	cfg.OekbReportDate = nil
	cfg.OekbReportCurrency = ""

	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.March, 15), "50", "12"),
	}

	r := calculateOne(t, cfg, "1", txs)

	for _, e := range r.ComputedTransactions {
		if e.Kind == domain.ComputedAdjustment {
			t.Fatal("no adjustment event expected without a report date")
		}
	}
	if !r.DistributionEquivalentIncome.IsZero() {
		t.Errorf("DistributionEquivalentIncome = %s, want 0", r.DistributionEquivalentIncome)
	}
	if !r.TaxesPaidAbroad.IsZero() {
		t.Errorf("TaxesPaidAbroad = %s, want 0", r.TaxesPaidAbroad)
	}
}

func TestReportDateOutsideWindow(t *testing.T) {
	// The report belongs to a different period: no adjustment enters the
	// stream, but the tax figures still use the replayed before-report
	// quantity.
	cfg := etfConfig(t)
	outside := date(2025, time.June, 30)
	cfg.OekbReportDate = &outside

	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.March, 15), "50", "12"),
	}

	r := calculateOne(t, cfg, "0.9", txs)

	for _, e := range r.ComputedTransactions {
		if e.Kind == domain.ComputedAdjustment {
			t.Fatal("no adjustment event expected for out-of-window report date")
		}
	}
	// All buys predate the report date, so they count towards it.
	if !r.TotalQuantityBeforeReport.Equal(dec(t, "150")) {
		t.Errorf("TotalQuantityBeforeReport = %s, want 150", r.TotalQuantityBeforeReport)
	}
	if !r.DistributionEquivalentIncome.Equal(dec(t, "67.50")) {
		t.Errorf("DistributionEquivalentIncome = %s, want 67.50", r.DistributionEquivalentIncome)
	}
}

func TestAdjustmentSortsBeforeSameDayTrades(t *testing.T) {
	cfg := etfConfig(t)
	reportDay := *cfg.OekbReportDate

	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, reportDay, "10", "11"),
		buyTx(t, cfg.ISIN, reportDay, "20", "12"),
	}

	r := calculateOne(t, cfg, "0.9", txs)

	if len(r.ComputedTransactions) != 3 {
		t.Fatalf("got %d events, want 3", len(r.ComputedTransactions))
	}
	first := r.ComputedTransactions[0]
	if first.Kind != domain.ComputedAdjustment {
		t.Fatalf("first event = %s, want ADJ", first.Kind.TypeName())
	}
	// The adjustment snapshot reflects the pre-buy position.
	if !first.TotalQuantity.Equal(dec(t, "100")) {
		t.Errorf("adjustment snapshot quantity = %s, want 100", first.TotalQuantity)
	}
	// Same-day buys still count towards the report.
	if !r.TotalQuantityBeforeReport.Equal(dec(t, "130")) {
		t.Errorf("TotalQuantityBeforeReport = %s, want 130", r.TotalQuantityBeforeReport)
	}
}

func TestZeroQuantityAdjustmentIsNoOp(t *testing.T) {
	cfg := etfConfig(t)
	cfg.StartingQuantity = dec(t, "0")
	cfg.StartingMovingAvgPrice = dec(t, "0")

	r := calculateOne(t, cfg, "0.9", nil)

	if len(r.ComputedTransactions) != 1 {
		t.Fatalf("got %d events, want 1 adjustment", len(r.ComputedTransactions))
	}
	adj := r.ComputedTransactions[0]
	if !adj.MovingAvgPrice.IsZero() {
		t.Errorf("moving average after no-op adjustment = %s, want 0", adj.MovingAvgPrice)
	}
	if !r.FinalMovingAvgPrice.IsZero() {
		t.Errorf("FinalMovingAvgPrice = %s, want 0", r.FinalMovingAvgPrice)
	}
}

func TestStockNeverYieldsOekbFigures(t *testing.T) {
	cfg := domain.FundConfig{
		ISIN:                   "US0378331005",
		SecurityType:           domain.SecurityStock,
		StartDate:              date(2024, time.January, 1),
		EndDate:                date(2024, time.December, 31),
		StartingQuantity:       dec(t, "10"),
		StartingMovingAvgPrice: dec(t, "100"),
	}
	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.February, 1), "5", "110"),
		sellTx(t, cfg.ISIN, date(2024, time.November, 1), "8", "120"),
	}

	r := calculateOne(t, cfg, "1", txs)

	if !r.DistributionEquivalentIncome.IsZero() {
		t.Errorf("DistributionEquivalentIncome = %s, want 0", r.DistributionEquivalentIncome)
	}
	if !r.TaxesPaidAbroad.IsZero() {
		t.Errorf("TaxesPaidAbroad = %s, want 0", r.TaxesPaidAbroad)
	}
	if r.TotalCapitalGains.IsZero() {
		t.Error("capital gains should still be computed for stocks")
	}
}

func TestQuantityConservation(t *testing.T) {
	cfg := etfConfig(t)
	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.February, 1), "10.123", "11"),
		buyTx(t, cfg.ISIN, date(2024, time.April, 1), "5.5", "12"),
		sellTx(t, cfg.ISIN, date(2024, time.August, 1), "7.25", "13"),
		buyTx(t, cfg.ISIN, date(2024, time.October, 1), "1.002", "14"),
	}

	r := calculateOne(t, cfg, "0.9", txs)

	// 100 + 10.123 + 5.5 - 7.25 + 1.002
	want := dec(t, "109.375")
	if r.TotalQuantity.Sub(want).Abs().GreaterThan(dec(t, "0.001")) {
		t.Errorf("TotalQuantity = %s, want %s within 0.001", r.TotalQuantity, want)
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	cfg := etfConfig(t)
	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.February, 1), "10", "11"),
		sellTx(t, cfg.ISIN, date(2024, time.August, 1), "5", "13"),
	}

	first := calculateOne(t, cfg, "0.9", txs)
	second := calculateOne(t, cfg, "0.9", txs)

	if len(first.ComputedTransactions) != len(second.ComputedTransactions) {
		t.Fatal("event counts differ between runs")
	}
	for i := range first.ComputedTransactions {
		a, b := first.ComputedTransactions[i], second.ComputedTransactions[i]
		if a.Kind != b.Kind || !a.Date.Equal(b.Date) ||
			!a.MovingAvgPrice.Equal(b.MovingAvgPrice) || !a.TotalQuantity.Equal(b.TotalQuantity) {
			t.Errorf("event %d differs: %+v vs %+v", i, a, b)
		}
	}
	if !first.TotalCapitalGains.Equal(second.TotalCapitalGains) {
		t.Error("capital gains differ between runs")
	}
}

func TestExcludedAndForeignTransactionsAreIgnored(t *testing.T) {
	cfg := etfConfig(t)
	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.March, 15), "50", "12"),
		// Different security.
		buyTx(t, "LU0908500753", date(2024, time.March, 15), "99", "50"),
		// Outside the window.
		buyTx(t, cfg.ISIN, date(2023, time.December, 31), "99", "50"),
		// Cash movement.
		{Date: date(2024, time.April, 1), Kind: domain.KindDeposit, ISIN: cfg.ISIN, Currency: "EUR"},
		// Unknown kind.
		{Date: date(2024, time.April, 2), Kind: domain.TransactionKind("Dividend"), ISIN: cfg.ISIN, Currency: "EUR"},
	}

	r := calculateOne(t, cfg, "0.9", txs)

	if len(r.ComputedTransactions) != 2 {
		t.Fatalf("got %d events, want buy + adjustment only", len(r.ComputedTransactions))
	}
	if !r.TotalQuantity.Equal(dec(t, "150")) {
		t.Errorf("TotalQuantity = %s, want 150", r.TotalQuantity)
	}
}

func TestZeroQuantityTradeFails(t *testing.T) {
	cfg := etfConfig(t)
	txs := []domain.Transaction{
		{Date: date(2024, time.March, 1), Kind: domain.KindBuy, ISIN: cfg.ISIN,
			Reference: "tx-1", Shares: dec(t, "0"), Price: dec(t, "10")},
	}

	svc := NewService(stubRates{rate: dec(t, "0.9")}, 1)
	_, err := svc.Calculate(context.Background(), []domain.FundConfig{cfg}, txs)
	if err == nil {
		t.Fatal("expected error for zero-quantity trade")
	}
}

func TestCumulativeRoundingPerStep(t *testing.T) {
	// Two buys whose intermediate average must be rounded before the next
	// step consumes it.
	cfg := etfConfig(t)
	cfg.OekbReportDate = nil
	cfg.OekbReportCurrency = ""
	cfg.StartingQuantity = dec(t, "3")
	cfg.StartingMovingAvgPrice = dec(t, "10")

	txs := []domain.Transaction{
		buyTx(t, cfg.ISIN, date(2024, time.February, 1), "1", "11"),
		buyTx(t, cfg.ISIN, date(2024, time.March, 1), "2", "12"),
	}

	r := calculateOne(t, cfg, "1", txs)

	// Step 1: (3*10 + 1*11) / 4 = 10.25
	// Step 2: (4*10.25 + 2*12) / 6 = 10.8333 (rounded from 10.8333...)
	if !r.ComputedTransactions[0].MovingAvgPrice.Equal(dec(t, "10.25")) {
		t.Errorf("first average = %s, want 10.25", r.ComputedTransactions[0].MovingAvgPrice)
	}
	if !r.FinalMovingAvgPrice.Equal(dec(t, "10.8333")) {
		t.Errorf("FinalMovingAvgPrice = %s, want 10.8333", r.FinalMovingAvgPrice)
	}
}
