package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputedKind tags the three event kinds the position replay produces.
// The set is closed; the replay switches exhaustively over it.
type ComputedKind int

const (
	ComputedBuy ComputedKind = iota
	ComputedSell
	ComputedAdjustment
)

// TypeName returns the short label used in reports.
func (k ComputedKind) TypeName() string {
	switch k {
	case ComputedBuy:
		return "BUY"
	case ComputedSell:
		return "SELL"
	case ComputedAdjustment:
		return "ADJ"
	default:
		return "UNKNOWN"
	}
}

// ComputedTransaction is one event in a security's replayed timeline. Buys
// and sells carry a quantity and share price; the synthetic OeKB adjustment
// carries only the per-share EUR correction. MovingAvgPrice and
// TotalQuantity are snapshots of the running state immediately after the
// event was applied.
type ComputedTransaction struct {
	Kind ComputedKind
	Date time.Time

	Quantity         decimal.Decimal
	SharePrice       decimal.Decimal
	AdjustmentFactor decimal.Decimal

	MovingAvgPrice decimal.Decimal
	TotalQuantity  decimal.Decimal
}

// TotalPrice is quantity times share price, rounded to price precision.
// Adjustments move the cost basis without any money changing hands.
func (t ComputedTransaction) TotalPrice() decimal.Decimal {
	if t.Kind == ComputedAdjustment {
		return decimal.Zero
	}
	return RoundPrice(t.Quantity.Mul(t.SharePrice))
}

// TaxCalculationResult is the complete outcome for one security: the config
// echoed back, the replayed event list, the quantity and price traces, and
// the three figures that go into the tax return. It is assembled once per
// run and read-only afterwards.
type TaxCalculationResult struct {
	ISIN           string
	SecurityType   SecurityType
	ReportCurrency string

	StartDate  time.Time
	EndDate    time.Time
	ReportDate *time.Time

	DistributionEquivalentIncomeFactor decimal.Decimal
	TaxesPaidAbroadFactor              decimal.Decimal
	AdjustmentFactor                   decimal.Decimal

	ECBExchangeRate decimal.Decimal

	DistributionEquivalentIncome decimal.Decimal
	TaxesPaidAbroad              decimal.Decimal
	TotalCapitalGains            decimal.Decimal

	StartingQuantity          decimal.Decimal
	TotalQuantityBeforeReport decimal.Decimal
	TotalQuantity             decimal.Decimal

	StartingMovingAvgPrice decimal.Decimal
	FinalMovingAvgPrice    decimal.Decimal

	ComputedTransactions []ComputedTransaction
}
