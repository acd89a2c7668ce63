package tax

import (
	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
)

// KestRate is the Austrian special tax rate on investment income (27.5%).
var KestRate = decimal.NewFromFloat(0.275)

// distributionEquivalentIncome computes the deemed distribution
// (Ausschüttungsgleiche Erträge, Kennzahl 936/937) in EUR. Only accumulating
// ETFs with a published OeKB report produce deemed income.
func distributionEquivalentIncome(cfg domain.FundConfig, ecbRate, quantityBeforeReport decimal.Decimal) decimal.Decimal {
	if cfg.SecurityType != domain.SecurityAccumulatingETF || !cfg.HasReport() {
		return decimal.Zero
	}
	return domain.RoundEuro(ecbRate.Mul(cfg.OekbDistributionEquivalentIncomeFactor).Mul(quantityBeforeReport))
}

// taxesPaidAbroad computes the creditable foreign withholding tax
// (Anzurechnende ausländische Quellensteuer, Kennzahl 984/998) in EUR.
func taxesPaidAbroad(cfg domain.FundConfig, ecbRate, quantityBeforeReport decimal.Decimal) decimal.Decimal {
	if cfg.SecurityType != domain.SecurityAccumulatingETF || !cfg.HasReport() {
		return decimal.Zero
	}
	return domain.RoundEuro(ecbRate.Mul(cfg.OekbTaxesPaidAbroadFactor).Mul(quantityBeforeReport))
}
