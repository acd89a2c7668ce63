package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// ISINLength is the fixed length of a valid ISIN.
const ISINLength = 12

// configDateFormat is the date layout used in the securities config file.
const configDateFormat = "02/01/2006"

// FundConfig holds the per-security parameters for one tax period: the
// observation window, the position carried over from the previous period and
// the OeKB report figures. The OeKB fields are only meaningful for
// accumulating ETFs; a missing report date means no report was published for
// the period and no adjustment or deemed income is computed.
type FundConfig struct {
	ISIN                   string
	SecurityType           SecurityType
	StartDate              time.Time
	EndDate                time.Time
	StartingQuantity       decimal.Decimal
	StartingMovingAvgPrice decimal.Decimal

	OekbReportDate                         *time.Time
	OekbDistributionEquivalentIncomeFactor decimal.Decimal
	OekbTaxesPaidAbroadFactor              decimal.Decimal
	OekbAdjustmentFactor                   decimal.Decimal
	OekbReportCurrency                     string
}

// HasReport reports whether an OeKB report date is configured.
func (c FundConfig) HasReport() bool {
	return c.OekbReportDate != nil
}

// ReportInPeriod reports whether the OeKB report date falls inside the
// configured observation window. Only then is a cost-basis adjustment
// inserted into the transaction stream.
func (c FundConfig) ReportInPeriod() bool {
	if c.OekbReportDate == nil {
		return false
	}
	d := *c.OekbReportDate
	return !d.Before(c.StartDate) && !d.After(c.EndDate)
}

// Validate checks the config for conditions that would corrupt a
// calculation. Errors name the ISIN so a multi-security run points at the
// offending entry.
func (c FundConfig) Validate() error {
	if c.ISIN == "" {
		return fmt.Errorf("security config: missing ISIN")
	}
	if len(c.ISIN) != ISINLength {
		return fmt.Errorf("security %s: ISIN must be %d characters", c.ISIN, ISINLength)
	}
	if c.SecurityType != SecurityAccumulatingETF && c.SecurityType != SecurityStock {
		return fmt.Errorf("security %s: unknown security type %q", c.ISIN, c.SecurityType)
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("security %s: start date %s after end date %s",
			c.ISIN, c.StartDate.Format(configDateFormat), c.EndDate.Format(configDateFormat))
	}
	if c.StartingQuantity.IsNegative() {
		return fmt.Errorf("security %s: negative starting quantity", c.ISIN)
	}
	if c.OekbReportDate != nil && c.SecurityType != SecurityAccumulatingETF {
		return fmt.Errorf("security %s: OeKB report date set for non-ETF security", c.ISIN)
	}
	if c.OekbReportDate != nil && c.OekbReportCurrency == "" {
		return fmt.Errorf("security %s: OeKB report date set without report currency", c.ISIN)
	}
	return nil
}

// fundConfigJSON is the on-disk shape of a securities config entry. Dates
// use dd/mm/yyyy, numbers are plain JSON numbers or strings.
type fundConfigJSON struct {
	ISIN                                   string           `json:"isin"`
	Type                                   string           `json:"type"`
	StartDate                              string           `json:"start_date"`
	EndDate                                string           `json:"end_date"`
	StartingQuantity                       decimal.Decimal  `json:"starting_quantity"`
	StartingMovingAvgPrice                 decimal.Decimal  `json:"starting_moving_avg_price"`
	OekbReportDate                         string           `json:"oekb_report_date,omitempty"`
	OekbDistributionEquivalentIncomeFactor *decimal.Decimal `json:"oekb_distribution_equivalent_income_factor,omitempty"`
	OekbTaxesPaidAbroadFactor              *decimal.Decimal `json:"oekb_taxes_paid_abroad_factor,omitempty"`
	OekbAdjustmentFactor                   *decimal.Decimal `json:"oekb_adjustment_factor,omitempty"`
	OekbReportCurrency                     string           `json:"oekb_report_currency,omitempty"`
}

// UnmarshalJSON decodes a config entry, parsing dates and defaulting the
// OeKB fields when absent (stocks, or ETF years without a report).
func (c *FundConfig) UnmarshalJSON(data []byte) error {
	var raw fundConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	secType, err := ParseSecurityType(raw.Type)
	if err != nil {
		return fmt.Errorf("security %s: %w", raw.ISIN, err)
	}

	start, err := time.Parse(configDateFormat, raw.StartDate)
	if err != nil {
		return fmt.Errorf("security %s: invalid start_date %q: %w", raw.ISIN, raw.StartDate, err)
	}
	end, err := time.Parse(configDateFormat, raw.EndDate)
	if err != nil {
		return fmt.Errorf("security %s: invalid end_date %q: %w", raw.ISIN, raw.EndDate, err)
	}

	*c = FundConfig{
		ISIN:                   raw.ISIN,
		SecurityType:           secType,
		StartDate:              start,
		EndDate:                end,
		StartingQuantity:       raw.StartingQuantity,
		StartingMovingAvgPrice: raw.StartingMovingAvgPrice,
		OekbReportCurrency:     raw.OekbReportCurrency,
	}

	// Stocks never carry OeKB figures, whatever the file says.
	if secType == SecurityStock {
		c.OekbReportCurrency = ""
		return nil
	}

	if raw.OekbReportDate != "" {
		report, err := time.Parse(configDateFormat, raw.OekbReportDate)
		if err != nil {
			return fmt.Errorf("security %s: invalid oekb_report_date %q: %w", raw.ISIN, raw.OekbReportDate, err)
		}
		c.OekbReportDate = &report
	}
	if raw.OekbDistributionEquivalentIncomeFactor != nil {
		c.OekbDistributionEquivalentIncomeFactor = *raw.OekbDistributionEquivalentIncomeFactor
	}
	if raw.OekbTaxesPaidAbroadFactor != nil {
		c.OekbTaxesPaidAbroadFactor = *raw.OekbTaxesPaidAbroadFactor
	}
	if raw.OekbAdjustmentFactor != nil {
		c.OekbAdjustmentFactor = *raw.OekbAdjustmentFactor
	}
	return nil
}

// LoadFundConfigs reads and validates a securities config file (a JSON
// array, one entry per security).
func LoadFundConfigs(path string) ([]FundConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var configs []FundConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return configs, nil
}
