package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validETFConfig() FundConfig {
	report := date(2024, time.June, 30)
	return FundConfig{
		ISIN:               "IE00B4L5Y983",
		SecurityType:       SecurityAccumulatingETF,
		StartDate:          date(2024, time.January, 1),
		EndDate:            date(2024, time.December, 31),
		OekbReportDate:     &report,
		OekbReportCurrency: "USD",
	}
}

func TestFundConfigUnmarshalETF(t *testing.T) {
	raw := `{
		"isin": "IE00B4L5Y983",
		"type": "accumulating_etf",
		"start_date": "01/01/2024",
		"end_date": "31/12/2024",
		"starting_quantity": 100.5,
		"starting_moving_avg_price": 10.1234,
		"oekb_report_date": "30/06/2024",
		"oekb_distribution_equivalent_income_factor": 0.5,
		"oekb_taxes_paid_abroad_factor": 0.1,
		"oekb_adjustment_factor": 0.2,
		"oekb_report_currency": "USD"
	}`

	var cfg FundConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ISIN != "IE00B4L5Y983" {
		t.Errorf("ISIN = %q", cfg.ISIN)
	}
	if cfg.SecurityType != SecurityAccumulatingETF {
		t.Errorf("SecurityType = %q", cfg.SecurityType)
	}
	if !cfg.StartDate.Equal(date(2024, time.January, 1)) {
		t.Errorf("StartDate = %v", cfg.StartDate)
	}
	if cfg.OekbReportDate == nil || !cfg.OekbReportDate.Equal(date(2024, time.June, 30)) {
		t.Errorf("OekbReportDate = %v", cfg.OekbReportDate)
	}
	if !cfg.StartingQuantity.Equal(dec(t, "100.5")) {
		t.Errorf("StartingQuantity = %s", cfg.StartingQuantity)
	}
	if !cfg.OekbAdjustmentFactor.Equal(dec(t, "0.2")) {
		t.Errorf("OekbAdjustmentFactor = %s", cfg.OekbAdjustmentFactor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFundConfigUnmarshalETFWithoutReport(t *testing.T) {
	raw := `{
		"isin": "IE00B4L5Y983",
		"type": "accumulating_etf",
		"start_date": "01/01/2024",
		"end_date": "31/12/2024",
		"starting_quantity": 10,
		"starting_moving_avg_price": 5
	}`

	var cfg FundConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HasReport() {
		t.Error("HasReport() = true, want false")
	}
	if !cfg.OekbDistributionEquivalentIncomeFactor.IsZero() {
		t.Errorf("income factor = %s, want 0", cfg.OekbDistributionEquivalentIncomeFactor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFundConfigUnmarshalStockDropsOekbFields(t *testing.T) {
	raw := `{
		"isin": "US0378331005",
		"type": "stock",
		"start_date": "01/01/2024",
		"end_date": "31/12/2024",
		"starting_quantity": 0,
		"starting_moving_avg_price": 0,
		"oekb_report_currency": "USD"
	}`

	var cfg FundConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OekbReportCurrency != "" {
		t.Errorf("OekbReportCurrency = %q, want empty for stock", cfg.OekbReportCurrency)
	}
	if cfg.HasReport() {
		t.Error("stock config should not carry a report date")
	}
}

func TestFundConfigUnmarshalBadDate(t *testing.T) {
	raw := `{
		"isin": "IE00B4L5Y983",
		"type": "accumulating_etf",
		"start_date": "2024-01-01",
		"end_date": "31/12/2024",
		"starting_quantity": 0,
		"starting_moving_avg_price": 0
	}`

	var cfg FundConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err == nil {
		t.Fatal("expected error for ISO-formatted start_date")
	}
}

func TestFundConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FundConfig)
		wantErr bool
	}{
		{"valid", func(c *FundConfig) {}, false},
		{"missing isin", func(c *FundConfig) { c.ISIN = "" }, true},
		{"short isin", func(c *FundConfig) { c.ISIN = "IE00B4" }, true},
		{"bad type", func(c *FundConfig) { c.SecurityType = "fund" }, true},
		{"inverted dates", func(c *FundConfig) { c.StartDate, c.EndDate = c.EndDate, c.StartDate }, true},
		{"negative starting quantity", func(c *FundConfig) { c.StartingQuantity = dec(t, "-1") }, true},
		{"report date on stock", func(c *FundConfig) { c.SecurityType = SecurityStock }, true},
		{"report without currency", func(c *FundConfig) { c.OekbReportCurrency = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validETFConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestReportInPeriod(t *testing.T) {
	cfg := validETFConfig()

	if !cfg.ReportInPeriod() {
		t.Error("report inside window should be in period")
	}

	outside := date(2023, time.June, 30)
	cfg.OekbReportDate = &outside
	if cfg.ReportInPeriod() {
		t.Error("report before window should not be in period")
	}

	boundary := cfg.EndDate
	cfg.OekbReportDate = &boundary
	if !cfg.ReportInPeriod() {
		t.Error("report on end date should be in period")
	}

	cfg.OekbReportDate = nil
	if cfg.ReportInPeriod() {
		t.Error("missing report date should not be in period")
	}
}
