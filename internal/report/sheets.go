package report

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/fwallner/kest/internal/domain"
)

const summarySheetName = "TAX_SUMMARY"

// SheetsWriter uploads the cross-security summary to a Google Sheet.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service
// account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write ensures the summary sheet exists, then clears and rewrites it.
func (w *SheetsWriter) Write(ctx context.Context, results []domain.TaxCalculationResult) error {
	if err := w.ensureSheet(ctx, summarySheetName); err != nil {
		return err
	}

	values := buildSummary(results)

	_, err := w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{
			Ranges: []string{summarySheetName + "!A:H"},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheet: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data: []*sheets.ValueRange{
				{Range: summarySheetName + "!A1", Values: values},
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheet: %w", err)
	}

	return nil
}

// buildSummary builds the TAX_SUMMARY sheet data.
// Columns: ISIN | Type | Report Date | Rate | Income 936/937 | Withholding 984/998 | Capital Gains | Final Qty
func buildSummary(results []domain.TaxCalculationResult) [][]any {
	data := make([][]any, 0, len(results)+3)
	data = append(data, []any{
		"ISIN", "Type", "Report Date", "Rate",
		"Income 936/937", "Withholding 984/998", "Capital Gains", "Final Qty",
	})

	for _, r := range results {
		reportDate := ""
		if r.ReportDate != nil {
			reportDate = r.ReportDate.Format(displayDateFormat)
		}
		data = append(data, []any{
			r.ISIN, string(r.SecurityType), reportDate,
			toFloat(r.ECBExchangeRate),
			toFloat(r.DistributionEquivalentIncome),
			toFloat(r.TaxesPaidAbroad),
			toFloat(r.TotalCapitalGains),
			toFloat(r.TotalQuantity),
		})
	}

	totals := SumResults(results)
	data = append(data, []any{
		"TOTAL", "", "", "",
		toFloat(totals.DistributionEquivalentIncome),
		toFloat(totals.TaxesPaidAbroad),
		toFloat(totals.TotalCapitalGains),
		"",
	})
	data = append(data, []any{
		"PROJECTED TAX", "", "", "", "", "", toFloat(totals.ProjectedTax()), "",
	})

	return data
}

// ensureSheet creates the named sheet if it does not already exist.
func (w *SheetsWriter) ensureSheet(ctx context.Context, name string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties.Title == name {
			return nil
		}
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			}},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}

	return nil
}
