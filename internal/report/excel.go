package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/fwallner/kest/internal/domain"
)

// ExcelWriter renders results into an .xlsx workbook: one transaction sheet
// and one sectioned summary sheet per security.
type ExcelWriter struct {
	path string
}

// NewExcelWriter creates an Excel report writer targeting path.
func NewExcelWriter(path string) *ExcelWriter {
	return &ExcelWriter{path: path}
}

// excelStyles holds the style IDs registered on one workbook.
type excelStyles struct {
	header   int
	title    int
	cell     int
	date     int
	number2d int
	number3d int
	number4d int
}

func registerStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D3D3D3"}},
		Border: border,
	}); err != nil {
		return s, err
	}
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F81BD"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.cell, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return s, err
	}
	if s.date, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr("dd/mm/yyyy"),
		Alignment:    &excelize.Alignment{Horizontal: "center"},
		Border:       border,
	}); err != nil {
		return s, err
	}
	if s.number2d, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.00"), Border: border}); err != nil {
		return s, err
	}
	if s.number3d, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.000"), Border: border}); err != nil {
		return s, err
	}
	if s.number4d, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.0000"), Border: border}); err != nil {
		return s, err
	}
	return s, nil
}

// Write builds the workbook and saves it to the configured path.
func (w *ExcelWriter) Write(_ context.Context, results []domain.TaxCalculationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := registerStyles(f)
	if err != nil {
		return fmt.Errorf("registering styles: %w", err)
	}

	for _, r := range results {
		if err := w.writeTransactionSheet(f, styles, r); err != nil {
			return fmt.Errorf("security %s: %w", r.ISIN, err)
		}
		if err := w.writeSummarySheet(f, styles, r); err != nil {
			return fmt.Errorf("security %s: %w", r.ISIN, err)
		}
	}

	// Drop the default sheet created by excelize.
	if len(results) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("deleting default sheet: %w", err)
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func sheetSuffix(r domain.TaxCalculationResult) string {
	if r.ReportDate != nil {
		return fmt.Sprintf("_%d", r.ReportDate.Year())
	}
	return fmt.Sprintf("_%d", r.EndDate.Year())
}

func (w *ExcelWriter) writeTransactionSheet(f *excelize.File, styles excelStyles, r domain.TaxCalculationResult) error {
	name := fmt.Sprintf("%s_transactions%s", r.ISIN, sheetSuffix(r))
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := []string{"Date", "Type", "Quantity", "Share Price", "Total Price", "Moving Avg Price", "Total Quantity"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, styles.header); err != nil {
			return err
		}
	}

	// Opening position row, then one row per replayed event.
	rows := [][]any{{
		r.StartDate, "START",
		toFloat(r.StartingQuantity), 0.0, 0.0,
		toFloat(r.StartingMovingAvgPrice), toFloat(r.StartingQuantity),
	}}
	for _, t := range r.ComputedTransactions {
		rows = append(rows, []any{
			t.Date, t.Kind.TypeName(),
			toFloat(t.Quantity), toFloat(t.SharePrice), toFloat(t.TotalPrice()),
			toFloat(t.MovingAvgPrice), toFloat(t.TotalQuantity),
		})
	}

	colStyles := []int{styles.date, styles.cell, styles.number3d, styles.number3d, styles.number4d, styles.number4d, styles.number3d}
	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, colStyles[col]); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(name, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(name, "B", "B", 8); err != nil {
		return err
	}
	return f.SetColWidth(name, "C", "G", 14)
}

// summarySection is one titled metric block on the summary sheet.
type summarySection struct {
	title string
	rows  []summaryRow
}

type summaryRow struct {
	metric string
	value  any
	style  func(excelStyles) int
}

func (w *ExcelWriter) writeSummarySheet(f *excelize.File, styles excelStyles, r domain.TaxCalculationResult) error {
	name := fmt.Sprintf("%s_summary%s", r.ISIN, sheetSuffix(r))
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	dateStyle := func(s excelStyles) int { return s.date }
	cellStyle := func(s excelStyles) int { return s.cell }
	qtyStyle := func(s excelStyles) int { return s.number3d }
	priceStyle := func(s excelStyles) int { return s.number4d }
	euroStyle := func(s excelStyles) int { return s.number2d }

	basic := summarySection{title: "Basic Information", rows: []summaryRow{
		{"ISIN", r.ISIN, cellStyle},
		{"Start Date", r.StartDate, dateStyle},
		{"End Date", r.EndDate, dateStyle},
	}}
	if r.ReportDate != nil {
		basic.rows = append(basic.rows, summaryRow{"Report Date", *r.ReportDate, dateStyle})
	}

	sections := []summarySection{
		basic,
		{title: "Quantity Information", rows: []summaryRow{
			{"Starting Quantity", toFloat(r.StartingQuantity), qtyStyle},
			{"Total Quantity Before Report", toFloat(r.TotalQuantityBeforeReport), qtyStyle},
			{"Total Quantity", toFloat(r.TotalQuantity), qtyStyle},
		}},
		{title: "Price Information", rows: []summaryRow{
			{"Starting Moving Avg Price", toFloat(r.StartingMovingAvgPrice), priceStyle},
			{"Final Moving Avg Price", toFloat(r.FinalMovingAvgPrice), priceStyle},
			{fmt.Sprintf("ECB Exchange Rate (%s -> EUR)", r.ReportCurrency), toFloat(r.ECBExchangeRate), priceStyle},
		}},
		{title: "OeKB Factors", rows: []summaryRow{
			{"Distribution Equivalent Income Factor", toFloat(r.DistributionEquivalentIncomeFactor), priceStyle},
			{"Taxes Paid Abroad Factor", toFloat(r.TaxesPaidAbroadFactor), priceStyle},
			{"Adjustment Factor", toFloat(r.AdjustmentFactor), priceStyle},
		}},
		{title: "Tax Results", rows: []summaryRow{
			{"Distribution Equivalent Income (EUR)", toFloat(r.DistributionEquivalentIncome), euroStyle},
			{"Taxes Paid Abroad (EUR)", toFloat(r.TaxesPaidAbroad), euroStyle},
			{"Total Capital Gains (EUR)", toFloat(r.TotalCapitalGains), euroStyle},
		}},
	}

	row := 1
	for _, section := range sections {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.MergeCell(name, start, end); err != nil {
			return err
		}
		if err := f.SetCellValue(name, start, section.title); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, start, end, styles.title); err != nil {
			return err
		}
		row++

		for col, h := range []string{"Metric", "Value"} {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(name, cell, h); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, styles.header); err != nil {
				return err
			}
		}
		row++

		for _, sr := range section.rows {
			metricCell, _ := excelize.CoordinatesToCellName(1, row)
			valueCell, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellValue(name, metricCell, sr.metric); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, metricCell, metricCell, styles.cell); err != nil {
				return err
			}
			if err := f.SetCellValue(name, valueCell, sr.value); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, valueCell, valueCell, sr.style(styles)); err != nil {
				return err
			}
			row++
		}
		row++ // spacing between sections
	}

	if err := f.SetColWidth(name, "A", "A", 35); err != nil {
		return err
	}
	return f.SetColWidth(name, "B", "B", 20)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func strPtr(s string) *string { return &s }
