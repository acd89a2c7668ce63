// Package ledger reads the broker transaction ledger: the semicolon-
// delimited CSV export and the raw JSON account export it can be converted
// from.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fwallner/kest/internal/domain"
)

// Delimiter is the CSV field separator used by the broker export.
const Delimiter = ';'

// dateFormat and timeFormat are the ledger's date and time column layouts.
const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04:05"
)

// Columns is the ledger CSV header, in file order.
var Columns = []string{
	"date", "time", "status", "reference", "description", "assetType",
	"type", "isin", "shares", "price", "amount", "fee", "tax", "currency",
}

// LoadTransactions reads a ledger CSV file.
func LoadTransactions(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transactions file: %w", err)
	}
	defer f.Close()

	transactions, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return transactions, nil
}

// Parse reads ledger CSV data. The first row must be the header; column
// order is taken from it, so reordered exports still parse.
func Parse(r io.Reader) ([]domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, required := range Columns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var transactions []domain.Transaction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return record[i]
		}

		t, err := parseRow(field)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		transactions = append(transactions, t)
	}

	return transactions, nil
}

func parseRow(field func(string) string) (domain.Transaction, error) {
	date, err := time.Parse(dateFormat+" "+timeFormat, field("date")+" "+field("time"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid date/time: %w", err)
	}

	kind, known := domain.ParseTransactionKind(field("type"))
	_ = known // unknown kinds are kept; classification excludes them later

	shares, err := domain.ParseEuropeanDecimal(field("shares"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("shares: %w", err)
	}
	price, err := domain.ParseEuropeanDecimal(field("price"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("price: %w", err)
	}
	amount, err := domain.ParseEuropeanDecimal(field("amount"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	fee, err := domain.ParseEuropeanDecimal(field("fee"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("fee: %w", err)
	}
	tax, err := domain.ParseEuropeanDecimal(field("tax"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("tax: %w", err)
	}

	return domain.Transaction{
		Date:        date,
		Time:        field("time"),
		Status:      field("status"),
		Reference:   field("reference"),
		Description: field("description"),
		AssetType:   field("assetType"),
		Kind:        kind,
		ISIN:        field("isin"),
		Shares:      shares,
		Price:       price,
		Amount:      amount,
		Fee:         fee,
		Tax:         tax,
		Currency:    field("currency"),
	}, nil
}
