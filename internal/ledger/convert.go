package ledger

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fwallner/kest/internal/domain"
)

// ErrZeroShares marks an export entry whose per-share price cannot be
// derived because the quantity is zero.
var ErrZeroShares = errors.New("security transaction has zero quantity")

// exportFile is the top level of the broker's JSON account export.
type exportFile []struct {
	Data struct {
		Account struct {
			BrokerPortfolio struct {
				MoreTransactions struct {
					Transactions []exportTransaction `json:"transactions"`
				} `json:"moreTransactions"`
			} `json:"brokerPortfolio"`
		} `json:"account"`
	} `json:"data"`
}

type exportTransaction struct {
	ID                      string          `json:"id"`
	Type                    string          `json:"type"`
	Status                  string          `json:"status"`
	Side                    string          `json:"side"`
	SecurityTransactionType string          `json:"securityTransactionType"`
	LastEventDateTime       string          `json:"lastEventDateTime"`
	Description             string          `json:"description"`
	ISIN                    string          `json:"isin"`
	Quantity                decimal.Decimal `json:"quantity"`
	Amount                  decimal.Decimal `json:"amount"`
	Currency                string          `json:"currency"`
}

var securityTypeNames = map[string]string{
	"SAVINGS_PLAN": "Savings plan",
	"BUY":          "Buy",
	"SINGLE":       "Buy",
	"SELL":         "Sell",
}

var statusNames = map[string]string{
	"SETTLED":   "Executed",
	"CANCELED":  "Cancelled",
	"CANCELLED": "Cancelled",
}

// ConvertExport converts a broker JSON account export into the ledger CSV
// format. Only settled security trades are carried over; cash movements,
// transfers and cancelled or pending orders are dropped. Returns the number
// of rows written.
func ConvertExport(jsonPath, csvPath string) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("reading export file: %w", err)
	}

	var export exportFile
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("parsing export file %s: %w", jsonPath, err)
	}
	if len(export) == 0 {
		return 0, fmt.Errorf("export file %s: no account data", jsonPath)
	}

	transactions := export[0].Data.Account.BrokerPortfolio.MoreTransactions.Transactions

	rows := make([][]string, 0, len(transactions))
	skipped := 0
	for _, t := range transactions {
		switch {
		case t.Type == "SECURITY_TRANSACTION" && t.Status == "SETTLED":
			row, err := convertSecurityTransaction(t)
			if err != nil {
				return 0, err
			}
			rows = append(rows, row)
		case t.Type == "SECURITY_TRANSACTION", t.Type == "NON_TRADE_SECURITY_TRANSACTION", t.Type == "CASH_TRANSACTION":
			skipped++
		default:
			slog.Warn("unknown export transaction type, skipping", "type", t.Type, "id", t.ID)
			skipped++
		}
	}

	// Newest first, matching the broker's own CSV export ordering.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i][0] != rows[j][0] {
			return rows[i][0] > rows[j][0]
		}
		return rows[i][1] > rows[j][1]
	})

	if err := writeCSV(csvPath, rows); err != nil {
		return 0, err
	}

	if skipped > 0 {
		slog.Info("skipped non-execution transactions, only settled trades are included", "count", skipped)
	}
	return len(rows), nil
}

func convertSecurityTransaction(t exportTransaction) ([]string, error) {
	date, timeOfDay, err := splitEventDateTime(t.LastEventDateTime)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
	}

	if t.Quantity.IsZero() {
		return nil, fmt.Errorf("transaction %s (%s): %w", t.ID, t.ISIN, ErrZeroShares)
	}
	price := t.Amount.Div(t.Quantity).Abs()

	kind := securityTypeNames[t.SecurityTransactionType]
	if t.Side == "SELL" {
		kind = "Sell"
	}
	if kind == "" {
		kind = t.SecurityTransactionType
	}

	return []string{
		date,
		timeOfDay,
		mapStatus(t.Status),
		t.ID,
		t.Description,
		"Security",
		kind,
		t.ISIN,
		domain.FormatEuropeanDecimal(t.Quantity, -1),
		domain.FormatEuropeanDecimal(price, 2),
		domain.FormatEuropeanDecimal(t.Amount, -1),
		"0,00",
		"0,00",
		t.Currency,
	}, nil
}

func mapStatus(status string) string {
	if mapped, ok := statusNames[status]; ok {
		return mapped
	}
	return status
}

// splitEventDateTime splits an ISO timestamp like 2025-03-10T10:33:23.220Z
// into separate date and time strings.
func splitEventDateTime(value string) (string, string, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", "", fmt.Errorf("invalid event timestamp %q: %w", value, err)
	}
	return ts.Format(dateFormat), ts.Format(timeFormat), nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = Delimiter

	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	w.Flush()
	return w.Error()
}
