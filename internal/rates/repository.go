package rates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound is returned when neither the cache nor the ECB has a rate
// for the requested currency and date.
var ErrRateNotFound = errors.New("exchange rate not found")

// Rate is a cached EUR conversion rate: EUR per one unit of Currency, valid
// on Date.
type Rate struct {
	Currency  string
	Date      time.Time
	Value     decimal.Decimal
	FetchedAt time.Time
}

// Repository defines persistent storage for resolved rates.
type Repository interface {
	SaveRate(ctx context.Context, currency string, date time.Time, value decimal.Decimal) error
	GetRate(ctx context.Context, currency string, date time.Time) (Rate, error)
}

// SQLiteRepository implements Repository on the local SQLite cache.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed rate repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SaveRate(ctx context.Context, currency string, date time.Time, value decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ecb_rates (currency, date, rate, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (currency, date) DO UPDATE SET rate = excluded.rate, fetched_at = excluded.fetched_at`,
		currency, date.Format(ecbDateFormat), value.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving rate for %s at %s: %w", currency, date.Format(ecbDateFormat), err)
	}
	return nil
}

func (r *SQLiteRepository) GetRate(ctx context.Context, currency string, date time.Time) (Rate, error) {
	var (
		rateStr    string
		fetchedStr string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT rate, fetched_at FROM ecb_rates WHERE currency = ? AND date = ?`,
		currency, date.Format(ecbDateFormat)).Scan(&rateStr, &fetchedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Rate{}, ErrRateNotFound
	}
	if err != nil {
		return Rate{}, fmt.Errorf("getting rate for %s at %s: %w", currency, date.Format(ecbDateFormat), err)
	}

	value, err := decimal.NewFromString(rateStr)
	if err != nil {
		return Rate{}, fmt.Errorf("corrupt cached rate %q: %w", rateStr, err)
	}
	fetchedAt, _ := time.Parse(time.RFC3339, fetchedStr)

	return Rate{Currency: currency, Date: date, Value: value, FetchedAt: fetchedAt}, nil
}
