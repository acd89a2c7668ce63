package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one raw ledger entry as exported by the broker. Monetary
// fields are decimal-exact; nothing here is ever mutated after parsing.
type Transaction struct {
	Date        time.Time
	Time        string
	Status      string
	Reference   string
	Description string
	AssetType   string
	Kind        TransactionKind
	ISIN        string
	Shares      decimal.Decimal
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Tax         decimal.Decimal
	Currency    string
}
