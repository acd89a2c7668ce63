package domain

import (
	"fmt"
	"strings"
)

// SecurityType distinguishes accumulating ETFs, which are subject to the
// OeKB deemed-distribution regime, from plain stocks.
type SecurityType string

const (
	SecurityAccumulatingETF SecurityType = "accumulating_etf"
	SecurityStock           SecurityType = "stock"
)

// ParseSecurityType matches a security type string case-insensitively.
func ParseSecurityType(value string) (SecurityType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SecurityAccumulatingETF):
		return SecurityAccumulatingETF, nil
	case string(SecurityStock):
		return SecurityStock, nil
	default:
		return "", fmt.Errorf("unknown security type %q", value)
	}
}

// TransactionKind is the broker-assigned type of a ledger entry. Values are
// matched case-insensitively against the broker's strings; unknown values
// survive parsing and are handled by classification.
type TransactionKind string

const (
	KindBuy         TransactionKind = "Buy"
	KindSell        TransactionKind = "Sell"
	KindSavingsPlan TransactionKind = "Savings plan"
	KindWithdrawal  TransactionKind = "Withdrawal"
	KindDeposit     TransactionKind = "Deposit"
	KindFee         TransactionKind = "Fee"
	KindInterest    TransactionKind = "Interest"
)

var knownKinds = []TransactionKind{
	KindBuy, KindSell, KindSavingsPlan,
	KindWithdrawal, KindDeposit, KindFee, KindInterest,
}

// ParseTransactionKind matches a kind string case-insensitively. The second
// return value reports whether the kind is known.
func ParseTransactionKind(value string) (TransactionKind, bool) {
	for _, k := range knownKinds {
		if strings.EqualFold(string(k), strings.TrimSpace(value)) {
			return k, true
		}
	}
	return TransactionKind(value), false
}

// IsBuy reports whether the kind acquires shares. Savings plan executions
// are buys, not a separate category.
func (k TransactionKind) IsBuy() bool {
	return k.equalsFold(KindBuy) || k.equalsFold(KindSavingsPlan)
}

// IsSell reports whether the kind disposes of shares.
func (k TransactionKind) IsSell() bool {
	return k.equalsFold(KindSell)
}

// Excluded reports whether the kind is a cash movement that never enters
// position accounting.
func (k TransactionKind) Excluded() bool {
	return k.equalsFold(KindWithdrawal) ||
		k.equalsFold(KindDeposit) ||
		k.equalsFold(KindFee) ||
		k.equalsFold(KindInterest)
}

func (k TransactionKind) equalsFold(other TransactionKind) bool {
	return strings.EqualFold(string(k), string(other))
}
