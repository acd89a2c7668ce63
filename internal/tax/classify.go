package tax

import (
	"log/slog"

	"github.com/fwallner/kest/internal/domain"
)

// Role is the semantic role of a ledger entry in position accounting.
type Role int

const (
	RoleExcluded Role = iota
	RoleBuy
	RoleSell
)

// Classify maps a raw transaction to its accounting role. It is total:
// cash movements and unrecognized kinds are excluded, never an error.
// Unrecognized kinds additionally log a warning since they usually mean the
// broker export format changed.
func Classify(t domain.Transaction) Role {
	switch {
	case t.Kind.IsBuy():
		return RoleBuy
	case t.Kind.IsSell():
		return RoleSell
	case t.Kind.Excluded():
		return RoleExcluded
	default:
		slog.Warn("unrecognized transaction kind, excluding from accounting",
			"kind", string(t.Kind), "reference", t.Reference, "status", t.Status)
		return RoleExcluded
	}
}
