package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationResult holds the balances gathered during one run and the
// residual derived from them
type ReconciliationResult struct {
	V2          Balance             `json:"v2"`
	VAS         Balance             `json:"vas"`
	CIMB        Balance             `json:"cimb"`
	Residual    decimal.NullDecimal `json:"residual"` // CIMB - (V2 + VAS), only when Complete
	Complete    bool                `json:"complete"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Surplus reports whether the reference account covers the other two
func (r ReconciliationResult) Surplus() bool {
	return r.Residual.Valid && !r.Residual.Decimal.IsNegative()
}
