package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the unit every portal reports its balance in
const Currency = "THB"

// Balance represents a single monetary figure obtained from a portal.
// The zero value is the absent balance
type Balance struct {
	Amount     decimal.Decimal `json:"amount"`
	Valid      bool            `json:"valid"`
	ObtainedAt time.Time       `json:"obtained_at"`
}

// NoBalance is returned when a portal could not produce a value
var NoBalance = Balance{}

// NewBalance wraps an amount into a present balance
func NewBalance(amount decimal.Decimal) Balance {
	return Balance{Amount: amount, Valid: true}
}

// At returns a copy of b stamped with the extraction time
func (b Balance) At(t time.Time) Balance {
	if !b.Valid {
		return b
	}
	b.ObtainedAt = t
	return b
}
