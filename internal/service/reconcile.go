package service

import (
	"time"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/shopspring/decimal"
)

// Reconcile builds the result of a run. The residual CIMB - (V2 + VAS) is
// only computed when all three balances are present
func Reconcile(v2, vas, cimb models.Balance, generatedAt time.Time) models.ReconciliationResult {
	result := models.ReconciliationResult{
		V2:          v2,
		VAS:         vas,
		CIMB:        cimb,
		GeneratedAt: generatedAt,
	}
	if !v2.Valid || !vas.Valid || !cimb.Valid {
		return result
	}

	result.Complete = true
	result.Residual = decimal.NewNullDecimal(cimb.Amount.Sub(v2.Amount.Add(vas.Amount)))
	return result
}
