package models

import "time"

// RunResult summarizes one reconciliation run
type RunResult struct {
	ID         string               `json:"id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Result     ReconciliationResult `json:"result"`
	Report     Report               `json:"-"`
	Delivery   Delivery             `json:"delivery"`
	Success    bool                 `json:"success"` // equals Result.Complete
}
