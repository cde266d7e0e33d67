package service

import (
	"context"

	"github.com/Dan9191/float-report/internal/models"
)

// BalanceSource extracts one balance from one portal. Implementations absorb
// every failure and report it as models.NoBalance
//
//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=interface.go
type BalanceSource interface {
	Name() string
	Extract(ctx context.Context) models.Balance
}

// Notifier delivers a rendered report
type Notifier interface {
	Send(ctx context.Context, result models.ReconciliationResult, report models.Report) models.Delivery
}

// Scratch is the downloads directory cleaned after every run
type Scratch interface {
	Purge() int
}
