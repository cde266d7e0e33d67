package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dan9191/float-report/internal/app"
	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/scheduler"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		return 1
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg)
	if err != nil {
		logrus.Errorf("Failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Close()

	// Initialize layers
	svc, err := app.NewService(cfg, logger.Logger)
	if err != nil {
		logger.Errorf("Failed to initialize service: %v", err)
		return 1
	}
	policy, err := scheduler.NewPolicy(cfg.Schedule)
	if err != nil {
		logger.Errorf("Invalid schedule: %v", err)
		return 1
	}
	sched := scheduler.NewScheduler(policy, svc, logger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start scheduler
	if err := sched.Loop(ctx, cfg.Schedule.PollInterval, logger.Rotate); err != nil {
		logger.Errorf("Scheduler failed: %v", err)
		return 1
	}
	return 0
}
