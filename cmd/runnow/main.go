package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dan9191/float-report/internal/app"
	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		return 1
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		logrus.Errorf("Failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Close()

	svc, err := app.NewService(cfg, logger.Logger)
	if err != nil {
		logger.Errorf("Failed to initialize service: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Running report immediately")
	res := svc.Run(ctx)
	if !res.Success {
		logger.Errorf("Report run failed: %s", service.Describe(res))
		return 1
	}
	logger.WithField("status", "success").Infof("Report run completed successfully: %s", service.Describe(res))
	return 0
}
