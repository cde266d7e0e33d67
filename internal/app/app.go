// Package app wires configuration into a ready-to-run reconciliation service
package app

import (
	"fmt"

	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/integrations/browser"
	"github.com/Dan9191/float-report/internal/integrations/cimb"
	"github.com/Dan9191/float-report/internal/integrations/v2"
	"github.com/Dan9191/float-report/internal/integrations/vas"
	"github.com/Dan9191/float-report/internal/logging"
	"github.com/Dan9191/float-report/internal/notifier"
	"github.com/Dan9191/float-report/internal/repository"
	"github.com/Dan9191/float-report/internal/service"
	"github.com/Dan9191/float-report/internal/utils/email"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from configuration
func NewLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Dir:     cfg.LogDir,
		Secrets: cfg.Secrets(),
	})
}

// NewService initializes every layer the run needs
func NewService(cfg *config.Config, log *logrus.Logger) (*service.Service, error) {
	n, err := NewNotifier(cfg.Email, log)
	if err != nil {
		return nil, err
	}

	downloads := repository.NewDownloads(cfg.DownloadsDir, log)
	opts := browser.Options{
		Headless:      cfg.Headless,
		ExecPath:      cfg.ChromePath,
		ScreenshotDir: cfg.ScreenshotDir,
	}
	sources := service.Sources{
		V2:   v2.New(cfg.V2, opts, log),
		VAS:  vas.New(cfg.VAS, opts, downloads, cfg.Schedule.Location, log),
		CIMB: cimb.New(cfg.CIMB, opts, log),
	}

	return service.NewService(sources, n, downloads, cfg.Schedule.Location, cfg.Schedule.RunTimeout, log), nil
}

// NewNotifier picks the configured email transport
func NewNotifier(cfg config.Email, log *logrus.Logger) (*notifier.Notifier, error) {
	creds := notifier.Credentials{From: cfg.From, To: cfg.To}

	var transport notifier.Transport
	switch cfg.Transport {
	case config.TransportSendGrid:
		creds.APIKey = cfg.APIKey
		transport = email.NewSendGridTransport(cfg.APIKey, log)
	case config.TransportSMTP:
		creds.APIKey = cfg.SMTPPassword
		transport = email.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, log)
	default:
		return nil, fmt.Errorf("unknown email transport %q", cfg.Transport)
	}
	return notifier.NewNotifier(transport, creds, log), nil
}
