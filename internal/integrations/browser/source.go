package browser

import (
	"context"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/Dan9191/float-report/internal/utils"
	"github.com/sirupsen/logrus"
)

// ScrapeFunc returns the raw balance text a portal displays
type ScrapeFunc func(ctx context.Context) (string, error)

// Source adapts a ScrapeFunc to the balance source contract: it never fails,
// anything that goes wrong becomes models.NoBalance and a log line
type Source struct {
	name   string
	scrape ScrapeFunc
	log    *logrus.Logger
}

// NewSource creates a named balance source
func NewSource(name string, scrape ScrapeFunc, log *logrus.Logger) *Source {
	return &Source{name: name, scrape: scrape, log: log}
}

// Name returns the portal name
func (s *Source) Name() string {
	return s.name
}

// Extract runs the scrape and normalizes its result
func (s *Source) Extract(ctx context.Context) (b models.Balance) {
	log := s.log.WithField("portal", s.name)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Error during %s scraping: %v", s.name, r)
			b = models.NoBalance
		}
	}()

	raw, err := s.scrape(ctx)
	if err != nil {
		log.Errorf("Error during %s scraping: %v", s.name, err)
		return models.NoBalance
	}

	b = utils.ParseAmount(raw)
	if !b.Valid {
		log.Errorf("Could not parse %s balance %q", s.name, raw)
	}
	return b
}
