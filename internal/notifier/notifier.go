package notifier

import (
	"context"
	"fmt"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/Dan9191/float-report/internal/utils/email"
	"github.com/sirupsen/logrus"
)

// Transport dispatches a rendered message and returns the provider status code
//
//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks -source=notifier.go Transport
type Transport interface {
	Send(ctx context.Context, m email.Message) (int, error)
}

// Credentials needed before any dispatch is attempted. APIKey is the SendGrid
// key, or the SMTP password for the smtp transport
type Credentials struct {
	APIKey string
	From   string
	To     []string
}

func (c Credentials) complete() bool {
	return c.APIKey != "" && c.From != "" && len(c.To) > 0
}

// Notifier emails reconciliation reports
type Notifier struct {
	transport Transport
	creds     Credentials
	log       *logrus.Logger
}

// NewNotifier creates a notifier sending through transport
func NewNotifier(transport Transport, creds Credentials, log *logrus.Logger) *Notifier {
	return &Notifier{transport: transport, creds: creds, log: log}
}

// Send emails the report when the result is complete and credentials are set.
// It never returns an error; the outcome is carried in the Delivery
func (n *Notifier) Send(ctx context.Context, result models.ReconciliationResult, report models.Report) (d models.Delivery) {
	if !result.Complete {
		n.log.Errorf("One or more balances missing. Email not sent due to %s.", models.ReasonIncompleteData)
		return models.Delivery{Outcome: models.OutcomeSkipped, Reason: models.ReasonIncompleteData}
	}
	if !n.creds.complete() {
		n.log.Errorf("Email credentials not set. Email not sent due to %s.", models.ReasonMissingCredentials)
		return models.Delivery{Outcome: models.OutcomeSkipped, Reason: models.ReasonMissingCredentials}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("email transport panicked: %v", r)
			n.log.Errorf("Failed to send email: %v", err)
			d = models.Delivery{Outcome: models.OutcomeFailed, Err: err}
		}
	}()

	status, err := n.transport.Send(ctx, email.Message{
		From:    n.creds.From,
		To:      n.creds.To,
		Subject: report.Subject,
		Text:    report.Text,
		HTML:    report.HTML,
	})
	if err != nil {
		n.log.Errorf("Failed to send email: %v", err)
		return models.Delivery{Outcome: models.OutcomeFailed, StatusCode: status, Err: err}
	}

	n.log.WithField("status", "success").Infof("Email sent! Status code: %d", status)
	return models.Delivery{Outcome: models.OutcomeSent, StatusCode: status}
}
