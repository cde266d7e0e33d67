package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Message is a rendered email ready for dispatch
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// SendGridTransport sends email through the SendGrid v3 mail API
type SendGridTransport struct {
	client *sendgrid.Client
	logger *logrus.Logger
}

// NewSendGridTransport creates a transport authenticated with apiKey
func NewSendGridTransport(apiKey string, logger *logrus.Logger) *SendGridTransport {
	return &SendGridTransport{
		client: sendgrid.NewSendClient(apiKey),
		logger: logger,
	}
}

// Send posts the message and returns the API status code
func (s *SendGridTransport) Send(ctx context.Context, m Message) (int, error) {
	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail("", m.From))
	msg.Subject = m.Subject

	p := mail.NewPersonalization()
	for _, to := range m.To {
		p.AddTos(mail.NewEmail("", to))
	}
	msg.AddPersonalizations(p)

	// text/plain must precede text/html
	msg.AddContent(mail.NewContent("text/plain", m.Text), mail.NewContent("text/html", m.HTML))

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("sendgrid rejected email: status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Debugf("SendGrid accepted %q for %d recipient(s)", m.Subject, len(m.To))
	return resp.StatusCode, nil
}

// SMTPTransport sends email via SMTP
type SMTPTransport struct {
	host     string
	port     string
	username string
	password string
	logger   *logrus.Logger
}

// NewSMTPTransport creates a transport using PLAIN auth against host:port
func NewSMTPTransport(host, port, username, password string, logger *logrus.Logger) *SMTPTransport {
	return &SMTPTransport{
		host:     host,
		port:     port,
		username: username,
		password: password,
		logger:   logger,
	}
}

// Send delivers the message; SMTP has no status code so 250 is reported on success
func (s *SMTPTransport) Send(ctx context.Context, m Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e := email.NewEmail()
	e.From = m.From
	e.To = m.To
	e.Subject = m.Subject
	e.Text = []byte(m.Text)
	e.HTML = []byte(m.HTML)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	username := s.username
	if username == "" {
		username = m.From
	}
	auth := smtp.PlainAuth("", username, s.password, s.host)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email via %s: %v", addr, err)
		return 0, fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debugf("Email sent via %s: %s", addr, m.Subject)
	return 250, nil
}
