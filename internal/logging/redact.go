package logging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mask replaces anything that looks like a secret
const Mask = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	// SendGrid API keys
	regexp.MustCompile(`SG\.[A-Za-z0-9_\-]{8,}(?:\.[A-Za-z0-9_\-]+)?`),
	// password=..., api_key: ..., token=...
	regexp.MustCompile(`(?i)((?:password|passwd|pwd|api[_-]?key|secret|token)\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s,;&]+)`),
}

// sensitiveFields are masked whatever their value
var sensitiveFields = map[string]bool{
	"password": true,
	"api_key":  true,
	"apikey":   true,
	"secret":   true,
	"token":    true,
}

// Redactor wraps a formatter and scrubs secrets from the message and fields
// of every entry before the inner formatter renders it
type Redactor struct {
	inner   logrus.Formatter
	secrets []string
}

// NewRedactor returns a Redactor around inner. Known secret values are
// matched literally, longest first
func NewRedactor(inner logrus.Formatter, secrets []string) *Redactor {
	s := make([]string, 0, len(secrets))
	for _, v := range secrets {
		if strings.TrimSpace(v) != "" {
			s = append(s, v)
		}
	}
	sort.Slice(s, func(i, j int) bool { return len(s[i]) > len(s[j]) })
	return &Redactor{inner: inner, secrets: s}
}

// Format implements logrus.Formatter
func (r *Redactor) Format(entry *logrus.Entry) ([]byte, error) {
	clean := entry.Dup()
	clean.Level = entry.Level
	clean.Caller = entry.Caller
	clean.Message = r.Scrub(entry.Message)
	for k, v := range clean.Data {
		if sensitiveFields[strings.ToLower(k)] {
			clean.Data[k] = Mask
			continue
		}
		switch val := v.(type) {
		case string:
			clean.Data[k] = r.Scrub(val)
		case error:
			clean.Data[k] = r.Scrub(val.Error())
		case fmt.Stringer:
			clean.Data[k] = r.Scrub(val.String())
		}
	}
	return r.inner.Format(clean)
}

// Scrub masks configured secret values and secret-shaped substrings in s
func (r *Redactor) Scrub(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, Mask)
	}
	s = secretPatterns[0].ReplaceAllString(s, Mask)
	return secretPatterns[1].ReplaceAllString(s, "${1}"+Mask)
}
