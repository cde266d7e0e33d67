package models

// Report is the rendered summary of a ReconciliationResult
type Report struct {
	Subject string
	Text    string
	HTML    string
}
