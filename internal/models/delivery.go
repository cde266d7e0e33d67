package models

// Outcome of a notification attempt
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Skip reasons are kept distinct so logs tell them apart
const (
	ReasonIncompleteData     = "incomplete data"
	ReasonMissingCredentials = "missing credentials"
)

// Delivery records what happened to a report's email
type Delivery struct {
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
	Err        error   `json:"-"`
}
