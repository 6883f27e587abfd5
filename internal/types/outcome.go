package types

import "time"

// Outcome is the result of one article extraction attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkip    Outcome = "skip"
	OutcomeFail    Outcome = "fail"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeSkip, OutcomeFail:
		return true
	}
	return false
}

// Complete reports whether a URL with this outcome needs no further attempts.
// Failures are retried by default; see checkpoint.Index.
func (o Outcome) Complete() bool {
	return o == OutcomeSuccess || o == OutcomeSkip
}

// OutcomeEntry is one line of the append-only checkpoint log.
type OutcomeEntry struct {
	URL       string    `json:"url"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}
