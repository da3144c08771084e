package models

import "time"

// Activity is one journaled mutation outcome, recorded locally after
// reconciliation. The journal is informational only; the engine never
// reads it back.
type Activity struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}
