package models

import "time"

// Action is a semantic state-change the client can request.
type Action string

const (
	ActionToggleLike Action = "toggle_like"
	ActionSetRating  Action = "set_rating"
	ActionAddComment Action = "add_comment"
	ActionAddReply   Action = "add_reply"
)

// MutationStatus tracks the lifecycle of an in-flight optimistic mutation.
type MutationStatus string

const (
	MutationPending   MutationStatus = "pending"
	MutationConfirmed MutationStatus = "confirmed"
	MutationFailed    MutationStatus = "failed"
)

// PendingMutation is the transient record kept per in-flight optimistic
// operation. Snapshot holds the pre-mutation values of every field the
// projection touched, for rollback. Generation is bumped each time a
// repeated intent coalesces into this record; IssuedGeneration is the
// generation the in-flight remote call was built from.
type PendingMutation struct {
	Seq              int64
	Action           Action
	Target           Identity
	Parent           Identity // set for replies (Comment the reply attaches to)
	Snapshot         map[string]any
	Optimistic       map[string]any
	Touched          []string
	Status           MutationStatus
	Generation       int64
	IssuedGeneration int64
	CreatedAt        time.Time
}

// Touches reports whether the mutation's optimistic projection wrote the
// given field.
func (m *PendingMutation) Touches(field string) bool {
	for _, f := range m.Touched {
		if f == field {
			return true
		}
	}
	return false
}
