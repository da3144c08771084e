package models

import (
	"strings"
	"time"
)

// ProvisionalPrefix marks locally fabricated IDs for not-yet-confirmed
// comments and replies. Confirmation substitutes the server-issued ID.
const ProvisionalPrefix = "tmp-"

// IsProvisional reports whether an entity ID is a local placeholder.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Comment is a top-level comment on a post. Replies are ordered by
// creation time ascending.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	User      UserRef   `json:"user"`
	PostID    string    `json:"postId"`
	Replies   []Reply   `json:"replies,omitempty"`
}

// Identity returns the comment's cache identity.
func (c Comment) Identity() Identity {
	return Identify(TypeComment, c.ID)
}

// Reply is a nested response to a comment.
type Reply struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	User      UserRef   `json:"user"`
	CommentID string    `json:"commentId"`
}

// Identity returns the reply's cache identity.
func (r Reply) Identity() Identity {
	return Identify(TypeReply, r.ID)
}
