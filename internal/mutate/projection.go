package mutate

import (
	"time"

	"github.com/google/uuid"

	"github.com/dovydasv/reel/internal/models"
)

// Optimistic projections: pure functions that compute the field values a
// successful remote call would produce. Inputs are never mutated; every
// returned slice is freshly allocated so cache writes stay isolated from
// read copies.

// projectToggleLike flips requestor's membership in likes and adjusts the
// count, clamping at zero.
func projectToggleLike(likes []models.UserRef, likeCount int, requestor models.UserRef) ([]models.UserRef, int, bool) {
	member := false
	next := make([]models.UserRef, 0, len(likes)+1)
	for _, l := range likes {
		if l.ID == requestor.ID {
			member = true
			continue
		}
		next = append(next, l)
	}

	if member {
		likeCount--
	} else {
		next = append(next, requestor)
		likeCount++
	}
	if likeCount < 0 {
		likeCount = 0
	}
	return next, likeCount, !member
}

// projectSetRating removes any existing rating by requestor and appends
// the new one, keeping at most one rating per user.
func projectSetRating(ratings []models.Rating, requestor models.UserRef, value int) []models.Rating {
	next := make([]models.Rating, 0, len(ratings)+1)
	for _, r := range ratings {
		if r.User.ID == requestor.ID {
			continue
		}
		next = append(next, r)
	}
	return append(next, models.Rating{User: requestor, Value: value})
}

// provisionalComment fabricates the placeholder comment shown until the
// server confirms and issues a real ID.
func provisionalComment(postID, text string, author models.UserRef, now time.Time) models.Comment {
	return models.Comment{
		ID:        models.ProvisionalPrefix + uuid.NewString(),
		Text:      text,
		CreatedAt: now,
		User:      author,
		PostID:    postID,
	}
}

// provisionalReply fabricates the placeholder reply for a comment.
func provisionalReply(commentID, text string, author models.UserRef, now time.Time) models.Reply {
	return models.Reply{
		ID:        models.ProvisionalPrefix + uuid.NewString(),
		Text:      text,
		CreatedAt: now,
		User:      author,
		CommentID: commentID,
	}
}

// appendIdentity returns a fresh list with id appended.
func appendIdentity(list []models.Identity, id models.Identity) []models.Identity {
	next := make([]models.Identity, 0, len(list)+1)
	next = append(next, list...)
	return append(next, id)
}

// replaceIdentity swaps old for new in place (same list position),
// returning a fresh list. Unchanged if old is absent.
func replaceIdentity(list []models.Identity, old, new models.Identity) []models.Identity {
	next := make([]models.Identity, len(list))
	copy(next, list)
	for i, id := range next {
		if id == old {
			next[i] = new
		}
	}
	return next
}
