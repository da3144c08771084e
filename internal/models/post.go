package models

import "time"

// MediaType is the kind of media attached to a post.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// UserRef is a lightweight reference to a user, as embedded in likes,
// comments, and post authorship.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Identity returns the cache identity of the referenced user.
func (r UserRef) Identity() Identity {
	return Identify(TypeUser, r.ID)
}

// Rating is a single user's 1-5 star rating of a post. A post holds at
// most one rating per user.
type Rating struct {
	User  UserRef `json:"user"`
	Value int     `json:"value"`
}

// Post is a feed item: one media object with caption, likes, ratings,
// and comment count.
type Post struct {
	ID           string    `json:"id"`
	MediaURL     string    `json:"mediaUrl"`
	MediaType    MediaType `json:"mediaType"`
	Caption      string    `json:"caption"`
	CreatedAt    time.Time `json:"createdAt"`
	User         UserRef   `json:"user"`
	LikeCount    int       `json:"likeCount"`
	Likes        []UserRef `json:"likes"`
	CommentCount int       `json:"commentCount"`
	Ratings      []Rating  `json:"ratings"`
}

// Identity returns the post's cache identity.
func (p Post) Identity() Identity {
	return Identify(TypePost, p.ID)
}

// AverageRating computes the arithmetic mean of the given ratings.
// It is always derived on read, never cached.
func AverageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	return float64(sum) / float64(len(ratings))
}
