package models

// Cache field names. Writes into the entity cache are keyed by these so
// every call site computes the same slot for the same field.
const (
	FieldMediaURL     = "mediaUrl"
	FieldMediaType    = "mediaType"
	FieldCaption      = "caption"
	FieldCreatedAt    = "createdAt"
	FieldUser         = "user"
	FieldLikeCount    = "likeCount"
	FieldLikes        = "likes"
	FieldCommentCount = "commentCount"
	FieldRatings      = "ratings"
	FieldComments     = "comments"
	FieldReplies      = "replies"
	FieldText         = "text"
	FieldPostID       = "postId"
	FieldCommentID    = "commentId"
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldBio          = "bio"
	FieldAvatar       = "avatar"
	FieldRole         = "role"
)

// Fields flattens the post into a cache field map. The comments list is
// deliberately absent: it is owned by the comments query and the mutation
// coordinator.
func (p Post) Fields() map[string]any {
	return map[string]any{
		FieldMediaURL:     p.MediaURL,
		FieldMediaType:    p.MediaType,
		FieldCaption:      p.Caption,
		FieldCreatedAt:    p.CreatedAt,
		FieldUser:         p.User,
		FieldLikeCount:    p.LikeCount,
		FieldLikes:        p.Likes,
		FieldCommentCount: p.CommentCount,
		FieldRatings:      p.Ratings,
	}
}

// Fields flattens the user into a cache field map.
func (u User) Fields() map[string]any {
	return map[string]any{
		FieldUsername: u.Username,
		FieldEmail:    u.Email,
		FieldBio:      u.Bio,
		FieldAvatar:   u.Avatar,
		FieldRole:     u.Role,
	}
}

// Fields flattens the comment into a cache field map. Replies are stored
// as an ordered identity list; the reply records themselves are cached
// separately.
func (c Comment) Fields() map[string]any {
	return map[string]any{
		FieldText:      c.Text,
		FieldCreatedAt: c.CreatedAt,
		FieldUser:      c.User,
		FieldPostID:    c.PostID,
	}
}

// Fields flattens the reply into a cache field map.
func (r Reply) Fields() map[string]any {
	return map[string]any{
		FieldText:      r.Text,
		FieldCreatedAt: r.CreatedAt,
		FieldUser:      r.User,
		FieldCommentID: r.CommentID,
	}
}
