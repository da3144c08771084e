package remote

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dovydasv/reel/internal/models"
)

// API is the set of server operations the client performs. The mutation
// coordinator, feed session, and CLI all depend on this interface rather
// than the concrete transport.
type API interface {
	Login(ctx context.Context, email, password string) (AuthPayload, error)
	Register(ctx context.Context, username, email, password string) (AuthPayload, error)

	CreatePost(ctx context.Context, input CreatePostInput) (models.Post, error)
	LikePost(ctx context.Context, postID string) (LikeResult, error)
	RatePost(ctx context.Context, postID string, rating int) (RatingResult, error)
	AddComment(ctx context.Context, postID, text string) (models.Comment, error)
	AddReply(ctx context.Context, commentID, text string) (models.Reply, error)
	UpdateProfile(ctx context.Context, input ProfileInput) (models.User, error)

	GetFeed(ctx context.Context, offset, limit int) ([]models.Post, error)
	GetUser(ctx context.Context, id string) (UserProfile, error)
	GetPostComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// AuthPayload is the result of login/register: an opaque bearer token
// plus the authenticated user.
type AuthPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// CreatePostInput carries the fields for a new post.
type CreatePostInput struct {
	MediaURL  string           `json:"mediaUrl"`
	MediaType models.MediaType `json:"mediaType"`
	Caption   string           `json:"caption,omitempty"`
}

// ProfileInput carries the mutable profile fields. Empty strings leave
// the corresponding field unchanged server-side.
type ProfileInput struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// LikeResult is the server-confirmed like state of a post.
type LikeResult struct {
	ID        string           `json:"id"`
	Likes     []models.UserRef `json:"likes"`
	LikeCount int              `json:"likeCount"`
}

// RatingResult is the server-confirmed ratings list of a post.
type RatingResult struct {
	ID      string          `json:"id"`
	Ratings []models.Rating `json:"ratings"`
}

// UserProfile is a full user record plus their posts.
type UserProfile struct {
	User  models.User   `json:"user"`
	Posts []models.Post `json:"posts"`
}

// GraphQL documents. Field selections mirror what the cache normalizes.
const (
	loginDoc = `mutation Login($email: String!, $password: String!) {
  login(email: $email, password: $password) {
    token
    user { id username email bio avatar role }
  }
}`

	registerDoc = `mutation Register($input: RegisterInput!) {
  register(input: $input) {
    token
    user { id username email bio avatar role }
  }
}`

	createPostDoc = `mutation CreatePost($input: CreatePostInput!) {
  createPost(input: $input) {
    id mediaUrl mediaType caption createdAt
    user { id username avatar }
    likeCount commentCount
  }
}`

	likePostDoc = `mutation LikePost($postId: ID!) {
  likePost(postId: $postId) {
    id
    likes { id username }
    likeCount
  }
}`

	ratePostDoc = `mutation RatePost($postId: ID!, $rating: Int!) {
  ratePost(postId: $postId, rating: $rating) {
    id
    ratings { user { id username } value }
  }
}`

	addCommentDoc = `mutation AddComment($postId: ID!, $text: String!) {
  addComment(postId: $postId, text: $text) {
    id text createdAt
    user { id username avatar }
  }
}`

	addReplyDoc = `mutation AddReply($commentId: ID!, $text: String!) {
  addReply(commentId: $commentId, text: $text) {
    id text createdAt
    user { id username avatar }
  }
}`

	updateProfileDoc = `mutation UpdateProfile($input: UpdateProfileInput!) {
  updateProfile(input: $input) {
    id username email bio avatar
  }
}`

	getFeedDoc = `query GetFeed($offset: Int!, $limit: Int!) {
  getFeed(offset: $offset, limit: $limit) {
    id mediaUrl mediaType caption createdAt
    user { id username avatar }
    likeCount
    likes { id username }
    commentCount
    ratings { user { id username } value }
  }
}`

	getUserDoc = `query GetUser($id: ID!) {
  user(id: $id) {
    id username email bio avatar role
    posts {
      id mediaUrl mediaType caption createdAt likeCount commentCount
    }
  }
}`

	getPostCommentsDoc = `query GetPostComments($postId: ID!) {
  postComments(postId: $postId) {
    id text createdAt
    user { id username avatar }
    replies {
      id text createdAt
      user { id username avatar }
    }
  }
}`
)

const userCacheTTL = 5 * time.Minute

// APIClient implements API over the GraphQL transport. Profile lookups
// are cached for a short TTL; everything else goes to the server.
type APIClient struct {
	gql       *Client
	userCache *gocache.Cache
}

var _ API = (*APIClient)(nil)

// NewAPIClient wraps a transport client.
func NewAPIClient(gql *Client) *APIClient {
	return &APIClient{
		gql:       gql,
		userCache: gocache.New(userCacheTTL, 10*time.Minute),
	}
}

func (c *APIClient) Login(ctx context.Context, email, password string) (AuthPayload, error) {
	var out struct {
		Login AuthPayload `json:"login"`
	}
	err := c.gql.Execute(ctx, "Login", loginDoc, map[string]any{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return AuthPayload{}, err
	}
	return out.Login, nil
}

func (c *APIClient) Register(ctx context.Context, username, email, password string) (AuthPayload, error) {
	var out struct {
		Register AuthPayload `json:"register"`
	}
	err := c.gql.Execute(ctx, "Register", registerDoc, map[string]any{
		"input": map[string]any{"username": username, "email": email, "password": password},
	}, &out)
	if err != nil {
		return AuthPayload{}, err
	}
	return out.Register, nil
}

func (c *APIClient) CreatePost(ctx context.Context, input CreatePostInput) (models.Post, error) {
	var out struct {
		CreatePost models.Post `json:"createPost"`
	}
	err := c.gql.Execute(ctx, "CreatePost", createPostDoc, map[string]any{"input": input}, &out)
	if err != nil {
		return models.Post{}, err
	}
	return out.CreatePost, nil
}

func (c *APIClient) LikePost(ctx context.Context, postID string) (LikeResult, error) {
	var out struct {
		LikePost LikeResult `json:"likePost"`
	}
	err := c.gql.Execute(ctx, "LikePost", likePostDoc, map[string]any{"postId": postID}, &out)
	if err != nil {
		return LikeResult{}, err
	}
	return out.LikePost, nil
}

func (c *APIClient) RatePost(ctx context.Context, postID string, rating int) (RatingResult, error) {
	var out struct {
		RatePost RatingResult `json:"ratePost"`
	}
	err := c.gql.Execute(ctx, "RatePost", ratePostDoc, map[string]any{
		"postId": postID, "rating": rating,
	}, &out)
	if err != nil {
		return RatingResult{}, err
	}
	return out.RatePost, nil
}

func (c *APIClient) AddComment(ctx context.Context, postID, text string) (models.Comment, error) {
	var out struct {
		AddComment models.Comment `json:"addComment"`
	}
	err := c.gql.Execute(ctx, "AddComment", addCommentDoc, map[string]any{
		"postId": postID, "text": text,
	}, &out)
	if err != nil {
		return models.Comment{}, err
	}
	out.AddComment.PostID = postID
	return out.AddComment, nil
}

func (c *APIClient) AddReply(ctx context.Context, commentID, text string) (models.Reply, error) {
	var out struct {
		AddReply models.Reply `json:"addReply"`
	}
	err := c.gql.Execute(ctx, "AddReply", addReplyDoc, map[string]any{
		"commentId": commentID, "text": text,
	}, &out)
	if err != nil {
		return models.Reply{}, err
	}
	out.AddReply.CommentID = commentID
	return out.AddReply, nil
}

func (c *APIClient) UpdateProfile(ctx context.Context, input ProfileInput) (models.User, error) {
	var out struct {
		UpdateProfile models.User `json:"updateProfile"`
	}
	err := c.gql.Execute(ctx, "UpdateProfile", updateProfileDoc, map[string]any{"input": input}, &out)
	if err != nil {
		return models.User{}, err
	}
	// Drop any stale cached profile for this user.
	c.userCache.Delete(out.UpdateProfile.ID)
	return out.UpdateProfile, nil
}

func (c *APIClient) GetFeed(ctx context.Context, offset, limit int) ([]models.Post, error) {
	var out struct {
		GetFeed []models.Post `json:"getFeed"`
	}
	err := c.gql.Execute(ctx, "GetFeed", getFeedDoc, map[string]any{
		"offset": offset, "limit": limit,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.GetFeed, nil
}

func (c *APIClient) GetUser(ctx context.Context, id string) (UserProfile, error) {
	if id == "" {
		return UserProfile{}, errors.New("empty user id")
	}
	if x, found := c.userCache.Get(id); found {
		return x.(UserProfile), nil
	}

	var out struct {
		User struct {
			models.User
			Posts []models.Post `json:"posts"`
		} `json:"user"`
	}
	err := c.gql.Execute(ctx, "GetUser", getUserDoc, map[string]any{"id": id}, &out)
	if err != nil {
		return UserProfile{}, err
	}

	profile := UserProfile{User: out.User.User, Posts: out.User.Posts}
	c.userCache.Set(id, profile, gocache.DefaultExpiration)
	return profile, nil
}

func (c *APIClient) GetPostComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var out struct {
		PostComments []models.Comment `json:"postComments"`
	}
	err := c.gql.Execute(ctx, "GetPostComments", getPostCommentsDoc, map[string]any{"postId": postID}, &out)
	if err != nil {
		return nil, err
	}
	for i := range out.PostComments {
		out.PostComments[i].PostID = postID
		for j := range out.PostComments[i].Replies {
			out.PostComments[i].Replies[j].CommentID = out.PostComments[i].ID
		}
	}
	return out.PostComments, nil
}
