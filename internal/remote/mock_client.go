package remote

import (
	"context"
	"sync"

	"github.com/dovydasv/reel/internal/models"
)

// MockAPI is a hand-written mock implementation of API for testing.
// Each method delegates to its Fn hook when set and otherwise returns
// zero values with Err. Calls records method names in invocation order.
type MockAPI struct {
	mu    sync.Mutex
	Calls []string

	// Err is returned by any method without a hook.
	Err error

	LoginFn           func(ctx context.Context, email, password string) (AuthPayload, error)
	RegisterFn        func(ctx context.Context, username, email, password string) (AuthPayload, error)
	CreatePostFn      func(ctx context.Context, input CreatePostInput) (models.Post, error)
	LikePostFn        func(ctx context.Context, postID string) (LikeResult, error)
	RatePostFn        func(ctx context.Context, postID string, rating int) (RatingResult, error)
	AddCommentFn      func(ctx context.Context, postID, text string) (models.Comment, error)
	AddReplyFn        func(ctx context.Context, commentID, text string) (models.Reply, error)
	UpdateProfileFn   func(ctx context.Context, input ProfileInput) (models.User, error)
	GetFeedFn         func(ctx context.Context, offset, limit int) ([]models.Post, error)
	GetUserFn         func(ctx context.Context, id string) (UserProfile, error)
	GetPostCommentsFn func(ctx context.Context, postID string) ([]models.Comment, error)
}

var _ API = (*MockAPI)(nil)

// NewMockAPI creates an empty mock.
func NewMockAPI() *MockAPI {
	return &MockAPI{}
}

func (m *MockAPI) record(name string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	m.mu.Unlock()
}

// CallCount returns how many times the named method was invoked.
func (m *MockAPI) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockAPI) Login(ctx context.Context, email, password string) (AuthPayload, error) {
	m.record("Login")
	if m.LoginFn != nil {
		return m.LoginFn(ctx, email, password)
	}
	return AuthPayload{}, m.Err
}

func (m *MockAPI) Register(ctx context.Context, username, email, password string) (AuthPayload, error) {
	m.record("Register")
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, username, email, password)
	}
	return AuthPayload{}, m.Err
}

func (m *MockAPI) CreatePost(ctx context.Context, input CreatePostInput) (models.Post, error) {
	m.record("CreatePost")
	if m.CreatePostFn != nil {
		return m.CreatePostFn(ctx, input)
	}
	return models.Post{}, m.Err
}

func (m *MockAPI) LikePost(ctx context.Context, postID string) (LikeResult, error) {
	m.record("LikePost")
	if m.LikePostFn != nil {
		return m.LikePostFn(ctx, postID)
	}
	return LikeResult{}, m.Err
}

func (m *MockAPI) RatePost(ctx context.Context, postID string, rating int) (RatingResult, error) {
	m.record("RatePost")
	if m.RatePostFn != nil {
		return m.RatePostFn(ctx, postID, rating)
	}
	return RatingResult{}, m.Err
}

func (m *MockAPI) AddComment(ctx context.Context, postID, text string) (models.Comment, error) {
	m.record("AddComment")
	if m.AddCommentFn != nil {
		return m.AddCommentFn(ctx, postID, text)
	}
	return models.Comment{}, m.Err
}

func (m *MockAPI) AddReply(ctx context.Context, commentID, text string) (models.Reply, error) {
	m.record("AddReply")
	if m.AddReplyFn != nil {
		return m.AddReplyFn(ctx, commentID, text)
	}
	return models.Reply{}, m.Err
}

func (m *MockAPI) UpdateProfile(ctx context.Context, input ProfileInput) (models.User, error) {
	m.record("UpdateProfile")
	if m.UpdateProfileFn != nil {
		return m.UpdateProfileFn(ctx, input)
	}
	return models.User{}, m.Err
}

func (m *MockAPI) GetFeed(ctx context.Context, offset, limit int) ([]models.Post, error) {
	m.record("GetFeed")
	if m.GetFeedFn != nil {
		return m.GetFeedFn(ctx, offset, limit)
	}
	return nil, m.Err
}

func (m *MockAPI) GetUser(ctx context.Context, id string) (UserProfile, error) {
	m.record("GetUser")
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, id)
	}
	return UserProfile{}, m.Err
}

func (m *MockAPI) GetPostComments(ctx context.Context, postID string) ([]models.Comment, error) {
	m.record("GetPostComments")
	if m.GetPostCommentsFn != nil {
		return m.GetPostCommentsFn(ctx, postID)
	}
	return nil, m.Err
}
