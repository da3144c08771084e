package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dovydasv/reel/internal/models"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestRetry_TransientQueryFailureIsRetried(t *testing.T) {
	mock := NewMockAPI()
	attempts := 0
	mock.GetFeedFn = func(ctx context.Context, offset, limit int) ([]models.Post, error) {
		attempts++
		if attempts < 3 {
			return nil, &NetworkError{Operation: "get feed", Err: errors.New("connection reset")}
		}
		return []models.Post{{ID: "p1"}}, nil
	}

	rc := NewRetryClient(mock, fastRetryConfig())
	posts, err := rc.GetFeed(context.Background(), 0, 10)

	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ServerRejectionIsNotRetried(t *testing.T) {
	mock := NewMockAPI()
	attempts := 0
	mock.GetUserFn = func(ctx context.Context, id string) (UserProfile, error) {
		attempts++
		return UserProfile{}, &APIError{Operation: "GetUser", Errors: []GraphQLError{{Message: "no such user"}}}
	}

	rc := NewRetryClient(mock, fastRetryConfig())
	_, err := rc.GetUser(context.Background(), "u404")

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, attempts)
}

func TestRetry_MutationsAreNeverRetried(t *testing.T) {
	mock := NewMockAPI()
	mock.Err = &NetworkError{Operation: "like post", Err: errors.New("timeout")}

	rc := NewRetryClient(mock, fastRetryConfig())
	_, err := rc.LikePost(context.Background(), "p1")

	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount("LikePost"),
		"a failed mutation must wait for a fresh user intent, not a retry")
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := NewMockAPI()
	mock.GetPostCommentsFn = func(ctx context.Context, postID string) ([]models.Comment, error) {
		return nil, &RemoteError{Status: 503, Message: "unavailable"}
	}

	rc := NewRetryClient(mock, fastRetryConfig())
	_, err := rc.GetPostComments(context.Background(), "p1")

	require.Error(t, err)
	assert.Equal(t, 3, mock.CallCount("GetPostComments"), "initial attempt plus two retries")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&RemoteError{Status: 500}))
	assert.True(t, isTransient(&RemoteError{Status: 429}))
	assert.True(t, isTransient(&NetworkError{Err: errors.New("refused")}))
	assert.False(t, isTransient(&RemoteError{Status: 404}))
	assert.False(t, isTransient(&APIError{Errors: []GraphQLError{{Message: "nope"}}}))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(nil))
}
