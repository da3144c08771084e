package remote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/dovydasv/reel/internal/models"
)

// RetryConfig configures retry behavior for transient query failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     15 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryClient wraps an API with automatic retry of transient failures on
// read operations. Mutations are never retried: a failed optimistic
// action needs a fresh user intent, otherwise a retry could double-apply
// a side effect such as a like toggle.
type RetryClient struct {
	inner  API
	config *RetryConfig
}

var _ API = (*RetryClient)(nil)

// NewRetryClient creates a RetryClient that wraps the given API.
func NewRetryClient(inner API, cfg *RetryConfig) *RetryClient {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryClient{inner: inner, config: cfg}
}

// isTransient returns true for errors that are worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status >= 500 || re.Status == http.StatusTooManyRequests
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return false // the server saw and rejected the operation
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne *NetworkError
	return errors.As(err, &ne)
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	base := float64(rc.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.config.MaxBackoff) {
		base = float64(rc.config.MaxBackoff)
	}
	jitter := base * rc.config.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn with retry logic. Only retries transient errors.
func (rc *RetryClient) retry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rc.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rc.config.MaxRetries {
			d := rc.backoff(attempt)
			if err := sleep(ctx, d); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rc.config.MaxRetries)
}

// --- Queries go through retry logic ---

func (rc *RetryClient) GetFeed(ctx context.Context, offset, limit int) (posts []models.Post, err error) {
	err = rc.retry(ctx, "get feed", func() error {
		posts, err = rc.inner.GetFeed(ctx, offset, limit)
		return err
	})
	return
}

func (rc *RetryClient) GetUser(ctx context.Context, id string) (profile UserProfile, err error) {
	err = rc.retry(ctx, "get user", func() error {
		profile, err = rc.inner.GetUser(ctx, id)
		return err
	})
	return
}

func (rc *RetryClient) GetPostComments(ctx context.Context, postID string) (comments []models.Comment, err error) {
	err = rc.retry(ctx, "get post comments", func() error {
		comments, err = rc.inner.GetPostComments(ctx, postID)
		return err
	})
	return
}

// --- Mutations pass straight through, never retried ---

func (rc *RetryClient) Login(ctx context.Context, email, password string) (AuthPayload, error) {
	return rc.inner.Login(ctx, email, password)
}

func (rc *RetryClient) Register(ctx context.Context, username, email, password string) (AuthPayload, error) {
	return rc.inner.Register(ctx, username, email, password)
}

func (rc *RetryClient) CreatePost(ctx context.Context, input CreatePostInput) (models.Post, error) {
	return rc.inner.CreatePost(ctx, input)
}

func (rc *RetryClient) LikePost(ctx context.Context, postID string) (LikeResult, error) {
	return rc.inner.LikePost(ctx, postID)
}

func (rc *RetryClient) RatePost(ctx context.Context, postID string, rating int) (RatingResult, error) {
	return rc.inner.RatePost(ctx, postID, rating)
}

func (rc *RetryClient) AddComment(ctx context.Context, postID, text string) (models.Comment, error) {
	return rc.inner.AddComment(ctx, postID, text)
}

func (rc *RetryClient) AddReply(ctx context.Context, commentID, text string) (models.Reply, error) {
	return rc.inner.AddReply(ctx, commentID, text)
}

func (rc *RetryClient) UpdateProfile(ctx context.Context, input ProfileInput) (models.User, error) {
	return rc.inner.UpdateProfile(ctx, input)
}
