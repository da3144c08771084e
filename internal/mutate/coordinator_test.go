package mutate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dovydasv/reel/internal/cache"
	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/remote"
)

type fakeCreds struct {
	user models.User
	ok   bool
}

func (f fakeCreds) CurrentUser() (models.User, bool) { return f.user, f.ok }

type memJournal struct {
	mu      sync.Mutex
	entries []models.Activity
}

func (j *memJournal) Record(a models.Activity) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, a)
	return nil
}

var alice = models.User{ID: "u1", Username: "alice"}

func newTestCoordinator(api remote.API) (*Coordinator, *cache.EntityCache) {
	store := cache.New()
	return New(store, api, fakeCreds{user: alice, ok: true}, nil), store
}

func seedPost(store *cache.EntityCache, id string, likeCount int, likes []models.UserRef) models.Identity {
	target := models.Identify(models.TypePost, id)
	store.Write(target, map[string]any{
		models.FieldLikeCount:    likeCount,
		models.FieldLikes:        likes,
		models.FieldCommentCount: 0,
		models.FieldRatings:      []models.Rating{},
	})
	return target
}

func await(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconciliation")
		return nil
	}
}

func TestToggleLike_OptimisticThenConfirmed(t *testing.T) {
	mock := remote.NewMockAPI()
	release := make(chan struct{})
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		<-release
		return remote.LikeResult{
			ID:        postID,
			Likes:     []models.UserRef{{ID: "u1", Username: "alice"}},
			LikeCount: 4,
		}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 3, []models.UserRef{})

	done, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)

	// Cache reflects the optimistic state before the server responds.
	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 4, v)
	likes, _ := store.ReadField(target, models.FieldLikes)
	assert.Equal(t, []models.UserRef{alice.Ref()}, likes)

	close(release)
	require.NoError(t, await(t, done))

	v, _ = store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 4, v, "server truth confirmed")
	assert.Equal(t, 0, co.PendingCount())
}

func TestToggleLike_FailureRollsBack(t *testing.T) {
	mock := remote.NewMockAPI()
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		return remote.LikeResult{}, &remote.NetworkError{Operation: "like post", Err: errors.New("timeout")}
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 3, []models.UserRef{})

	done, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)

	err = await(t, done)
	var ne *remote.NetworkError
	require.ErrorAs(t, err, &ne)

	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 3, v, "rollback restores the snapshot")
	likes, _ := store.ReadField(target, models.FieldLikes)
	assert.Empty(t, likes)
}

func TestToggleLike_ParityOverManyToggles(t *testing.T) {
	// Stateful fake server with real toggle semantics.
	mock := remote.NewMockAPI()
	var srvMu sync.Mutex
	srvLikes := []models.UserRef{}
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		srvMu.Lock()
		defer srvMu.Unlock()
		member := false
		next := srvLikes[:0:0]
		for _, l := range srvLikes {
			if l.ID == alice.ID {
				member = true
				continue
			}
			next = append(next, l)
		}
		if !member {
			next = append(next, alice.Ref())
		}
		srvLikes = next
		return remote.LikeResult{ID: postID, Likes: next, LikeCount: len(next)}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)

	for i := 0; i < 5; i++ {
		done, err := co.ToggleLike(context.Background(), "p1")
		require.NoError(t, err)
		require.NoError(t, await(t, done))

		_, count := currentLikes(store, target)
		assert.GreaterOrEqual(t, count, 0, "like count never goes negative")
	}

	likes, count := currentLikes(store, target)
	assert.Len(t, likes, 1, "odd number of toggles leaves the user as a member")
	assert.Equal(t, 1, count)
}

func currentLikes(store *cache.EntityCache, id models.Identity) ([]models.UserRef, int) {
	var likes []models.UserRef
	count := 0
	if v, ok := store.ReadField(id, models.FieldLikes); ok {
		likes, _ = v.([]models.UserRef)
	}
	if v, ok := store.ReadField(id, models.FieldLikeCount); ok {
		count, _ = v.(int)
	}
	return likes, count
}

func TestToggleLike_NeverNegative(t *testing.T) {
	mock := remote.NewMockAPI()
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		return remote.LikeResult{ID: postID}, nil
	}

	co, store := newTestCoordinator(mock)
	// Inconsistent server data: user is a member but the count is zero.
	target := seedPost(store, "p1", 0, []models.UserRef{alice.Ref()})

	done, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)

	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 0, v, "unlike clamps at zero")
	<-done
}

func TestToggleLike_CoalescesWhileInFlight(t *testing.T) {
	mock := remote.NewMockAPI()
	firstCall := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		once.Do(func() { close(firstCall) })
		<-release
		return remote.LikeResult{ID: postID, Likes: nil, LikeCount: 3}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 3, []models.UserRef{})

	done1, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	<-firstCall

	done2, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)

	// The second intent coalesced: still one call in flight, and the
	// optimistic state reflects the second toggle (back to the start).
	assert.Equal(t, 1, mock.CallCount("LikePost"))
	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 3, v)
	assert.Equal(t, 1, co.PendingCount())

	close(release)
	require.NoError(t, await(t, done1))
	require.NoError(t, await(t, done2))

	// The coalesced intent triggered one follow-up call, never concurrent.
	assert.Equal(t, 2, mock.CallCount("LikePost"))
	assert.Equal(t, 0, co.PendingCount())
}

func TestSetRating_IdempotentPerUser(t *testing.T) {
	mock := remote.NewMockAPI()
	mock.RatePostFn = func(ctx context.Context, postID string, rating int) (remote.RatingResult, error) {
		return remote.RatingResult{ID: postID, Ratings: []models.Rating{{User: alice.Ref(), Value: rating}}}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)

	done, err := co.SetRating(context.Background(), "p1", 4)
	require.NoError(t, err)
	require.NoError(t, await(t, done))

	done, err = co.SetRating(context.Background(), "p1", 4)
	require.NoError(t, err)
	require.NoError(t, await(t, done))

	v, _ := store.ReadField(target, models.FieldRatings)
	ratings := v.([]models.Rating)
	require.Len(t, ratings, 1, "exactly one rating entry per user")
	assert.Equal(t, 4, ratings[0].Value)
}

func TestSetRating_ReplacesPreviousValue(t *testing.T) {
	mock := remote.NewMockAPI()
	release := make(chan struct{})
	mock.RatePostFn = func(ctx context.Context, postID string, rating int) (remote.RatingResult, error) {
		<-release
		return remote.RatingResult{ID: postID, Ratings: []models.Rating{
			{User: models.UserRef{ID: "u9"}, Value: 2},
			{User: alice.Ref(), Value: rating},
		}}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)
	store.Write(target, map[string]any{
		models.FieldRatings: []models.Rating{
			{User: models.UserRef{ID: "u9"}, Value: 2},
			{User: alice.Ref(), Value: 5},
		},
	})

	done, err := co.SetRating(context.Background(), "p1", 3)
	require.NoError(t, err)

	v, _ := store.ReadField(target, models.FieldRatings)
	ratings := v.([]models.Rating)
	require.Len(t, ratings, 2)
	assert.Equal(t, 2, ratings[0].Value, "other users' ratings untouched")
	assert.Equal(t, 3, ratings[1].Value, "requestor's rating replaced and appended")

	close(release)
	require.NoError(t, await(t, done))
}

func TestSetRating_RejectsOutOfRange(t *testing.T) {
	co, store := newTestCoordinator(remote.NewMockAPI())
	target := seedPost(store, "p1", 0, nil)

	_, err := co.SetRating(context.Background(), "p1", 6)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	v, _ := store.ReadField(target, models.FieldRatings)
	assert.Empty(t, v, "validation failure leaves the cache untouched")
}

func TestUnauthenticated_NoCallNoCacheWrite(t *testing.T) {
	mock := remote.NewMockAPI()
	store := cache.New()
	co := New(store, mock, fakeCreds{ok: false}, nil)
	target := seedPost(store, "p1", 3, nil)

	_, err := co.ToggleLike(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.Zero(t, mock.CallCount("LikePost"), "no network call issued")
	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 3, v)
}

func TestAddComment_ProvisionalThenSubstituted(t *testing.T) {
	mock := remote.NewMockAPI()
	release := make(chan struct{})
	mock.AddCommentFn = func(ctx context.Context, postID, text string) (models.Comment, error) {
		<-release
		return models.Comment{ID: "C9", Text: text, User: alice.Ref(), PostID: postID}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)

	provisional, done, err := co.AddComment(context.Background(), "p1", "hi")
	require.NoError(t, err)
	assert.True(t, models.IsProvisional(provisional.ID))

	// Visible immediately under the post.
	_, ok := store.Read(provisional.Identity())
	assert.True(t, ok)
	v, _ := store.ReadField(target, models.FieldCommentCount)
	assert.Equal(t, 1, v)
	list, _ := store.ReadField(target, models.FieldComments)
	require.Equal(t, []models.Identity{provisional.Identity()}, list)

	close(release)
	require.NoError(t, await(t, done))

	// Substituted in place: same position, no duplicate, count bumped once.
	_, ok = store.Read(provisional.Identity())
	assert.False(t, ok, "provisional record removed")
	confirmed := models.Identify(models.TypeComment, "C9")
	rec, ok := store.Read(confirmed)
	require.True(t, ok)
	assert.Equal(t, "hi", rec[models.FieldText])
	list, _ = store.ReadField(target, models.FieldComments)
	assert.Equal(t, []models.Identity{confirmed}, list)
	v, _ = store.ReadField(target, models.FieldCommentCount)
	assert.Equal(t, 1, v, "commentCount incremented once, not twice")
}

func TestAddComment_EmptyTextRejected(t *testing.T) {
	co, store := newTestCoordinator(remote.NewMockAPI())
	target := seedPost(store, "p1", 0, nil)

	_, _, err := co.AddComment(context.Background(), "p1", "   ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	v, _ := store.ReadField(target, models.FieldCommentCount)
	assert.Equal(t, 0, v)
}

func TestAddComment_SerializesRemoteCalls(t *testing.T) {
	mock := remote.NewMockAPI()
	firstCall := make(chan struct{})
	release := make(chan struct{})
	served := 0
	var mu sync.Mutex
	mock.AddCommentFn = func(ctx context.Context, postID, text string) (models.Comment, error) {
		mu.Lock()
		served++
		n := served
		mu.Unlock()
		if n == 1 {
			close(firstCall)
			<-release
		}
		return models.Comment{ID: "C" + text, Text: text, User: alice.Ref(), PostID: postID}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)

	_, done1, err := co.AddComment(context.Background(), "p1", "one")
	require.NoError(t, err)
	<-firstCall

	_, done2, err := co.AddComment(context.Background(), "p1", "two")
	require.NoError(t, err)

	// Both provisional comments are visible, but only one call is out.
	v, _ := store.ReadField(target, models.FieldCommentCount)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, mock.CallCount("AddComment"))

	close(release)
	require.NoError(t, await(t, done1))
	require.NoError(t, await(t, done2))

	assert.Equal(t, 2, mock.CallCount("AddComment"))
	list, _ := store.ReadField(target, models.FieldComments)
	assert.Len(t, list, 2, "both comments confirmed in order")
	assert.Equal(t, 0, co.PendingCount())
}

func TestAddComment_FailurePreservesNewerPending(t *testing.T) {
	mock := remote.NewMockAPI()
	firstCall := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	mock.AddCommentFn = func(ctx context.Context, postID, text string) (models.Comment, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(firstCall)
			<-release
			return models.Comment{}, &remote.NetworkError{Operation: "add comment", Err: errors.New("timeout")}
		}
		return models.Comment{ID: "C2", Text: text, User: alice.Ref(), PostID: postID}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)

	first, done1, err := co.AddComment(context.Background(), "p1", "first")
	require.NoError(t, err)
	<-firstCall

	second, done2, err := co.AddComment(context.Background(), "p1", "second")
	require.NoError(t, err)

	close(release)
	require.Error(t, await(t, done1))
	require.NoError(t, await(t, done2))

	// The failed first comment is gone; the second survived its sibling's
	// rollback and was confirmed.
	_, ok := store.Read(first.Identity())
	assert.False(t, ok)
	_, ok = store.Read(second.Identity())
	assert.False(t, ok, "second was substituted with the confirmed ID")
	confirmed := models.Identify(models.TypeComment, "C2")
	_, ok = store.Read(confirmed)
	assert.True(t, ok)

	v, _ := store.ReadField(target, models.FieldCommentCount)
	assert.Equal(t, 1, v, "count reflects the surviving comment only")
	list, _ := store.ReadField(target, models.FieldComments)
	assert.Equal(t, []models.Identity{confirmed}, list)
}

func TestAddReply_ProvisionalThenSubstituted(t *testing.T) {
	mock := remote.NewMockAPI()
	mock.AddReplyFn = func(ctx context.Context, commentID, text string) (models.Reply, error) {
		return models.Reply{ID: "R1", Text: text, User: alice.Ref(), CommentID: commentID}, nil
	}

	co, store := newTestCoordinator(mock)
	parent := models.Identify(models.TypeComment, "c1")
	store.Write(parent, map[string]any{models.FieldText: "parent"})

	provisional, done, err := co.AddReply(context.Background(), "c1", "yo")
	require.NoError(t, err)
	require.NoError(t, await(t, done))

	_, ok := store.Read(provisional.Identity())
	assert.False(t, ok)
	confirmed := models.Identify(models.TypeReply, "R1")
	_, ok = store.Read(confirmed)
	assert.True(t, ok)
	list, _ := store.ReadField(parent, models.FieldReplies)
	assert.Equal(t, []models.Identity{confirmed}, list)
}

func TestRollback_SkipsFieldsTouchedByNewerPending(t *testing.T) {
	mock := remote.NewMockAPI()
	likeRelease := make(chan struct{})
	likeStarted := make(chan struct{})
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		close(likeStarted)
		<-likeRelease
		return remote.LikeResult{}, &remote.NetworkError{Operation: "like post", Err: errors.New("slow failure")}
	}
	ratingRelease := make(chan struct{})
	mock.RatePostFn = func(ctx context.Context, postID string, rating int) (remote.RatingResult, error) {
		<-ratingRelease
		return remote.RatingResult{ID: postID, Ratings: []models.Rating{{User: alice.Ref(), Value: rating}}}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 3, []models.UserRef{})

	likeDone, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	<-likeStarted

	// A newer mutation on a different field is pending while the like fails.
	ratingDone, err := co.SetRating(context.Background(), "p1", 5)
	require.NoError(t, err)

	close(likeRelease)
	require.Error(t, await(t, likeDone))

	// Like fields rolled back; the pending rating's optimistic write intact.
	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 3, v)
	v, _ = store.ReadField(target, models.FieldRatings)
	require.Len(t, v.([]models.Rating), 1, "newer pending optimistic state survives the rollback")

	close(ratingRelease)
	require.NoError(t, await(t, ratingDone))
}

func TestJournal_RecordsOutcomes(t *testing.T) {
	mock := remote.NewMockAPI()
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		return remote.LikeResult{ID: postID, LikeCount: 1}, nil
	}

	store := cache.New()
	journal := &memJournal{}
	co := New(store, mock, fakeCreds{user: alice, ok: true}, journal)
	seedPost(store, "p1", 0, nil)

	done, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)
	require.NoError(t, await(t, done))

	journal.mu.Lock()
	defer journal.mu.Unlock()
	require.Len(t, journal.entries, 1)
	assert.Equal(t, models.ActionToggleLike, journal.entries[0].Action)
	assert.Equal(t, "Post:p1", journal.entries[0].Target)
	assert.Equal(t, string(models.MutationConfirmed), journal.entries[0].Outcome)
}

func TestAddComment_ConfirmedSiblingSurvivesLaterFailure(t *testing.T) {
	mock := remote.NewMockAPI()
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	mock.AddCommentFn = func(ctx context.Context, postID, text string) (models.Comment, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-release
			return models.Comment{ID: "C1", Text: text, User: alice.Ref(), PostID: postID}, nil
		}
		return models.Comment{}, &remote.NetworkError{Operation: "add comment", Err: errors.New("timeout")}
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 0, nil)

	_, done1, err := co.AddComment(context.Background(), "p1", "first")
	require.NoError(t, err)
	<-firstStarted

	// Queued while the first call is in flight, so its snapshot predates
	// the first comment's identity substitution.
	second, done2, err := co.AddComment(context.Background(), "p1", "second")
	require.NoError(t, err)

	close(release)
	require.NoError(t, await(t, done1))
	require.Error(t, await(t, done2))

	// The second comment's rollback must not resurrect the first one's
	// provisional identity: the confirmed comment stays in the list.
	confirmed := models.Identify(models.TypeComment, "C1")
	list, _ := store.ReadField(target, models.FieldComments)
	assert.Equal(t, []models.Identity{confirmed}, list)
	v, _ := store.ReadField(target, models.FieldCommentCount)
	assert.Equal(t, 1, v)

	_, ok := store.Read(confirmed)
	assert.True(t, ok)
	_, ok = store.Read(second.Identity())
	assert.False(t, ok, "failed comment's provisional record is gone")
}

func TestSeed_SkipsFieldsTouchedByPendingMutation(t *testing.T) {
	mock := remote.NewMockAPI()
	release := make(chan struct{})
	mock.LikePostFn = func(ctx context.Context, postID string) (remote.LikeResult, error) {
		<-release
		return remote.LikeResult{ID: postID, Likes: []models.UserRef{alice.Ref()}, LikeCount: 4}, nil
	}

	co, store := newTestCoordinator(mock)
	target := seedPost(store, "p1", 3, []models.UserRef{})

	done, err := co.ToggleLike(context.Background(), "p1")
	require.NoError(t, err)

	// A feed refresh carrying pre-like server state resolves while the
	// like is still pending: contested fields are dropped, the rest land.
	co.Seed(target, map[string]any{
		models.FieldLikeCount: 3,
		models.FieldLikes:     []models.UserRef{},
		models.FieldCaption:   "updated caption",
	})

	v, _ := store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 4, v, "optimistic like survives the stale seed")
	likes, _ := store.ReadField(target, models.FieldLikes)
	assert.Equal(t, []models.UserRef{alice.Ref()}, likes)
	caption, _ := store.ReadField(target, models.FieldCaption)
	assert.Equal(t, "updated caption", caption)

	close(release)
	require.NoError(t, await(t, done))

	v, _ = store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 4, v)

	// With nothing pending the same seed applies in full.
	co.Seed(target, map[string]any{models.FieldLikeCount: 7})
	v, _ = store.ReadField(target, models.FieldLikeCount)
	assert.Equal(t, 7, v)
}
