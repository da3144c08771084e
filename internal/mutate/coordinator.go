// Package mutate implements the optimistic mutation coordinator: every
// semantic state change (like toggle, rating, comment, reply) is applied
// to the entity cache immediately, sent to the server, and reconciled on
// response. Success merges server truth over the optimistic guess; failure
// restores the pre-mutation snapshot without clobbering newer pending
// optimistic state.
package mutate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dovydasv/reel/internal/cache"
	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/remote"
)

// CredentialSource supplies the authenticated user attributed to
// optimistic entities. Implemented by the session holder.
type CredentialSource interface {
	CurrentUser() (models.User, bool)
}

// Journal receives one record per reconciled mutation. May be nil.
type Journal interface {
	Record(a models.Activity) error
}

type pendingKey struct {
	entity string
	action models.Action
}

type payload struct {
	text   string
	rating int
}

// pendingOp is one intent plus its transient bookkeeping. Ops for the
// same (target, action) form a FIFO queue; only the queue head has a
// remote call in flight.
type pendingOp struct {
	m           *models.PendingMutation
	payload     payload
	provisional models.Identity // set for comment/reply creations
	waiters     []chan error
}

// Coordinator owns the write path into the entity cache. All mutation of
// cached fields funnels through it; no other component writes contested
// fields directly. Methods are safe for concurrent use. Cache subscribers
// fire while the coordinator lock is held, so they must not call back
// into the Coordinator synchronously.
type Coordinator struct {
	mu      sync.Mutex
	cache   *cache.EntityCache
	api     remote.API
	creds   CredentialSource
	journal Journal
	logger  *slog.Logger

	nextSeq  int64
	queues   map[pendingKey][]*pendingOp
	byEntity map[string][]*pendingOp
}

// New creates a coordinator. journal may be nil.
func New(store *cache.EntityCache, api remote.API, creds CredentialSource, journal Journal) *Coordinator {
	return &Coordinator{
		cache:    store,
		api:      api,
		creds:    creds,
		journal:  journal,
		logger:   slog.Default(),
		queues:   make(map[pendingKey][]*pendingOp),
		byEntity: make(map[string][]*pendingOp),
	}
}

// PendingCount returns the number of unreconciled mutations.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.queues {
		n += len(q)
	}
	return n
}

// Seed writes server query results into the cache. Fields a still-pending
// mutation has optimistically written are dropped, so a slow feed or
// thread refresh resolving mid-mutation cannot clobber the optimistic
// state; the pending mutation's own reconciliation brings those fields
// back in line.
func (c *Coordinator) Seed(id models.Identity, fields map[string]any) {
	c.mu.Lock()
	out := make(map[string]any, len(fields))
	for field, v := range fields {
		if c.pendingTouchesLocked(id.Key(), field) {
			continue
		}
		out[field] = v
	}
	c.mu.Unlock()
	if len(out) > 0 {
		c.cache.Write(id, out)
	}
}

func (c *Coordinator) pendingTouchesLocked(entityKey, field string) bool {
	for _, op := range c.byEntity[entityKey] {
		if op.m.Status == models.MutationPending && op.m.Touches(field) {
			return true
		}
	}
	return false
}

// ToggleLike flips the requestor's like on a post. The cache reflects the
// new state before the call returns; the channel resolves when the server
// confirms or the optimistic write is rolled back. A repeated toggle
// while one is in flight coalesces instead of issuing a second call.
func (c *Coordinator) ToggleLike(ctx context.Context, postID string) (<-chan error, error) {
	user, ok := c.creds.CurrentUser()
	if !ok {
		return nil, ErrUnauthenticated
	}
	target := models.Identify(models.TypePost, postID)

	c.mu.Lock()
	defer c.mu.Unlock()

	key := pendingKey{entity: target.Key(), action: models.ActionToggleLike}
	likes, count := c.likesStateLocked(target)
	newLikes, newCount, _ := projectToggleLike(likes, count, user.Ref())
	optimistic := map[string]any{
		models.FieldLikes:     newLikes,
		models.FieldLikeCount: newCount,
	}

	if q := c.queues[key]; len(q) > 0 {
		return c.coalesceLocked(q[0], target, optimistic, payload{}), nil
	}

	op := c.newOpLocked(models.ActionToggleLike, target, optimistic, payload{})
	done := c.enqueueLocked(key, op)
	c.cache.Write(target, optimistic)
	c.issueLocked(ctx, key, op)
	return done, nil
}

// SetRating records the requestor's 1-5 star rating of a post, replacing
// any rating they gave before. Idempotent per user and value.
func (c *Coordinator) SetRating(ctx context.Context, postID string, value int) (<-chan error, error) {
	user, ok := c.creds.CurrentUser()
	if !ok {
		return nil, ErrUnauthenticated
	}
	if value < 1 || value > 5 {
		return nil, &ValidationError{Reason: "rating must be between 1 and 5"}
	}
	target := models.Identify(models.TypePost, postID)

	c.mu.Lock()
	defer c.mu.Unlock()

	key := pendingKey{entity: target.Key(), action: models.ActionSetRating}
	ratings := c.ratingsStateLocked(target)
	optimistic := map[string]any{
		models.FieldRatings: projectSetRating(ratings, user.Ref(), value),
	}

	if q := c.queues[key]; len(q) > 0 {
		return c.coalesceLocked(q[0], target, optimistic, payload{rating: value}), nil
	}

	op := c.newOpLocked(models.ActionSetRating, target, optimistic, payload{rating: value})
	done := c.enqueueLocked(key, op)
	c.cache.Write(target, optimistic)
	c.issueLocked(ctx, key, op)
	return done, nil
}

// AddComment appends a provisional comment to the post, visible
// immediately. The returned comment carries the temporary ID; on server
// confirmation the cache slot is substituted in place with the real ID.
// Concurrent comments on the same post serialize their remote calls.
func (c *Coordinator) AddComment(ctx context.Context, postID, text string) (models.Comment, <-chan error, error) {
	user, ok := c.creds.CurrentUser()
	if !ok {
		return models.Comment{}, nil, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, nil, &ValidationError{Reason: "comment cannot be empty"}
	}
	target := models.Identify(models.TypePost, postID)

	c.mu.Lock()
	defer c.mu.Unlock()

	provisional := provisionalComment(postID, text, user.Ref(), time.Now())
	comments, count := c.commentsStateLocked(target)
	optimistic := map[string]any{
		models.FieldCommentCount: count + 1,
		models.FieldComments:     appendIdentity(comments, provisional.Identity()),
	}

	key := pendingKey{entity: target.Key(), action: models.ActionAddComment}
	op := c.newOpLocked(models.ActionAddComment, target, optimistic, payload{text: text})
	op.provisional = provisional.Identity()
	done := c.enqueueLocked(key, op)

	c.cache.Write(provisional.Identity(), provisional.Fields())
	c.cache.Write(target, optimistic)

	if len(c.queues[key]) == 1 {
		c.issueLocked(ctx, key, op)
	}
	return provisional, done, nil
}

// AddReply appends a provisional reply under a comment, visible
// immediately, with the same substitution discipline as AddComment.
func (c *Coordinator) AddReply(ctx context.Context, commentID, text string) (models.Reply, <-chan error, error) {
	user, ok := c.creds.CurrentUser()
	if !ok {
		return models.Reply{}, nil, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Reply{}, nil, &ValidationError{Reason: "reply cannot be empty"}
	}
	target := models.Identify(models.TypeComment, commentID)

	c.mu.Lock()
	defer c.mu.Unlock()

	provisional := provisionalReply(commentID, text, user.Ref(), time.Now())
	replies := c.repliesStateLocked(target)
	optimistic := map[string]any{
		models.FieldReplies: appendIdentity(replies, provisional.Identity()),
	}

	key := pendingKey{entity: target.Key(), action: models.ActionAddReply}
	op := c.newOpLocked(models.ActionAddReply, target, optimistic, payload{text: text})
	op.provisional = provisional.Identity()
	done := c.enqueueLocked(key, op)

	c.cache.Write(provisional.Identity(), provisional.Fields())
	c.cache.Write(target, optimistic)

	if len(c.queues[key]) == 1 {
		c.issueLocked(ctx, key, op)
	}
	return provisional, done, nil
}

// --- intent bookkeeping (all *Locked helpers require c.mu held) ---

func (c *Coordinator) newOpLocked(action models.Action, target models.Identity, optimistic map[string]any, p payload) *pendingOp {
	c.nextSeq++
	touched := make([]string, 0, len(optimistic))
	snapshot := make(map[string]any, len(optimistic))
	for field := range optimistic {
		touched = append(touched, field)
		v, _ := c.cache.ReadField(target, field)
		snapshot[field] = v
	}
	return &pendingOp{
		m: &models.PendingMutation{
			Seq:        c.nextSeq,
			Action:     action,
			Target:     target,
			Snapshot:   snapshot,
			Optimistic: optimistic,
			Touched:    touched,
			Status:     models.MutationPending,
			Generation: 1,
			CreatedAt:  time.Now(),
		},
		payload: p,
	}
}

func (c *Coordinator) enqueueLocked(key pendingKey, op *pendingOp) <-chan error {
	c.queues[key] = append(c.queues[key], op)
	c.byEntity[key.entity] = append(c.byEntity[key.entity], op)
	done := make(chan error, 1)
	op.waiters = append(op.waiters, done)
	return done
}

// coalesceLocked folds a repeated intent into the queue head: the
// optimistic projection is recomputed from the latest cache state and the
// pending record replaced, without issuing a second remote call.
func (c *Coordinator) coalesceLocked(op *pendingOp, target models.Identity, optimistic map[string]any, p payload) <-chan error {
	op.m.Optimistic = optimistic
	op.m.Generation++
	op.payload = p
	done := make(chan error, 1)
	op.waiters = append(op.waiters, done)
	c.cache.Write(target, optimistic)
	return done
}

// issueLocked launches the remote call for an op. The call is detached
// from the caller's cancellation: navigating away must not abandon
// reconciliation.
func (c *Coordinator) issueLocked(ctx context.Context, key pendingKey, op *pendingOp) {
	op.m.IssuedGeneration = op.m.Generation
	p := op.payload
	callCtx := context.WithoutCancel(ctx)

	go func() {
		switch key.action {
		case models.ActionToggleLike:
			res, err := c.api.LikePost(callCtx, op.m.Target.ID)
			c.reconcileLike(callCtx, key, op, res, err)
		case models.ActionSetRating:
			res, err := c.api.RatePost(callCtx, op.m.Target.ID, p.rating)
			c.reconcileRating(callCtx, key, op, res, err)
		case models.ActionAddComment:
			res, err := c.api.AddComment(callCtx, op.m.Target.ID, p.text)
			c.reconcileComment(callCtx, key, op, res, err)
		case models.ActionAddReply:
			res, err := c.api.AddReply(callCtx, op.m.Target.ID, p.text)
			c.reconcileReply(callCtx, key, op, res, err)
		}
	}()
}

// --- reconciliation ---

func (c *Coordinator) reconcileLike(ctx context.Context, key pendingKey, op *pendingOp, res remote.LikeResult, err error) {
	c.mu.Lock()
	if c.reissueIfCoalescedLocked(ctx, key, op) {
		c.mu.Unlock()
		return
	}

	if err == nil {
		confirm := c.filterNewerTouchedLocked(op, map[string]any{
			models.FieldLikes:     res.Likes,
			models.FieldLikeCount: res.LikeCount,
		})
		c.finishLocked(key, op, models.MutationConfirmed)
		c.cache.Write(op.m.Target, confirm)
	} else {
		c.rollbackLocked(key, op)
	}
	c.mu.Unlock()

	c.settle(op, err, "")
}

func (c *Coordinator) reconcileRating(ctx context.Context, key pendingKey, op *pendingOp, res remote.RatingResult, err error) {
	c.mu.Lock()
	if c.reissueIfCoalescedLocked(ctx, key, op) {
		c.mu.Unlock()
		return
	}

	if err == nil {
		confirm := c.filterNewerTouchedLocked(op, map[string]any{
			models.FieldRatings: res.Ratings,
		})
		c.finishLocked(key, op, models.MutationConfirmed)
		c.cache.Write(op.m.Target, confirm)
	} else {
		c.rollbackLocked(key, op)
	}
	c.mu.Unlock()

	c.settle(op, err, "")
}

func (c *Coordinator) reconcileComment(ctx context.Context, key pendingKey, op *pendingOp, res models.Comment, err error) {
	c.mu.Lock()
	if err == nil {
		// Identity substitution: drop the provisional record, cache the
		// confirmed comment under the server ID, and swap the reference
		// in the post's list at the same position. The optimistic
		// commentCount already counted it once.
		comments, _ := c.commentsStateLocked(op.m.Target)
		c.finishLocked(key, op, models.MutationConfirmed)
		c.cache.Delete(op.provisional)
		c.cache.Write(res.Identity(), res.Fields())
		c.cache.Write(op.m.Target, map[string]any{
			models.FieldComments: replaceIdentity(comments, op.provisional, res.Identity()),
		})
	} else {
		c.rollbackCreationLocked(key, op)
	}
	next := c.headLocked(key)
	if next != nil {
		c.issueLocked(ctx, key, next)
	}
	c.mu.Unlock()

	c.settle(op, err, op.payload.text)
}

func (c *Coordinator) reconcileReply(ctx context.Context, key pendingKey, op *pendingOp, res models.Reply, err error) {
	c.mu.Lock()
	if err == nil {
		replies := c.repliesStateLocked(op.m.Target)
		c.finishLocked(key, op, models.MutationConfirmed)
		c.cache.Delete(op.provisional)
		c.cache.Write(res.Identity(), res.Fields())
		c.cache.Write(op.m.Target, map[string]any{
			models.FieldReplies: replaceIdentity(replies, op.provisional, res.Identity()),
		})
	} else {
		c.rollbackCreationLocked(key, op)
	}
	next := c.headLocked(key)
	if next != nil {
		c.issueLocked(ctx, key, next)
	}
	c.mu.Unlock()

	c.settle(op, err, op.payload.text)
}

// reissueIfCoalescedLocked handles an op that absorbed a newer intent
// while its call was in flight: instead of finalizing against a stale
// server response, the latest intent is sent as a follow-up call. At most
// one call per (target, action) is ever in flight.
func (c *Coordinator) reissueIfCoalescedLocked(ctx context.Context, key pendingKey, op *pendingOp) bool {
	if op.m.Generation == op.m.IssuedGeneration {
		return false
	}
	c.logger.Debug("reissuing coalesced mutation",
		"action", key.action, "target", op.m.Target.String(), "generation", op.m.Generation)
	c.issueLocked(ctx, key, op)
	return true
}

// rollbackLocked restores the op's snapshot in a single cache write,
// skipping any field a later-issued, still-pending mutation has since
// overwritten.
func (c *Coordinator) rollbackLocked(key pendingKey, op *pendingOp) {
	restore := make(map[string]any, len(op.m.Snapshot))
	for field, v := range op.m.Snapshot {
		if c.newerPendingTouchesLocked(key.entity, op.m.Seq, field) {
			continue
		}
		restore[field] = v
	}
	c.finishLocked(key, op, models.MutationFailed)
	if len(restore) > 0 {
		c.cache.Write(op.m.Target, restore)
	}
}

// rollbackCreationLocked unwinds a failed comment/reply creation. The
// snapshot is never restored: between snapshot time and failure an
// earlier sibling in the queue may have confirmed and been substituted
// to its server identity, so the snapshot's list can name provisional
// records that no longer exist. Instead the op's own provisional entry
// is removed from the current list and the counter decremented, leaving
// every confirmed or still-pending sibling in place.
func (c *Coordinator) rollbackCreationLocked(key pendingKey, op *pendingOp) {
	adjust := make(map[string]any, len(op.m.Snapshot))
	for field := range op.m.Snapshot {
		switch field {
		case models.FieldComments:
			current, _ := c.commentsStateLocked(op.m.Target)
			adjust[field] = removeIdentity(current, op.provisional)
		case models.FieldReplies:
			adjust[field] = removeIdentity(c.repliesStateLocked(op.m.Target), op.provisional)
		case models.FieldCommentCount:
			_, count := c.commentsStateLocked(op.m.Target)
			if count > 0 {
				count--
			}
			adjust[field] = count
		}
	}
	c.finishLocked(key, op, models.MutationFailed)
	c.cache.Delete(op.provisional)
	if len(adjust) > 0 {
		c.cache.Write(op.m.Target, adjust)
	}
}

func (c *Coordinator) newerPendingTouchesLocked(entityKey string, seq int64, field string) bool {
	for _, other := range c.byEntity[entityKey] {
		if other.m.Seq > seq && other.m.Status == models.MutationPending && other.m.Touches(field) {
			return true
		}
	}
	return false
}

// filterNewerTouchedLocked drops confirm fields a later pending mutation
// has optimistically overwritten: reconciliation of an earlier call must
// never clobber a newer optimistic write.
func (c *Coordinator) filterNewerTouchedLocked(op *pendingOp, confirm map[string]any) map[string]any {
	out := make(map[string]any, len(confirm))
	for field, v := range confirm {
		if c.newerPendingTouchesLocked(op.m.Target.Key(), op.m.Seq, field) {
			continue
		}
		out[field] = v
	}
	return out
}

// finishLocked marks the op reconciled and removes it from the queue and
// the per-entity index.
func (c *Coordinator) finishLocked(key pendingKey, op *pendingOp, status models.MutationStatus) {
	op.m.Status = status
	q := c.queues[key]
	for i, o := range q {
		if o == op {
			c.queues[key] = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(c.queues[key]) == 0 {
		delete(c.queues, key)
	}
	ops := c.byEntity[key.entity]
	for i, o := range ops {
		if o == op {
			c.byEntity[key.entity] = append(ops[:i], ops[i+1:]...)
			break
		}
	}
	if len(c.byEntity[key.entity]) == 0 {
		delete(c.byEntity, key.entity)
	}
}

func (c *Coordinator) headLocked(key pendingKey) *pendingOp {
	if q := c.queues[key]; len(q) > 0 {
		return q[0]
	}
	return nil
}

// settle notifies waiters and journals the outcome. Runs without c.mu.
func (c *Coordinator) settle(op *pendingOp, err error, detail string) {
	for _, w := range op.waiters {
		w <- err
	}
	if c.journal == nil {
		return
	}
	a := models.Activity{
		Timestamp: time.Now(),
		Action:    op.m.Action,
		Target:    op.m.Target.Key(),
		Detail:    detail,
		Outcome:   string(op.m.Status),
	}
	if err != nil {
		a.Error = err.Error()
	}
	if jerr := c.journal.Record(a); jerr != nil {
		c.logger.Warn("failed to journal activity", "action", op.m.Action, "err", jerr)
	}
}

// --- typed cache reads ---

func (c *Coordinator) likesStateLocked(id models.Identity) ([]models.UserRef, int) {
	var likes []models.UserRef
	count := 0
	if v, ok := c.cache.ReadField(id, models.FieldLikes); ok {
		likes, _ = v.([]models.UserRef)
	}
	if v, ok := c.cache.ReadField(id, models.FieldLikeCount); ok {
		count, _ = v.(int)
	}
	return likes, count
}

func (c *Coordinator) ratingsStateLocked(id models.Identity) []models.Rating {
	if v, ok := c.cache.ReadField(id, models.FieldRatings); ok {
		if ratings, ok := v.([]models.Rating); ok {
			return ratings
		}
	}
	return nil
}

func (c *Coordinator) commentsStateLocked(id models.Identity) ([]models.Identity, int) {
	var comments []models.Identity
	count := 0
	if v, ok := c.cache.ReadField(id, models.FieldComments); ok {
		comments, _ = v.([]models.Identity)
	}
	if v, ok := c.cache.ReadField(id, models.FieldCommentCount); ok {
		count, _ = v.(int)
	}
	return comments, count
}

func (c *Coordinator) repliesStateLocked(id models.Identity) []models.Identity {
	if v, ok := c.cache.ReadField(id, models.FieldReplies); ok {
		if replies, ok := v.([]models.Identity); ok {
			return replies
		}
	}
	return nil
}

func removeIdentity(list []models.Identity, id models.Identity) []models.Identity {
	next := make([]models.Identity, 0, len(list))
	for _, x := range list {
		if x == id {
			continue
		}
		next = append(next, x)
	}
	return next
}
