// Package feed owns the ordered sequence of visible posts, incremental
// pagination, and the single "active" item that drives autoplay. Post
// field state lives in the entity cache; the session holds identities
// only.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/remote"
)

// DefaultPageSize is used when the caller does not specify one.
const DefaultPageSize = 10

// EntityWriter receives server query results for caching. Satisfied by
// the mutation coordinator, whose seed path drops fields a still-pending
// mutation holds.
type EntityWriter interface {
	Seed(id models.Identity, fields map[string]any)
}

// Session is one user-visible feed. Pages are appended in server order;
// an identity never appears twice and is never reordered once present.
type Session struct {
	mu     sync.Mutex
	store  EntityWriter
	api    remote.API
	logger *slog.Logger

	pageSize    int
	order       []models.Identity
	present     map[string]bool
	offset      int
	activeIndex int
	loading     bool
	endReached  bool
}

// NewSession creates an empty feed session over the given writer and API.
func NewSession(store EntityWriter, api remote.API) *Session {
	return &Session{
		store:       store,
		api:         api,
		logger:      slog.Default(),
		present:     make(map[string]bool),
		activeIndex: -1,
	}
}

// LoadInitial fetches the first page, seeds the ordered sequence, and
// makes the first item active.
func (s *Session) LoadInitial(ctx context.Context, pageSize int) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.logger.Debug("feed load already in flight, skipping initial load")
		return nil
	}
	s.loading = true
	s.pageSize = pageSize
	s.mu.Unlock()

	posts, err := s.api.GetFeed(ctx, 0, pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return err
	}

	s.replaceLocked(posts)
	return nil
}

// LoadMore appends the next page. It is a silent no-op while a load is
// in flight or once the end of the feed has been reached.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.logger.Debug("feed load already in flight, skipping load more")
		return nil
	}
	if s.endReached {
		s.mu.Unlock()
		s.logger.Debug("end of feed reached, skipping load more")
		return nil
	}
	if s.pageSize == 0 {
		s.mu.Unlock()
		s.logger.Debug("feed not initialized, skipping load more")
		return nil
	}
	s.loading = true
	offset, limit := s.offset, s.pageSize
	s.mu.Unlock()

	posts, err := s.api.GetFeed(ctx, offset, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return err
	}

	s.appendLocked(posts)
	return nil
}

// Refresh resets the cursor to the first page and replaces the sequence,
// making the first item active again.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.logger.Debug("feed load already in flight, skipping refresh")
		return nil
	}
	if s.pageSize == 0 {
		s.pageSize = DefaultPageSize
	}
	s.loading = true
	limit := s.pageSize
	s.mu.Unlock()

	posts, err := s.api.GetFeed(ctx, 0, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return err
	}

	s.replaceLocked(posts)
	return nil
}

// SetActive marks the item at index as the one eligible for autoplay.
// Setting the current index again is a no-op; out-of-range indices are
// ignored.
func (s *Session) SetActive(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == s.activeIndex {
		return
	}
	if index < 0 || index >= len(s.order) {
		s.logger.Debug("ignoring out-of-range active index", "index", index, "len", len(s.order))
		return
	}
	s.activeIndex = index
}

// ActiveIndex returns the current active index, or -1 when the feed is
// empty.
func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIndex
}

// Active returns the identity of the active post.
func (s *Session) Active() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeIndex < 0 || s.activeIndex >= len(s.order) {
		return models.Identity{}, false
	}
	return s.order[s.activeIndex], true
}

// Posts returns a copy of the ordered post identities.
func (s *Session) Posts() []models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Identity, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of posts in the sequence.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// EndReached reports whether the last page was short, i.e. there is
// nothing more to load.
func (s *Session) EndReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endReached
}

func (s *Session) replaceLocked(posts []models.Post) {
	s.order = s.order[:0]
	s.present = make(map[string]bool)
	s.offset = 0
	s.endReached = false
	s.activeIndex = -1
	s.appendLocked(posts)
	if len(s.order) > 0 {
		s.activeIndex = 0
	}
}

// appendLocked writes each post into the cache and appends unseen
// identities in server order.
func (s *Session) appendLocked(posts []models.Post) {
	for _, p := range posts {
		id := p.Identity()
		s.store.Seed(id, p.Fields())
		if p.User.ID != "" {
			s.store.Seed(p.User.Identity(), map[string]any{
				models.FieldUsername: p.User.Username,
				models.FieldAvatar:   p.User.Avatar,
			})
		}
		if s.present[id.Key()] {
			continue
		}
		s.present[id.Key()] = true
		s.order = append(s.order, id)
	}
	s.offset += len(posts)
	if len(posts) < s.pageSize {
		s.endReached = true
	}
	if s.activeIndex < 0 && len(s.order) > 0 {
		s.activeIndex = 0
	}
	if s.activeIndex >= len(s.order) {
		s.activeIndex = len(s.order) - 1
	}
}
