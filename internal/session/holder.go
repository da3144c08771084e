// Package session holds the authenticated user's credentials for the
// lifetime of the process and persists them so a restart resumes the
// same session.
package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dovydasv/reel/internal/cache"
	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/store"
)

// Keys under which credentials are persisted.
const (
	keyToken = "token"
	keyUser  = "user"
)

// Holder is the single source of truth for the current session. It
// serves the bearer token to the transport and the current user to the
// mutation coordinator.
type Holder struct {
	mu     sync.RWMutex
	token  string
	user   models.User
	active bool

	cache  *cache.EntityCache
	kv     *store.KV
	logger *slog.Logger
}

// NewHolder creates a holder over the given cache and credential store.
// If the store holds persisted credentials, the session is rehydrated
// from them. The store may be nil for an in-memory-only session.
func NewHolder(store *cache.EntityCache, kv *store.KV) *Holder {
	h := &Holder{
		cache:  store,
		kv:     kv,
		logger: slog.Default(),
	}
	h.rehydrate()
	return h
}

func (h *Holder) rehydrate() {
	if h.kv == nil {
		return
	}
	token, err := h.kv.GetValue(keyToken)
	if err != nil {
		h.logger.Warn("could not read persisted token", "error", err)
		return
	}
	if token == "" {
		return
	}
	raw, err := h.kv.GetValue(keyUser)
	if err != nil || raw == "" {
		h.logger.Warn("persisted token without user record, ignoring", "error", err)
		return
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		h.logger.Warn("could not decode persisted user", "error", err)
		return
	}
	h.token = token
	h.user = user
	h.active = true
}

// SetSession installs a new authenticated session and persists it.
// Persistence failures are logged, not surfaced: the in-memory session
// is valid either way.
func (h *Holder) SetSession(token string, user models.User) {
	h.mu.Lock()
	h.token = token
	h.user = user
	h.active = true
	h.mu.Unlock()

	if h.cache != nil {
		h.cache.Write(models.Identify(models.TypeUser, user.ID), user.Fields())
	}

	if h.kv == nil {
		return
	}
	if err := h.kv.SetValue(keyToken, token); err != nil {
		h.logger.Warn("could not persist token", "error", err)
		return
	}
	raw, err := json.Marshal(user)
	if err == nil {
		err = h.kv.SetValue(keyUser, string(raw))
	}
	if err != nil {
		h.logger.Warn("could not persist user record", "error", err)
	}
}

// Clear ends the session: credentials are dropped, the entity cache is
// reset, and persisted credentials are removed best-effort. Clear never
// fails.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.token = ""
	h.user = models.User{}
	h.active = false
	h.mu.Unlock()

	if h.cache != nil {
		h.cache.Reset()
	}

	if h.kv == nil {
		return
	}
	if err := h.kv.DeleteValue(keyToken); err != nil {
		h.logger.Warn("could not remove persisted token", "error", err)
	}
	if err := h.kv.DeleteValue(keyUser); err != nil {
		h.logger.Warn("could not remove persisted user record", "error", err)
	}
}

// Token returns the current bearer token, or "" when signed out.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// CurrentUser returns the authenticated user, if any.
func (h *Holder) CurrentUser() (models.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user, h.active
}

// Active reports whether a session is present.
func (h *Holder) Active() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}
