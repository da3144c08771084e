package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dovydasv/reel/internal/cache"
	"github.com/dovydasv/reel/internal/models"
	"github.com/dovydasv/reel/internal/store"
)

func alice() models.User {
	return models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}
}

func TestHolder_SetSessionAndClear(t *testing.T) {
	c := cache.New()
	h := NewHolder(c, nil)

	assert.Equal(t, "", h.Token())
	_, ok := h.CurrentUser()
	assert.False(t, ok)

	h.SetSession("tok-1", alice())
	assert.Equal(t, "tok-1", h.Token())
	user, ok := h.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)

	// The signed-in user is readable from the cache.
	fields, ok := c.Read(models.Identify(models.TypeUser, "u1"))
	require.True(t, ok)
	assert.Equal(t, "alice", fields[models.FieldUsername])

	h.Clear()
	assert.Equal(t, "", h.Token())
	_, ok = h.CurrentUser()
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestHolder_RehydratesFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")

	kv, err := store.OpenKV(path)
	require.NoError(t, err)
	h := NewHolder(cache.New(), kv)
	h.SetSession("tok-9", alice())
	require.NoError(t, kv.Close())

	kv, err = store.OpenKV(path)
	require.NoError(t, err)
	defer kv.Close()

	h2 := NewHolder(cache.New(), kv)
	assert.Equal(t, "tok-9", h2.Token())
	user, ok := h2.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}

func TestHolder_ClearRemovesPersistedCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")

	kv, err := store.OpenKV(path)
	require.NoError(t, err)
	h := NewHolder(cache.New(), kv)
	h.SetSession("tok-2", alice())
	h.Clear()
	require.NoError(t, kv.Close())

	kv, err = store.OpenKV(path)
	require.NoError(t, err)
	defer kv.Close()

	h2 := NewHolder(cache.New(), kv)
	assert.Equal(t, "", h2.Token())
	assert.False(t, h2.Active())
}
