package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dovydasv/reel/internal/models"
)

func TestWrite_CreatesRecord(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")

	c.Write(id, map[string]any{"likeCount": 3})

	rec, ok := c.Read(id)
	require.True(t, ok)
	assert.Equal(t, 3, rec["likeCount"])
}

func TestWrite_PartialMerge(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")

	c.Write(id, map[string]any{"likeCount": 3, "caption": "sunset"})
	c.Write(id, map[string]any{"likeCount": 4})

	rec, ok := c.Read(id)
	require.True(t, ok)
	assert.Equal(t, 4, rec["likeCount"], "written field should update")
	assert.Equal(t, "sunset", rec["caption"], "untouched field should survive")
}

func TestWrite_ListFieldReplacedWholesale(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")

	c.Write(id, map[string]any{"likes": []models.UserRef{{ID: "u1"}, {ID: "u2"}}})
	c.Write(id, map[string]any{"likes": []models.UserRef{{ID: "u3"}}})

	v, ok := c.ReadField(id, "likes")
	require.True(t, ok)
	assert.Equal(t, []models.UserRef{{ID: "u3"}}, v)
}

func TestRead_ReturnsCopy(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")
	c.Write(id, map[string]any{"likeCount": 3})

	rec, _ := c.Read(id)
	rec["likeCount"] = 99

	again, _ := c.Read(id)
	assert.Equal(t, 3, again["likeCount"], "mutating a read copy must not affect the cache")
}

func TestRead_AbsentIdentity(t *testing.T) {
	c := New()
	_, ok := c.Read(models.Identify(models.TypePost, "missing"))
	assert.False(t, ok)
}

func TestIdentify_Deterministic(t *testing.T) {
	a := models.Identify(models.TypePost, "p1")
	b := models.Identify(models.TypePost, "p1")
	assert.Equal(t, a, b)
	assert.Equal(t, "Post:p1", a.Key())
}

func TestSubscribe_NotifiedOnWrite(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")
	other := models.Identify(models.TypePost, "p2")

	var got []models.Identity
	c.Subscribe(id, func(n models.Identity) { got = append(got, n) })

	c.Write(id, map[string]any{"likeCount": 1})
	c.Write(other, map[string]any{"likeCount": 5})

	require.Len(t, got, 1, "only writes touching the subscribed identity notify")
	assert.Equal(t, id, got[0])
}

func TestUnsubscribe_StopsNotifications(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")

	calls := 0
	token := c.Subscribe(id, func(models.Identity) { calls++ })

	c.Write(id, map[string]any{"likeCount": 1})
	c.Unsubscribe(token)
	c.Write(id, map[string]any{"likeCount": 2})

	assert.Equal(t, 1, calls)
}

func TestSubscriberMayReadCache(t *testing.T) {
	c := New()
	id := models.Identify(models.TypePost, "p1")

	var seen any
	c.Subscribe(id, func(n models.Identity) {
		seen, _ = c.ReadField(n, "likeCount")
	})

	c.Write(id, map[string]any{"likeCount": 7})
	assert.Equal(t, 7, seen, "subscriber callbacks run outside the cache lock")
}

func TestDelete_RemovesRecord(t *testing.T) {
	c := New()
	id := models.Identify(models.TypeComment, "tmp-1")
	c.Write(id, map[string]any{"text": "hi"})

	c.Delete(id)

	_, ok := c.Read(id)
	assert.False(t, ok)
}

func TestReset_ClearsEverything(t *testing.T) {
	c := New()
	p := models.Identify(models.TypePost, "p1")
	u := models.Identify(models.TypeUser, "u1")
	c.Write(p, map[string]any{"likeCount": 3})
	c.Write(u, map[string]any{"username": "ada"})

	notified := 0
	c.Subscribe(p, func(models.Identity) { notified++ })

	c.Reset()

	_, ok := c.Read(p)
	assert.False(t, ok)
	_, ok = c.Read(u)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, notified, "subscribers observe the cleared state")
}
