// Package cache implements the normalized in-memory entity cache.
// Records are keyed by (typename, id) and hold the latest known field
// values for that entity. Writes merge field-by-field: fields absent from
// a write are left untouched, while list-valued fields (likes, ratings,
// replies) are owned by the most recent writer and replaced wholesale.
// The cache holds no network or persistence concerns and is cleared
// entirely on logout.
package cache

import (
	"sync"

	"github.com/dovydasv/reel/internal/models"
)

// Subscriber receives the identity of every record a write touched.
type Subscriber func(models.Identity)

// EntityCache is the single shared mutable store of entity state. All
// field mutation funnels through Write; readers receive copies.
type EntityCache struct {
	mu      sync.Mutex
	records map[string]map[string]any
	subs    map[string]map[int64]Subscriber
	subKeys map[int64]string
	nextSub int64
}

// New creates an empty cache.
func New() *EntityCache {
	return &EntityCache{
		records: make(map[string]map[string]any),
		subs:    make(map[string]map[int64]Subscriber),
		subKeys: make(map[int64]string),
	}
}

// Write merges the given field values into the record for identity,
// creating the record if absent. Subscribers for the identity are
// notified after the merge. Callers must not mutate slice or map values
// after handing them to Write.
func (c *EntityCache) Write(id models.Identity, fields map[string]any) {
	c.mu.Lock()
	key := id.Key()
	rec, ok := c.records[key]
	if !ok {
		rec = make(map[string]any, len(fields))
		c.records[key] = rec
	}
	for k, v := range fields {
		rec[k] = v
	}
	fns := c.subscribersLocked(key)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// Read returns a copy of the current merged view for identity, or ok=false
// if no record exists.
func (c *EntityCache) Read(id models.Identity) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id.Key()]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

// ReadField returns a single field value for identity.
func (c *EntityCache) ReadField(id models.Identity, field string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id.Key()]
	if !ok {
		return nil, false
	}
	v, ok := rec[field]
	return v, ok
}

// Delete removes the record for identity, notifying its subscribers.
// Used for provisional-identity substitution once the server issues the
// real ID.
func (c *EntityCache) Delete(id models.Identity) {
	c.mu.Lock()
	key := id.Key()
	_, existed := c.records[key]
	delete(c.records, key)
	var fns []Subscriber
	if existed {
		fns = c.subscribersLocked(key)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

// Reset drops every record. Subscriptions survive so views can observe
// the cleared state; each subscriber is notified for its identity.
func (c *EntityCache) Reset() {
	c.mu.Lock()
	c.records = make(map[string]map[string]any)
	type note struct {
		id  models.Identity
		fns []Subscriber
	}
	var notes []note
	for key, m := range c.subs {
		if len(m) == 0 {
			continue
		}
		fns := make([]Subscriber, 0, len(m))
		for _, fn := range m {
			fns = append(fns, fn)
		}
		notes = append(notes, note{id: identityFromKey(key), fns: fns})
	}
	c.mu.Unlock()

	for _, n := range notes {
		for _, fn := range n.fns {
			fn(n.id)
		}
	}
}

// Subscribe registers fn to be called on every write touching identity.
// The returned token cancels the subscription via Unsubscribe.
func (c *EntityCache) Subscribe(id models.Identity, fn Subscriber) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	token := c.nextSub
	key := id.Key()
	if c.subs[key] == nil {
		c.subs[key] = make(map[int64]Subscriber)
	}
	c.subs[key][token] = fn
	c.subKeys[token] = key
	return token
}

// Unsubscribe cancels a subscription. Unknown tokens are ignored.
func (c *EntityCache) Unsubscribe(token int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.subKeys[token]
	if !ok {
		return
	}
	delete(c.subKeys, token)
	if m := c.subs[key]; m != nil {
		delete(m, token)
		if len(m) == 0 {
			delete(c.subs, key)
		}
	}
}

// Len returns the number of cached records.
func (c *EntityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func (c *EntityCache) subscribersLocked(key string) []Subscriber {
	m := c.subs[key]
	if len(m) == 0 {
		return nil
	}
	fns := make([]Subscriber, 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	return fns
}

func identityFromKey(key string) models.Identity {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return models.Identity{Typename: models.Typename(key[:i]), ID: key[i+1:]}
		}
	}
	return models.Identity{ID: key}
}
