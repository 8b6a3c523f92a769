package tracker

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AnshRaj112/wellsync/internal/models"
	"github.com/AnshRaj112/wellsync/internal/remote"
	"github.com/AnshRaj112/wellsync/internal/slot"
)

// Handle is the type-independent view of a collection.
type Handle interface {
	Type() models.CollectionType
	Cap() int
	Len() int
	Clear()
	Raw() []json.RawMessage

	reset()
	hydrate(entries []json.RawMessage)
}

// Collection is one bounded, newest-first history persisted under its type
// name. All collections share the same role gate and sync rules.
type Collection[T any] struct {
	typ models.CollectionType
	s   *Session

	mu sync.Mutex
}

func newCollection[T any](s *Session, typ models.CollectionType) *Collection[T] {
	return &Collection[T]{typ: typ, s: s}
}

func (c *Collection[T]) Type() models.CollectionType { return c.typ }

func (c *Collection[T]) Cap() int { return c.typ.Cap() }

// Items returns the entries, newest first.
func (c *Collection[T]) Items() []T {
	return c.load()
}

func (c *Collection[T]) Len() int {
	return len(c.load())
}

// Raw returns the entries as JSON documents.
func (c *Collection[T]) Raw() []json.RawMessage {
	items := c.load()
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

// Mutate replaces the collection with fn's result. For admins it does
// nothing at all. Otherwise the result is persisted and, when an endpoint is
// configured, pushed in full; empty results are never pushed.
func (c *Collection[T]) Mutate(fn func([]T) []T) {
	c.mutate(fn, false)
}

// Append prepends entry and drops the oldest entries beyond the cap.
func (c *Collection[T]) Append(entry T) {
	limit := c.Cap()
	c.mutate(func(cur []T) []T {
		next := make([]T, 0, len(cur)+1)
		next = append(next, entry)
		next = append(next, cur...)
		if limit > 0 && len(next) > limit {
			next = next[:limit]
		}
		return next
	}, true)
}

// Clear empties the collection and, when an endpoint is configured, asks the
// remote to do the same.
func (c *Collection[T]) Clear() {
	user := c.s.Identity()
	if !canWrite(user) {
		c.denied(user)
		return
	}

	c.mu.Lock()
	c.store([]T{})
	c.mu.Unlock()

	if endpoint := c.s.Endpoint(); endpoint != "" {
		c.s.dispatcher.Submit(Command{
			Kind:     KindClear,
			Type:     string(c.typ),
			Endpoint: endpoint,
			User:     user,
		})
	}
	c.s.collectionChanged(c.typ, false)
}

func (c *Collection[T]) mutate(fn func([]T) []T, appended bool) {
	user := c.s.Identity()
	if !canWrite(user) {
		c.denied(user)
		return
	}

	c.mu.Lock()
	next := fn(c.load())
	if next == nil {
		next = []T{}
	}
	c.store(next)
	c.mu.Unlock()

	if endpoint := c.s.Endpoint(); endpoint != "" {
		cmd := Command{
			Kind:     KindPush,
			Type:     string(c.typ),
			Payload:  next,
			Endpoint: endpoint,
			User:     user,
		}
		if len(next) == 0 {
			c.s.dispatcher.Suppress(cmd)
		} else {
			c.s.dispatcher.Submit(cmd)
		}
	}
	c.s.collectionChanged(c.typ, appended)
}

func (c *Collection[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store([]T{})
}

// hydrate replaces the local copy with remote entries, already ordered
// newest first. Loose field types are coerced first; only entries that are
// not objects are skipped.
func (c *Collection[T]) hydrate(entries []json.RawMessage) {
	items := make([]T, 0, len(entries))
	for _, raw := range entries {
		coerced, ok := remote.CoerceEntry(c.typ, raw)
		if !ok {
			c.s.log.WithField("collection", c.typ).Debug("skipping non-object remote entry")
			continue
		}
		var item T
		if err := json.Unmarshal(coerced, &item); err != nil {
			c.s.log.WithField("collection", c.typ).WithError(err).Debug("skipping undecodable remote entry")
			continue
		}
		items = append(items, item)
	}
	if limit := c.Cap(); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(items)
}

func (c *Collection[T]) load() []T {
	items := slot.Get(c.s.store, string(c.typ), []T{})
	if items == nil {
		return []T{}
	}
	return items
}

func (c *Collection[T]) store(items []T) {
	if err := slot.Set(c.s.store, string(c.typ), items); err != nil {
		c.s.log.WithField("collection", c.typ).WithError(err).Warn("failed to persist collection")
	}
}

func (c *Collection[T]) denied(user models.Identity) {
	c.s.log.WithFields(logrus.Fields{
		"collection": c.typ,
		"username":   user.Username,
		"role":       user.Role,
	}).Debug("mutation skipped for identity")
}
