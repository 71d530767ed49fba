// Package cache provides the Reader's optional object cache: a
// read-through cache keyed by ObjectId holding object bytes as fetched
// from the backend (still encrypted). Reader populates it only after a
// chunk of that object has passed AEAD verification, and still runs AEAD
// on every chunk read from a cached object, so it never changes what a
// read returns, only how often the backend has to be reached.
package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

// Cache is the interface Reader depends on.
type Cache interface {
	Get(ctx context.Context, id objectstore.ObjectId) ([]byte, bool)
	Put(ctx context.Context, id objectstore.ObjectId, plaintext []byte)
}

// lruEntry backs the in-process fallback cache.
type lruEntry struct {
	id   objectstore.ObjectId
	data []byte
}

// LRU is an in-process, mutex-guarded cache used when no Redis endpoint is
// configured, or as Redis's local complement in front of network latency.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[objectstore.ObjectId]*list.Element
}

// NewLRU builds an in-process cache holding at most capacity entries.
func NewLRU(capacity int) *LRU {
	return &LRU{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[objectstore.ObjectId]*list.Element),
	}
}

func (c *LRU) Get(_ context.Context, id objectstore.ObjectId) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[id]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	entry := el.Value.(*lruEntry)
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, true
}

func (c *LRU) Put(_ context.Context, id objectstore.ObjectId, plaintext []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[id]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*lruEntry).data = append([]byte(nil), plaintext...)
		return
	}
	entry := &lruEntry{id: id, data: append([]byte(nil), plaintext...)}
	el := c.ll.PushFront(entry)
	c.index[id] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*lruEntry).id)
		}
	}
}

// Redis is a read-through cache backed by a Redis client with an
// in-process LRU behind it: any failed Redis Get, a plain miss or a
// Redis-side error, is answered from the LRU, and Put writes to both.
// Redis errors are never returned — a cache is a latency optimization,
// not a dependency the read path can fail on.
type Redis struct {
	client *redis.Client
	fallback *LRU
}

// NewRedis builds a Redis-backed cache. fallbackCapacity sizes the
// in-process LRU consulted whenever a Redis Get fails.
func NewRedis(client *redis.Client, fallbackCapacity int) *Redis {
	return &Redis{client: client, fallback: NewLRU(fallbackCapacity)}
}

func (r *Redis) Get(ctx context.Context, id objectstore.ObjectId) ([]byte, bool) {
	data, err := r.client.Get(ctx, id.String()).Bytes()
	if err == nil {
		return data, true
	}
	return r.fallback.Get(ctx, id)
}

func (r *Redis) Put(ctx context.Context, id objectstore.ObjectId, plaintext []byte) {
	r.client.Set(ctx, id.String(), plaintext, 0)
	r.fallback.Put(ctx, id, plaintext)
}
