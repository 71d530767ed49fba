package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

func TestLRU_GetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4)
	var id objectstore.ObjectId
	id[0] = 1

	if _, ok := c.Get(ctx, id); ok {
		t.Fatal("expected a miss on an empty cache")
	}
	c.Put(ctx, id, []byte("plaintext"))
	got, ok := c.Get(ctx, id)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if string(got) != "plaintext" {
		t.Fatalf("got %q, want %q", got, "plaintext")
	}
}

func TestLRU_EvictsOldestAtCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)

	var a, b, d objectstore.ObjectId
	a[0], b[0], d[0] = 1, 2, 3

	c.Put(ctx, a, []byte("a"))
	c.Put(ctx, b, []byte("b"))
	c.Put(ctx, d, []byte("d")) // evicts a, the least recently used

	if _, ok := c.Get(ctx, a); ok {
		t.Fatal("expected the oldest entry to be evicted at capacity")
	}
	if _, ok := c.Get(ctx, b); !ok {
		t.Fatal("expected b to survive eviction")
	}
	if _, ok := c.Get(ctx, d); !ok {
		t.Fatal("expected d to survive eviction")
	}
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)

	var a, b, d objectstore.ObjectId
	a[0], b[0], d[0] = 1, 2, 3

	c.Put(ctx, a, []byte("a"))
	c.Put(ctx, b, []byte("b"))
	c.Get(ctx, a) // a is now most-recently-used; b becomes the eviction candidate
	c.Put(ctx, d, []byte("d"))

	if _, ok := c.Get(ctx, b); ok {
		t.Fatal("expected b to be evicted after a was refreshed")
	}
	if _, ok := c.Get(ctx, a); !ok {
		t.Fatal("expected a to survive because it was refreshed")
	}
}

func TestLRU_GetReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)
	var id objectstore.ObjectId
	id[0] = 1
	c.Put(ctx, id, []byte("stable"))

	got, _ := c.Get(ctx, id)
	got[0] = 'X'

	got2, _ := c.Get(ctx, id)
	if got2[0] == 'X' {
		t.Fatal("expected mutating a returned slice not to affect the cached entry")
	}
}

func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

func TestRedis_GetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := newMiniredisClient(t)
	r := NewRedis(client, 16)

	var id objectstore.ObjectId
	id[0] = 4
	r.Put(ctx, id, []byte("from redis"))

	got, ok := r.Get(ctx, id)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if string(got) != "from redis" {
		t.Fatalf("got %q, want %q", got, "from redis")
	}
}

func TestRedis_FallsBackToLRUWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	r := NewRedis(client, 16)

	var id objectstore.ObjectId
	id[0] = 5
	r.Put(ctx, id, []byte("before outage"))

	mr.Close() // Redis is now unreachable; Put/Get must fall back to the LRU silently

	r.Put(ctx, id, []byte("during outage"))
	got, ok := r.Get(ctx, id)
	if !ok {
		t.Fatal("expected the fallback LRU to serve a hit while Redis is unreachable")
	}
	if string(got) != "during outage" {
		t.Fatalf("got %q, want %q", got, "during outage")
	}
}

func TestRedis_GetMissDoesNotError(t *testing.T) {
	ctx := context.Background()
	client, _ := newMiniredisClient(t)
	r := NewRedis(client, 16)

	var id objectstore.ObjectId
	id[0] = 6
	if _, ok := r.Get(ctx, id); ok {
		t.Fatal("expected a miss for an unset key")
	}
}
