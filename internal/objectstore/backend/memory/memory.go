// Package memory provides an in-process Backend implementation used by
// tests and small single-process archives.
package memory

import (
	"context"
	"sync"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

// Backend stores objects in a guarded map. Unlike the reference
// NullStorage test double it is built on, it retains bytes: the property
// tests and the S3 backend's contract both require round-trip reads.
type Backend struct {
	mu      sync.RWMutex
	objects map[objectstore.ObjectId][]byte
	written int // total bytes ever written
}

// New constructs an empty in-memory backend.
func New() *Backend {
	return &Backend{objects: make(map[objectstore.ObjectId][]byte)}
}

func (b *Backend) ReadObject(_ context.Context, id objectstore.ObjectId) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[id]
	if !ok {
		return nil, objectstore.ErrBackendMissing(id)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *Backend) WriteObject(_ context.Context, id objectstore.ObjectId, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	b.objects[id] = stored
	b.written += len(data)
	return nil
}

func (b *Backend) DeleteObject(_ context.Context, id objectstore.ObjectId) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, id)
	return nil
}

// Len reports how many objects currently exist, for test assertions like
// "at least two distinct ObjectIds appear" (spec scenario S3).
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
