package objectstore

import (
	"context"
	"sync"
)

// Balancer is the bounded pool of clone-able Writers spec.md §4.6
// describes: exactly N writer slots exist at all times, leased one at a
// time, always re-enqueued — even on the error path — so capacity is
// never lost. Modeled as message passing over a buffered channel rather
// than an explicit mutex, which gives correct flush semantics by
// construction (spec.md §9's "balancer as message passing" note).
type Balancer struct {
	slots chan *Writer
	n     int
}

// NewBalancer preloads a channel of capacity n with writer itself plus
// n-1 clones of it.
func NewBalancer(writer *Writer, n int) (*Balancer, error) {
	if n <= 0 {
		return nil, errInvalidInput("balancer requires at least one writer")
	}
	b := &Balancer{slots: make(chan *Writer, n), n: n}
	b.slots <- writer
	for i := 1; i < n; i++ {
		clone, err := writer.Clone()
		if err != nil {
			return nil, err
		}
		b.slots <- clone
	}
	return b, nil
}

// WriteChunk leases one writer, invokes WriteChunk on it, and re-enqueues
// it regardless of outcome.
func (b *Balancer) WriteChunk(ctx context.Context, hash [32]byte, data []byte) (ptr ChunkPointer, err error) {
	w, ok := <-b.slots
	if !ok {
		return ChunkPointer{}, errFatal("balancer channel closed", nil)
	}
	defer func() { b.slots <- w }()

	ptr, err = w.WriteChunk(ctx, hash, data)
	return ptr, err
}

// Flush dequeues all N writers, flushes each (concurrently, with panic
// containment per writer), and re-enqueues every one of them. After Flush
// returns, every chunk submitted before the call is durable in the
// backend.
func (b *Balancer) Flush(ctx context.Context) error {
	leased := make([]*Writer, 0, b.n)
	for i := 0; i < b.n; i++ {
		w, ok := <-b.slots
		if !ok {
			return errFatal("balancer channel closed during flush", nil)
		}
		leased = append(leased, w)
	}
	defer func() {
		for _, w := range leased {
			b.slots <- w
		}
	}()

	var wg sync.WaitGroup
	errs := make([]error, len(leased))
	for i, w := range leased {
		wg.Add(1)
		go func(i int, w *Writer) {
			defer wg.Done()
			defer recoverToError(&errs[i])
			if err := w.Flush(ctx); err != nil {
				errs[i] = err
			}
		}(i, w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// N reports the fixed number of writer slots this balancer manages.
func (b *Balancer) N() int { return b.n }
