package objectstore

import (
	"context"
	"sync"
)

// Slack reserves headroom in every object for the worst-case expansion a
// chunk can incur (compression growth on incompressible input, plus the
// AEAD tag), so the rotation check in WriteChunk never has to retry after
// discovering a chunk doesn't fit post-compression.
const Slack = 64 * 1024

// MaxChunkSize is the rotation threshold: WriteChunk starts a fresh object
// once the current cursor plus the next encoded chunk would pass it.
// WriteChunk itself accepts plaintext up to BlockSize bytes, as long as the
// encoded chunk fits in a fresh object.
const MaxChunkSize = BlockSize - Slack

// Writer accepts (hash, plaintext) pairs, compresses and seals them into
// its current Object, rotating to a fresh object on overflow. A Writer is
// owned exclusively by one producer at a time — see balancer.go for the
// shared, leased pool.
type Writer struct {
	backend  Backend
	compress Compress
	codec    *chunkCodec
	rng      Random
	pool     *BufferPool

	mu      sync.Mutex
	current *Object[[]byte]
	scratch []byte // reused compression output buffer
}

// NewWriter builds a Writer. chunkKey is exposed by the archive's
// KeySource; callers derive it once and reuse it across every Writer.
func NewWriter(backend Backend, compress Compress, chunkKey *RawKey, rng Random, pool *BufferPool) (*Writer, error) {
	var codec *chunkCodec
	if err := chunkKey.Bytes(func(k []byte) error {
		c, err := newChunkCodec(k)
		codec = c
		return err
	}); err != nil {
		return nil, err
	}

	w := &Writer{
		backend:  backend,
		compress: compress,
		codec:    codec,
		rng:      rng,
		pool:     pool,
		scratch:  make([]byte, BlockSize),
	}
	if err := w.rotate(rng); err != nil {
		return nil, err
	}
	return w, nil
}

// Clone builds a new Writer sharing this one's backend, codec, compressor
// and pool, but owning its own current Object — the shape the round-robin
// balancer needs to preload N independent lessees.
func (w *Writer) Clone() (*Writer, error) {
	clone := &Writer{
		backend:  w.backend,
		compress: w.compress,
		codec:    w.codec,
		rng:      w.rng,
		pool:     w.pool,
		scratch:  make([]byte, BlockSize),
	}
	if err := clone.rotate(w.rng); err != nil {
		return nil, err
	}
	return clone, nil
}

func (w *Writer) rotate(rng Random) error {
	buf := w.pool.Get()
	obj, err := NewObject(buf, rng)
	if err != nil {
		return err
	}
	w.current = obj
	return nil
}

// finalizeAndPersist finalizes the current object (random tail pad) and
// hands it to the backend, then rotates in a fresh one.
func (w *Writer) finalizeAndPersist(ctx context.Context) error {
	if err := w.current.Finalize(w.rng); err != nil {
		return err
	}
	if err := w.backend.WriteObject(ctx, w.current.ID(), w.current.Bytes()); err != nil {
		return errBackend("persisting object", err)
	}
	finished := w.current
	if err := w.rotate(w.rng); err != nil {
		return err
	}
	w.pool.Put(finished.Bytes())
	return nil
}

// WriteChunk implements spec.md §4.4. The returned ChunkPointer's fields
// uniquely identify a byte range of the object it was written into; once
// returned, that object is either already persisted or guaranteed to be
// persisted by the next rotation or Flush.
func (w *Writer) WriteChunk(ctx context.Context, hash [32]byte, data []byte) (ChunkPointer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if uint64(len(data)) > uint64(BlockSize) {
		return ChunkPointer{}, ErrChunkTooLarge(uint64(len(data)), uint64(BlockSize))
	}

	compressedLen, err := w.compress.CompressInto(w.scratch, data)
	if err != nil {
		return ChunkPointer{}, err
	}
	compressed := w.scratch[:compressedLen]

	encodedSize := compressedLen + chunkTagSize
	if w.current.Cursor()+encodedSize > BlockSize-Slack {
		if err := w.finalizeAndPersist(ctx); err != nil {
			return ChunkPointer{}, err
		}
	}
	if encodedSize > BlockSize {
		return ChunkPointer{}, ErrChunkTooLarge(uint64(len(data)), uint64(BlockSize))
	}

	objectID := w.current.ID()
	offset := uint64(w.current.Cursor())

	dst := make([]byte, compressedLen+chunkTagSize)
	ciphertext, nonce, tag := w.codec.Seal(dst, objectID, offset, hash, compressed)

	if _, err := w.current.Write(ciphertext); err != nil {
		return ChunkPointer{}, err
	}

	return ChunkPointer{
		ObjectID: objectID,
		Offset:   offset,
		Size:     uint64(len(ciphertext)),
		Tag:      tag,
		Nonce:    nonce,
		Hash:     hash,
	}, nil
}

// Flush finalizes the current object even if partially full (random-
// padding the tail) and persists it, then allocates a fresh object so the
// Writer remains usable afterward.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finalizeAndPersist(ctx)
}
