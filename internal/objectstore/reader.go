package objectstore

import (
	"context"
)

// ReaderCache is the narrow interface Reader consults, satisfied by
// cache.LRU and cache.Redis; nil disables caching entirely.
type ReaderCache interface {
	Get(ctx context.Context, id ObjectId) ([]byte, bool)
	Put(ctx context.Context, id ObjectId, plaintext []byte)
}

// Reader fetches the object a ChunkPointer refers to, authenticates and
// decrypts the pointed-at range, and decompresses it into a caller buffer.
// Readers are stateless beyond a scratch buffer and independent of one
// another — many may run in parallel against the same backend.
type Reader struct {
	backend  Backend
	compress Compress
	codec    *chunkCodec
	cache    ReaderCache
}

// NewReader builds a Reader. cache may be nil to disable the decrypted-
// object cache entirely (spec.md's hard core omits it).
func NewReader(backend Backend, compress Compress, chunkKey *RawKey, cache ReaderCache) (*Reader, error) {
	var codec *chunkCodec
	if err := chunkKey.Bytes(func(k []byte) error {
		c, err := newChunkCodec(k)
		codec = c
		return err
	}); err != nil {
		return nil, err
	}
	return &Reader{backend: backend, compress: compress, codec: codec, cache: cache}, nil
}

// ReadChunk implements spec.md §4.5. It returns the prefix of target that
// holds the decompressed plaintext.
func (r *Reader) ReadChunk(ctx context.Context, ptr ChunkPointer, target []byte) ([]byte, error) {
	objectBytes, fromCache, err := r.fetchObject(ctx, ptr.ObjectID)
	if err != nil {
		return nil, err
	}

	end := ptr.Offset + ptr.Size
	if end > uint64(len(objectBytes)) {
		return nil, errInvalidInput("chunk pointer range exceeds object size")
	}
	ciphertext := objectBytes[ptr.Offset:end]

	compressed, err := r.codec.Open(nil, ptr.Nonce, ptr.Tag, ciphertext)
	if err != nil {
		return nil, err
	}

	// Only now, after this chunk has verified, is it safe to cache the
	// object's bytes for the next reader — a cache entry always implies
	// at least one chunk inside it has already cleared AEAD verification.
	if r.cache != nil && !fromCache {
		r.cache.Put(ctx, ptr.ObjectID, objectBytes)
	}

	n, err := r.compress.DecompressInto(target, compressed)
	if err != nil {
		return nil, err
	}
	return target[:n], nil
}

// fetchObject consults the cache first, reporting whether the bytes came
// from there. Cache hits still go through AEAD verification in ReadChunk
// for the specific chunk being read — the cache only ever saves a repeat
// backend round trip, never a repeat verification.
func (r *Reader) fetchObject(ctx context.Context, id ObjectId) ([]byte, bool, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, id); ok {
			return cached, true, nil
		}
	}

	data, err := r.backend.ReadObject(ctx, id)
	if err != nil {
		return nil, false, errBackend("reading object", err)
	}
	if len(data) != BlockSize {
		return nil, false, errInvalidInput("backend returned an object of unexpected size")
	}
	return data, false, nil
}
