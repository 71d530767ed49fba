package objectstore

import "context"

// Backend is the pluggable byte-blob store the core fronts. Implementations
// must be safe for concurrent use; writes to distinct ObjectIds are
// independent of one another. Every object is exactly BlockSize bytes.
type Backend interface {
	ReadObject(ctx context.Context, id ObjectId) ([]byte, error)
	WriteObject(ctx context.Context, id ObjectId, data []byte) error
	DeleteObject(ctx context.Context, id ObjectId) error
}
