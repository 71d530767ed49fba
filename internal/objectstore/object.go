package objectstore

import "io"

// BlockSize is the fixed capacity of every Object buffer. Objects are
// written to and read from the backend as exactly this many bytes.
const BlockSize = 4 << 20 // 4 MiB, per the teacher's pooled-buffer sizing note

// Buffer is the narrow slice-like constraint an Object's backing storage
// must satisfy. A plain []byte satisfies it; so does any named byte-slice
// type drawn from a pool.
type Buffer interface {
	~[]byte
}

// Object is a fixed-capacity, cursor-addressed block: the unit of backend
// I/O. cursor is always in [0, BlockSize]; writes past capacity fail.
type Object[B Buffer] struct {
	id     ObjectId
	buf    B
	cursor int
}

// NewObject allocates an Object backed by buf, which must have length
// BlockSize, and assigns it a fresh identifier.
func NewObject[B Buffer](buf B, rng Random) (*Object[B], error) {
	if len(buf) != BlockSize {
		return nil, errInvalidInput("object buffer must be exactly BlockSize bytes")
	}
	o := &Object[B]{buf: buf}
	if err := o.ResetID(rng); err != nil {
		return nil, err
	}
	return o, nil
}

// ID returns the object's current identifier.
func (o *Object[B]) ID() ObjectId { return o.id }

// Cursor returns the current write/read position.
func (o *Object[B]) Cursor() int { return o.cursor }

// Bytes exposes the full backing buffer. Callers must not retain it past
// the next Clear/ResetID call.
func (o *Object[B]) Bytes() []byte { return []byte(o.buf) }

// Write appends p at the cursor. It fails with InvalidInput if the write
// would exceed BlockSize; otherwise it always writes all of p (io.Writer
// contract) and advances the cursor.
func (o *Object[B]) Write(p []byte) (int, error) {
	if o.cursor+len(p) > BlockSize {
		return 0, errInvalidInput("write exceeds object capacity")
	}
	n := copy(o.buf[o.cursor:], p)
	o.cursor += n
	return n, nil
}

// Read copies from the cursor into p, advancing it, io.Reader-style.
func (o *Object[B]) Read(p []byte) (int, error) {
	if o.cursor >= BlockSize {
		return 0, io.EOF
	}
	n := copy(p, o.buf[o.cursor:])
	o.cursor += n
	return n, nil
}

// Seek implements io.Seeker with range checking: any computed offset
// outside [0, BlockSize] is an InvalidInput error, matching the object
// buffer's fixed-capacity invariant rather than silently clamping.
func (o *Object[B]) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(o.cursor) + offset
	case io.SeekEnd:
		target = int64(BlockSize) + offset
	default:
		return 0, errInvalidInput("unknown seek whence")
	}
	if target < 0 || target > int64(BlockSize) {
		return 0, errInvalidInput("seek target out of range")
	}
	o.cursor = int(target)
	return target, nil
}

// Finalize fills [cursor, BlockSize) with cryptographically random bytes so
// that the persisted object is indistinguishable from random noise of
// length BlockSize, regardless of how much of it carries real ciphertext.
func (o *Object[B]) Finalize(rng Random) error {
	if o.cursor >= BlockSize {
		return nil
	}
	if err := rng.Fill(o.buf[o.cursor:]); err != nil {
		return err
	}
	o.cursor = BlockSize
	return nil
}

// Clear zeroes the entire buffer and rewinds the cursor. It does not
// change the identifier; pair with ResetID when recycling into a pool.
func (o *Object[B]) Clear() {
	for i := range o.buf {
		o.buf[i] = 0
	}
	o.cursor = 0
}

// ResetID draws a fresh ObjectId, used whenever an Object is recycled for
// a new backend blob.
func (o *Object[B]) ResetID(rng Random) error {
	id, err := newObjectId(rng)
	if err != nil {
		return err
	}
	o.id = id
	return nil
}
