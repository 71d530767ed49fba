package objectstore

import "encoding/binary"

// ChunkPointer identifies a byte range of exactly one persisted object:
// the authenticated-encryption framing needed to recover the original
// chunk. It is produced only by a Writer and consumed only by a Reader or
// the index layer (out of scope here); holders must treat it as opaque.
type ChunkPointer struct {
	ObjectID ObjectId
	Offset   uint64
	Size     uint64
	Tag      [16]byte
	Nonce    [12]byte
	Hash     [32]byte
}

// rawChunkPointerSize is the on-disk width of the pointer embedded in a
// SealedHeader's root_ptr field. It differs from the general-purpose wire
// form (ChunkPointer.Marshal) because the header format fixes 88 bytes for
// this field: ObjectID(32) + Offset(8) + Size(8) + Tag(16) + Nonce(12) +
// Hash truncated to 12 bytes = 88. Decryption of the root object only ever
// needs Tag and Nonce, both preserved in full; the complete 32-byte Hash is
// only consumed by the (out-of-scope) index/dedup layer, so truncating it
// here is safe.
const rawChunkPointerSize = 88
const rawChunkPointerHashLen = 12

// MarshalRaw encodes p into the fixed 88-byte form used inside a sealed
// header's root_ptr field.
func (p ChunkPointer) MarshalRaw() [rawChunkPointerSize]byte {
	var out [rawChunkPointerSize]byte
	off := 0
	copy(out[off:], p.ObjectID[:])
	off += 32
	binary.BigEndian.PutUint64(out[off:], p.Offset)
	off += 8
	binary.BigEndian.PutUint64(out[off:], p.Size)
	off += 8
	copy(out[off:], p.Tag[:])
	off += 16
	copy(out[off:], p.Nonce[:])
	off += 12
	copy(out[off:], p.Hash[:rawChunkPointerHashLen])
	return out
}

// UnmarshalRawChunkPointer decodes the 88-byte header root_ptr form. The recovered
// Hash carries only the stored 12-byte prefix, zero-padded; callers that
// need the full content hash must track it separately (it is not
// recoverable from the header alone).
func UnmarshalRawChunkPointer(raw []byte) (ChunkPointer, error) {
	if len(raw) != rawChunkPointerSize {
		return ChunkPointer{}, errDeserialize("raw chunk pointer has wrong length", nil)
	}
	var p ChunkPointer
	off := 0
	copy(p.ObjectID[:], raw[off:off+32])
	off += 32
	p.Offset = binary.BigEndian.Uint64(raw[off : off+8])
	off += 8
	p.Size = binary.BigEndian.Uint64(raw[off : off+8])
	off += 8
	copy(p.Tag[:], raw[off:off+16])
	off += 16
	copy(p.Nonce[:], raw[off:off+12])
	off += 12
	copy(p.Hash[:rawChunkPointerHashLen], raw[off:off+rawChunkPointerHashLen])
	return p, nil
}

// wirePointerSize is the general-purpose index/wire encoding: the same
// fields as ChunkPointer at full width, used anywhere other than the
// sealed header (where the 88-byte budget applies instead).
const wirePointerSize = 32 + 8 + 8 + 16 + 12 + 32

// Marshal encodes p as an opaque byte string. parse(serialize(p)) == p
// for every field, satisfying the round-trip invariant the index layer
// requires.
func (p ChunkPointer) Marshal() []byte {
	out := make([]byte, wirePointerSize)
	off := 0
	copy(out[off:], p.ObjectID[:])
	off += 32
	binary.BigEndian.PutUint64(out[off:], p.Offset)
	off += 8
	binary.BigEndian.PutUint64(out[off:], p.Size)
	off += 8
	copy(out[off:], p.Tag[:])
	off += 16
	copy(out[off:], p.Nonce[:])
	off += 12
	copy(out[off:], p.Hash[:])
	return out
}

// UnmarshalChunkPointer parses the byte string produced by Marshal.
func UnmarshalChunkPointer(raw []byte) (ChunkPointer, error) {
	if len(raw) != wirePointerSize {
		return ChunkPointer{}, errDeserialize("chunk pointer has wrong length", nil)
	}
	var p ChunkPointer
	off := 0
	copy(p.ObjectID[:], raw[off:off+32])
	off += 32
	p.Offset = binary.BigEndian.Uint64(raw[off : off+8])
	off += 8
	p.Size = binary.BigEndian.Uint64(raw[off : off+8])
	off += 8
	copy(p.Tag[:], raw[off:off+16])
	off += 16
	copy(p.Nonce[:], raw[off:off+12])
	off += 12
	copy(p.Hash[:], raw[off:off+32])
	return p, nil
}
