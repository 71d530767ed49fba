package objectstore

import "context"

// Mode is the one-byte tagged discriminant persisted in every SealedHeader
// identifying which KeySource variant reconstructs it on open. The
// discriminant space is closed: unknown values fail with InvalidHeader.
type Mode byte

const (
	ModeSymmetric                 Mode = 0
	ModeHardwareChallengeResponse Mode = 1
	ModeKMIPWrapped               Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeSymmetric:
		return "symmetric"
	case ModeHardwareChallengeResponse:
		return "hardware-challenge-response"
	case ModeKMIPWrapped:
		return "kmip-wrapped"
	default:
		return "unknown"
	}
}

// CleartextHeader is the decoded form of a SealedHeader: the archive's root
// pointer plus the KeySource that can re-seal it.
type CleartextHeader struct {
	RootPtr ChunkPointer
	Key     KeySource
}

// KeySource is the capability set every header-sealing scheme implements.
// Handles are immutable after construction and safe to share across
// goroutines.
type KeySource interface {
	// Mode returns this source's on-disk discriminant.
	Mode() Mode
	// RootObjectID returns the object identifier the root pointer lives in,
	// used to bootstrap discovery before the header itself is available.
	RootObjectID() (ObjectId, error)
	// OpenRoot decrypts a SealedHeader into its cleartext contents.
	OpenRoot(ctx context.Context, sealed SealedHeader) (CleartextHeader, error)
	// SealRoot encrypts a CleartextHeader into its on-disk form.
	SealRoot(ctx context.Context, header CleartextHeader) (SealedHeader, error)
	// ChunkKey, IndexKey, StorageKey return the sub-keys BLAKE3-KDF derives
	// from this source's master key.
	ChunkKey() *RawKey
	IndexKey() *RawKey
	StorageKey() *RawKey
	// ExposeConvergenceKey returns the per-archive convergence key, if this
	// source holds one (all known variants do).
	ExposeConvergenceKey() (*RawKey, bool)
}

// modeFromByte validates a sealed header's mode byte against the closed
// discriminant space, failing closed on any value outside the three known
// modes (spec invariant 8). decodePayload calls this before a KeySource's
// own mode-match check ever runs, so a corrupt or unknown mode byte is
// rejected uniformly regardless of which scheme is attempting to open it.
func modeFromByte(b byte) (Mode, error) {
	switch Mode(b) {
	case ModeSymmetric, ModeHardwareChallengeResponse, ModeKMIPWrapped:
		return Mode(b), nil
	default:
		return 0, errInvalidHeader("unknown mode byte")
	}
}
