package objectstore

import (
	"context"
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

// argon2idParams mirror the interactive-login defaults used throughout the
// reference corpus's password hashing (DataDog-go-secure-sdk's
// argon2id_deriver.go): tuned for a few hundred milliseconds on commodity
// hardware, not for high-throughput server-side password checks.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// deriveMasterKey reproduces the archive's root secret from credentials.
// context is the scheme-specific salt string fixed by spec.md §4.2/§4.3;
// the Argon2id salt is its 32-byte SHA-256 digest, and username is folded
// into the Argon2id password input (username || 0x00 || password) rather
// than the salt, so there is one fixed salt per scheme.
func deriveMasterKey(context, username, password string) *RawKey {
	salt := sha256.Sum256([]byte(context))
	combined := append([]byte(username), 0)
	combined = append(combined, []byte(password)...)
	derived := argon2.IDKey(combined, salt[:], argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	k := NewRawKey(derived)
	for i := range derived {
		derived[i] = 0
	}
	return k
}

const symmetricMasterKeyContext = "zerostash.com yubikey cr master key"

// Symmetric is the baseline KeySource: AES-256-GCM header sealing keyed
// directly off the Argon2id master key, no second factor.
type Symmetric struct {
	masterKey      *RawKey
	convergenceKey *RawKey
	rng            Random
}

// NewSymmetricFromCredentials derives master_key = Argon2id(...) and draws
// a fresh convergence_key, matching spec.md §4.2 scheme creation.
func NewSymmetricFromCredentials(username, password string, rng Random) (*Symmetric, error) {
	convKey, err := RandomRawKey(rng)
	if err != nil {
		return nil, err
	}
	return &Symmetric{
		masterKey:      deriveMasterKey(symmetricMasterKeyContext, username, password),
		convergenceKey: convKey,
		rng:            rng,
	}, nil
}

// newSymmetricFromMasterKey reconstructs a Symmetric KeySource around an
// already-derived master key, used by the hardware and KMIP variants to
// compose their inner chunk/index/storage key hierarchy (spec.md §9's
// "cyclic ownership" note: inner does not point back, so this is a plain
// value composition, not a cycle).
func newSymmetricFromMasterKey(masterKey, convergenceKey *RawKey, rng Random) *Symmetric {
	return &Symmetric{masterKey: masterKey, convergenceKey: convergenceKey, rng: rng}
}

func (s *Symmetric) Mode() Mode { return ModeSymmetric }

const rootObjectIDContext = "zerostash.com 2024 root object id"

// RootObjectID derives the root object's identifier from the master key
// alone, so the archive can be located before any header has been read —
// it must be deterministic under the same credentials, not random.
func (s *Symmetric) RootObjectID() (ObjectId, error) {
	var id ObjectId
	if err := s.masterKey.Bytes(func(k []byte) error {
		derived := deriveSubKey(rootObjectIDContext, k)
		return derived.Bytes(func(d []byte) error {
			copy(id[:], d)
			return nil
		})
	}); err != nil {
		return ObjectId{}, err
	}
	return id, nil
}

func (s *Symmetric) headerKey() ([]byte, error) {
	var key []byte
	err := s.masterKey.Bytes(func(k []byte) error {
		key = append([]byte(nil), k...)
		return nil
	})
	return key, err
}

func (s *Symmetric) OpenRoot(_ context.Context, sealed SealedHeader) (CleartextHeader, error) {
	key, err := s.headerKey()
	if err != nil {
		return CleartextHeader{}, err
	}
	defer wipe(key)

	payload, err := openWithKey(key, sealed)
	if err != nil {
		return CleartextHeader{}, err
	}
	rootPtr, mode, convKey, err := decodePayload(payload[:])
	if err != nil {
		return CleartextHeader{}, err
	}
	if mode != ModeSymmetric {
		return CleartextHeader{}, errInvalidHeader("mode byte mismatch for symmetric source")
	}
	opened := newSymmetricFromMasterKey(s.masterKey, NewRawKey(convKey[:]), s.rng)
	return CleartextHeader{RootPtr: rootPtr, Key: opened}, nil
}

func (s *Symmetric) SealRoot(_ context.Context, header CleartextHeader) (SealedHeader, error) {
	key, err := s.headerKey()
	if err != nil {
		return SealedHeader{}, err
	}
	defer wipe(key)

	var convKeyBytes []byte
	if err := s.convergenceKey.Bytes(func(k []byte) error {
		convKeyBytes = append([]byte(nil), k...)
		return nil
	}); err != nil {
		return SealedHeader{}, err
	}
	defer wipe(convKeyBytes)

	payload := encodePayload(header.RootPtr, ModeSymmetric, convKeyBytes)
	reserved, err := randomReservedSlot(s.rng)
	if err != nil {
		return SealedHeader{}, err
	}
	return sealWithKey(key, s.rng, payload, reserved)
}

func (s *Symmetric) ChunkKey() *RawKey {
	return deriveWithMasterKey(s.masterKey, deriveChunkKey)
}

func (s *Symmetric) IndexKey() *RawKey {
	return deriveWithMasterKey(s.masterKey, deriveIndexKey)
}

func (s *Symmetric) StorageKey() *RawKey {
	return deriveWithMasterKey(s.masterKey, deriveStorageKey)
}

func (s *Symmetric) ExposeConvergenceKey() (*RawKey, bool) { return s.convergenceKey, true }

func deriveWithMasterKey(masterKey *RawKey, derive func([]byte) *RawKey) *RawKey {
	var out *RawKey
	_ = masterKey.Bytes(func(k []byte) error {
		out = derive(k)
		return nil
	})
	return out
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
