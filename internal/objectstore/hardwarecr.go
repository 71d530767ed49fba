package objectstore

import (
	"context"

	"lukechampine.com/blake3"
)

// DeviceOracle models the opaque hardware second factor: a challenge-
// response HMAC device reached over USB HID or similar. The transport
// itself is an external collaborator (spec.md §1); only a test double
// ships with this module (see devicefake).
type DeviceOracle interface {
	// ChallengeResponseHMAC computes HMAC-SHA1(device_secret, challenge).
	// Implementations must distinguish "device absent / timeout / error"
	// from a normal response so callers can surface Fatal instead of
	// silently treating a missing device as a wrong response.
	ChallengeResponseHMAC(ctx context.Context, challenge [64]byte) ([20]byte, error)
}

const hardwareHeaderKeyContext = "zerostash.com 2022 yubikey challenge-response"

// HardwareChallengeResponse seals the header under a key derived from the
// master key mixed with a device's HMAC response to a per-seal random
// challenge — spec.md §4.3.
type HardwareChallengeResponse struct {
	inner  *Symmetric
	device DeviceOracle
	rng    Random
}

// NewHardwareChallengeResponse composes a hardware-backed KeySource around
// an already-derived master key and convergence key. The inner field does
// not point back to the outer struct — spec.md §9's "cyclic ownership"
// note describes plain value composition, not an actual cycle.
func NewHardwareChallengeResponse(masterKey, convergenceKey *RawKey, device DeviceOracle, rng Random) *HardwareChallengeResponse {
	return &HardwareChallengeResponse{
		inner:  newSymmetricFromMasterKey(masterKey, convergenceKey, rng),
		device: device,
		rng:    rng,
	}
}

func (h *HardwareChallengeResponse) Mode() Mode { return ModeHardwareChallengeResponse }

func (h *HardwareChallengeResponse) RootObjectID() (ObjectId, error) { return h.inner.RootObjectID() }

// headerKey computes BLAKE3-KDF(ctx, master_key || device_response(challenge)).
// Device failure (absent, error, touch timeout) surfaces as Fatal here,
// distinct from the AeadFailed a wrong device or tampered header produces
// once decryption is attempted.
func (h *HardwareChallengeResponse) headerKey(ctx context.Context, challenge [64]byte) ([]byte, error) {
	response, err := h.device.ChallengeResponseHMAC(ctx, challenge)
	if err != nil {
		return nil, errFatal("hardware challenge-response failed", err)
	}

	var keyed []byte
	if err := h.inner.masterKey.Bytes(func(mk []byte) error {
		keyed = append(keyed, mk...)
		keyed = append(keyed, response[:]...)
		return nil
	}); err != nil {
		return nil, err
	}
	defer wipe(keyed)

	var derived [32]byte
	blake3.DeriveKey(derived[:], hardwareHeaderKeyContext, keyed)
	out := append([]byte(nil), derived[:]...)
	wipe(derived[:])
	return out, nil
}

func (h *HardwareChallengeResponse) OpenRoot(ctx context.Context, sealed SealedHeader) (CleartextHeader, error) {
	challenge := reservedSlot(sealed)

	key, err := h.headerKey(ctx, challenge)
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
	if mode != ModeHardwareChallengeResponse {
		return CleartextHeader{}, errInvalidHeader("mode byte mismatch for hardware source")
	}
	opened := &HardwareChallengeResponse{
		inner:  newSymmetricFromMasterKey(h.inner.masterKey, NewRawKey(convKey[:]), h.rng),
		device: h.device,
		rng:    h.rng,
	}
	return CleartextHeader{RootPtr: rootPtr, Key: opened}, nil
}

func (h *HardwareChallengeResponse) SealRoot(ctx context.Context, header CleartextHeader) (SealedHeader, error) {
	var challenge [64]byte
	if err := h.rng.Fill(challenge[:]); err != nil {
		return SealedHeader{}, err
	}

	key, err := h.headerKey(ctx, challenge)
	if err != nil {
		return SealedHeader{}, err
	}
	defer wipe(key)

	var convKeyBytes []byte
	if err := h.inner.convergenceKey.Bytes(func(k []byte) error {
		convKeyBytes = append([]byte(nil), k...)
		return nil
	}); err != nil {
		return SealedHeader{}, err
	}
	defer wipe(convKeyBytes)

	payload := encodePayload(header.RootPtr, ModeHardwareChallengeResponse, convKeyBytes)
	var reserved [reservedSlotSize]byte
	copy(reserved[:], challenge[:])
	return sealWithKey(key, h.rng, payload, reserved)
}

func (h *HardwareChallengeResponse) ChunkKey() *RawKey   { return h.inner.ChunkKey() }
func (h *HardwareChallengeResponse) IndexKey() *RawKey   { return h.inner.IndexKey() }
func (h *HardwareChallengeResponse) StorageKey() *RawKey { return h.inner.StorageKey() }

func (h *HardwareChallengeResponse) ExposeConvergenceKey() (*RawKey, bool) {
	return h.inner.ExposeConvergenceKey()
}
