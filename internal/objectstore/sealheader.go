package objectstore

import (
	"crypto/aes"
	"crypto/cipher"
)

// SealedHeader is the fixed 512-byte root capability. Byte-exact layout,
// per spec.md §3:
//
//	[0 .. HP)          ciphertext payload: root_ptr(88) || mode(1) || convergence_key(32) || zero pad
//	[HP .. HP+16)      AEAD tag
//	[HC .. HC+12)      nonce
//	[HC+12 .. 512)     64-byte challenge (hardware variant), KMIP envelope
//	                   (KMIP-wrapped variant), or random (symmetric variant)
//
// where HC = 512 - 12 - 64, HP = HC - 16.
type SealedHeader [512]byte

const (
	sealedHeaderSize  = 512
	reservedSlotSize  = 64
	headerNonceSize   = 12
	headerTagSize     = 16
	headerCiphertext  = sealedHeaderSize - headerNonceSize - reservedSlotSize // HC = 436
	headerPayloadSize = headerCiphertext - headerTagSize                     // HP = 420
)

// payloadModeOffset and payloadConvKeyOffset locate the two cleartext fields that
// follow the 88-byte raw chunk pointer inside the payload.
const (
	payloadRootPtrOffset  = 0
	payloadModeOffset     = rawChunkPointerSize
	payloadConvKeyOffset  = payloadModeOffset + 1
	payloadUsedBytes      = payloadConvKeyOffset + 32
)

// encodePayload writes root_ptr || mode || convergence_key into a
// headerPayloadSize-byte buffer, zero-padding the remainder.
func encodePayload(rootPtr ChunkPointer, mode Mode, convergenceKey []byte) [headerPayloadSize]byte {
	var payload [headerPayloadSize]byte
	raw := rootPtr.MarshalRaw()
	copy(payload[payloadRootPtrOffset:], raw[:])
	payload[payloadModeOffset] = byte(mode)
	copy(payload[payloadConvKeyOffset:], convergenceKey)
	return payload
}

func decodePayload(payload []byte) (ChunkPointer, Mode, [32]byte, error) {
	if len(payload) < payloadUsedBytes {
		return ChunkPointer{}, 0, [32]byte{}, errInvalidHeader("decrypted payload too short")
	}
	rootPtr, err := UnmarshalRawChunkPointer(payload[payloadRootPtrOffset : payloadRootPtrOffset+rawChunkPointerSize])
	if err != nil {
		return ChunkPointer{}, 0, [32]byte{}, err
	}
	mode, err := modeFromByte(payload[payloadModeOffset])
	if err != nil {
		return ChunkPointer{}, 0, [32]byte{}, err
	}
	var convKey [32]byte
	copy(convKey[:], payload[payloadConvKeyOffset:payloadUsedBytes])
	return rootPtr, mode, convKey, nil
}

// sealWithKey seals payload/reserved into a SealedHeader using headerKey as
// the AES-256-GCM key. reserved must be exactly reservedSlotSize bytes; it
// is written to the header in plaintext (authenticated only implicitly, by
// participating in header_key derivation for the hardware and KMIP
// variants — wrong reserved bytes there produce a wrong key).
func sealWithKey(headerKey []byte, rng Random, payload [headerPayloadSize]byte, reserved [reservedSlotSize]byte) (SealedHeader, error) {
	var out SealedHeader

	var nonce [headerNonceSize]byte
	if err := rng.Fill(nonce[:]); err != nil {
		return out, err
	}

	block, err := aes.NewCipher(headerKey)
	if err != nil {
		return out, errFatal("initializing header cipher", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, headerNonceSize)
	if err != nil {
		return out, errFatal("initializing header AEAD", err)
	}

	sealed := gcm.Seal(nil, nonce[:], payload[:], nil)
	ciphertext := sealed[:len(sealed)-headerTagSize]
	tag := sealed[len(sealed)-headerTagSize:]

	copy(out[0:headerPayloadSize], ciphertext)
	copy(out[headerPayloadSize:headerPayloadSize+headerTagSize], tag)
	copy(out[headerCiphertext:headerCiphertext+headerNonceSize], nonce[:])
	copy(out[headerCiphertext+headerNonceSize:], reserved[:])
	return out, nil
}

// openWithKey decrypts a SealedHeader's ciphertext and returns the
// cleartext payload. AEAD verification failure surfaces as AeadFailed.
func openWithKey(headerKey []byte, sealed SealedHeader) ([headerPayloadSize]byte, error) {
	var payload [headerPayloadSize]byte

	block, err := aes.NewCipher(headerKey)
	if err != nil {
		return payload, errFatal("initializing header cipher", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, headerNonceSize)
	if err != nil {
		return payload, errFatal("initializing header AEAD", err)
	}

	nonce := sealed[headerCiphertext : headerCiphertext+headerNonceSize]
	ciphertext := make([]byte, 0, headerCiphertext+headerTagSize)
	ciphertext = append(ciphertext, sealed[0:headerPayloadSize]...)
	ciphertext = append(ciphertext, sealed[headerPayloadSize:headerPayloadSize+headerTagSize]...)

	opened, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return payload, errAeadFailed("header authentication failed", err)
	}
	copy(payload[:], opened)
	return payload, nil
}

// reservedSlot extracts the 64-byte slot holding the hardware challenge,
// KMIP envelope, or random filler, depending on mode.
func reservedSlot(sealed SealedHeader) [reservedSlotSize]byte {
	var slot [reservedSlotSize]byte
	copy(slot[:], sealed[headerCiphertext+headerNonceSize:])
	return slot
}

func randomReservedSlot(rng Random) ([reservedSlotSize]byte, error) {
	var slot [reservedSlotSize]byte
	if err := rng.Fill(slot[:]); err != nil {
		return slot, err
	}
	return slot, nil
}
