package objectstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Context strings separating the chunk codec's two HKDF-derived sub-keys
// from the chunk_key passed in. Same key-separation idiom as an AEAD that
// derives distinct encryption/nonce keys from one base secret; here the
// per-chunk nonce is derived deterministically from the chunk's position
// and content hash rather than from the plaintext, so identical content
// re-encrypted at the same (object_id, offset) is bit-for-bit identical
// ciphertext (spec invariant 4, convergent ciphertext).
const (
	chunkEncKeyContext   = "zerostash.com 2024 chunk encryption key"
	chunkNonceKeyContext = "zerostash.com 2024 chunk nonce key"
)

const chunkTagSize = 16
const chunkNonceSize = 12

// chunkCodec seals and opens individual chunks with AES-256-GCM keyed off
// a single chunk_key; nonces never leave the deterministic derivation
// below, so callers never supply or see a random nonce.
type chunkCodec struct {
	gcm cipher.AEAD
	// the nonce HMAC is built fresh from nonceKey on every call rather than
	// held open, since Go's hmac instances are not safe for concurrent reuse
	// across goroutines.
	nonceKey [32]byte
}

func newChunkCodec(chunkKey []byte) (*chunkCodec, error) {
	var encKey [32]byte
	encKDF := hkdf.New(sha256.New, chunkKey, nil, []byte(chunkEncKeyContext))
	if _, err := io.ReadFull(encKDF, encKey[:]); err != nil {
		return nil, errFatal("deriving chunk encryption key", err)
	}
	defer func() {
		for i := range encKey {
			encKey[i] = 0
		}
	}()

	block, err := aes.NewCipher(encKey[:])
	if err != nil {
		return nil, errFatal("initializing chunk cipher", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, chunkNonceSize)
	if err != nil {
		return nil, errFatal("initializing chunk AEAD", err)
	}

	c := &chunkCodec{gcm: gcm}
	nonceKDF := hkdf.New(sha256.New, chunkKey, nil, []byte(chunkNonceKeyContext))
	if _, err := io.ReadFull(nonceKDF, c.nonceKey[:]); err != nil {
		return nil, errFatal("deriving chunk nonce key", err)
	}
	return c, nil
}

// deriveNonce computes the deterministic 12-byte nonce for a chunk at
// (objectID, offset) with content hash. HMAC-SHA256 truncated to 12 bytes,
// same construction as DataDog's d5 deterministic AEAD, with the MAC input
// switched from plaintext to the chunk's position+identity so that
// convergence holds per (object, offset) rather than per plaintext alone.
func (c *chunkCodec) deriveNonce(objectID ObjectId, offset uint64, hash [32]byte) [chunkNonceSize]byte {
	mac := hmac.New(sha256.New, c.nonceKey[:])
	mac.Write(objectID[:])
	var offBuf [8]byte
	binary.BigEndian.PutUint64(offBuf[:], offset)
	mac.Write(offBuf[:])
	mac.Write(hash[:])
	sum := mac.Sum(nil)
	var nonce [chunkNonceSize]byte
	copy(nonce[:], sum[:chunkNonceSize])
	return nonce
}

// Seal encrypts plaintext in place into dst (which must have capacity for
// len(plaintext)+tag), returning the ciphertext, nonce and tag. The tag is
// returned separately per spec.md's ChunkPointer layout (tag travels with
// the pointer, not inline in the object).
func (c *chunkCodec) Seal(dst []byte, objectID ObjectId, offset uint64, hash [32]byte, plaintext []byte) (ciphertext []byte, nonce [chunkNonceSize]byte, tag [chunkTagSize]byte) {
	nonce = c.deriveNonce(objectID, offset, hash)
	sealed := c.gcm.Seal(dst[:0], nonce[:], plaintext, nil)
	ciphertext = sealed[:len(sealed)-chunkTagSize]
	copy(tag[:], sealed[len(sealed)-chunkTagSize:])
	return ciphertext, nonce, tag
}

// Open authenticates and decrypts a chunk given its pointer fields and the
// raw ciphertext bytes (without trailing tag, which is supplied
// separately). Verification failure surfaces as AeadFailed, never as a
// generic error, so callers can distinguish tamper/wrong-key from I/O.
func (c *chunkCodec) Open(dst []byte, nonce [chunkNonceSize]byte, tag [chunkTagSize]byte, ciphertext []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+chunkTagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag[:]...)
	plaintext, err := c.gcm.Open(dst[:0], nonce[:], sealed, nil)
	if err != nil {
		return nil, errAeadFailed("chunk authentication failed", err)
	}
	return plaintext, nil
}
