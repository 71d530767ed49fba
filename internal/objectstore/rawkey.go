package objectstore

import (
	"github.com/awnumar/memguard"
)

// RawKey is a 32-byte secret held in a guarded, zero-on-destroy enclave.
// It is never logged and exposed only through Expose, which copies the
// bytes out under the caller's control.
type RawKey struct {
	enclave *memguard.Enclave
}

// NewRawKey copies key into a guarded enclave. The caller's slice is wiped.
func NewRawKey(key []byte) *RawKey {
	buf := memguard.NewBufferFromBytes(key)
	return &RawKey{enclave: buf.Seal()}
}

// RandomRawKey draws 32 bytes from rng into a fresh guarded key.
func RandomRawKey(rng Random) (*RawKey, error) {
	var raw [32]byte
	if err := rng.Fill(raw[:]); err != nil {
		return nil, err
	}
	k := NewRawKey(raw[:])
	memguard.WipeBytes(raw[:])
	return k, nil
}

// Expose decrypts the enclave and hands the caller a copy. The returned
// buffer must be destroyed by the caller when no longer needed.
func (k *RawKey) Expose() (*memguard.LockedBuffer, error) {
	if k.enclave == nil {
		return nil, errFatal("key destroyed", nil)
	}
	buf, err := k.enclave.Open()
	if err != nil {
		return nil, errFatal("opening key enclave", err)
	}
	return buf, nil
}

// Bytes is a convenience wrapper around Expose for call sites that need a
// short-lived []byte view; the exposed buffer is destroyed as soon as fn
// returns.
func (k *RawKey) Bytes(fn func(key []byte) error) error {
	buf, err := k.Expose()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Destroy discards the key: the decrypted copy it opens is wiped and the
// enclave is dropped, so every later Expose or Bytes call fails. The
// enclave's sealed ciphertext is left to the garbage collector.
func (k *RawKey) Destroy() {
	if k == nil || k.enclave == nil {
		return
	}
	if buf, err := k.enclave.Open(); err == nil {
		buf.Destroy()
	}
	k.enclave = nil
}
