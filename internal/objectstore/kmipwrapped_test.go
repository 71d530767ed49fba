package objectstore

import (
	"context"
	"testing"
)

// fakeKeyManager is an in-memory stand-in for a KMIP server: it "wraps" a
// key by storing it under a counter-assigned identifier and "unwraps" it by
// looking the identifier back up. No real cryptographic wrapping occurs,
// which is fine here since KMIPWrapped's own header_key derivation is what
// this test suite actually exercises.
type fakeKeyManager struct {
	stored  map[string][]byte
	nextID  int
	version uint32
	failWrap,
	failUnwrap,
	failHealth bool
}

func newFakeKeyManager() *fakeKeyManager {
	return &fakeKeyManager{stored: make(map[string][]byte), version: 1}
}

func (f *fakeKeyManager) Provider() string { return "fake" }

func (f *fakeKeyManager) WrapKey(_ context.Context, plaintext []byte, _ map[string]string) (*KeyEnvelope, error) {
	if f.failWrap {
		return nil, errFatal("wrap failed", nil)
	}
	f.nextID++
	id := string(rune('a' + f.nextID))
	f.stored[id] = append([]byte(nil), plaintext...)
	return &KeyEnvelope{Ciphertext: []byte(id), KeyID: id, KeyVersion: f.version}, nil
}

func (f *fakeKeyManager) UnwrapKey(_ context.Context, envelope *KeyEnvelope, _ map[string]string) ([]byte, error) {
	if f.failUnwrap {
		return nil, errFatal("unwrap failed", nil)
	}
	data, ok := f.stored[envelope.KeyID]
	if !ok {
		return nil, errFatal("unknown kmip key id", nil)
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeKeyManager) ActiveKeyVersion(context.Context) (uint32, error) { return f.version, nil }

func (f *fakeKeyManager) HealthCheck(context.Context) error {
	if f.failHealth {
		return errFatal("kmip unreachable", nil)
	}
	return nil
}

func (f *fakeKeyManager) Close(context.Context) error { return nil }

func TestKMIPWrapped_SealOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager := newFakeKeyManager()

	ks, err := NewKMIPWrappedFromCredentials("dave", "s3cr3t", manager, SystemRandom)
	if err != nil {
		t.Fatalf("NewKMIPWrappedFromCredentials: %v", err)
	}

	rootPtr := samplePointer()
	sealed, err := ks.SealRoot(ctx, CleartextHeader{RootPtr: rootPtr, Key: ks})
	if err != nil {
		t.Fatalf("SealRoot: %v", err)
	}

	opener := NewKMIPWrappedForOpen("dave", "s3cr3t", manager, SystemRandom)
	cleartext, err := opener.OpenRoot(ctx, sealed)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}

	wantPtr := rootPtr
	for i := rawChunkPointerHashLen; i < len(wantPtr.Hash); i++ {
		wantPtr.Hash[i] = 0
	}
	if cleartext.RootPtr != wantPtr {
		t.Fatalf("recovered root pointer mismatch: got %+v want %+v", cleartext.RootPtr, wantPtr)
	}
}

func TestKMIPWrapped_WrongPasswordFailsAead(t *testing.T) {
	ctx := context.Background()
	manager := newFakeKeyManager()

	ks, err := NewKMIPWrappedFromCredentials("dave", "right-password", manager, SystemRandom)
	if err != nil {
		t.Fatalf("NewKMIPWrappedFromCredentials: %v", err)
	}
	sealed, err := ks.SealRoot(ctx, CleartextHeader{RootPtr: samplePointer(), Key: ks})
	if err != nil {
		t.Fatalf("SealRoot: %v", err)
	}

	opener := NewKMIPWrappedForOpen("dave", "wrong-password", manager, SystemRandom)
	if _, err := opener.OpenRoot(ctx, sealed); err == nil {
		t.Fatal("expected a wrong password to fail header authentication even though KMIP unwrap succeeds")
	} else if oe, ok := err.(*ObjectError); !ok || oe.Kind != KindAeadFailed {
		t.Fatalf("expected KindAeadFailed, got %v", err)
	}
}

func TestKMIPWrapped_UnreachableServerFailsFatal(t *testing.T) {
	ctx := context.Background()
	manager := newFakeKeyManager()
	ks, err := NewKMIPWrappedFromCredentials("dave", "pw", manager, SystemRandom)
	if err != nil {
		t.Fatalf("NewKMIPWrappedFromCredentials: %v", err)
	}

	manager.failWrap = true
	if _, err := ks.SealRoot(ctx, CleartextHeader{RootPtr: samplePointer(), Key: ks}); err == nil {
		t.Fatal("expected a KMIP wrap failure to surface as an error")
	} else if oe, ok := err.(*ObjectError); !ok || oe.Kind != KindFatal {
		t.Fatalf("expected KindFatal, got %v", err)
	}
}

func TestKMIPWrapped_EnvelopeEncodeDecodeRoundTrip(t *testing.T) {
	env := &KeyEnvelope{Ciphertext: []byte("ciphertext-blob"), KeyID: "key-1", KeyVersion: 7}
	slot, err := encodeEnvelope(env, SystemRandom)
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	got, err := decodeEnvelope(slot)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if got.KeyID != env.KeyID || got.KeyVersion != env.KeyVersion || string(got.Ciphertext) != string(env.Ciphertext) {
		t.Fatalf("envelope round trip mismatch: got %+v want %+v", got, env)
	}
}

func TestKMIPWrapped_EnvelopeRejectsOversizedFields(t *testing.T) {
	longID := make([]byte, envelopeKeyIDMax+1)
	if _, err := encodeEnvelope(&KeyEnvelope{KeyID: string(longID)}, SystemRandom); err == nil {
		t.Fatal("expected an error for an oversized key id")
	}
	longCT := make([]byte, envelopeCiphertextMax+1)
	if _, err := encodeEnvelope(&KeyEnvelope{Ciphertext: longCT}, SystemRandom); err == nil {
		t.Fatal("expected an error for an oversized ciphertext")
	}
}
