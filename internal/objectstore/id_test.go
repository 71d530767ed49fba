package objectstore

import "testing"

type fixedRandom struct {
	pattern byte
}

func (r fixedRandom) Fill(buf []byte) error {
	for i := range buf {
		buf[i] = r.pattern
	}
	return nil
}

type errRandom struct{}

func (errRandom) Fill([]byte) error { return errFatal("random source exhausted", nil) }

func TestObjectId_IsZero(t *testing.T) {
	var id ObjectId
	if !id.IsZero() {
		t.Fatal("zero-value ObjectId must report IsZero")
	}
	id[5] = 1
	if id.IsZero() {
		t.Fatal("non-zero ObjectId must not report IsZero")
	}
}

func TestObjectId_String(t *testing.T) {
	id, err := newObjectId(fixedRandom{pattern: 0xAB})
	if err != nil {
		t.Fatalf("newObjectId: %v", err)
	}
	s := id.String()
	if len(s) != 64 {
		t.Fatalf("expected 64 hex chars, got %d (%q)", len(s), s)
	}
	for _, c := range s {
		if c != 'a' && c != 'b' {
			t.Fatalf("unexpected hex digit %q in %q", c, s)
		}
	}
}

func TestNewObjectId_RandomFailure(t *testing.T) {
	if _, err := newObjectId(errRandom{}); err == nil {
		t.Fatal("expected an error when the random source fails")
	}
}
