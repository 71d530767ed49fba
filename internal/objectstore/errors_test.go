package objectstore

import (
	"errors"
	"testing"
)

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindIO:             "io",
		KindBackend:        "backend",
		KindCompress:       "compress",
		KindDecompress:     "decompress",
		KindChunkTooLarge:  "chunk_too_large",
		KindBufferTooSmall: "buffer_too_small",
		KindAeadFailed:     "aead_failed",
		KindInvalidHeader:  "invalid_header",
		KindInvalidInput:   "invalid_input",
		KindFatal:          "fatal",
		KindSerialize:      "serialize",
		KindDeserialize:    "deserialize",
		Kind(999):          "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestObjectError_IsMatchesOnKindOnly(t *testing.T) {
	err := errAeadFailed("tag mismatch", errors.New("cause"))
	if !errors.Is(err, &ObjectError{Kind: KindAeadFailed}) {
		t.Fatal("expected errors.Is to match on Kind alone")
	}
	if errors.Is(err, &ObjectError{Kind: KindBackend}) {
		t.Fatal("expected errors.Is to reject a mismatched Kind")
	}
}

func TestObjectError_Unwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := errBackend("persisting object", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through Unwrap to the wrapped cause")
	}
}

func TestErrChunkTooLarge(t *testing.T) {
	err := ErrChunkTooLarge(10, 5).(*ObjectError)
	if err.Kind != KindChunkTooLarge || err.Size != 10 || err.Max != 5 {
		t.Fatalf("unexpected fields: %+v", err)
	}
}

func TestErrBufferTooSmall(t *testing.T) {
	err := ErrBufferTooSmall(42).(*ObjectError)
	if err.Kind != KindBufferTooSmall || err.Min != 42 {
		t.Fatalf("unexpected fields: %+v", err)
	}
}

func TestErrBackendMissing(t *testing.T) {
	var id ObjectId
	id[0] = 1
	err := ErrBackendMissing(id).(*ObjectError)
	if err.Kind != KindBackend {
		t.Fatalf("expected KindBackend, got %v", err.Kind)
	}
}
