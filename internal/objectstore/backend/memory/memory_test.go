package memory

import (
	"context"
	"testing"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

func TestBackend_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New()

	var id objectstore.ObjectId
	id[0] = 7
	data := []byte("object bytes")

	if err := b.WriteObject(ctx, id, data); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	got, err := b.ReadObject(ctx, id)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestBackend_ReadMissingObjectErrors(t *testing.T) {
	ctx := context.Background()
	b := New()

	var id objectstore.ObjectId
	id[0] = 9
	_, err := b.ReadObject(ctx, id)
	if err == nil {
		t.Fatal("expected an error reading a missing object")
	}
	oe, ok := err.(*objectstore.ObjectError)
	if !ok || oe.Kind != objectstore.KindBackend {
		t.Fatalf("expected KindBackend, got %v", err)
	}
}

func TestBackend_DeleteObject(t *testing.T) {
	ctx := context.Background()
	b := New()
	var id objectstore.ObjectId
	id[0] = 3
	if err := b.WriteObject(ctx, id, []byte("gone soon")); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	if err := b.DeleteObject(ctx, id); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, err := b.ReadObject(ctx, id); err == nil {
		t.Fatal("expected the object to be gone after DeleteObject")
	}
}

func TestBackend_LenTracksObjectCount(t *testing.T) {
	ctx := context.Background()
	b := New()
	if b.Len() != 0 {
		t.Fatalf("expected an empty backend to report Len() == 0, got %d", b.Len())
	}
	for i := byte(0); i < 3; i++ {
		var id objectstore.ObjectId
		id[0] = i
		if err := b.WriteObject(ctx, id, []byte{i}); err != nil {
			t.Fatalf("WriteObject: %v", err)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("expected Len() == 3, got %d", b.Len())
	}
}

func TestBackend_WriteObjectCopiesInput(t *testing.T) {
	ctx := context.Background()
	b := New()
	var id objectstore.ObjectId
	id[0] = 1

	data := []byte("original")
	if err := b.WriteObject(ctx, id, data); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	data[0] = 'X'

	got, err := b.ReadObject(ctx, id)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	if got[0] == 'X' {
		t.Fatal("expected WriteObject to defensively copy the input slice")
	}
}

func TestBackend_ReadObjectReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	b := New()
	var id objectstore.ObjectId
	id[0] = 2
	if err := b.WriteObject(ctx, id, []byte("stable")); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}

	got, err := b.ReadObject(ctx, id)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	got[0] = 'Z'

	got2, err := b.ReadObject(ctx, id)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	if got2[0] == 'Z' {
		t.Fatal("expected mutating a previously returned slice not to affect stored bytes")
	}
}
