package s3backend

import (
	"testing"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
)

// key() is exercised directly rather than through New, since New builds a
// live S3 client from the configured region, endpoint and static
// credentials, and a unit test has no business touching the network.

func TestBackend_KeyAppliesPrefix(t *testing.T) {
	b := &Backend{prefix: "archives/"}
	var id objectstore.ObjectId
	id[0] = 0xAB

	got := b.key(id)
	want := "archives/" + id.String()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBackend_KeyWithEmptyPrefix(t *testing.T) {
	b := &Backend{}
	var id objectstore.ObjectId
	id[1] = 0xCD

	got := b.key(id)
	want := id.String()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBackend_KeyIsStableForSameID(t *testing.T) {
	b := &Backend{prefix: "p/"}
	var id objectstore.ObjectId
	id[5] = 0x11

	if b.key(id) != b.key(id) {
		t.Fatal("expected key() to be deterministic for the same ObjectId")
	}
}

func TestBackend_KeyDiffersAcrossIDs(t *testing.T) {
	b := &Backend{prefix: "p/"}
	var a, c objectstore.ObjectId
	a[0] = 1
	c[0] = 2

	if b.key(a) == b.key(c) {
		t.Fatal("expected distinct ObjectIds to produce distinct keys")
	}
}
