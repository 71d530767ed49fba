package objectstore

import (
	"bytes"
	"testing"
)

func TestZstdCompress_RoundTrip(t *testing.T) {
	c, err := NewZstdCompress()
	if err != nil {
		t.Fatalf("NewZstdCompress: %v", err)
	}

	input := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 100)
	compressed := make([]byte, BlockSize)
	n, err := c.CompressInto(compressed, input)
	if err != nil {
		t.Fatalf("CompressInto: %v", err)
	}
	if n >= len(input) {
		t.Fatalf("expected repetitive input to compress smaller: got %d from %d", n, len(input))
	}

	decompressed := make([]byte, len(input))
	m, err := c.DecompressInto(decompressed, compressed[:n])
	if err != nil {
		t.Fatalf("DecompressInto: %v", err)
	}
	if !bytes.Equal(decompressed[:m], input) {
		t.Fatal("decompressed output does not match original input")
	}
}

func TestZstdCompress_DecompressCorruptInput(t *testing.T) {
	c, err := NewZstdCompress()
	if err != nil {
		t.Fatalf("NewZstdCompress: %v", err)
	}
	garbage := []byte{0x00, 0x01, 0x02, 0x03, 0x04}
	out := make([]byte, 64)
	if _, err := c.DecompressInto(out, garbage); err == nil {
		t.Fatal("expected an error decompressing garbage input")
	}
}

func TestZstdCompress_DecompressIntoUndersizedBuffer(t *testing.T) {
	c, err := NewZstdCompress()
	if err != nil {
		t.Fatalf("NewZstdCompress: %v", err)
	}
	input := bytes.Repeat([]byte("a"), 1000)
	compressed := make([]byte, BlockSize)
	n, err := c.CompressInto(compressed, input)
	if err != nil {
		t.Fatalf("CompressInto: %v", err)
	}

	tooSmall := make([]byte, 10)
	_, err = c.DecompressInto(tooSmall, compressed[:n])
	if err == nil {
		t.Fatal("expected an error decompressing into an undersized buffer")
	}
	oe, ok := err.(*ObjectError)
	if !ok || oe.Kind != KindBufferTooSmall {
		t.Fatalf("expected KindBufferTooSmall, got %v", err)
	}
	if oe.Min != uint64(len(input)) {
		t.Fatalf("expected Min == %d, got %d", len(input), oe.Min)
	}
}
