package objectstore

import "testing"

func samplePointer() ChunkPointer {
	var p ChunkPointer
	for i := range p.ObjectID {
		p.ObjectID[i] = byte(i)
	}
	p.Offset = 123456
	p.Size = 789
	for i := range p.Tag {
		p.Tag[i] = byte(i + 1)
	}
	for i := range p.Nonce {
		p.Nonce[i] = byte(i + 2)
	}
	for i := range p.Hash {
		p.Hash[i] = byte(i + 3)
	}
	return p
}

func TestChunkPointer_WireRoundTrip(t *testing.T) {
	p := samplePointer()
	raw := p.Marshal()
	if len(raw) != wirePointerSize {
		t.Fatalf("Marshal length = %d, want %d", len(raw), wirePointerSize)
	}

	got, err := UnmarshalChunkPointer(raw)
	if err != nil {
		t.Fatalf("UnmarshalChunkPointer: %v", err)
	}
	if got != p {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestChunkPointer_WireWrongLength(t *testing.T) {
	if _, err := UnmarshalChunkPointer(make([]byte, wirePointerSize-1)); err == nil {
		t.Fatal("expected an error for a short buffer")
	}
}

func TestChunkPointer_RawRoundTripTruncatesHash(t *testing.T) {
	p := samplePointer()
	raw := p.MarshalRaw()
	if len(raw) != rawChunkPointerSize {
		t.Fatalf("MarshalRaw length = %d, want %d", len(raw), rawChunkPointerSize)
	}

	got, err := UnmarshalRawChunkPointer(raw[:])
	if err != nil {
		t.Fatalf("UnmarshalRawChunkPointer: %v", err)
	}

	want := p
	for i := rawChunkPointerHashLen; i < len(want.Hash); i++ {
		want.Hash[i] = 0
	}
	if got != want {
		t.Fatalf("raw round trip mismatch: got %+v, want %+v", got, want)
	}
	if got.ObjectID != p.ObjectID || got.Offset != p.Offset || got.Size != p.Size || got.Tag != p.Tag || got.Nonce != p.Nonce {
		t.Fatal("raw round trip must preserve every field except the truncated hash")
	}
}

func TestChunkPointer_RawWrongLength(t *testing.T) {
	if _, err := UnmarshalRawChunkPointer(make([]byte, rawChunkPointerSize+1)); err == nil {
		t.Fatal("expected an error for a wrong-length buffer")
	}
}
