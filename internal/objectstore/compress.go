package objectstore

import (
	"github.com/klauspost/compress/zstd"
)

// Compress is the abstract compression boundary the Writer and Reader
// depend on. The core never assumes a specific algorithm; zstdCompress
// below is the one concrete implementation this module ships.
type Compress interface {
	// CompressInto compresses input into output, returning the number of
	// bytes written or a Compress error if output is too small.
	CompressInto(output, input []byte) (int, error)
	// DecompressInto restores input into output, returning the number of
	// bytes written, a Decompress error on corrupt input, or a
	// BufferTooSmall error (carrying the required size) on undersized
	// output.
	DecompressInto(output, input []byte) (int, error)
}

// zstdCompress wraps klauspost/compress/zstd with reusable encoder/decoder
// instances, the library's documented pattern for high-throughput reuse.
type zstdCompress struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCompress builds the default Compress implementation.
func NewZstdCompress() (Compress, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errFatal("initializing zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errFatal("initializing zstd decoder", err)
	}
	return &zstdCompress{enc: enc, dec: dec}, nil
}

func (z *zstdCompress) CompressInto(output, input []byte) (int, error) {
	compressed := z.enc.EncodeAll(input, output[:0])
	if len(compressed) > len(output) {
		return 0, errCompress("compressed output exceeds buffer capacity", nil)
	}
	return len(compressed), nil
}

func (z *zstdCompress) DecompressInto(output, input []byte) (int, error) {
	decompressed, err := z.dec.DecodeAll(input, output[:0])
	if err != nil {
		return 0, errDecompress("zstd frame decode failed", err)
	}
	if len(decompressed) > len(output) {
		return 0, ErrBufferTooSmall(uint64(len(decompressed)))
	}
	return len(decompressed), nil
}
