package marshal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/marmos91/dittosession/internal/bufpool"
)

// Compression selects how payloads are compressed.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

const (
	compressionIDNone byte = 0
	compressionIDZstd byte = 1
	compressionIDLZ4  byte = 2
)

// ParseCompression converts a configuration string into a Compression.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case CompressionNone, "":
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	case CompressionLZ4:
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("unknown compression: %q", s)
	}
}

func (c Compression) id() byte {
	switch c {
	case CompressionZstd:
		return compressionIDZstd
	case CompressionLZ4:
		return compressionIDLZ4
	default:
		return compressionIDNone
	}
}

var errIncompressible = errors.New("payload is incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("marshal: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("marshal: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the compressed payload prefixed with the uncompressed
// length, or errIncompressible when compression does not pay off.
func compress(id byte, data []byte) ([]byte, error) {
	var (
		compressed []byte
		scratch    []byte
	)
	switch id {
	case compressionIDZstd:
		scratch = bufpool.Get(len(data))
		compressed = zstdEncoder.EncodeAll(data, scratch[:0])
	case compressionIDLZ4:
		scratch = bufpool.Get(lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, scratch, nil)
		if err != nil {
			bufpool.Put(scratch)
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if written == 0 {
			bufpool.Put(scratch)
			return nil, errIncompressible
		}
		compressed = scratch[:written]
	default:
		return nil, fmt.Errorf("unsupported compression identifier %d", id)
	}
	defer bufpool.Put(scratch)

	prefix := uvarintLen(uint64(len(data)))
	if prefix+len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	out := binary.AppendUvarint(make([]byte, 0, prefix+len(compressed)), uint64(len(data)))
	return append(out, compressed...), nil
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func decompress(id byte, data []byte) ([]byte, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("invalid uncompressed length")
	}
	compressed := data[n:]

	switch id {
	case compressionIDZstd:
		result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint64(len(result)) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	case compressionIDLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	default:
		return nil, fmt.Errorf("unsupported compression identifier %d", id)
	}
}
