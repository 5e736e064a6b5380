package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4"
)

// LZ4Compressor implements LZ4 block compression. The uncompressed length is
// prepended so decompression can size its buffer exactly.
type LZ4Compressor struct{}

// Name returns the name of the compressor.
func (c *LZ4Compressor) Name() string {
	return "lz4"
}

// Compress compresses data using LZ4.
func (c *LZ4Compressor) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(data)))

	n, err := lz4.CompressBlock(data, buf[4:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 || n >= len(data) {
		// Incompressible; store raw after the length word
		copy(buf[4:], data)
		n = len(data)
	}
	return buf[:4+n], nil
}

// Decompress decompresses LZ4 data.
func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("lz4 data truncated: %d bytes", len(data))
	}

	size := binary.BigEndian.Uint32(data[:4])
	body := data[4:]

	if uint32(len(body)) == size {
		// Stored raw
		out := make([]byte, size)
		copy(out, body)
		return out, nil
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	return out[:n], nil
}
