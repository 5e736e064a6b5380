package nodestore

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/LeJamon/goledgerd/internal/core/types"
	"github.com/LeJamon/goledgerd/internal/storage/nodestore/compression"
)

// Encoding constants: type + ledgerSeq + timestamp + dataLen + compressed flag
const nodeHeaderSize = 4 + 4 + 8 + 4 + 1

// minCompressionSize skips compression for very small payloads.
const minCompressionSize = 128

// encodeNode serializes a node plus metadata for a disk backend, compressing
// the payload when worthwhile.
func encodeNode(node *Node, compressor compression.Compressor, level int) ([]byte, error) {
	payload := node.Data
	compressed := false

	if len(node.Data) > minCompressionSize && compressor.Name() != "none" {
		c, err := compressor.Compress(node.Data, level)
		if err == nil && len(c) < len(node.Data)*9/10 {
			payload = c
			compressed = true
		}
	}

	buf := make([]byte, nodeHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(node.Type))
	binary.BigEndian.PutUint32(buf[4:8], node.LedgerSeq)
	binary.BigEndian.PutUint64(buf[8:16], uint64(node.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint32(buf[16:20], uint32(len(payload)))
	if compressed {
		buf[20] = 1
	}
	copy(buf[21:], payload)
	return buf, nil
}

// decodeNode reverses encodeNode.
func decodeNode(hash types.Hash256, data []byte, compressor compression.Compressor) (*Node, error) {
	if len(data) < nodeHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}

	nodeType := NodeType(binary.BigEndian.Uint32(data[0:4]))
	ledgerSeq := binary.BigEndian.Uint32(data[4:8])
	createdNanos := int64(binary.BigEndian.Uint64(data[8:16]))
	payloadLen := int(binary.BigEndian.Uint32(data[16:20]))
	compressed := data[20] == 1

	if nodeHeaderSize+payloadLen > len(data) {
		return nil, fmt.Errorf("%w: payload length %d exceeds record", ErrCorrupt, payloadLen)
	}

	payload := make([]byte, payloadLen)
	copy(payload, data[21:21+payloadLen])

	if compressed {
		out, err := compressor.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		payload = out
	}

	return &Node{
		Type:      nodeType,
		Hash:      hash,
		Data:      payload,
		LedgerSeq: ledgerSeq,
		CreatedAt: time.Unix(0, createdNanos),
	}, nil
}
