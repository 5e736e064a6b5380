package shamap

import (
	"fmt"

	"github.com/LeJamon/goledgerd/internal/protocol"
)

// serializeNode renders a node in prefix format, the representation stored in
// the node store. Inner nodes are the inner prefix plus sixteen child hashes;
// leaves are their prefix, the payload, and (except raw transactions) the key.
func serializeNode(n node) []byte {
	switch t := n.(type) {
	case *innerNode:
		buf := make([]byte, 0, 4+BranchFactor*32)
		buf = append(buf, protocol.HashPrefixInnerNode[:]...)
		for i := 0; i < BranchFactor; i++ {
			h := t.childHash(i)
			buf = append(buf, h[:]...)
		}
		return buf
	case *leafNode:
		key := t.item.Key()
		switch t.leafType {
		case LeafTransaction:
			buf := make([]byte, 0, 4+len(t.item.Data()))
			buf = append(buf, protocol.HashPrefixTransactionID[:]...)
			return append(buf, t.item.Data()...)
		case LeafTransactionMeta:
			buf := make([]byte, 0, 4+len(t.item.Data())+32)
			buf = append(buf, protocol.HashPrefixTxNode[:]...)
			buf = append(buf, t.item.Data()...)
			return append(buf, key[:]...)
		default:
			buf := make([]byte, 0, 4+len(t.item.Data())+32)
			buf = append(buf, protocol.HashPrefixLeafNode[:]...)
			buf = append(buf, t.item.Data()...)
			return append(buf, key[:]...)
		}
	}
	return nil
}

// deserializeNode creates a SHAMap node from prefix-format data. Inner nodes
// come back with hashes set and children nil; they are resolved lazily.
func deserializeNode(data []byte) (node, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short for prefix: %d bytes", len(data))
	}

	var prefix [4]byte
	copy(prefix[:], data[:4])

	var n node
	var err error
	switch prefix {
	case protocol.HashPrefixInnerNode:
		n, err = parseInnerNode(data)
	case protocol.HashPrefixLeafNode:
		n, err = parseKeyedLeaf(data, LeafAccountState)
	case protocol.HashPrefixTxNode:
		n, err = parseKeyedLeaf(data, LeafTransactionMeta)
	case protocol.HashPrefixTransactionID:
		n, err = parseTransactionLeaf(data)
	default:
		return nil, fmt.Errorf("unknown hash prefix: %x", prefix)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func parseInnerNode(data []byte) (*innerNode, error) {
	const expectedSize = 4 + BranchFactor*32
	if len(data) != expectedSize {
		return nil, fmt.Errorf("invalid inner node size: expected %d, got %d", expectedSize, len(data))
	}

	n := newInnerNode()
	for i := 0; i < BranchFactor; i++ {
		var h [32]byte
		copy(h[:], data[4+i*32:4+(i+1)*32])
		if h != [32]byte{} {
			n.hashes[i] = h
			n.isBranch |= 1 << i
		}
	}
	return n, nil
}

func parseKeyedLeaf(data []byte, leafType LeafType) (*leafNode, error) {
	if len(data) < 4+32 {
		return nil, fmt.Errorf("leaf data too short: %d bytes", len(data))
	}

	body := data[4:]
	var key [32]byte
	copy(key[:], body[len(body)-32:])

	payload := make([]byte, len(body)-32)
	copy(payload, body[:len(body)-32])
	return newLeafNode(NewItem(key, payload), leafType), nil
}

func parseTransactionLeaf(data []byte) (*leafNode, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("transaction leaf too short: %d bytes", len(data))
	}

	payload := make([]byte, len(data)-4)
	copy(payload, data[4:])

	// The key of a raw transaction leaf is its own hash
	leaf := newLeafNode(NewItem([32]byte{}, payload), LeafTransaction)
	key := leaf.hash()
	leaf.item = NewItem(key, payload)
	return leaf, nil
}
