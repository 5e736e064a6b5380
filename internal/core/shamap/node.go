package shamap

import (
	crypto "github.com/LeJamon/goledgerd/internal/crypto/common"
	"github.com/LeJamon/goledgerd/internal/protocol"
)

const (
	// BranchFactor is the radix of the tree: one hex nibble per level.
	BranchFactor = 16

	// MaxDepth is the deepest possible node: 64 nibbles of a 256-bit key.
	MaxDepth = 64
)

// LeafType identifies how a leaf's payload is framed and hashed.
type LeafType int

const (
	// LeafAccountState holds a serialized state entry; hashed with the
	// account-state leaf prefix over data||key.
	LeafAccountState LeafType = iota

	// LeafTransaction holds a raw transaction; its hash is the transaction ID.
	LeafTransaction

	// LeafTransactionMeta holds a transaction plus metadata; hashed with the
	// tx-node prefix over data||key.
	LeafTransactionMeta
)

// node is either an innerNode or a leafNode. Nodes are immutable once placed
// in a tree: mutation always allocates replacements along the path, which is
// what makes snapshots free.
type node interface {
	isLeaf() bool
	hash() [32]byte
}

// leafNode carries one item.
type leafNode struct {
	item     *Item
	leafType LeafType
	cached   [32]byte
	hashed   bool
}

func newLeafNode(item *Item, leafType LeafType) *leafNode {
	return &leafNode{item: item, leafType: leafType}
}

func (l *leafNode) isLeaf() bool { return true }

func (l *leafNode) hash() [32]byte {
	if !l.hashed {
		key := l.item.Key()
		switch l.leafType {
		case LeafTransaction:
			l.cached = crypto.Sha512Half(protocol.HashPrefixTransactionID[:], l.item.Data())
		case LeafTransactionMeta:
			l.cached = crypto.Sha512Half(protocol.HashPrefixTxNode[:], l.item.Data(), key[:])
		default:
			l.cached = crypto.Sha512Half(protocol.HashPrefixLeafNode[:], l.item.Data(), key[:])
		}
		l.hashed = true
	}
	return l.cached
}

// innerNode holds up to sixteen children. A child slot holds either a
// resolved node, or just a hash (children[i] == nil, hashes[i] != 0) for
// nodes that live in the backing store and have not been fetched yet.
type innerNode struct {
	children [BranchFactor]node
	hashes   [BranchFactor][32]byte
	isBranch uint16
	cached   [32]byte
	hashed   bool
}

func newInnerNode() *innerNode {
	return &innerNode{}
}

func (n *innerNode) isLeaf() bool { return false }

// hash is zero for an empty inner node; otherwise the inner-node prefix over
// the sixteen child hashes, empty branches contributing all-zero words.
func (n *innerNode) hash() [32]byte {
	if !n.hashed {
		if n.isBranch == 0 {
			n.cached = [32]byte{}
		} else {
			buf := make([]byte, 0, 4+BranchFactor*32)
			buf = append(buf, protocol.HashPrefixInnerNode[:]...)
			for i := 0; i < BranchFactor; i++ {
				h := n.childHash(i)
				buf = append(buf, h[:]...)
			}
			n.cached = crypto.Sha512Half(buf)
		}
		n.hashed = true
	}
	return n.cached
}

// childHash returns the hash of branch i without resolving it.
func (n *innerNode) childHash(i int) [32]byte {
	if n.isBranch&(1<<i) == 0 {
		return [32]byte{}
	}
	if n.children[i] != nil {
		return n.children[i].hash()
	}
	return n.hashes[i]
}

func (n *innerNode) emptyBranch(i int) bool {
	return n.isBranch&(1<<i) == 0
}

func (n *innerNode) branchCount() int {
	count := 0
	for i := 0; i < BranchFactor; i++ {
		if !n.emptyBranch(i) {
			count++
		}
	}
	return count
}

// clone returns a shallow copy with the hash cache cleared, ready to have a
// branch replaced.
func (n *innerNode) clone() *innerNode {
	out := &innerNode{
		children: n.children,
		hashes:   n.hashes,
		isBranch: n.isBranch,
	}
	return out
}

// setChild installs (or clears, for nil) branch i on an unshared node.
func (n *innerNode) setChild(i int, child node) {
	if child == nil {
		n.children[i] = nil
		n.hashes[i] = [32]byte{}
		n.isBranch &^= 1 << i
	} else {
		n.children[i] = child
		n.hashes[i] = [32]byte{}
		n.isBranch |= 1 << i
	}
	n.hashed = false
}

// selectBranch returns the branch of key at the given depth.
func selectBranch(key [32]byte, depth int) int {
	b := key[depth/2]
	if depth%2 == 0 {
		return int(b >> 4)
	}
	return int(b & 0x0f)
}
