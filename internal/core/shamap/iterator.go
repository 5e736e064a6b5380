package shamap

import "bytes"

// FirstItem returns the item with the lowest key, or nil for an empty map.
func (sm *SHAMap) FirstItem() (*Item, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.firstBelow(sm.root)
}

func (sm *SHAMap) firstBelow(n node) (*Item, error) {
	for !n.isLeaf() {
		inner := n.(*innerNode)
		var next node
		for i := 0; i < BranchFactor; i++ {
			if inner.emptyBranch(i) {
				continue
			}
			child, err := sm.resolve(inner, i)
			if err != nil {
				return nil, err
			}
			next = child
			break
		}
		if next == nil {
			return nil, nil
		}
		n = next
	}
	return n.(*leafNode).item, nil
}

// NextItem returns the item with the lowest key strictly greater than key,
// or nil when key is at or past the end. Keys order big-endian
// lexicographically, so book offers come back in quality order.
func (sm *SHAMap) NextItem(key [32]byte) (*Item, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.nextAbove(sm.root, 0, key)
}

func (sm *SHAMap) nextAbove(n node, depth int, key [32]byte) (*Item, error) {
	if n.isLeaf() {
		leaf := n.(*leafNode)
		leafKey := leaf.item.Key()
		if bytes.Compare(leafKey[:], key[:]) > 0 {
			return leaf.item, nil
		}
		return nil, nil
	}

	inner := n.(*innerNode)
	branch := selectBranch(key, depth)

	// The subtree on key's own branch may still hold a successor
	if !inner.emptyBranch(branch) {
		child, err := sm.resolve(inner, branch)
		if err != nil {
			return nil, err
		}
		item, err := sm.nextAbove(child, depth+1, key)
		if err != nil || item != nil {
			return item, err
		}
	}

	// Otherwise the first leaf of any later branch is the successor
	for i := branch + 1; i < BranchFactor; i++ {
		if inner.emptyBranch(i) {
			continue
		}
		child, err := sm.resolve(inner, i)
		if err != nil {
			return nil, err
		}
		item, err := sm.firstBelow(child)
		if err != nil || item != nil {
			return item, err
		}
	}
	return nil, nil
}

// VisitLeaves calls fn for every item in key order. Returning false from fn
// stops the walk early.
func (sm *SHAMap) VisitLeaves(fn func(*Item) bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, err := sm.visit(sm.root, fn)
	return err
}

func (sm *SHAMap) visit(n node, fn func(*Item) bool) (bool, error) {
	if n.isLeaf() {
		return fn(n.(*leafNode).item), nil
	}

	inner := n.(*innerNode)
	for i := 0; i < BranchFactor; i++ {
		if inner.emptyBranch(i) {
			continue
		}
		child, err := sm.resolve(inner, i)
		if err != nil {
			return false, err
		}
		cont, err := sm.visit(child, fn)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
	}
	return true, nil
}

// FetchRoot replaces the tree with the node stored under hash, resolving the
// rest of the tree lazily. It returns false if the root is not in the
// backing store.
func (sm *SHAMap) FetchRoot(hash [32]byte) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if hash == [32]byte{} {
		sm.root = newInnerNode()
		return true
	}
	if sm.family == nil {
		return false
	}

	data, err := sm.family.Fetch(hash)
	if err != nil || data == nil {
		return false
	}
	n, err := deserializeNode(data)
	if err != nil {
		return false
	}

	if inner, ok := n.(*innerNode); ok {
		sm.root = inner
	} else {
		// A one-item tree is stored as its single leaf
		root := newInnerNode()
		leafKey := n.(*leafNode).item.Key()
		root.setChild(selectBranch(leafKey, 0), n)
		sm.root = root
	}
	return true
}

// NeededHashes returns up to max hashes of nodes referenced by the tree but
// absent from the backing store.
func (sm *SHAMap) NeededHashes(max int) [][32]byte {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var missing [][32]byte
	sm.collectMissing(sm.root, max, &missing)
	return missing
}

// Walk audits the map and returns the hashes of missing nodes, at most
// maxNodes of them; zero or less means no limit.
func (sm *SHAMap) Walk(maxNodes int) [][32]byte {
	return sm.NeededHashes(maxNodes)
}

func (sm *SHAMap) collectMissing(n node, max int, out *[][32]byte) {
	if n.isLeaf() || (max > 0 && len(*out) >= max) {
		return
	}
	inner := n.(*innerNode)
	for i := 0; i < BranchFactor; i++ {
		if inner.emptyBranch(i) {
			continue
		}
		if max > 0 && len(*out) >= max {
			return
		}
		child, err := sm.resolve(inner, i)
		if err != nil {
			*out = append(*out, inner.hashes[i])
			continue
		}
		sm.collectMissing(child, max, out)
	}
}

// FlushDirty serializes every resolved node in the tree for persistence.
// The root is always first.
func (sm *SHAMap) FlushDirty() []FlushEntry {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var entries []FlushEntry
	sm.flush(sm.root, &entries)
	return entries
}

func (sm *SHAMap) flush(n node, out *[]FlushEntry) {
	*out = append(*out, FlushEntry{Hash: n.hash(), Data: serializeNode(n)})
	if n.isLeaf() {
		return
	}
	inner := n.(*innerNode)
	for i := 0; i < BranchFactor; i++ {
		if inner.children[i] != nil {
			sm.flush(inner.children[i], out)
		}
	}
}
