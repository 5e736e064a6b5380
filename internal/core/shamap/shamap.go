// Package shamap implements the authenticated map backing both halves of a
// ledger: a radix-16 Merkle trie keyed by 256-bit indexes. Mutation always
// rebuilds the path from leaf to root, so a snapshot is a constant-time copy
// sharing every unchanged node with its source.
package shamap

import (
	"fmt"
	"sync"
)

// State defines the state of the SHAMap
type State int

const (
	StateModifying State = iota
	StateImmutable
	StateSyncing
	StateInvalid
)

// String returns a string representation of the state
func (s State) String() string {
	switch s {
	case StateModifying:
		return "modifying"
	case StateImmutable:
		return "immutable"
	case StateSyncing:
		return "syncing"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Type defines the SHAMap type
type Type int

const (
	TypeTransaction Type = iota
	TypeState
)

// Map is the authenticated-map surface the ledger core consumes. Any
// implementation providing these snapshotting and root-hash semantics is a
// valid collaborator; SHAMap is the in-process one.
type Map interface {
	Get(key [32]byte) (*Item, bool, error)
	GetWithType(key [32]byte) (*Item, LeafType, bool, error)
	Has(key [32]byte) (bool, error)
	Add(item *Item) error
	AddTyped(item *Item, leafType LeafType) error
	Update(item *Item) error
	Delete(key [32]byte) error
	Hash() [32]byte
	SetImmutable()
	Snapshot(mutable bool) Map
	FirstItem() (*Item, error)
	NextItem(key [32]byte) (*Item, error)
	VisitLeaves(fn func(*Item) bool) error
	FetchRoot(hash [32]byte) bool
	NeededHashes(max int) [][32]byte
	Walk(maxNodes int) [][32]byte
	FlushDirty() []FlushEntry
}

// SHAMap is the main structure representing the tree.
type SHAMap struct {
	mu      sync.RWMutex
	root    *innerNode
	mapType Type
	state   State
	family  Family
}

var _ Map = (*SHAMap)(nil)

// New creates a new empty SHAMap with the specified type.
func New(mapType Type) *SHAMap {
	return &SHAMap{
		root:    newInnerNode(),
		mapType: mapType,
		state:   StateModifying,
	}
}

// NewBacked creates an empty SHAMap that resolves unfetched nodes through the
// given family.
func NewBacked(mapType Type, family Family) *SHAMap {
	sm := New(mapType)
	sm.family = family
	return sm
}

// MapType returns the map type.
func (sm *SHAMap) MapType() Type {
	return sm.mapType
}

// State returns the current state.
func (sm *SHAMap) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// SetImmutable freezes the map. The root hash computed afterwards is final.
func (sm *SHAMap) SetImmutable() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state != StateInvalid {
		sm.root.hash()
		sm.state = StateImmutable
	}
}

// Hash returns the root hash. An empty map hashes to zero.
func (sm *SHAMap) Hash() [32]byte {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.root.hash()
}

// resolve returns the child node at branch i of inner, loading it from the
// family if only its hash is known.
func (sm *SHAMap) resolve(inner *innerNode, branch int) (node, error) {
	if inner.emptyBranch(branch) {
		return nil, nil
	}
	if inner.children[branch] != nil {
		return inner.children[branch], nil
	}

	hash := inner.hashes[branch]
	if sm.family == nil {
		return nil, &MissingNodeError{Hash: hash}
	}
	data, err := sm.family.Fetch(hash)
	if err != nil {
		return nil, fmt.Errorf("fetch node %x: %w", hash, err)
	}
	if data == nil {
		return nil, &MissingNodeError{Hash: hash}
	}

	child, err := deserializeNode(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize node %x: %w", hash, err)
	}

	// Cache the resolved child. This does not change the node's hash, so the
	// copy-on-write discipline is preserved.
	inner.children[branch] = child
	return child, nil
}

// findLeaf walks toward key and returns the leaf holding it, or nil.
func (sm *SHAMap) findLeaf(key [32]byte) (*leafNode, error) {
	var current node = sm.root
	depth := 0

	for !current.isLeaf() {
		inner := current.(*innerNode)
		branch := selectBranch(key, depth)
		child, err := sm.resolve(inner, branch)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		current = child
		depth++
	}

	leaf := current.(*leafNode)
	if leaf.item.Key() != key {
		return nil, nil
	}
	return leaf, nil
}

// Get returns the item associated with the key.
func (sm *SHAMap) Get(key [32]byte) (*Item, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	leaf, err := sm.findLeaf(key)
	if err != nil {
		return nil, false, err
	}
	if leaf == nil {
		return nil, false, nil
	}
	return leaf.item, true, nil
}

// GetWithType returns the item at key along with its leaf type.
func (sm *SHAMap) GetWithType(key [32]byte) (*Item, LeafType, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	leaf, err := sm.findLeaf(key)
	if err != nil {
		return nil, 0, false, err
	}
	if leaf == nil {
		return nil, 0, false, nil
	}
	return leaf.item, leaf.leafType, true, nil
}

// Has checks if an item with the given key exists.
func (sm *SHAMap) Has(key [32]byte) (bool, error) {
	_, ok, err := sm.Get(key)
	return ok, err
}

func (sm *SHAMap) defaultLeafType() LeafType {
	if sm.mapType == TypeTransaction {
		return LeafTransaction
	}
	return LeafAccountState
}

// Add inserts a new item; it fails with ErrItemExists if the key is present.
func (sm *SHAMap) Add(item *Item) error {
	return sm.AddTyped(item, sm.defaultLeafType())
}

// AddTyped inserts a new item with an explicit leaf type (transactions carry
// their metadata flag in the leaf type).
func (sm *SHAMap) AddTyped(item *Item, leafType LeafType) error {
	if item == nil {
		return ErrNilItem
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state != StateModifying {
		return ErrImmutable
	}

	existing, err := sm.findLeaf(item.Key())
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrItemExists
	}
	return sm.setItem(item, leafType)
}

// Update replaces the item at an existing key; it fails with ErrItemNotFound
// if the key is absent.
func (sm *SHAMap) Update(item *Item) error {
	if item == nil {
		return ErrNilItem
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state != StateModifying {
		return ErrImmutable
	}

	existing, err := sm.findLeaf(item.Key())
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrItemNotFound
	}
	return sm.setItem(item, existing.leafType)
}

// setItem writes item into the tree, rebuilding the path from the leaf to the
// root so shared nodes are never mutated.
func (sm *SHAMap) setItem(item *Item, leafType LeafType) error {
	key := item.Key()
	newRoot, err := sm.place(sm.root, 0, key, newLeafNode(item, leafType))
	if err != nil {
		return err
	}
	sm.root = newRoot.(*innerNode)
	return nil
}

// place returns a replacement for current with leaf installed under key.
func (sm *SHAMap) place(current node, depth int, key [32]byte, leaf *leafNode) (node, error) {
	if current.isLeaf() {
		existing := current.(*leafNode)
		existingKey := existing.item.Key()
		if existingKey == key {
			return leaf, nil
		}

		// Split: build inner nodes down to the first differing nibble.
		top := newInnerNode()
		inner := top
		for d := depth; d < MaxDepth; d++ {
			b1 := selectBranch(key, d)
			b2 := selectBranch(existingKey, d)
			if b1 != b2 {
				inner.setChild(b1, leaf)
				inner.setChild(b2, existing)
				return top, nil
			}
			next := newInnerNode()
			inner.setChild(b1, next)
			inner = next
		}
		return nil, fmt.Errorf("identical keys at max depth: %x", key)
	}

	inner := current.(*innerNode)
	branch := selectBranch(key, depth)
	child, err := sm.resolve(inner, branch)
	if err != nil {
		return nil, err
	}

	replacement := inner.clone()
	if child == nil {
		replacement.setChild(branch, leaf)
		return replacement, nil
	}

	newChild, err := sm.place(child, depth+1, key, leaf)
	if err != nil {
		return nil, err
	}
	replacement.setChild(branch, newChild)
	return replacement, nil
}

// Delete removes the item at key, collapsing inner nodes left with a single
// leaf below them.
func (sm *SHAMap) Delete(key [32]byte) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state != StateModifying {
		return ErrImmutable
	}

	newRoot, removed, err := sm.remove(sm.root, 0, key)
	if err != nil {
		return err
	}
	if !removed {
		return ErrItemNotFound
	}
	if newRoot == nil {
		sm.root = newInnerNode()
	} else if inner, ok := newRoot.(*innerNode); ok {
		sm.root = inner
	} else {
		// A lone leaf needs a root above it
		root := newInnerNode()
		leafKey := newRoot.(*leafNode).item.Key()
		root.setChild(selectBranch(leafKey, 0), newRoot)
		sm.root = root
	}
	return nil
}

// remove returns the replacement for current after deleting key below it.
// A nil replacement means the subtree became empty; a leaf replacement lets
// the parent collapse one-child chains.
func (sm *SHAMap) remove(current node, depth int, key [32]byte) (node, bool, error) {
	if current.isLeaf() {
		if current.(*leafNode).item.Key() == key {
			return nil, true, nil
		}
		return current, false, nil
	}

	inner := current.(*innerNode)
	branch := selectBranch(key, depth)
	child, err := sm.resolve(inner, branch)
	if err != nil {
		return nil, false, err
	}
	if child == nil {
		return current, false, nil
	}

	newChild, removed, err := sm.remove(child, depth+1, key)
	if err != nil || !removed {
		return current, removed, err
	}

	replacement := inner.clone()
	replacement.setChild(branch, newChild)

	switch replacement.branchCount() {
	case 0:
		return nil, true, nil
	case 1:
		// If the only thing below is a single leaf, hoist it
		only, err := sm.onlyLeafBelow(replacement)
		if err != nil {
			return nil, false, err
		}
		if only != nil && depth > 0 {
			return only, true, nil
		}
	}
	return replacement, true, nil
}

// onlyLeafBelow returns the single leaf under n, or nil if n covers more than
// one leaf.
func (sm *SHAMap) onlyLeafBelow(n *innerNode) (*leafNode, error) {
	var current node = n
	for !current.isLeaf() {
		inner := current.(*innerNode)
		var next node
		for i := 0; i < BranchFactor; i++ {
			if inner.emptyBranch(i) {
				continue
			}
			if next != nil {
				return nil, nil
			}
			child, err := sm.resolve(inner, i)
			if err != nil {
				return nil, err
			}
			next = child
		}
		if next == nil {
			return nil, nil
		}
		current = next
	}
	return current.(*leafNode), nil
}

// Snapshot creates a copy of the SHAMap sharing all nodes with the source.
// Writes to either map after the snapshot are invisible to the other.
func (sm *SHAMap) Snapshot(mutable bool) Map {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state := StateImmutable
	if mutable {
		state = StateModifying
	}

	// The root itself is cloned so each map replaces branches independently;
	// everything below is shared until written.
	return &SHAMap{
		root:    sm.root.clone(),
		mapType: sm.mapType,
		state:   state,
		family:  sm.family,
	}
}
