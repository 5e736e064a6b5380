// Package ledger implements the in-memory representation of one consensus
// snapshot of the world: two authenticated maps under a canonical header,
// the lifecycle state machine that governs their mutability, and the
// persistence gate for validated ledgers.
package ledger

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/header"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

var (
	// ErrInvalidState reports a lifecycle violation, such as mutating an
	// immutable ledger. These are programming errors.
	ErrInvalidState = errors.New("ledger in invalid state for operation")

	// ErrHashMismatch reports that a recomputed identity hash disagrees with
	// the expected one. The ledger must be rejected.
	ErrHashMismatch = errors.New("ledger identity hash mismatch")

	// ErrNoParentHash reports a child construction from a parent without an
	// identity.
	ErrNoParentHash = errors.New("parent ledger has zero hash")
)

// Ledger aggregates the transaction map, the state map and the header. A
// ledger is owned by one actor while mutable; SetImmutable is the
// publication point after which any number of readers may observe it.
type Ledger struct {
	env *Env

	txMap    shamap.Map
	stateMap shamap.Map

	hdr header.Header

	hash      types.Hash256
	validHash bool

	closed    bool
	accepted  bool
	immutable bool
	validated bool

	// full is false while one of the maps could not be loaded
	full bool

	// Fee schedule cache, installed once under the process-wide core mutex.
	baseFee           uint64
	referenceFeeUnits uint32
	reserveBase       uint32
	reserveIncrement  uint32
}

func (e *Env) newMap(t shamap.Type) shamap.Map {
	if e != nil && e.Family != nil {
		return shamap.NewBacked(t, e.Family)
	}
	return shamap.New(t)
}

// NewGenesis creates ledger sequence 1: a single account holding the entire
// starting supply. The genesis ledger is mutable until explicitly frozen.
func NewGenesis(env *Env, master types.AccountID, startAmount uint64) (*Ledger, error) {
	l := &Ledger{
		env:      env,
		txMap:    env.newMap(shamap.TypeTransaction),
		stateMap: env.newMap(shamap.TypeState),
		full:     true,
	}
	l.hdr.Sequence = 1
	l.hdr.TotalCoins = startAmount
	l.hdr.CloseTimeResolution = LedgerTimeAccuracy

	root := &entries.AccountRoot{
		Account:  master,
		Balance:  startAmount,
		Sequence: 1,
	}
	res, err := l.WriteBack(WriteCreate, keylet.Account(master).Key, root)
	if err != nil {
		return nil, fmt.Errorf("create genesis account: %w", err)
	}
	if res != WriteCreated {
		return nil, fmt.Errorf("create genesis account: unexpected result %v", res)
	}
	return l, nil
}

// NewChild creates the mutable successor of parent: the parent's state map
// is snapshotted copy-on-write, the transaction map starts empty, and the
// skip list is brought forward to include the parent's hash.
func NewChild(parent *Ledger) (*Ledger, error) {
	parent.UpdateHash()
	if parent.hash.IsZero() {
		return nil, ErrNoParentHash
	}

	l := &Ledger{
		env:      parent.env,
		txMap:    parent.env.newMap(shamap.TypeTransaction),
		stateMap: parent.stateMap.Snapshot(true),
		full:     parent.full,
	}
	l.hdr.Sequence = parent.hdr.Sequence + 1
	l.hdr.TotalCoins = parent.hdr.TotalCoins
	l.hdr.ParentHash = parent.hash
	l.hdr.ParentCloseTime = parent.hdr.CloseTime
	l.hdr.CloseTimeResolution = NextCloseResolution(
		parent.hdr.CloseTimeResolution, parent.hdr.CloseAgree(), l.hdr.Sequence)

	if parent.hdr.CloseTime == 0 {
		l.hdr.CloseTime = header.RoundCloseTime(l.env.now(), l.hdr.CloseTimeResolution)
	} else {
		l.hdr.CloseTime = parent.hdr.CloseTime + uint64(l.hdr.CloseTimeResolution)
	}

	if err := l.UpdateSkipList(); err != nil {
		return nil, fmt.Errorf("update skip list: %w", err)
	}
	return l, nil
}

// Snapshot duplicates the ledger, sharing both maps copy-on-write. The copy
// carries the source's lifecycle flags; an immutable copy has a final hash.
func (l *Ledger) Snapshot(mutable bool) *Ledger {
	l.UpdateHash()
	out := &Ledger{
		env:       l.env,
		txMap:     l.txMap.Snapshot(mutable),
		stateMap:  l.stateMap.Snapshot(mutable),
		hdr:       l.hdr,
		closed:    l.closed,
		accepted:  l.accepted,
		immutable: !mutable,
		validated: l.validated,
		full:      l.full,
	}
	out.UpdateHash()
	return out
}

// NewFromBlob reconstructs an immutable ledger from a serialized header,
// attaching map handles fetched from the node store. The returned flag is
// false when either map root could not be fetched; such a partially loaded
// ledger cannot serve queries until repaired.
func NewFromBlob(env *Env, raw []byte, hasPrefix bool) (*Ledger, bool, error) {
	hdr, err := header.Decode(raw, hasPrefix)
	if err != nil {
		return nil, false, err
	}
	return NewFromHeader(env, *hdr)
}

// NewFromHeader reconstructs an immutable ledger from its header fields, as
// loaded from persistence.
func NewFromHeader(env *Env, hdr header.Header) (*Ledger, bool, error) {
	l := &Ledger{
		env:       env,
		txMap:     env.newMap(shamap.TypeTransaction),
		stateMap:  env.newMap(shamap.TypeState),
		hdr:       hdr,
		immutable: true,
		full:      true,
	}

	if !hdr.TxHash.IsZero() && !l.txMap.FetchRoot(hdr.TxHash) {
		l.full = false
	}
	if !hdr.AccountHash.IsZero() && !l.stateMap.FetchRoot(hdr.AccountHash) {
		l.full = false
	}

	l.txMap.SetImmutable()
	l.stateMap.SetImmutable()

	l.hash = l.hdr.IdentityHash()
	l.validHash = true
	return l, l.full, nil
}

// Seq returns the ledger sequence.
func (l *Ledger) Seq() uint32 {
	return l.hdr.Sequence
}

// TotalCoins returns the native coins in existence.
func (l *Ledger) TotalCoins() uint64 {
	return l.hdr.TotalCoins
}

// ParentHash returns the identity hash of the parent ledger.
func (l *Ledger) ParentHash() types.Hash256 {
	return l.hdr.ParentHash
}

// CloseTime returns the (possibly provisional) close time.
func (l *Ledger) CloseTime() uint64 {
	return l.hdr.CloseTime
}

// Header returns a copy of the current header. For a mutable ledger the map
// roots are refreshed first.
func (l *Ledger) Header() header.Header {
	l.UpdateHash()
	return l.hdr
}

// IsClosed reports whether the ledger accepts no more transactions.
func (l *Ledger) IsClosed() bool { return l.closed }

// IsAccepted reports whether the close time is final and the maps frozen.
func (l *Ledger) IsAccepted() bool { return l.accepted }

// IsImmutable reports whether the ledger is frozen and published.
func (l *Ledger) IsImmutable() bool { return l.immutable }

// IsValidated reports whether an external quorum ratified the hash.
func (l *Ledger) IsValidated() bool { return l.validated }

// IsFull reports whether both maps are attached and loaded.
func (l *Ledger) IsFull() bool { return l.full }

// SetClosed marks the transaction set as determined. Monotonic.
func (l *Ledger) SetClosed() {
	l.closed = true
}

// SetValidated records external ratification. Monotonic.
func (l *Ledger) SetValidated() {
	l.validated = true
}

// SetAccepted finalizes the close time witnessed by consensus, then freezes
// the ledger. Requires closed and not yet accepted.
func (l *Ledger) SetAccepted(closeTime uint64, resolution uint8, correctCloseTime bool) error {
	if !l.closed || l.accepted {
		return ErrInvalidState
	}

	if correctCloseTime {
		l.hdr.CloseTime = header.RoundCloseTime(closeTime, resolution)
		l.hdr.CloseFlags &^= header.FlagNoConsensusTime
	} else {
		l.hdr.CloseTime = closeTime
		l.hdr.CloseFlags |= header.FlagNoConsensusTime
	}
	l.hdr.CloseTimeResolution = resolution
	l.accepted = true
	l.SetImmutable()
	return nil
}

// SetAcceptedAcquired marks a ledger acquired from the network as accepted:
// the close time it carries is re-rounded if it was consensus-agreed.
func (l *Ledger) SetAcceptedAcquired() {
	if l.hdr.CloseAgree() {
		l.hdr.CloseTime = header.RoundCloseTime(l.hdr.CloseTime, l.hdr.CloseTimeResolution)
	}
	l.accepted = true
	l.SetImmutable()
}

// SetImmutable freezes the header and both maps. The identity hash observed
// afterwards is final and identical on all threads.
func (l *Ledger) SetImmutable() {
	l.UpdateHash()
	l.immutable = true
	l.txMap.SetImmutable()
	l.stateMap.SetImmutable()
}

// UpdateHash recomputes the identity hash of a mutable ledger from the
// current map roots. An immutable ledger never recomputes.
func (l *Ledger) UpdateHash() {
	if !l.immutable {
		l.hdr.TxHash = l.txMap.Hash()
		l.hdr.AccountHash = l.stateMap.Hash()
		l.hash = l.hdr.IdentityHash()
		l.validHash = true
		return
	}
	if !l.validHash {
		l.hash = l.hdr.IdentityHash()
		l.validHash = true
	}
}

// Hash returns the identity hash, recomputing it if stale.
func (l *Ledger) Hash() types.Hash256 {
	if !l.validHash {
		l.UpdateHash()
	}
	return l.hash
}

// CheckHash verifies the identity hash against the one persistence claims
// for this ledger. A mismatch is fatal for the loaded ledger.
func (l *Ledger) CheckHash(expected types.Hash256) error {
	if l.Hash() != expected {
		return fmt.Errorf("%w: computed %s, expected %s", ErrHashMismatch, l.Hash(), expected)
	}
	return nil
}

// AssertSane checks that the header's map roots agree with the maps.
func (l *Ledger) AssertSane() bool {
	return !l.Hash().IsZero() &&
		!l.hdr.AccountHash.IsZero() &&
		l.hdr.AccountHash == l.stateMap.Hash() &&
		l.hdr.TxHash == l.txMap.Hash()
}

// EnforceFreeze reports whether trust-line freezes are enforced. Enforcement
// is always on unless configuration disables it.
func (l *Ledger) EnforceFreeze() bool {
	if l.env == nil {
		return true
	}
	return !l.env.Config.DisableFreezeEnforcement
}

// WalkLedger audits both maps and returns the hashes of missing nodes.
func (l *Ledger) WalkLedger() [][32]byte {
	missing := l.stateMap.Walk(0)
	return append(missing, l.txMap.Walk(0)...)
}

// GetNeededTransactionHashes lists transaction-map nodes that must be
// fetched to complete the ledger.
func (l *Ledger) GetNeededTransactionHashes(max int) [][32]byte {
	if l.hdr.TxHash.IsZero() {
		return nil
	}
	if l.txMap.Hash() == [32]byte{} {
		return [][32]byte{l.hdr.TxHash}
	}
	return l.txMap.NeededHashes(max)
}

// GetNeededAccountStateHashes lists state-map nodes that must be fetched to
// complete the ledger.
func (l *Ledger) GetNeededAccountStateHashes(max int) [][32]byte {
	if l.hdr.AccountHash.IsZero() {
		return nil
	}
	if l.stateMap.Hash() == [32]byte{} {
		return [][32]byte{l.hdr.AccountHash}
	}
	return l.stateMap.NeededHashes(max)
}
