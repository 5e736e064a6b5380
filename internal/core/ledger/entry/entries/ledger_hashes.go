package entries

import (
	"errors"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// ErrTooManyHashes is returned when LedgerHashes contains more than 256 hashes
var ErrTooManyHashes = errors.New("LedgerHashes entry contains more than 256 hashes")

// SkipListCapacity is the maximum number of hashes one skip-list entry holds.
const SkipListCapacity = 256

// LedgerHashes is a skip-list entry: an ordered run of historical ledger
// hashes ending at LastLedgerSequence. The dense list holds the most recent
// 256 ledgers; sparse epoch pages hold one hash per 256 ledgers.
type LedgerHashes struct {
	Hashes             []types.Hash256
	LastLedgerSequence uint32
}

// NewLedgerHashes creates a new empty LedgerHashes entry.
func NewLedgerHashes() *LedgerHashes {
	return &LedgerHashes{
		Hashes: make([]types.Hash256, 0, SkipListCapacity),
	}
}

// Type returns the ledger entry type for LedgerHashes.
func (lh *LedgerHashes) Type() entry.Type {
	return entry.TypeLedgerHashes
}

// Validate checks that the entry does not exceed the capacity.
func (lh *LedgerHashes) Validate() error {
	if len(lh.Hashes) > SkipListCapacity {
		return ErrTooManyHashes
	}
	return nil
}

// Append adds a hash to the run, dropping the oldest when at capacity, and
// records the sequence the run now ends at.
func (lh *LedgerHashes) Append(h types.Hash256, lastSeq uint32) {
	if len(lh.Hashes) >= SkipListCapacity {
		lh.Hashes = lh.Hashes[1:]
	}
	lh.Hashes = append(lh.Hashes, h)
	lh.LastLedgerSequence = lastSeq
}

// MarshalBinary renders the entry in its canonical form.
func (lh *LedgerHashes) MarshalBinary() ([]byte, error) {
	if err := lh.Validate(); err != nil {
		return nil, err
	}
	w := newWriter(entry.TypeLedgerHashes)
	w.u32(lh.LastLedgerSequence)
	w.u32(uint32(len(lh.Hashes)))
	for _, h := range lh.Hashes {
		w.hash(h)
	}
	return w.bytes(), nil
}

func readLedgerHashes(r *reader) (Entry, error) {
	lh := &LedgerHashes{LastLedgerSequence: r.u32()}
	count := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	if count > SkipListCapacity {
		return nil, ErrTooManyHashes
	}
	lh.Hashes = make([]types.Hash256, 0, count)
	for i := uint32(0); i < count; i++ {
		lh.Hashes = append(lh.Hashes, r.hash())
	}
	return lh, r.err
}
