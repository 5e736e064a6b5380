package ledger

import (
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// UpdateSkipList records the parent's hash in the on-ledger skip lists: the
// dense list of the last 256 ledgers always, and the sparse epoch page when
// the parent sequence is a multiple of 256. Called on a child at
// construction time.
func (l *Ledger) UpdateSkipList() error {
	if l.hdr.Sequence == 0 {
		return nil
	}
	prevSeq := l.hdr.Sequence - 1

	// One entry per 256 ledgers lands on the sparse epoch page
	if prevSeq&0xff == 0 {
		k := keylet.SkipListEpoch(prevSeq)
		if err := l.appendSkipHash(k.Key, prevSeq); err != nil {
			return err
		}
	}

	// The dense list tracks the most recent 256 ledgers
	return l.appendSkipHash(keylet.SkipList().Key, prevSeq)
}

func (l *Ledger) appendSkipHash(key types.Hash256, prevSeq uint32) error {
	list := entries.NewLedgerHashes()

	existing, err := l.GetTyped(key, entry.TypeLedgerHashes)
	if err != nil {
		return err
	}
	if existing != nil {
		prior := existing.(*entries.LedgerHashes)
		list.Hashes = append(list.Hashes, prior.Hashes...)
	}

	list.Append(l.hdr.ParentHash, prevSeq)

	res, err := l.WriteBack(WriteCreate, key, list)
	if err != nil {
		return err
	}
	if res != WriteOK && res != WriteCreated {
		return fmt.Errorf("skip list write: unexpected result %v", res)
	}
	return nil
}

// GetLedgerHash answers "hash of ledger seq" from this ledger's vantage
// point, or zero when the skip lists cannot reach it: the immediate lineage
// directly, the last 256 ledgers through the dense list, and 256-multiples
// through the sparse pages.
func (l *Ledger) GetLedgerHash(seq uint32) types.Hash256 {
	if seq > l.hdr.Sequence {
		return types.Hash256{}
	}
	if seq == l.hdr.Sequence {
		return l.Hash()
	}
	if seq == l.hdr.Sequence-1 {
		return l.hdr.ParentHash
	}

	diff := l.hdr.Sequence - seq
	if diff <= entries.SkipListCapacity {
		e, err := l.GetTyped(keylet.SkipList().Key, entry.TypeLedgerHashes)
		if err == nil && e != nil {
			list := e.(*entries.LedgerHashes)
			if uint32(len(list.Hashes)) >= diff {
				return list.Hashes[uint32(len(list.Hashes))-diff]
			}
		}
	}

	if seq&0xff != 0 {
		return types.Hash256{}
	}

	e, err := l.GetTyped(keylet.SkipListEpoch(seq).Key, entry.TypeLedgerHashes)
	if err != nil || e == nil {
		return types.Hash256{}
	}
	list := e.(*entries.LedgerHashes)
	if list.LastLedgerSequence < seq {
		return types.Hash256{}
	}
	offset := (list.LastLedgerSequence - seq) >> 8
	if uint32(len(list.Hashes)) <= offset {
		return types.Hash256{}
	}
	return list.Hashes[uint32(len(list.Hashes))-offset-1]
}

// SeqHash pairs a ledger sequence with its hash.
type SeqHash struct {
	Seq  uint32
	Hash types.Hash256
}

// GetLedgerHashes decodes the dense skip list into sequence/hash pairs.
func (l *Ledger) GetLedgerHashes() ([]SeqHash, error) {
	e, err := l.GetTyped(keylet.SkipList().Key, entry.TypeLedgerHashes)
	if err != nil || e == nil {
		return nil, err
	}
	list := e.(*entries.LedgerHashes)

	out := make([]SeqHash, 0, len(list.Hashes))
	seq := list.LastLedgerSequence - uint32(len(list.Hashes))
	for _, h := range list.Hashes {
		seq++
		out = append(out, SeqHash{Seq: seq, Hash: h})
	}
	return out, nil
}

// GetLedgerAmendments returns the enabled amendments, if any.
func (l *Ledger) GetLedgerAmendments() ([]types.Hash256, error) {
	e, err := l.GetTyped(keylet.Amendments().Key, entry.TypeAmendments)
	if err != nil || e == nil {
		return nil, err
	}
	return e.(*entries.Amendments).Amendments, nil
}
