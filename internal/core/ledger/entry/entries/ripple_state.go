package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// RippleState is a trust line between two accounts in one currency. The
// accounts are stored in canonical order (low first); the balance is from
// the low account's point of view.
type RippleState struct {
	Flags       uint32
	LowAccount  types.AccountID
	HighAccount types.AccountID
	Currency    types.Currency
	Balance     int64
	LowLimit    uint64
	HighLimit   uint64
	LowNode     uint64
	HighNode    uint64
}

// Type returns the ledger entry type for RippleState.
func (s *RippleState) Type() entry.Type {
	return entry.TypeRippleState
}

// MarshalBinary renders the trust line in its canonical form.
func (s *RippleState) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeRippleState)
	w.u32(s.Flags)
	w.account(s.LowAccount)
	w.account(s.HighAccount)
	w.currency(s.Currency)
	w.u64(uint64(s.Balance))
	w.u64(s.LowLimit)
	w.u64(s.HighLimit)
	w.u64(s.LowNode)
	w.u64(s.HighNode)
	return w.bytes(), nil
}

func readRippleState(r *reader) (Entry, error) {
	s := &RippleState{
		Flags:       r.u32(),
		LowAccount:  r.account(),
		HighAccount: r.account(),
		Currency:    r.currency(),
		Balance:     int64(r.u64()),
		LowLimit:    r.u64(),
		HighLimit:   r.u64(),
		LowNode:     r.u64(),
		HighNode:    r.u64(),
	}
	return s, r.err
}
