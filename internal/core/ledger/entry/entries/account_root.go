package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// AccountRoot is the state entry anchoring an account: its native balance,
// transaction sequence and owner bookkeeping.
type AccountRoot struct {
	Account    types.AccountID
	Balance    uint64
	Sequence   uint32
	OwnerCount uint32
	Flags      uint32
	PrevTxnID  types.Hash256
}

// Type returns the ledger entry type for AccountRoot.
func (a *AccountRoot) Type() entry.Type {
	return entry.TypeAccountRoot
}

// MarshalBinary renders the entry in its canonical form.
func (a *AccountRoot) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeAccountRoot)
	w.account(a.Account)
	w.u64(a.Balance)
	w.u32(a.Sequence)
	w.u32(a.OwnerCount)
	w.u32(a.Flags)
	w.hash(a.PrevTxnID)
	return w.bytes(), nil
}

func readAccountRoot(r *reader) (Entry, error) {
	a := &AccountRoot{
		Account:    r.account(),
		Balance:    r.u64(),
		Sequence:   r.u32(),
		OwnerCount: r.u32(),
		Flags:      r.u32(),
		PrevTxnID:  r.hash(),
	}
	return a, r.err
}
