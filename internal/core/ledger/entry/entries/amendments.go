package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// Amendments is the singleton entry listing enabled protocol amendments.
type Amendments struct {
	Amendments []types.Hash256
}

// Type returns the ledger entry type for Amendments.
func (a *Amendments) Type() entry.Type {
	return entry.TypeAmendments
}

// Contains reports whether the amendment is enabled.
func (a *Amendments) Contains(id types.Hash256) bool {
	for _, h := range a.Amendments {
		if h == id {
			return true
		}
	}
	return false
}

// MarshalBinary renders the entry in its canonical form.
func (a *Amendments) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeAmendments)
	w.u32(uint32(len(a.Amendments)))
	for _, h := range a.Amendments {
		w.hash(h)
	}
	return w.bytes(), nil
}

func readAmendments(r *reader) (Entry, error) {
	count := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	a := &Amendments{Amendments: make([]types.Hash256, 0, count)}
	for i := uint32(0); i < count; i++ {
		a.Amendments = append(a.Amendments, r.hash())
	}
	return a, r.err
}
