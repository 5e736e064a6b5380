package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// DirNodeMaxEntries is the maximum number of child keys per directory page.
const DirNodeMaxEntries = 32

// DirectoryNode is one page of a directory: a doubly linked list of pages,
// each carrying up to 32 child keys. Owner directories link an account's
// objects; book directories link offers at one quality.
type DirectoryNode struct {
	Flags         uint32
	RootIndex     types.Hash256
	Indexes       []types.Hash256
	IndexNext     uint64
	IndexPrevious uint64

	// Owner directory pages name their owner
	Owner types.AccountID

	// Book directory pages name the book and quality
	TakerPaysCurrency types.Currency
	TakerPaysIssuer   types.AccountID
	TakerGetsCurrency types.Currency
	TakerGetsIssuer   types.AccountID
	ExchangeRate      uint64
}

// Type returns the ledger entry type for DirectoryNode.
func (d *DirectoryNode) Type() entry.Type {
	return entry.TypeDirectoryNode
}

// IsBookDir reports whether the page belongs to an order-book directory.
func (d *DirectoryNode) IsBookDir() bool {
	return d.ExchangeRate != 0 ||
		!d.TakerPaysCurrency.IsNative() || !d.TakerGetsCurrency.IsNative() ||
		!d.TakerPaysIssuer.IsZero() || !d.TakerGetsIssuer.IsZero()
}

// MarshalBinary renders the page in its canonical form.
func (d *DirectoryNode) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeDirectoryNode)
	w.u32(d.Flags)
	w.hash(d.RootIndex)
	w.u64(d.IndexNext)
	w.u64(d.IndexPrevious)
	w.account(d.Owner)
	w.currency(d.TakerPaysCurrency)
	w.account(d.TakerPaysIssuer)
	w.currency(d.TakerGetsCurrency)
	w.account(d.TakerGetsIssuer)
	w.u64(d.ExchangeRate)
	w.u32(uint32(len(d.Indexes)))
	for _, idx := range d.Indexes {
		w.hash(idx)
	}
	return w.bytes(), nil
}

func readDirectoryNode(r *reader) (Entry, error) {
	d := &DirectoryNode{
		Flags:             r.u32(),
		RootIndex:         r.hash(),
		IndexNext:         r.u64(),
		IndexPrevious:     r.u64(),
		Owner:             r.account(),
		TakerPaysCurrency: r.currency(),
		TakerPaysIssuer:   r.account(),
		TakerGetsCurrency: r.currency(),
		TakerGetsIssuer:   r.account(),
		ExchangeRate:      r.u64(),
	}
	count := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	d.Indexes = make([]types.Hash256, 0, count)
	for i := uint32(0); i < count; i++ {
		d.Indexes = append(d.Indexes, r.hash())
	}
	return d, r.err
}
