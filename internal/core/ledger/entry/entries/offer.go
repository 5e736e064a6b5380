package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// Offer is a DEX offer: the owner pays TakerGets and receives TakerPays.
// BookDirectory is the quality-suffixed book page holding the offer.
type Offer struct {
	Flags         uint32
	Account       types.AccountID
	Sequence      uint32
	TakerPays     types.Amount
	TakerGets     types.Amount
	BookDirectory types.Hash256
	BookNode      uint64
	OwnerNode     uint64
	Expiration    uint32
}

// Type returns the ledger entry type for Offer.
func (o *Offer) Type() entry.Type {
	return entry.TypeOffer
}

// Quality returns the offer's exchange rate as embedded in its book page key.
func (o *Offer) Quality() uint64 {
	return o.BookDirectory.Quality()
}

// MarshalBinary renders the offer in its canonical form.
func (o *Offer) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeOffer)
	w.u32(o.Flags)
	w.account(o.Account)
	w.u32(o.Sequence)
	w.amount(o.TakerPays)
	w.amount(o.TakerGets)
	w.hash(o.BookDirectory)
	w.u64(o.BookNode)
	w.u64(o.OwnerNode)
	w.u32(o.Expiration)
	return w.bytes(), nil
}

func readOffer(r *reader) (Entry, error) {
	o := &Offer{
		Flags:         r.u32(),
		Account:       r.account(),
		Sequence:      r.u32(),
		TakerPays:     r.amount(),
		TakerGets:     r.amount(),
		BookDirectory: r.hash(),
		BookNode:      r.u64(),
		OwnerNode:     r.u64(),
		Expiration:    r.u32(),
	}
	return o, r.err
}
