package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// Ticket reserves a transaction sequence number for later use.
type Ticket struct {
	Flags          uint32
	Account        types.AccountID
	TicketSequence uint32
	OwnerNode      uint64
}

// Type returns the ledger entry type for Ticket.
func (t *Ticket) Type() entry.Type {
	return entry.TypeTicket
}

// MarshalBinary renders the ticket in its canonical form.
func (t *Ticket) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeTicket)
	w.u32(t.Flags)
	w.account(t.Account)
	w.u32(t.TicketSequence)
	w.u64(t.OwnerNode)
	return w.bytes(), nil
}

func readTicket(r *reader) (Entry, error) {
	t := &Ticket{
		Flags:          r.u32(),
		Account:        r.account(),
		TicketSequence: r.u32(),
		OwnerNode:      r.u64(),
	}
	return t, r.err
}
