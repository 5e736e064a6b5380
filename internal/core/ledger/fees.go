package ledger

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
)

// UpdateFees populates the fee schedule cache from the FeeSettings entry,
// falling back to configured defaults for fields the entry omits. The first
// thread to win the core mutex installs the values; later calls are no-ops.
// Safe to call concurrently.
func (l *Ledger) UpdateFees() {
	if l.baseFee != 0 {
		return
	}

	var cfg Config
	if l.env != nil {
		cfg = l.env.Config
	}
	baseFee := cfg.FeeDefault
	referenceFeeUnits := cfg.TransactionFeeBase
	reserveBase := cfg.FeeAccountReserve
	reserveIncrement := cfg.FeeOwnerReserve

	e, err := l.GetTyped(keylet.Fees().Key, entry.TypeFeeSettings)
	if err == nil && e != nil {
		fees := e.(*entries.FeeSettings)
		if fees.BaseFee != nil {
			baseFee = *fees.BaseFee
		}
		if fees.ReferenceFeeUnits != nil {
			referenceFeeUnits = *fees.ReferenceFeeUnits
		}
		if fees.ReserveBase != nil {
			reserveBase = *fees.ReserveBase
		}
		if fees.ReserveIncrement != nil {
			reserveIncrement = *fees.ReserveIncrement
		}
	}

	coreMu.Lock()
	defer coreMu.Unlock()
	if l.baseFee == 0 {
		l.baseFee = baseFee
		l.referenceFeeUnits = referenceFeeUnits
		l.reserveBase = reserveBase
		l.reserveIncrement = reserveIncrement
	}
}

// BaseFee returns the base transaction fee in drops.
func (l *Ledger) BaseFee() uint64 {
	l.UpdateFees()
	return l.baseFee
}

// ReserveBase returns the account reserve in drops.
func (l *Ledger) ReserveBase() uint32 {
	l.UpdateFees()
	return l.reserveBase
}

// ReserveIncrement returns the per-owned-object reserve in drops.
func (l *Ledger) ReserveIncrement() uint32 {
	l.UpdateFees()
	return l.reserveIncrement
}

// Reserve returns the reserve requirement for an account owning ownerCount
// objects.
func (l *Ledger) Reserve(ownerCount uint32) uint64 {
	l.UpdateFees()
	return uint64(l.reserveBase) + uint64(ownerCount)*uint64(l.reserveIncrement)
}

// ScaleFeeBase converts a fee in fee units to drops via the load tracker.
func (l *Ledger) ScaleFeeBase(fee uint64) uint64 {
	l.UpdateFees()
	if l.env == nil || l.env.FeeTrack == nil {
		return fee
	}
	return l.env.FeeTrack.ScaleFeeBase(fee, l.baseFee, l.referenceFeeUnits)
}

// ScaleFeeLoad converts a fee in fee units to drops, applying the current
// load penalty. Admin requests bypass the penalty.
func (l *Ledger) ScaleFeeLoad(fee uint64, admin bool) uint64 {
	l.UpdateFees()
	if l.env == nil || l.env.FeeTrack == nil {
		return fee
	}
	return l.env.FeeTrack.ScaleFeeLoad(fee, l.baseFee, l.referenceFeeUnits, admin)
}
