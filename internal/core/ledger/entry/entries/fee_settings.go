package entries

import (
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
)

// FeeSettings is the singleton entry carrying the network fee schedule.
// Every field is optional on the wire; readers fall back to configured
// defaults for absent fields.
type FeeSettings struct {
	BaseFee           *uint64
	ReferenceFeeUnits *uint32
	ReserveBase       *uint32
	ReserveIncrement  *uint32
}

// presence mask bits
const (
	feeHasBaseFee = 1 << iota
	feeHasReferenceFeeUnits
	feeHasReserveBase
	feeHasReserveIncrement
)

// Type returns the ledger entry type for FeeSettings.
func (f *FeeSettings) Type() entry.Type {
	return entry.TypeFeeSettings
}

// MarshalBinary renders the fee schedule with a presence mask so absent
// fields survive a round trip as absent.
func (f *FeeSettings) MarshalBinary() ([]byte, error) {
	w := newWriter(entry.TypeFeeSettings)

	var mask uint8
	if f.BaseFee != nil {
		mask |= feeHasBaseFee
	}
	if f.ReferenceFeeUnits != nil {
		mask |= feeHasReferenceFeeUnits
	}
	if f.ReserveBase != nil {
		mask |= feeHasReserveBase
	}
	if f.ReserveIncrement != nil {
		mask |= feeHasReserveIncrement
	}
	w.u8(mask)

	if f.BaseFee != nil {
		w.u64(*f.BaseFee)
	}
	if f.ReferenceFeeUnits != nil {
		w.u32(*f.ReferenceFeeUnits)
	}
	if f.ReserveBase != nil {
		w.u32(*f.ReserveBase)
	}
	if f.ReserveIncrement != nil {
		w.u32(*f.ReserveIncrement)
	}
	return w.bytes(), nil
}

func readFeeSettings(r *reader) (Entry, error) {
	f := &FeeSettings{}
	mask := r.u8()
	if mask&feeHasBaseFee != 0 {
		v := r.u64()
		f.BaseFee = &v
	}
	if mask&feeHasReferenceFeeUnits != 0 {
		v := r.u32()
		f.ReferenceFeeUnits = &v
	}
	if mask&feeHasReserveBase != 0 {
		v := r.u32()
		f.ReserveBase = &v
	}
	if mask&feeHasReserveIncrement != 0 {
		v := r.u32()
		f.ReserveIncrement = &v
	}
	return f, r.err
}
