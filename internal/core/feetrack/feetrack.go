// Package feetrack tracks transaction-fee load scaling: converting fees in
// fee units into drops, inflated by the local and remote load factors.
package feetrack

import (
	"math"
	"math/bits"
	"sync"
)

const (
	// loadBase is the factor representing no load escalation.
	loadBase = 256

	// raiseCount is how many raise requests must accumulate before the local
	// fee actually rises.
	raiseCount = 2

	// feeIncFraction is the fractional step used when raising or lowering
	// the local fee factor.
	feeIncFraction = 4
)

// Track scales fees by the observed load. The zero value is not usable;
// construct with New.
type Track struct {
	mu sync.Mutex

	localFactor  uint32
	remoteFactor uint32
	raiseCount   int
}

// New creates a tracker at the neutral load factor.
func New() *Track {
	return &Track{
		localFactor:  loadBase,
		remoteFactor: loadBase,
	}
}

// LoadBase returns the neutral load factor.
func (t *Track) LoadBase() uint32 {
	return loadBase
}

// LoadFactor returns the effective load factor: the larger of the local and
// remote factors.
func (t *Track) LoadFactor() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return max(t.localFactor, t.remoteFactor)
}

// SetRemoteFactor records the load factor observed from the network.
func (t *Track) SetRemoteFactor(factor uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if factor < loadBase {
		factor = loadBase
	}
	t.remoteFactor = factor
}

// RaiseLocalFactor asks to raise the local fee; the rise takes effect after
// repeated requests.
func (t *Track) RaiseLocalFactor() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raiseCount++
	if t.raiseCount < raiseCount {
		return
	}
	t.localFactor += t.localFactor / feeIncFraction
}

// LowerLocalFactor decays the local fee factor toward neutral.
func (t *Track) LowerLocalFactor() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raiseCount = 0
	t.localFactor -= t.localFactor / feeIncFraction
	if t.localFactor < loadBase {
		t.localFactor = loadBase
	}
}

// ScaleFeeBase converts a fee in fee units to drops using the ledger's base
// fee and reference transaction cost.
func (t *Track) ScaleFeeBase(fee, baseFee uint64, referenceFeeUnits uint32) uint64 {
	if referenceFeeUnits == 0 {
		return fee
	}
	return mulDiv(fee, baseFee, uint64(referenceFeeUnits))
}

// ScaleFeeLoad converts a fee in fee units to drops and applies the current
// load escalation. Admin requests bypass the escalation.
func (t *Track) ScaleFeeLoad(fee, baseFee uint64, referenceFeeUnits uint32, admin bool) uint64 {
	fee = t.ScaleFeeBase(fee, baseFee, referenceFeeUnits)
	if admin {
		return fee
	}
	factor := uint64(t.LoadFactor())
	return mulDiv(fee, factor, loadBase)
}

// mulDiv computes a*b/den, saturating instead of overflowing.
func mulDiv(a, b, den uint64) uint64 {
	if den == 0 {
		return math.MaxUint64
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, den)
	return q
}
