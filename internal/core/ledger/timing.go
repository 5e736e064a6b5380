package ledger

// Close-time resolution tuning. The resolution adapts to how well the
// network agrees on close times: it coarsens while agreement fails and
// tightens while agreement holds.
const (
	// LedgerTimeAccuracy is the initial close-time resolution in seconds.
	LedgerTimeAccuracy uint8 = 30

	// increaseResolutionEvery is how often (in ledgers) the resolution may
	// coarsen after a close time without consensus.
	increaseResolutionEvery = 8

	// decreaseResolutionEvery is how often the resolution may tighten after
	// an agreed close time.
	decreaseResolutionEvery = 1
)

// possibleResolutions are the legal close-time resolutions, finest first.
var possibleResolutions = []uint8{10, 20, 30, 60, 90, 120}

// NextCloseResolution derives a child ledger's close-time resolution from
// its parent's resolution, whether the parent's close time was agreed, and
// the child's sequence.
func NextCloseResolution(previous uint8, previousAgree bool, seq uint32) uint8 {
	idx := 0
	for i, r := range possibleResolutions {
		if r == previous {
			idx = i
			break
		}
	}

	if !previousAgree && seq%increaseResolutionEvery == 0 {
		if idx+1 < len(possibleResolutions) {
			idx++
		}
	} else if previousAgree && seq%decreaseResolutionEvery == 0 {
		if idx > 0 {
			idx--
		}
	}
	return possibleResolutions[idx]
}
