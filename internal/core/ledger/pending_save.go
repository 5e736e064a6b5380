package ledger

import (
	"sync"
)

// coreMu guards the process-wide pending-save set and the per-ledger fee
// cache installs. Held only briefly.
var coreMu sync.Mutex

// pendingSaves tracks ledger sequences with a persistence in flight, so two
// workers validating the same ledger dispatch at most one save.
var pendingSaves = make(map[uint32]struct{})

// PendingSaves returns a snapshot of the sequences currently being saved.
func PendingSaves() []uint32 {
	coreMu.Lock()
	defer coreMu.Unlock()
	out := make([]uint32, 0, len(pendingSaves))
	for seq := range pendingSaves {
		out = append(out, seq)
	}
	return out
}

func removePendingSave(seq uint32) {
	coreMu.Lock()
	defer coreMu.Unlock()
	delete(pendingSaves, seq)
}

// PendSaveValidated saves, or arranges to save, a fully-validated ledger.
// The call is idempotent per ledger: the hash-router saved flag and the
// pending-save set both short-circuit duplicates as redundant successes.
// Returns false on error.
func (l *Ledger) PendSaveValidated(isSynchronous, isCurrent bool) bool {
	if !l.immutable {
		return false
	}

	if l.env != nil && l.env.HashRouter != nil {
		if !l.env.HashRouter.SetFlag(l.Hash(), SavedFlag) {
			// Already flagged as saved
			return true
		}
	}

	coreMu.Lock()
	if _, exists := pendingSaves[l.Seq()]; exists {
		coreMu.Unlock()
		return true
	}
	pendingSaves[l.Seq()] = struct{}{}
	coreMu.Unlock()

	if isSynchronous {
		return l.saveValidatedLedger(isCurrent)
	}

	if l.env == nil || l.env.JobQueue == nil {
		return l.saveValidatedLedger(isCurrent)
	}

	if isCurrent {
		l.env.JobQueue.AddJob(JobPublishLedger, "Ledger.pendSave", func() {
			l.saveValidatedLedger(true)
		})
	} else {
		l.env.JobQueue.AddJob(JobPublishOldLedger, "Ledger.pendOldSave", func() {
			l.saveValidatedLedger(false)
		})
	}
	return true
}

// saveValidatedLedger writes the ledger header to the node store, then the
// index rows — ledger row, per-transaction rows, per-(account, tx) rows —
// in a single database transaction. Failure to materialize the accepted
// ledger reports a failed save and clears the pending entry.
func (l *Ledger) saveValidatedLedger(current bool) bool {
	hdr := l.hdr

	if hdr.AccountHash.IsZero() || hdr.AccountHash != l.stateMap.Hash() || hdr.TxHash != l.txMap.Hash() {
		removePendingSave(l.Seq())
		return false
	}

	// Flush both maps into the backing store so the roots recorded in the
	// header are fetchable.
	if l.env != nil && l.env.Family != nil {
		if err := l.env.Family.StoreBatch(l.stateMap.FlushDirty()); err != nil {
			l.notifyFailedSave()
			removePendingSave(l.Seq())
			return false
		}
		if err := l.env.Family.StoreBatch(l.txMap.FlushDirty()); err != nil {
			l.notifyFailedSave()
			removePendingSave(l.Seq())
			return false
		}
	}

	if l.env != nil && l.env.NodeStore != nil {
		raw := hdr.EncodeWithPrefix()
		if err := l.env.NodeStore.Store(HotLedger, l.Seq(), raw, l.Hash()); err != nil {
			l.notifyFailedSave()
			removePendingSave(l.Seq())
			return false
		}
	}

	txs, err := l.buildAcceptedTxs()
	if err != nil {
		// An accepted ledger was missing nodes. Clients can now trust the
		// database for information about this ledger sequence.
		l.notifyFailedSave()
		removePendingSave(l.Seq())
		return false
	}

	if l.env != nil && l.env.IndexDB != nil {
		row := LedgerRow{
			LedgerHash:      l.Hash(),
			LedgerSeq:       l.Seq(),
			PrevHash:        hdr.ParentHash,
			TotalCoins:      hdr.TotalCoins,
			ClosingTime:     hdr.CloseTime,
			PrevClosingTime: hdr.ParentCloseTime,
			CloseTimeRes:    hdr.CloseTimeResolution,
			CloseFlags:      hdr.CloseFlags,
			AccountSetHash:  hdr.AccountHash,
			TransSetHash:    hdr.TxHash,
		}

		txRows := make([]TxRow, 0, len(txs))
		var acctRows []AccountTxRow
		for _, tx := range txs {
			txRows = append(txRows, TxRow{
				TransID:   tx.ID,
				LedgerSeq: l.Seq(),
				TxnSeq:    tx.TxnSeq,
				Status:    TxStatusValidated,
				RawTxn:    tx.Raw,
				TxnMeta:   tx.Meta,
			})
			for _, account := range tx.Accounts {
				acctRows = append(acctRows, AccountTxRow{
					TransID:   tx.ID,
					Account:   account,
					LedgerSeq: l.Seq(),
					TxnSeq:    tx.TxnSeq,
				})
			}
		}

		if err := l.env.IndexDB.SaveValidatedLedger(row, txRows, acctRows); err != nil {
			l.notifyFailedSave()
			removePendingSave(l.Seq())
			return false
		}
	}

	removePendingSave(l.Seq())
	return true
}

// TxStatusValidated is the single-character status recorded for every
// transaction of a validated ledger.
const TxStatusValidated = "V"

func (l *Ledger) notifyFailedSave() {
	if l.env != nil && l.env.FailedSave != nil {
		l.env.FailedSave(l.Seq(), l.Hash())
	}
}
