package ledger

import (
	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// NodeKind classifies objects handed to the node store.
type NodeKind uint32

const (
	HotLedger          NodeKind = 1
	HotAccountNode     NodeKind = 3
	HotTransactionNode NodeKind = 4
)

// NodeStore is the content-addressed object store the core persists into.
type NodeStore interface {
	Store(kind NodeKind, seq uint32, data []byte, hash types.Hash256) error
}

// LedgerRow mirrors one row of the Ledgers table.
type LedgerRow struct {
	LedgerHash      types.Hash256
	LedgerSeq       uint32
	PrevHash        types.Hash256
	TotalCoins      uint64
	ClosingTime     uint64
	PrevClosingTime uint64
	CloseTimeRes    uint8
	CloseFlags      uint8
	AccountSetHash  types.Hash256
	TransSetHash    types.Hash256
}

// TxRow mirrors one row of the Transactions table.
type TxRow struct {
	TransID   types.Hash256
	LedgerSeq uint32
	TxnSeq    uint32
	Status    string
	RawTxn    []byte
	TxnMeta   []byte
}

// AccountTxRow mirrors one row of the AccountTransactions table.
type AccountTxRow struct {
	TransID   types.Hash256
	Account   types.AccountID
	LedgerSeq uint32
	TxnSeq    uint32
}

// IndexDB is the relational index the core writes validated ledgers into.
// The three row sets of one ledger are committed in a single transaction.
type IndexDB interface {
	SaveValidatedLedger(ledger LedgerRow, txs []TxRow, accountTxs []AccountTxRow) error
}

// JobKind distinguishes publish work for current versus historical ledgers.
type JobKind int

const (
	JobPublishLedger JobKind = iota
	JobPublishOldLedger
)

// JobQueue runs deferred persistence work.
type JobQueue interface {
	AddJob(kind JobKind, name string, fn func())
}

// SavedFlag is the hash-router flag marking a ledger as saved.
const SavedFlag uint32 = 0x01

// HashRouter tracks per-hash flags across the process. SetFlag returns false
// when the flag was already set.
type HashRouter interface {
	SetFlag(hash types.Hash256, flag uint32) bool
}

// FeeTrack scales fees by the current load. It is external to the core; the
// fee view only forwards the cached schedule into it.
type FeeTrack interface {
	ScaleFeeBase(fee uint64, baseFee uint64, referenceFeeUnits uint32) uint64
	ScaleFeeLoad(fee uint64, baseFee uint64, referenceFeeUnits uint32, admin bool) uint64
}

// InboundLedgers asks the acquisition machinery to fetch a ledger whose
// nodes turned out to be missing locally.
type InboundLedgers interface {
	Acquire(hash types.Hash256, seq uint32)
}

// Config carries the configuration values the core consults.
type Config struct {
	// FeeDefault is the base transaction fee in drops.
	FeeDefault uint64

	// TransactionFeeBase is the cost of a reference transaction in fee units.
	TransactionFeeBase uint32

	// FeeAccountReserve is the account reserve in drops.
	FeeAccountReserve uint32

	// FeeOwnerReserve is the per-owned-object reserve in drops.
	FeeOwnerReserve uint32

	// RunStandalone disables networked operation.
	RunStandalone bool

	// DisableFreezeEnforcement turns off trust-line freeze enforcement.
	// Enforcement is on unless explicitly disabled.
	DisableFreezeEnforcement bool
}

// Env bundles the external collaborators a ledger consults. Any field may be
// nil (or zero) when the corresponding facility is absent; operations that
// need a missing collaborator fail or no-op explicitly.
type Env struct {
	Config     Config
	Family     shamap.Family
	NodeStore  NodeStore
	IndexDB    IndexDB
	JobQueue   JobQueue
	HashRouter HashRouter
	FeeTrack   FeeTrack
	Inbound    InboundLedgers

	// FailedSave is told when a validated ledger could not be persisted.
	FailedSave func(seq uint32, hash types.Hash256)

	// Now returns the network time in seconds since the protocol epoch.
	Now func() uint64
}

func (e *Env) now() uint64 {
	if e == nil || e.Now == nil {
		return 0
	}
	return e.Now()
}
