// Package relationaldb implements the relational index of validated
// ledgers: the Ledgers, Transactions and AccountTransactions tables that let
// clients query history without touching the node store.
package relationaldb

import (
	"context"

	"github.com/LeJamon/goledgerd/internal/core/ledger"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// LedgerIndex represents a ledger sequence number
type LedgerIndex uint32

// LedgerInfo contains the indexed header fields of one ledger.
type LedgerInfo struct {
	Hash            types.Hash256
	Sequence        LedgerIndex
	ParentHash      types.Hash256
	AccountHash     types.Hash256
	TransactionHash types.Hash256
	TotalCoins      uint64
	CloseTime       uint64
	ParentCloseTime uint64
	CloseTimeRes    uint8
	CloseFlags      uint8
}

// LedgerHashPair contains a ledger hash and its parent hash
type LedgerHashPair struct {
	LedgerHash types.Hash256
	ParentHash types.Hash256
}

// TransactionInfo contains the indexed fields of one transaction.
type TransactionInfo struct {
	Hash      types.Hash256
	LedgerSeq LedgerIndex
	TxnSeq    uint32
	Status    string
	RawTxn    []byte
	TxnMeta   []byte
}

// Store is the read/write surface of the relational index.
type Store interface {
	// SaveValidatedLedger replaces the rows of one validated ledger in a
	// single transaction.
	SaveValidatedLedger(ctx context.Context, row ledger.LedgerRow, txs []ledger.TxRow, accountTxs []ledger.AccountTxRow) error

	GetMinLedgerSeq(ctx context.Context) (*LedgerIndex, error)
	GetMaxLedgerSeq(ctx context.Context) (*LedgerIndex, error)
	GetLedgerInfoBySeq(ctx context.Context, seq LedgerIndex) (*LedgerInfo, error)
	GetLedgerInfoByHash(ctx context.Context, hash types.Hash256) (*LedgerInfo, error)
	GetHashByIndex(ctx context.Context, seq LedgerIndex) (*types.Hash256, error)
	GetHashesByRange(ctx context.Context, minSeq, maxSeq LedgerIndex) (map[LedgerIndex]LedgerHashPair, error)
	GetTransaction(ctx context.Context, hash types.Hash256) (*TransactionInfo, error)
	GetAccountTransactions(ctx context.Context, account types.AccountID, minSeq, maxSeq LedgerIndex, limit int) ([]TransactionInfo, error)

	Close() error
}
