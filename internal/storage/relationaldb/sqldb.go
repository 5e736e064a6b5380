package relationaldb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/LeJamon/goledgerd/internal/core/ledger"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// Config selects the SQL driver and data source.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the driver-specific data source name.
	DSN string `json:"dsn" yaml:"dsn"`
}

// DefaultConfig returns an in-memory sqlite configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver: "sqlite",
		DSN:    "file:ledgerdb?mode=memory&cache=shared",
	}
}

// The index schema. Statement text is normative for compatibility; the
// backend may be any relational store.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS Ledgers (
		LedgerHash      CHARACTER(64) PRIMARY KEY,
		LedgerSeq       BIGINT,
		PrevHash        CHARACTER(64),
		TotalCoins      BIGINT,
		ClosingTime     BIGINT,
		PrevClosingTime BIGINT,
		CloseTimeRes    BIGINT,
		CloseFlags      BIGINT,
		AccountSetHash  CHARACTER(64),
		TransSetHash    CHARACTER(64)
	)`,
	`CREATE INDEX IF NOT EXISTS SeqLedger ON Ledgers(LedgerSeq)`,
	`CREATE TABLE IF NOT EXISTS Transactions (
		TransID   CHARACTER(64) PRIMARY KEY,
		LedgerSeq BIGINT,
		TxnSeq    BIGINT,
		Status    CHARACTER(1),
		RawTxn    BYTEA,
		TxnMeta   BYTEA
	)`,
	`CREATE INDEX IF NOT EXISTS TxLgrIndex ON Transactions(LedgerSeq)`,
	`CREATE TABLE IF NOT EXISTS AccountTransactions (
		TransID   CHARACTER(64),
		Account   CHARACTER(40),
		LedgerSeq BIGINT,
		TxnSeq    BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS AcctTxIndex ON AccountTransactions(Account, LedgerSeq, TxnSeq)`,
	`CREATE INDEX IF NOT EXISTS AcctLgrIndex ON AccountTransactions(LedgerSeq)`,
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

var _ Store = (*SQLStore)(nil)

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, config *Config) (*SQLStore, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var driver string
	postgres := false
	switch config.Driver {
	case "", "sqlite":
		driver = "sqlite"
	case "postgres":
		driver = "postgres"
		postgres = true
	default:
		return nil, fmt.Errorf("unknown relational driver %q", config.Driver)
	}

	db, err := sql.Open(driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if !postgres {
		// sqlite serializes writers; one connection also keeps an
		// in-memory database alive across the pool.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, postgres: postgres}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, s.rebind(stmt)); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return s, nil
}

// rebind translates ? placeholders for postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func hashHex(h types.Hash256) string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

func accountHex(a types.AccountID) string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

func parseHashHex(s string) types.Hash256 {
	var h types.Hash256
	b, err := hex.DecodeString(s)
	if err == nil {
		copy(h[:], b)
	}
	return h
}

// SaveValidatedLedger replaces the rows of one validated ledger. Existing
// rows for the sequence are deleted first, so re-saving is idempotent.
func (s *SQLStore) SaveValidatedLedger(ctx context.Context, row ledger.LedgerRow, txs []ledger.TxRow, accountTxs []ledger.AccountTxRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, del := range []string{
		`DELETE FROM Ledgers WHERE LedgerSeq = ?`,
		`DELETE FROM Transactions WHERE LedgerSeq = ?`,
		`DELETE FROM AccountTransactions WHERE LedgerSeq = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(del), int64(row.LedgerSeq)); err != nil {
			return fmt.Errorf("clear seq %d: %w", row.LedgerSeq, err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO Ledgers
		 (LedgerHash,LedgerSeq,PrevHash,TotalCoins,ClosingTime,PrevClosingTime,
		  CloseTimeRes,CloseFlags,AccountSetHash,TransSetHash)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`),
		hashHex(row.LedgerHash), int64(row.LedgerSeq), hashHex(row.PrevHash),
		int64(row.TotalCoins), int64(row.ClosingTime), int64(row.PrevClosingTime),
		int64(row.CloseTimeRes), int64(row.CloseFlags),
		hashHex(row.AccountSetHash), hashHex(row.TransSetHash),
	); err != nil {
		return fmt.Errorf("insert ledger %d: %w", row.LedgerSeq, err)
	}

	for _, t := range txs {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO Transactions (TransID,LedgerSeq,TxnSeq,Status,RawTxn,TxnMeta)
			 VALUES (?,?,?,?,?,?)`),
			hashHex(t.TransID), int64(t.LedgerSeq), int64(t.TxnSeq),
			t.Status, t.RawTxn, t.TxnMeta,
		); err != nil {
			return fmt.Errorf("insert tx %s: %w", t.TransID, err)
		}
	}

	for _, at := range accountTxs {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO AccountTransactions (TransID,Account,LedgerSeq,TxnSeq)
			 VALUES (?,?,?,?)`),
			hashHex(at.TransID), accountHex(at.Account), int64(at.LedgerSeq), int64(at.TxnSeq),
		); err != nil {
			return fmt.Errorf("insert account tx %s: %w", at.TransID, err)
		}
	}

	return tx.Commit()
}

// GetMinLedgerSeq returns the lowest indexed sequence, or nil when empty.
func (s *SQLStore) GetMinLedgerSeq(ctx context.Context) (*LedgerIndex, error) {
	return s.seqQuery(ctx, `SELECT MIN(LedgerSeq) FROM Ledgers`)
}

// GetMaxLedgerSeq returns the highest indexed sequence, or nil when empty.
func (s *SQLStore) GetMaxLedgerSeq(ctx context.Context) (*LedgerIndex, error) {
	return s.seqQuery(ctx, `SELECT MAX(LedgerSeq) FROM Ledgers`)
}

func (s *SQLStore) seqQuery(ctx context.Context, query string) (*LedgerIndex, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&seq); err != nil {
		return nil, err
	}
	if !seq.Valid {
		return nil, nil
	}
	idx := LedgerIndex(seq.Int64)
	return &idx, nil
}

const ledgerColumns = `LedgerHash,LedgerSeq,PrevHash,TotalCoins,ClosingTime,
	PrevClosingTime,CloseTimeRes,CloseFlags,AccountSetHash,TransSetHash`

func scanLedgerInfo(row *sql.Row) (*LedgerInfo, error) {
	var hash, prev, account, trans string
	var seq, coins, closing, prevClosing, res, flags int64

	err := row.Scan(&hash, &seq, &prev, &coins, &closing, &prevClosing, &res, &flags, &account, &trans)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &LedgerInfo{
		Hash:            parseHashHex(hash),
		Sequence:        LedgerIndex(seq),
		ParentHash:      parseHashHex(prev),
		AccountHash:     parseHashHex(account),
		TransactionHash: parseHashHex(trans),
		TotalCoins:      uint64(coins),
		CloseTime:       uint64(closing),
		ParentCloseTime: uint64(prevClosing),
		CloseTimeRes:    uint8(res),
		CloseFlags:      uint8(flags),
	}, nil
}

// GetLedgerInfoBySeq loads one indexed ledger by sequence, or nil.
func (s *SQLStore) GetLedgerInfoBySeq(ctx context.Context, seq LedgerIndex) (*LedgerInfo, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+ledgerColumns+` FROM Ledgers WHERE LedgerSeq = ?`), int64(seq))
	return scanLedgerInfo(row)
}

// GetLedgerInfoByHash loads one indexed ledger by hash, or nil.
func (s *SQLStore) GetLedgerInfoByHash(ctx context.Context, hash types.Hash256) (*LedgerInfo, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+ledgerColumns+` FROM Ledgers WHERE LedgerHash = ?`), hashHex(hash))
	return scanLedgerInfo(row)
}

// GetHashByIndex returns the hash recorded for a sequence, or nil.
func (s *SQLStore) GetHashByIndex(ctx context.Context, seq LedgerIndex) (*types.Hash256, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT LedgerHash FROM Ledgers WHERE LedgerSeq = ?`), int64(seq)).Scan(&hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h := parseHashHex(hash)
	return &h, nil
}

// GetHashesByRange returns ledger and parent hashes for a sequence range.
func (s *SQLStore) GetHashesByRange(ctx context.Context, minSeq, maxSeq LedgerIndex) (map[LedgerIndex]LedgerHashPair, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT LedgerSeq,LedgerHash,PrevHash FROM Ledgers
		 WHERE LedgerSeq >= ? AND LedgerSeq <= ?`), int64(minSeq), int64(maxSeq))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[LedgerIndex]LedgerHashPair)
	for rows.Next() {
		var seq int64
		var hash, prev string
		if err := rows.Scan(&seq, &hash, &prev); err != nil {
			return nil, err
		}
		out[LedgerIndex(seq)] = LedgerHashPair{
			LedgerHash: parseHashHex(hash),
			ParentHash: parseHashHex(prev),
		}
	}
	return out, rows.Err()
}

// GetTransaction loads one indexed transaction by ID, or nil.
func (s *SQLStore) GetTransaction(ctx context.Context, hash types.Hash256) (*TransactionInfo, error) {
	var id string
	var seq, txnSeq int64
	var status string
	var raw, meta []byte

	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT TransID,LedgerSeq,TxnSeq,Status,RawTxn,TxnMeta
		 FROM Transactions WHERE TransID = ?`), hashHex(hash)).
		Scan(&id, &seq, &txnSeq, &status, &raw, &meta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &TransactionInfo{
		Hash:      parseHashHex(id),
		LedgerSeq: LedgerIndex(seq),
		TxnSeq:    uint32(txnSeq),
		Status:    status,
		RawTxn:    raw,
		TxnMeta:   meta,
	}, nil
}

// GetAccountTransactions lists an account's transactions oldest first within
// a sequence range.
func (s *SQLStore) GetAccountTransactions(ctx context.Context, account types.AccountID, minSeq, maxSeq LedgerIndex, limit int) ([]TransactionInfo, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT T.TransID,T.LedgerSeq,T.TxnSeq,T.Status,T.RawTxn,T.TxnMeta
		 FROM AccountTransactions A JOIN Transactions T ON T.TransID = A.TransID
		 WHERE A.Account = ? AND A.LedgerSeq >= ? AND A.LedgerSeq <= ?
		 ORDER BY A.LedgerSeq ASC, A.TxnSeq ASC LIMIT ?`),
		accountHex(account), int64(minSeq), int64(maxSeq), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionInfo
	for rows.Next() {
		var id, status string
		var seq, txnSeq int64
		var raw, meta []byte
		if err := rows.Scan(&id, &seq, &txnSeq, &status, &raw, &meta); err != nil {
			return nil, err
		}
		out = append(out, TransactionInfo{
			Hash:      parseHashHex(id),
			LedgerSeq: LedgerIndex(seq),
			TxnSeq:    uint32(txnSeq),
			Status:    status,
			RawTxn:    raw,
			TxnMeta:   meta,
		})
	}
	return out, rows.Err()
}

// IndexAdapter exposes the store through the ledger core's IndexDB
// interface.
type IndexAdapter struct {
	store Store
}

// AsIndexDB returns the ledger.IndexDB view of the store.
func (s *SQLStore) AsIndexDB() *IndexAdapter {
	return &IndexAdapter{store: s}
}

// SaveValidatedLedger forwards to the store with a background context.
func (a *IndexAdapter) SaveValidatedLedger(row ledger.LedgerRow, txs []ledger.TxRow, accountTxs []ledger.AccountTxRow) error {
	return a.store.SaveValidatedLedger(context.Background(), row, txs, accountTxs)
}

var _ ledger.IndexDB = (*IndexAdapter)(nil)
