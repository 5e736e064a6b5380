package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// AddTransaction records a raw transaction in the transaction map.
func (l *Ledger) AddTransaction(txID types.Hash256, tx []byte) error {
	if l.immutable {
		return ErrInvalidState
	}
	l.validHash = false
	return l.txMap.AddTyped(shamap.NewItem(txID, tx), shamap.LeafTransaction)
}

// AddTransactionWithMeta records a transaction together with its metadata,
// each framed with a length prefix.
func (l *Ledger) AddTransactionWithMeta(txID types.Hash256, tx, meta []byte) error {
	if l.immutable {
		return ErrInvalidState
	}

	buf := make([]byte, 0, 8+len(tx)+len(meta))
	buf = appendVL(buf, tx)
	buf = appendVL(buf, meta)

	l.validHash = false
	return l.txMap.AddTyped(shamap.NewItem(txID, buf), shamap.LeafTransactionMeta)
}

// GetTransaction returns the transaction stored under txID and its metadata
// if present.
func (l *Ledger) GetTransaction(txID types.Hash256) (tx, meta []byte, found bool, err error) {
	item, leafType, ok, err := l.txMap.GetWithType(txID)
	if err != nil || !ok {
		return nil, nil, false, err
	}

	if leafType != shamap.LeafTransactionMeta {
		return item.Data(), nil, true, nil
	}

	tx, rest, err := readVL(item.Data())
	if err != nil {
		return nil, nil, false, fmt.Errorf("transaction %s: %w", txID, err)
	}
	meta, _, err = readVL(rest)
	if err != nil {
		return nil, nil, false, fmt.Errorf("transaction %s metadata: %w", txID, err)
	}
	return tx, meta, true, nil
}

// HasTransaction reports whether the transaction map holds txID.
func (l *Ledger) HasTransaction(txID types.Hash256) (bool, error) {
	return l.txMap.Has(txID)
}

func appendVL(buf, b []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf = append(buf, n[:]...)
	return append(buf, b...)
}

func readVL(data []byte) (payload, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("VL field truncated")
	}
	n := binary.BigEndian.Uint32(data[:4])
	if uint32(len(data)-4) < n {
		return nil, nil, fmt.Errorf("VL field length %d exceeds data", n)
	}
	return data[4 : 4+n], data[4+n:], nil
}
