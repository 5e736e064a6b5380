package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// AcceptedTx is one transaction of an accepted ledger materialized for the
// relational index: its position, raw form, metadata and the accounts it
// touched.
type AcceptedTx struct {
	ID       types.Hash256
	TxnSeq   uint32
	Raw      []byte
	Meta     []byte
	Accounts []types.AccountID
}

// EncodeTxMeta renders transaction metadata in the compact form the index
// expects: the position of the transaction in its ledger followed by the
// affected accounts.
func EncodeTxMeta(txnSeq uint32, accounts []types.AccountID) []byte {
	buf := make([]byte, 0, 8+len(accounts)*20)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], txnSeq)
	buf = append(buf, n[:]...)
	binary.BigEndian.PutUint32(n[:], uint32(len(accounts)))
	buf = append(buf, n[:]...)
	for _, a := range accounts {
		buf = append(buf, a[:]...)
	}
	return buf
}

// DecodeTxMeta parses metadata produced by EncodeTxMeta.
func DecodeTxMeta(meta []byte) (txnSeq uint32, accounts []types.AccountID, err error) {
	if len(meta) < 8 {
		return 0, nil, fmt.Errorf("tx metadata truncated: %d bytes", len(meta))
	}
	txnSeq = binary.BigEndian.Uint32(meta[0:4])
	count := binary.BigEndian.Uint32(meta[4:8])
	if uint32(len(meta)-8) < count*20 {
		return 0, nil, fmt.Errorf("tx metadata lists %d accounts but is %d bytes", count, len(meta))
	}
	accounts = make([]types.AccountID, 0, count)
	for i := uint32(0); i < count; i++ {
		var a types.AccountID
		copy(a[:], meta[8+i*20:8+(i+1)*20])
		accounts = append(accounts, a)
	}
	return txnSeq, accounts, nil
}

// buildAcceptedTxs materializes every transaction of the ledger. A missing
// transaction-map node surfaces as a MissingNodeError and fails the build.
func (l *Ledger) buildAcceptedTxs() ([]AcceptedTx, error) {
	var txs []AcceptedTx

	item, err := l.txMap.FirstItem()
	if err != nil {
		return nil, err
	}
	for item != nil {
		_, leafType, ok, err := l.txMap.GetWithType(item.Key())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("transaction %x vanished mid-walk", item.Key())
		}

		at := AcceptedTx{ID: item.Key()}
		if leafType == shamap.LeafTransactionMeta {
			tx, rest, err := readVL(item.Data())
			if err != nil {
				return nil, fmt.Errorf("transaction %x: %w", item.Key(), err)
			}
			at.Raw = tx
			meta, _, err := readVL(rest)
			if err != nil {
				return nil, fmt.Errorf("transaction %x metadata: %w", item.Key(), err)
			}
			at.Meta = meta
			if txnSeq, accounts, err := DecodeTxMeta(meta); err == nil {
				at.TxnSeq = txnSeq
				at.Accounts = accounts
			}
		} else {
			at.Raw = item.Data()
		}
		txs = append(txs, at)

		item, err = l.txMap.NextItem(at.ID)
		if err != nil {
			return nil, err
		}
	}
	return txs, nil
}
