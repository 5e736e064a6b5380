package ledger

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
	crypto "github.com/LeJamon/goledgerd/internal/crypto/common"
	"github.com/LeJamon/goledgerd/internal/protocol"
)

// WriteMode controls whether WriteBack may create a missing entry.
type WriteMode int

const (
	WriteNone WriteMode = iota
	WriteCreate
)

// WriteResult reports the outcome of a WriteBack.
type WriteResult int

const (
	WriteOK WriteResult = iota
	WriteCreated
	WriteMissing
	WriteError
)

// String returns a string representation of the result.
func (r WriteResult) String() string {
	switch r {
	case WriteOK:
		return "ok"
	case WriteCreated:
		return "created"
	case WriteMissing:
		return "missing"
	case WriteError:
		return "error"
	default:
		return fmt.Sprintf("WriteResult(%d)", int(r))
	}
}

// sleCacheSize bounds the process-wide canonicalized entry cache.
const sleCacheSize = 4096

// sleCache canonicalizes decoded entries across all ledgers, keyed by the
// leaf node hash so identical contents share one immutable decoded value.
var sleCache, _ = lru.New[types.Hash256, entries.Entry](sleCacheSize)

func leafCacheKey(key types.Hash256, data []byte) types.Hash256 {
	return crypto.Sha512Half(protocol.HashPrefixLeafNode[:], data, key[:])
}

// GetSLE returns the entry stored at key, or nil if absent. Returned entries
// are shared, cache-canonicalized and must be treated as immutable.
func (l *Ledger) GetSLE(key types.Hash256) (entries.Entry, error) {
	item, ok, err := l.stateMap.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	cacheKey := leafCacheKey(key, item.Data())
	if e, ok := sleCache.Get(cacheKey); ok {
		return e, nil
	}

	e, err := entries.Decode(item.Data())
	if err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", key, err)
	}
	sleCache.Add(cacheKey, e)
	return e, nil
}

// GetTyped returns the entry at key only when it has the expected kind.
// A kind mismatch reads as absent.
func (l *Ledger) GetTyped(key types.Hash256, expected entry.Type) (entries.Entry, error) {
	e, err := l.GetSLE(key)
	if err != nil || e == nil {
		return nil, err
	}
	if e.Type() != expected {
		return nil, nil
	}
	return e, nil
}

// GetAccountRoot returns the account root for an account, or nil.
func (l *Ledger) GetAccountRoot(account types.AccountID) (*entries.AccountRoot, error) {
	e, err := l.GetTyped(keylet.Account(account).Key, entry.TypeAccountRoot)
	if err != nil || e == nil {
		return nil, err
	}
	return e.(*entries.AccountRoot), nil
}

// GetDirNode returns the directory page at key, or nil.
func (l *Ledger) GetDirNode(key types.Hash256) (*entries.DirectoryNode, error) {
	e, err := l.GetTyped(key, entry.TypeDirectoryNode)
	if err != nil || e == nil {
		return nil, err
	}
	return e.(*entries.DirectoryNode), nil
}

// WriteBack serializes e under key. A missing key is created only in
// WriteCreate mode; writing to an immutable ledger is a programming error.
func (l *Ledger) WriteBack(mode WriteMode, key types.Hash256, e entries.Entry) (WriteResult, error) {
	if l.immutable {
		return WriteError, ErrInvalidState
	}

	data, err := e.MarshalBinary()
	if err != nil {
		return WriteError, err
	}

	has, err := l.stateMap.Has(key)
	if err != nil {
		return WriteError, err
	}

	l.validHash = false

	if !has {
		if mode != WriteCreate {
			return WriteMissing, nil
		}
		if err := l.stateMap.Add(shamap.NewItem(key, data)); err != nil {
			return WriteError, err
		}
		return WriteCreated, nil
	}

	if err := l.stateMap.Update(shamap.NewItem(key, data)); err != nil {
		return WriteError, err
	}
	return WriteOK, nil
}

// EraseSLE removes the entry at key from the state map.
func (l *Ledger) EraseSLE(key types.Hash256) error {
	if l.immutable {
		return ErrInvalidState
	}
	l.validHash = false
	return l.stateMap.Delete(key)
}

// VisitStateItems decodes every state entry in key order. On a missing node
// the inbound-ledger collaborator is asked to acquire this ledger before the
// error is surfaced.
func (l *Ledger) VisitStateItems(fn func(entries.Entry) bool) error {
	err := l.stateMap.VisitLeaves(func(item *shamap.Item) bool {
		e, decodeErr := entries.Decode(item.Data())
		if decodeErr != nil {
			return true
		}
		return fn(e)
	})
	if err != nil && shamap.IsMissingNode(err) {
		if l.env != nil && l.env.Inbound != nil && !l.hash.IsZero() {
			l.env.Inbound.Acquire(l.hash, l.hdr.Sequence)
		}
	}
	return err
}

// FirstStateKey returns the lowest key in the state map, or zero.
func (l *Ledger) FirstStateKey() (types.Hash256, error) {
	item, err := l.stateMap.FirstItem()
	if err != nil || item == nil {
		return types.Hash256{}, err
	}
	return item.Key(), nil
}

// NextStateKey returns the lowest state-map key strictly after key, or zero.
func (l *Ledger) NextStateKey(key types.Hash256) (types.Hash256, error) {
	item, err := l.stateMap.NextItem(key)
	if err != nil || item == nil {
		return types.Hash256{}, err
	}
	return item.Key(), nil
}

// NextStateKeyBounded behaves like NextStateKey but returns zero past end.
func (l *Ledger) NextStateKeyBounded(key, end types.Hash256) (types.Hash256, error) {
	next, err := l.NextStateKey(key)
	if err != nil || next.IsZero() || next.Compare(end) > 0 {
		return types.Hash256{}, err
	}
	return next, nil
}
