package nodestore

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/LeJamon/goledgerd/internal/core/ledger"
	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
	"github.com/LeJamon/goledgerd/internal/protocol"
)

// DB is the cached node store: a storage backend behind an LRU+TTL cache.
// It serves both as the ledger core's node store and as the SHAMap family.
type DB struct {
	backend Backend
	cache   *Cache

	reads  uint64
	writes uint64
}

// New opens a node store for the given configuration.
func New(config *Config) (*DB, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var backend Backend
	var err error
	switch config.Backend {
	case "memory":
		backend = NewMemoryBackend()
	case "pebble":
		backend, err = NewPebbleBackend(config)
	case "leveldb":
		backend, err = NewLevelDBBackend(config)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, config.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.Open(config.CreateIfMissing); err != nil {
		return nil, err
	}

	return &DB{
		backend: backend,
		cache:   NewCache(config.CacheSize, config.CacheTTL),
	}, nil
}

// Store persists a node.
func (db *DB) Store(node *Node) error {
	if node == nil {
		return fmt.Errorf("nil node")
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	if status := db.backend.Store(node); status != OK {
		return fmt.Errorf("store %s: %s", node.Hash, status)
	}
	db.cache.Put(node)
	atomic.AddUint64(&db.writes, 1)
	return nil
}

// Fetch retrieves a node by hash, reading through the cache.
// Returns nil, nil when the node does not exist.
func (db *DB) Fetch(hash types.Hash256) (*Node, error) {
	atomic.AddUint64(&db.reads, 1)

	if node, ok := db.cache.Get(hash); ok {
		return node, nil
	}

	node, status := db.backend.Fetch(hash)
	switch status {
	case OK:
		db.cache.Put(node)
		return node, nil
	case NotFound:
		return nil, nil
	case DataCorrupt:
		return nil, ErrCorrupt
	default:
		return nil, fmt.Errorf("fetch %s: %s", hash, status)
	}
}

// StoreBatch persists several nodes at once.
func (db *DB) StoreBatch(nodes []*Node) error {
	now := time.Now()
	for _, node := range nodes {
		if node != nil && node.CreatedAt.IsZero() {
			node.CreatedAt = now
		}
	}
	if status := db.backend.StoreBatch(nodes); status != OK {
		return fmt.Errorf("store batch of %d: %s", len(nodes), status)
	}
	for _, node := range nodes {
		db.cache.Put(node)
	}
	atomic.AddUint64(&db.writes, uint64(len(nodes)))
	return nil
}

// Sweep drops expired cache entries.
func (db *DB) Sweep() {
	db.cache.Sweep()
}

// Sync flushes pending backend writes.
func (db *DB) Sync() error {
	if status := db.backend.Sync(); status != OK {
		return fmt.Errorf("sync: %s", status)
	}
	return nil
}

// Close closes the backend.
func (db *DB) Close() error {
	return db.backend.Close()
}

// Stats returns performance counters.
func (db *DB) Stats() Statistics {
	hits, misses := db.cache.Stats()
	return Statistics{
		Reads:       atomic.LoadUint64(&db.reads),
		CacheHits:   hits,
		CacheMisses: misses,
		Writes:      atomic.LoadUint64(&db.writes),
		BackendName: db.backend.Name(),
	}
}

// LedgerStore adapts the DB to the ledger core's node-store interface.
type LedgerStore struct {
	db *DB
}

// AsLedgerStore returns the ledger.NodeStore view of the database.
func (db *DB) AsLedgerStore() *LedgerStore {
	return &LedgerStore{db: db}
}

// Store persists a typed object under its hash.
func (s *LedgerStore) Store(kind ledger.NodeKind, seq uint32, data []byte, hash types.Hash256) error {
	return s.db.Store(&Node{
		Type:      NodeType(kind),
		Hash:      hash,
		Data:      data,
		LedgerSeq: seq,
	})
}

var _ ledger.NodeStore = (*LedgerStore)(nil)

// Family adapts the DB to the SHAMap backing-store interface. Map node
// types are recovered from the serialization prefix.
type Family struct {
	db *DB
}

// AsFamily returns the shamap.Family view of the database.
func (db *DB) AsFamily() *Family {
	return &Family{db: db}
}

// Fetch retrieves a map node's serialized form by hash.
func (f *Family) Fetch(hash [32]byte) ([]byte, error) {
	node, err := f.db.Fetch(types.Hash256(hash))
	if err != nil || node == nil {
		return nil, err
	}
	return node.Data, nil
}

// StoreBatch persists serialized map nodes.
func (f *Family) StoreBatch(entries []shamap.FlushEntry) error {
	nodes := make([]*Node, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, &Node{
			Type: nodeTypeFromPrefix(e.Data),
			Hash: types.Hash256(e.Hash),
			Data: e.Data,
		})
	}
	return f.db.StoreBatch(nodes)
}

func nodeTypeFromPrefix(data []byte) NodeType {
	if len(data) < 4 {
		return NodeUnknown
	}
	var prefix [4]byte
	copy(prefix[:], data[:4])
	switch prefix {
	case protocol.HashPrefixTransactionID, protocol.HashPrefixTxNode:
		return NodeTransaction
	default:
		return NodeAccount
	}
}

var _ shamap.Family = (*Family)(nil)
