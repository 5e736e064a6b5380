package nodestore

import (
	"fmt"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/LeJamon/goledgerd/internal/core/types"
	"github.com/LeJamon/goledgerd/internal/storage/nodestore/compression"
)

// LevelDBBackend stores nodes in a LevelDB database.
type LevelDBBackend struct {
	db         *leveldb.DB
	compressor compression.Compressor
	config     *Config

	open int64
}

// NewLevelDBBackend creates a new LevelDB backend.
func NewLevelDBBackend(config *Config) (*LevelDBBackend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	compressor, err := compression.Get(config.Compressor)
	if err != nil {
		return nil, fmt.Errorf("get compressor %s: %w", config.Compressor, err)
	}
	return &LevelDBBackend{
		compressor: compressor,
		config:     config,
	}, nil
}

// Name returns the name of this backend.
func (l *LevelDBBackend) Name() string {
	return fmt.Sprintf("leveldb(%s)", l.config.Path)
}

// Open opens the backend for use.
func (l *LevelDBBackend) Open(createIfMissing bool) error {
	if !atomic.CompareAndSwapInt64(&l.open, 0, 1) {
		return fmt.Errorf("backend already open")
	}

	opts := &opt.Options{
		ErrorIfMissing: !createIfMissing,
		// The store compresses payloads itself
		Compression: opt.NoCompression,
	}
	db, err := leveldb.OpenFile(l.config.Path, opts)
	if err != nil {
		atomic.StoreInt64(&l.open, 0)
		return fmt.Errorf("open leveldb at %s: %w", l.config.Path, err)
	}
	l.db = db
	return nil
}

// Close closes the backend.
func (l *LevelDBBackend) Close() error {
	if !atomic.CompareAndSwapInt64(&l.open, 1, 0) {
		return nil
	}
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// IsOpen returns true if the backend is currently open.
func (l *LevelDBBackend) IsOpen() bool {
	return atomic.LoadInt64(&l.open) != 0
}

// Fetch retrieves a single object by key.
func (l *LevelDBBackend) Fetch(key types.Hash256) (*Node, Status) {
	if !l.IsOpen() {
		return nil, BackendError
	}
	value, err := l.db.Get(key[:], nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, NotFound
		}
		return nil, BackendError
	}
	node, err := decodeNode(key, value, l.compressor)
	if err != nil {
		return nil, DataCorrupt
	}
	return node, OK
}

// Store saves a single object.
func (l *LevelDBBackend) Store(node *Node) Status {
	if node == nil || !l.IsOpen() {
		return BackendError
	}
	value, err := encodeNode(node, l.compressor, l.config.CompressionLevel)
	if err != nil {
		return BackendError
	}
	if err := l.db.Put(node.Hash[:], value, nil); err != nil {
		return BackendError
	}
	return OK
}

// StoreBatch saves multiple objects in one write batch.
func (l *LevelDBBackend) StoreBatch(nodes []*Node) Status {
	if !l.IsOpen() {
		return BackendError
	}
	if len(nodes) == 0 {
		return OK
	}

	batch := new(leveldb.Batch)
	for _, node := range nodes {
		if node == nil {
			continue
		}
		value, err := encodeNode(node, l.compressor, l.config.CompressionLevel)
		if err != nil {
			return BackendError
		}
		batch.Put(node.Hash[:], value)
	}
	if err := l.db.Write(batch, nil); err != nil {
		return BackendError
	}
	return OK
}

// Sync forces pending writes to be flushed.
func (l *LevelDBBackend) Sync() Status {
	if !l.IsOpen() {
		return BackendError
	}
	// LevelDB flushes through its write options; an empty synced write
	// serves as a barrier.
	if err := l.db.Write(new(leveldb.Batch), &opt.WriteOptions{Sync: true}); err != nil {
		return BackendError
	}
	return OK
}

// ForEach iterates over all objects in the backend.
func (l *LevelDBBackend) ForEach(fn func(*Node) error) error {
	if !l.IsOpen() {
		return ErrBackendClosed
	}

	iter := l.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if len(key) != 32 {
			continue
		}
		var hash types.Hash256
		copy(hash[:], key)

		node, err := decodeNode(hash, iter.Value(), l.compressor)
		if err != nil {
			continue
		}
		if err := fn(node); err != nil {
			return err
		}
	}
	return iter.Error()
}
