package nodestore

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"

	"github.com/LeJamon/goledgerd/internal/core/types"
	"github.com/LeJamon/goledgerd/internal/storage/nodestore/compression"
)

// PebbleBackend stores nodes in a PebbleDB LSM tree. Point lookups by hash
// dominate the workload, so every level carries a bloom filter.
type PebbleBackend struct {
	db         *pebble.DB
	compressor compression.Compressor
	config     *Config

	open int64

	reads  int64
	writes int64
}

// NewPebbleBackend creates a new PebbleDB backend.
func NewPebbleBackend(config *Config) (*PebbleBackend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	compressor, err := compression.Get(config.Compressor)
	if err != nil {
		return nil, fmt.Errorf("get compressor %s: %w", config.Compressor, err)
	}
	return &PebbleBackend{
		compressor: compressor,
		config:     config,
	}, nil
}

// Name returns the name of this backend.
func (p *PebbleBackend) Name() string {
	return fmt.Sprintf("pebble(%s)", p.config.Path)
}

// Open opens the backend for use.
func (p *PebbleBackend) Open(createIfMissing bool) error {
	if !atomic.CompareAndSwapInt64(&p.open, 0, 1) {
		return fmt.Errorf("backend already open")
	}

	if createIfMissing {
		if err := os.MkdirAll(p.config.Path, 0o755); err != nil {
			atomic.StoreInt64(&p.open, 0)
			return fmt.Errorf("create directory %s: %w", p.config.Path, err)
		}
	}

	opts := &pebble.Options{
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		Levels:                make([]pebble.LevelOptions, 7),
	}
	for i := range opts.Levels {
		opts.Levels[i] = pebble.LevelOptions{
			BlockSize:      32 << 10,
			FilterPolicy:   bloom.FilterPolicy(10),
			FilterType:     pebble.TableFilter,
			TargetFileSize: int64(8<<20) << uint(i),
			// The store compresses payloads itself
			Compression: pebble.NoCompression,
		}
		if opts.Levels[i].TargetFileSize > 256<<20 {
			opts.Levels[i].TargetFileSize = 256 << 20
		}
	}

	db, err := pebble.Open(p.config.Path, opts)
	if err != nil {
		atomic.StoreInt64(&p.open, 0)
		return fmt.Errorf("open pebble at %s: %w", p.config.Path, err)
	}
	p.db = db
	return nil
}

// Close closes the backend and releases resources.
func (p *PebbleBackend) Close() error {
	if !atomic.CompareAndSwapInt64(&p.open, 1, 0) {
		return nil
	}
	if p.db == nil {
		return nil
	}
	err := p.db.Flush()
	if closeErr := p.db.Close(); err == nil {
		err = closeErr
	}
	p.db = nil
	return err
}

// IsOpen returns true if the backend is currently open.
func (p *PebbleBackend) IsOpen() bool {
	return atomic.LoadInt64(&p.open) != 0
}

// Fetch retrieves a single object by key.
func (p *PebbleBackend) Fetch(key types.Hash256) (*Node, Status) {
	if !p.IsOpen() {
		return nil, BackendError
	}

	value, closer, err := p.db.Get(key[:])
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, NotFound
		}
		return nil, BackendError
	}
	defer closer.Close()

	node, err := decodeNode(key, value, p.compressor)
	if err != nil {
		return nil, DataCorrupt
	}
	atomic.AddInt64(&p.reads, 1)
	return node, OK
}

// Store saves a single object.
func (p *PebbleBackend) Store(node *Node) Status {
	if node == nil || !p.IsOpen() {
		return BackendError
	}
	value, err := encodeNode(node, p.compressor, p.config.CompressionLevel)
	if err != nil {
		return BackendError
	}
	if err := p.db.Set(node.Hash[:], value, pebble.NoSync); err != nil {
		return BackendError
	}
	atomic.AddInt64(&p.writes, 1)
	return OK
}

// StoreBatch saves multiple objects in one batch commit.
func (p *PebbleBackend) StoreBatch(nodes []*Node) Status {
	if !p.IsOpen() {
		return BackendError
	}
	if len(nodes) == 0 {
		return OK
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for _, node := range nodes {
		if node == nil {
			continue
		}
		value, err := encodeNode(node, p.compressor, p.config.CompressionLevel)
		if err != nil {
			return BackendError
		}
		if err := batch.Set(node.Hash[:], value, nil); err != nil {
			return BackendError
		}
	}

	if err := batch.Commit(pebble.NoSync); err != nil {
		return BackendError
	}
	atomic.AddInt64(&p.writes, int64(len(nodes)))
	return OK
}

// Sync forces pending writes to be flushed.
func (p *PebbleBackend) Sync() Status {
	if !p.IsOpen() {
		return BackendError
	}
	if err := p.db.Flush(); err != nil {
		return BackendError
	}
	return OK
}

// ForEach iterates over all objects in the backend.
func (p *PebbleBackend) ForEach(fn func(*Node) error) error {
	if !p.IsOpen() {
		return ErrBackendClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != 32 {
			continue
		}
		var hash types.Hash256
		copy(hash[:], key)

		node, err := decodeNode(hash, iter.Value(), p.compressor)
		if err != nil {
			continue
		}
		if err := fn(node); err != nil {
			return err
		}
	}
	return iter.Error()
}
