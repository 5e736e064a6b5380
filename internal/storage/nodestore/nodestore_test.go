package nodestore

import (
	"bytes"
	"testing"
	"time"

	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
	"github.com/LeJamon/goledgerd/internal/storage/nodestore/compression"
)

func testNode(b byte, size int) *Node {
	data := bytes.Repeat([]byte{b}, size)
	var hash types.Hash256
	hash[0] = b
	return &Node{
		Type:      NodeAccount,
		Hash:      hash,
		Data:      data,
		LedgerSeq: uint32(b),
	}
}

func openMemoryDB(t *testing.T) *DB {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Backend = "memory"
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreFetchRoundTrip(t *testing.T) {
	db := openMemoryDB(t)
	node := testNode(0x11, 64)

	if err := db.Store(node); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := db.Fetch(node.Hash)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got == nil || !bytes.Equal(got.Data, node.Data) {
		t.Error("fetched data mismatch")
	}
	if got.Type != NodeAccount || got.LedgerSeq != node.LedgerSeq {
		t.Error("metadata lost")
	}
}

func TestFetchAbsent(t *testing.T) {
	db := openMemoryDB(t)

	got, err := db.Fetch(types.Hash256{0xff})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != nil {
		t.Error("absent hash must fetch as nil")
	}
}

func TestStoreBatch(t *testing.T) {
	db := openMemoryDB(t)

	nodes := make([]*Node, 0, 10)
	for i := byte(1); i <= 10; i++ {
		nodes = append(nodes, testNode(i, 200))
	}
	if err := db.StoreBatch(nodes); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}

	for _, n := range nodes {
		got, err := db.Fetch(n.Hash)
		if err != nil || got == nil {
			t.Fatalf("Fetch %s: %v %v", n.Hash, got, err)
		}
	}
}

func TestCacheHit(t *testing.T) {
	db := openMemoryDB(t)
	node := testNode(0x22, 64)
	if err := db.Store(node); err != nil {
		t.Fatal(err)
	}

	// Two fetches: the second is served from cache
	db.Fetch(node.Hash)
	db.Fetch(node.Hash)

	stats := db.Stats()
	if stats.CacheHits == 0 {
		t.Errorf("expected cache hits, got %+v", stats)
	}
}

func TestUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "florp"
	if _, err := New(cfg); err == nil {
		t.Error("unknown backend must fail")
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(3, time.Hour)
	for i := byte(1); i <= 5; i++ {
		c.Put(testNode(i, 16))
	}
	if c.Len() != 3 {
		t.Errorf("cache holds %d entries, want 3", c.Len())
	}

	// Oldest entries were evicted
	if _, ok := c.Get(types.Hash256{1}); ok {
		t.Error("entry 1 should have been evicted")
	}
	if _, ok := c.Get(types.Hash256{5}); !ok {
		t.Error("entry 5 should be cached")
	}
}

func TestCacheTTL(t *testing.T) {
	c := NewCache(10, time.Millisecond)
	c.Put(testNode(0x33, 16))

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(types.Hash256{0x33}); ok {
		t.Error("expired entry must miss")
	}

	c.Put(testNode(0x34, 16))
	time.Sleep(5 * time.Millisecond)
	c.Sweep()
	if c.Len() != 0 {
		t.Errorf("sweep left %d entries", c.Len())
	}
}

func TestEncodeDecodeCompression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compressor = "lz4"

	// Highly compressible payload well above the compression floor
	node := testNode(0x44, 4096)

	compressor, err := compression.Get(cfg.Compressor)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := encodeNode(node, compressor, cfg.CompressionLevel)
	if err != nil {
		t.Fatalf("encodeNode: %v", err)
	}
	if len(encoded) >= len(node.Data) {
		t.Errorf("compressible payload did not shrink: %d >= %d", len(encoded), len(node.Data))
	}

	decoded, err := decodeNode(node.Hash, encoded, compressor)
	if err != nil {
		t.Fatalf("decodeNode: %v", err)
	}
	if !bytes.Equal(decoded.Data, node.Data) {
		t.Error("compression round trip lost data")
	}
}

func TestDecodeCorrupt(t *testing.T) {
	compressor, _ := compression.Get(DefaultConfig().Compressor)
	if _, err := decodeNode(types.Hash256{}, []byte{1, 2, 3}, compressor); err == nil {
		t.Error("short record must fail decode")
	}
}

func TestFamilyRoundTrip(t *testing.T) {
	db := openMemoryDB(t)
	family := db.AsFamily()

	// A state-leaf-shaped payload: MLN prefix + data + key
	data := append([]byte{'M', 'L', 'N', 0}, bytes.Repeat([]byte{0x55}, 64)...)
	var hash [32]byte
	hash[0] = 0x55

	if err := family.StoreBatch([]shamap.FlushEntry{{Hash: hash, Data: data}}); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}

	got, err := family.Fetch(hash)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("family round trip mismatch")
	}

	// Unknown hashes read as nil, nil
	missing, err := family.Fetch([32]byte{0x99})
	if err != nil || missing != nil {
		t.Errorf("missing node: %v %v", missing, err)
	}
}
