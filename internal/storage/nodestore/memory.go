package nodestore

import (
	"sync"

	"github.com/LeJamon/goledgerd/internal/core/types"
)

// MemoryBackend keeps every node in process memory. Used in standalone mode
// and tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	nodes map[types.Hash256]*Node
	open  bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Name returns the name of this backend.
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Open opens the backend for use.
func (m *MemoryBackend) Open(createIfMissing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nodes == nil {
		m.nodes = make(map[types.Hash256]*Node)
	}
	m.open = true
	return nil
}

// Close closes the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// IsOpen returns true if the backend is currently open.
func (m *MemoryBackend) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// Fetch retrieves a single object by key.
func (m *MemoryBackend) Fetch(key types.Hash256) (*Node, Status) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return nil, BackendError
	}
	node, ok := m.nodes[key]
	if !ok {
		return nil, NotFound
	}
	return node, OK
}

// Store saves a single object.
func (m *MemoryBackend) Store(node *Node) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return BackendError
	}
	m.nodes[node.Hash] = node
	return OK
}

// StoreBatch saves multiple objects.
func (m *MemoryBackend) StoreBatch(nodes []*Node) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return BackendError
	}
	for _, node := range nodes {
		if node != nil {
			m.nodes[node.Hash] = node
		}
	}
	return OK
}

// Sync is a no-op for the memory backend.
func (m *MemoryBackend) Sync() Status {
	if !m.IsOpen() {
		return BackendError
	}
	return OK
}

// ForEach iterates over all objects in the backend.
func (m *MemoryBackend) ForEach(fn func(*Node) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return ErrBackendClosed
	}
	for _, node := range m.nodes {
		if err := fn(node); err != nil {
			return err
		}
	}
	return nil
}
