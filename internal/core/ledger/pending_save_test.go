package ledger

import (
	"sync"
	"testing"

	"github.com/LeJamon/goledgerd/internal/core/types"
)

// fakeRouter implements HashRouter over a plain map.
type fakeRouter struct {
	mu    sync.Mutex
	flags map[types.Hash256]uint32
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{flags: make(map[types.Hash256]uint32)}
}

func (r *fakeRouter) SetFlag(hash types.Hash256, flag uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flags[hash]&flag != 0 {
		return false
	}
	r.flags[hash] |= flag
	return true
}

// fakeJobQueue records jobs without running them until asked.
type fakeJobQueue struct {
	mu    sync.Mutex
	jobs  []func()
	kinds []JobKind
}

func (q *fakeJobQueue) AddJob(kind JobKind, name string, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, fn)
	q.kinds = append(q.kinds, kind)
}

func (q *fakeJobQueue) runAll() {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()
	for _, fn := range jobs {
		fn()
	}
}

// fakeNodeStore records stored objects.
type fakeNodeStore struct {
	mu     sync.Mutex
	stored []NodeKind
}

func (s *fakeNodeStore) Store(kind NodeKind, seq uint32, data []byte, hash types.Hash256) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, kind)
	return nil
}

// fakeIndexDB records saved ledgers.
type fakeIndexDB struct {
	mu      sync.Mutex
	ledgers []LedgerRow
	txs     [][]TxRow
	acct    [][]AccountTxRow
}

func (db *fakeIndexDB) SaveValidatedLedger(row LedgerRow, txs []TxRow, acct []AccountTxRow) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ledgers = append(db.ledgers, row)
	db.txs = append(db.txs, txs)
	db.acct = append(db.acct, acct)
	return nil
}

func saveEnv(t *testing.T) (*Env, *fakeRouter, *fakeJobQueue, *fakeNodeStore, *fakeIndexDB) {
	t.Helper()
	env := testEnv()
	router := newFakeRouter()
	queue := &fakeJobQueue{}
	store := &fakeNodeStore{}
	db := &fakeIndexDB{}
	env.Family = newMemFamily()
	env.HashRouter = router
	env.JobQueue = queue
	env.NodeStore = store
	env.IndexDB = db
	return env, router, queue, store, db
}

func validatedLedger(t *testing.T, env *Env) *Ledger {
	t.Helper()
	l := mustGenesis(t, env)

	meta := EncodeTxMeta(0, []types.AccountID{masterAccount()})
	if err := l.AddTransactionWithMeta(types.Hash256{0x71}, []byte("tx-one"), meta); err != nil {
		t.Fatalf("AddTransactionWithMeta: %v", err)
	}

	acceptAndClose(t, l)
	l.SetValidated()
	return l
}

func TestPendSaveRequiresImmutable(t *testing.T) {
	env, _, _, _, _ := saveEnv(t)
	l := mustGenesis(t, env)

	if l.PendSaveValidated(true, true) {
		t.Error("pendSave of a mutable ledger must fail")
	}
}

func TestPendSaveSynchronous(t *testing.T) {
	env, _, _, store, db := saveEnv(t)
	l := validatedLedger(t, env)

	if !l.PendSaveValidated(true, true) {
		t.Fatal("synchronous save failed")
	}

	if len(store.stored) != 1 || store.stored[0] != HotLedger {
		t.Errorf("node store writes: %v", store.stored)
	}
	if len(db.ledgers) != 1 {
		t.Fatalf("index rows: %d", len(db.ledgers))
	}

	row := db.ledgers[0]
	if row.LedgerHash != l.Hash() || row.LedgerSeq != l.Seq() {
		t.Error("ledger row mismatch")
	}
	if row.AccountSetHash != l.Header().AccountHash || row.TransSetHash != l.Header().TxHash {
		t.Error("map roots mismatch in ledger row")
	}

	if len(db.txs[0]) != 1 || db.txs[0][0].TransID != (types.Hash256{0x71}) {
		t.Errorf("transaction rows: %+v", db.txs[0])
	}
	if len(db.acct[0]) != 1 || db.acct[0][0].Account != masterAccount() {
		t.Errorf("account transaction rows: %+v", db.acct[0])
	}

	if len(PendingSaves()) != 0 {
		t.Errorf("pending set not drained: %v", PendingSaves())
	}
}

func TestPendSaveIdempotent(t *testing.T) {
	env, _, queue, _, db := saveEnv(t)
	l := validatedLedger(t, env)

	// Two pends on the same immutable ledger dispatch at most one job
	if !l.PendSaveValidated(false, true) {
		t.Fatal("first pendSave failed")
	}
	if !l.PendSaveValidated(false, true) {
		t.Fatal("redundant pendSave must report success")
	}

	queue.mu.Lock()
	jobCount := len(queue.jobs)
	queue.mu.Unlock()
	if jobCount != 1 {
		t.Fatalf("dispatched %d jobs, want 1", jobCount)
	}

	queue.runAll()
	if len(db.ledgers) != 1 {
		t.Errorf("persisted %d times, want 1", len(db.ledgers))
	}
}

func TestPendSaveJobKinds(t *testing.T) {
	env, _, queue, _, _ := saveEnv(t)

	current := validatedLedger(t, env)
	current.PendSaveValidated(false, true)

	old, err := NewChild(current)
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	acceptAndClose(t, old)
	old.SetValidated()
	old.PendSaveValidated(false, false)

	queue.mu.Lock()
	kinds := append([]JobKind{}, queue.kinds...)
	queue.mu.Unlock()

	if len(kinds) != 2 {
		t.Fatalf("job count: %d", len(kinds))
	}
	if kinds[0] != JobPublishLedger {
		t.Error("current ledger must use the publish-current job kind")
	}
	if kinds[1] != JobPublishOldLedger {
		t.Error("old ledger must use the publish-old job kind")
	}

	// Drain so the process-wide pending set is clean for later tests
	queue.runAll()
}

func TestSaveFailureOnMissingNodes(t *testing.T) {
	env, _, _, _, db := saveEnv(t)
	family := env.Family.(*memFamily)

	src := mustGenesis(t, env)
	// Several transactions so the tx tree has leaves below the root
	for i := byte(1); i <= 4; i++ {
		meta := EncodeTxMeta(uint32(i-1), []types.AccountID{masterAccount()})
		if err := src.AddTransactionWithMeta(types.Hash256{0x60, i}, []byte{i}, meta); err != nil {
			t.Fatalf("AddTransactionWithMeta: %v", err)
		}
	}
	acceptAndClose(t, src)

	if err := family.StoreBatch(src.stateMap.FlushDirty()); err != nil {
		t.Fatal(err)
	}
	txEntries := src.txMap.FlushDirty()
	if err := family.StoreBatch(txEntries); err != nil {
		t.Fatal(err)
	}
	// Drop one transaction leaf from the store
	delete(family.nodes, txEntries[len(txEntries)-1].Hash)

	srcHdr := src.Header()
	restored, loaded, err := NewFromBlob(env, srcHdr.EncodeWithPrefix(), true)
	if err != nil {
		t.Fatalf("NewFromBlob: %v", err)
	}
	if !loaded {
		t.Fatal("roots must still be fetchable")
	}
	restored.SetValidated()

	var failed []uint32
	env.FailedSave = func(seq uint32, hash types.Hash256) {
		failed = append(failed, seq)
	}

	if restored.PendSaveValidated(true, true) {
		t.Error("save must fail when accepted-ledger metadata is missing nodes")
	}
	if len(failed) != 1 || failed[0] != restored.Seq() {
		t.Errorf("failed-save notifications: %v", failed)
	}
	if len(db.ledgers) != 0 {
		t.Error("no index rows may be written on failure")
	}
	if len(PendingSaves()) != 0 {
		t.Errorf("pending set must be cleared on failure: %v", PendingSaves())
	}
}
