package ledger

import (
	"errors"
	"testing"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
	"github.com/LeJamon/goledgerd/internal/core/shamap"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// memFamily is a map-backed shamap.Family for tests.
type memFamily struct {
	nodes map[[32]byte][]byte
}

func newMemFamily() *memFamily {
	return &memFamily{nodes: make(map[[32]byte][]byte)}
}

func (f *memFamily) Fetch(hash [32]byte) ([]byte, error) {
	data, ok := f.nodes[hash]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (f *memFamily) StoreBatch(entries []shamap.FlushEntry) error {
	for _, e := range entries {
		f.nodes[e.Hash] = e.Data
	}
	return nil
}

func testConfig() Config {
	return Config{
		FeeDefault:         10,
		TransactionFeeBase: 10,
		FeeAccountReserve:  10_000_000,
		FeeOwnerReserve:    2_000_000,
		RunStandalone:      true,
	}
}

func testEnv() *Env {
	return &Env{
		Config: testConfig(),
		Now:    func() uint64 { return 700_000_000 },
	}
}

func masterAccount() types.AccountID {
	var a types.AccountID
	for i := range a {
		a[i] = 0xaa
	}
	return a
}

func mustGenesis(t *testing.T, env *Env) *Ledger {
	t.Helper()
	l, err := NewGenesis(env, masterAccount(), 100_000)
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	return l
}

func acceptAndClose(t *testing.T, l *Ledger) {
	t.Helper()
	l.SetClosed()
	if err := l.SetAccepted(l.CloseTime(), l.hdr.CloseTimeResolution, true); err != nil {
		t.Fatalf("SetAccepted(seq %d): %v", l.Seq(), err)
	}
}

func TestGenesisLedger(t *testing.T) {
	l := mustGenesis(t, testEnv())

	if l.Seq() != 1 {
		t.Errorf("genesis sequence = %d, want 1", l.Seq())
	}
	if l.TotalCoins() != 100_000 {
		t.Errorf("total coins = %d, want 100000", l.TotalCoins())
	}

	root, err := l.GetAccountRoot(masterAccount())
	if err != nil || root == nil {
		t.Fatalf("GetAccountRoot: %v %v", root, err)
	}
	if root.Balance != 100_000 {
		t.Errorf("genesis balance = %d, want 100000", root.Balance)
	}
	if root.Sequence != 1 {
		t.Errorf("genesis account sequence = %d, want 1", root.Sequence)
	}

	hdr := l.Header()
	if !hdr.TxHash.IsZero() {
		t.Errorf("genesis transaction root must be zero, got %s", hdr.TxHash)
	}
	if hdr.AccountHash.IsZero() {
		t.Error("genesis state root must be nonzero")
	}
	if !l.AssertSane() {
		t.Error("genesis ledger failed sanity check")
	}
}

func TestChildLedger(t *testing.T) {
	genesis := mustGenesis(t, testEnv())
	acceptAndClose(t, genesis)
	genesisHash := genesis.Hash()

	child, err := NewChild(genesis)
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}

	if child.Seq() != 2 {
		t.Errorf("child sequence = %d, want 2", child.Seq())
	}
	if child.ParentHash() != genesisHash {
		t.Errorf("child parent hash = %s, want %s", child.ParentHash(), genesisHash)
	}
	if child.hdr.ParentCloseTime != genesis.CloseTime() {
		t.Errorf("child parent close time = %d, want %d",
			child.hdr.ParentCloseTime, genesis.CloseTime())
	}

	// State carried over copy-on-write
	root, err := child.GetAccountRoot(masterAccount())
	if err != nil || root == nil {
		t.Fatalf("GetAccountRoot on child: %v %v", root, err)
	}
	if root.Balance != 100_000 {
		t.Errorf("carried balance = %d, want 100000", root.Balance)
	}
}

func TestChildRequiresParentHash(t *testing.T) {
	// A ledger whose identity would be zero cannot parent a child; the
	// genesis always hashes nonzero, so force the degenerate case directly.
	l := &Ledger{
		env:       testEnv(),
		txMap:     shamap.New(shamap.TypeTransaction),
		stateMap:  shamap.New(shamap.TypeState),
		immutable: true,
		validHash: true,
	}
	if _, err := NewChild(l); err != ErrNoParentHash {
		t.Errorf("expected ErrNoParentHash, got %v", err)
	}
}

func TestCloseTimeDerivation(t *testing.T) {
	env := testEnv()
	genesis := mustGenesis(t, env)

	// A parent accepted with close time zero makes the child pick wall clock
	// rounded to its resolution
	genesis.SetClosed()
	if err := genesis.SetAccepted(0, 30, true); err != nil {
		t.Fatalf("SetAccepted: %v", err)
	}
	child, err := NewChild(genesis)
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	res := uint64(child.hdr.CloseTimeResolution)
	if child.CloseTime()%res != 0 {
		t.Errorf("derived close time %d not on resolution %d", child.CloseTime(), res)
	}

	// A parent with a close time pushes the child one resolution later
	acceptAndClose(t, child)
	grandchild, err := NewChild(child)
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	want := child.CloseTime() + uint64(grandchild.hdr.CloseTimeResolution)
	if grandchild.CloseTime() != want {
		t.Errorf("grandchild close time = %d, want %d", grandchild.CloseTime(), want)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	l := mustGenesis(t, testEnv())

	// Accepting an open ledger is a programming error
	if err := l.SetAccepted(100, 30, true); err != ErrInvalidState {
		t.Errorf("SetAccepted before close: got %v", err)
	}

	l.SetClosed()
	if !l.IsClosed() {
		t.Error("SetClosed did not stick")
	}

	if err := l.SetAccepted(700_000_011, 30, true); err != nil {
		t.Fatalf("SetAccepted: %v", err)
	}
	if !l.IsAccepted() || !l.IsImmutable() {
		t.Error("accepted implies immutable")
	}
	if l.CloseTime()%30 != 0 {
		t.Errorf("agreed close time %d not rounded to 30", l.CloseTime())
	}

	// Accepting twice is a programming error
	if err := l.SetAccepted(700_000_011, 30, true); err != ErrInvalidState {
		t.Errorf("double SetAccepted: got %v", err)
	}

	// The identity hash observed after freezing is final
	frozen := l.Hash()
	l.UpdateHash()
	if l.Hash() != frozen {
		t.Error("immutable hash changed on recompute")
	}

	l.SetValidated()
	if !l.IsValidated() {
		t.Error("SetValidated did not stick")
	}
}

func TestNoConsensusCloseTime(t *testing.T) {
	l := mustGenesis(t, testEnv())
	l.SetClosed()

	if err := l.SetAccepted(700_000_017, 30, false); err != nil {
		t.Fatalf("SetAccepted: %v", err)
	}
	if l.CloseTime() != 700_000_017 {
		t.Errorf("disagreed close time must not round, got %d", l.CloseTime())
	}
	hdr := l.Header()
	if hdr.CloseAgree() {
		t.Error("NoConsensusTime flag missing")
	}
}

func TestImmutableRejectsWrites(t *testing.T) {
	l := mustGenesis(t, testEnv())
	acceptAndClose(t, l)

	root := &entries.AccountRoot{Account: masterAccount(), Balance: 1}
	res, err := l.WriteBack(WriteCreate, keylet.Account(masterAccount()).Key, root)
	if res != WriteError || err != ErrInvalidState {
		t.Errorf("write to immutable ledger: got %v, %v", res, err)
	}

	if err := l.AddTransaction(types.Hash256{1}, []byte("tx")); err != ErrInvalidState {
		t.Errorf("AddTransaction on immutable ledger: got %v", err)
	}
}

func TestWriteBackModes(t *testing.T) {
	l := mustGenesis(t, testEnv())
	other := types.AccountID{0x01}
	key := keylet.Account(other).Key
	root := &entries.AccountRoot{Account: other, Balance: 5}

	// Absent key without CREATE reads back as missing
	res, err := l.WriteBack(WriteNone, key, root)
	if err != nil || res != WriteMissing {
		t.Errorf("WriteNone on absent key: got %v, %v", res, err)
	}

	res, err = l.WriteBack(WriteCreate, key, root)
	if err != nil || res != WriteCreated {
		t.Errorf("WriteCreate on absent key: got %v, %v", res, err)
	}

	// Present key replaces regardless of mode
	updated := &entries.AccountRoot{Account: other, Balance: 6}
	res, err = l.WriteBack(WriteNone, key, updated)
	if err != nil || res != WriteOK {
		t.Errorf("WriteNone on present key: got %v, %v", res, err)
	}

	got, err := l.GetAccountRoot(other)
	if err != nil || got == nil || got.Balance != 6 {
		t.Errorf("read back after update: %+v, %v", got, err)
	}
}

func TestGetTypedKindMismatch(t *testing.T) {
	l := mustGenesis(t, testEnv())
	key := keylet.Account(masterAccount()).Key

	e, err := l.GetTyped(key, entry.TypeOffer)
	if err != nil {
		t.Fatalf("GetTyped: %v", err)
	}
	if e != nil {
		t.Error("kind mismatch must read as absent")
	}
}

func TestSnapshotLedger(t *testing.T) {
	l := mustGenesis(t, testEnv())
	snap := l.Snapshot(false)

	if !snap.IsImmutable() {
		t.Error("immutable snapshot is mutable")
	}
	if snap.Seq() != l.Seq() {
		t.Error("snapshot changed sequence")
	}

	// Reads through the snapshot match the source at snapshot time
	a, _ := l.GetAccountRoot(masterAccount())
	b, _ := snap.GetAccountRoot(masterAccount())
	if a == nil || b == nil || a.Balance != b.Balance {
		t.Error("snapshot diverges from source")
	}

	// Later writes to the source stay invisible
	updated := &entries.AccountRoot{Account: masterAccount(), Balance: 1, Sequence: 2}
	if _, err := l.WriteBack(WriteNone, keylet.Account(masterAccount()).Key, updated); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	after, _ := snap.GetAccountRoot(masterAccount())
	if after.Balance != 100_000 {
		t.Errorf("snapshot observed later write: %d", after.Balance)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	family := newMemFamily()
	env := testEnv()
	env.Family = family

	l := mustGenesis(t, env)
	if err := l.AddTransactionWithMeta(types.Hash256{0x51}, []byte("payment"),
		EncodeTxMeta(0, []types.AccountID{masterAccount()})); err != nil {
		t.Fatalf("AddTransactionWithMeta: %v", err)
	}
	acceptAndClose(t, l)

	if err := family.StoreBatch(l.stateMap.FlushDirty()); err != nil {
		t.Fatal(err)
	}
	if err := family.StoreBatch(l.txMap.FlushDirty()); err != nil {
		t.Fatal(err)
	}

	hdr2 := l.Header()
	raw := hdr2.EncodeWithPrefix()
	restored, loaded, err := NewFromBlob(env, raw, true)
	if err != nil {
		t.Fatalf("NewFromBlob: %v", err)
	}
	if !loaded {
		t.Fatal("ledger should be fully loaded")
	}
	if restored.Hash() != l.Hash() {
		t.Errorf("restored hash %s != original %s", restored.Hash(), l.Hash())
	}

	root, err := restored.GetAccountRoot(masterAccount())
	if err != nil || root == nil || root.Balance != 100_000 {
		t.Errorf("restored account root: %+v, %v", root, err)
	}

	tx, meta, found, err := restored.GetTransaction(types.Hash256{0x51})
	if err != nil || !found {
		t.Fatalf("restored transaction: found=%v err=%v", found, err)
	}
	if string(tx) != "payment" || len(meta) == 0 {
		t.Errorf("restored tx payload: %q meta %d bytes", tx, len(meta))
	}
}

func TestPartialLoad(t *testing.T) {
	env := testEnv()
	env.Family = newMemFamily() // empty store

	l := mustGenesis(t, env)
	acceptAndClose(t, l)

	// Nothing was flushed, so the roots cannot be fetched
	hdr3 := l.Header()
	_, loaded, err := NewFromBlob(env, hdr3.EncodeWithPrefix(), true)
	if err != nil {
		t.Fatalf("NewFromBlob: %v", err)
	}
	if loaded {
		t.Error("load must be partial when map roots are unfetchable")
	}
}

func TestCheckHash(t *testing.T) {
	l := mustGenesis(t, testEnv())
	acceptAndClose(t, l)

	if err := l.CheckHash(l.Hash()); err != nil {
		t.Errorf("CheckHash against own hash: %v", err)
	}
	if err := l.CheckHash(types.Hash256{0xde, 0xad}); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("CheckHash against wrong hash: %v", err)
	}
}

func TestHashMatchesHeaderEncoding(t *testing.T) {
	l := mustGenesis(t, testEnv())
	acceptAndClose(t, l)

	hdr := l.Header()
	if l.Hash() != hdr.IdentityHash() {
		t.Error("ledger hash must equal the header's identity hash")
	}
}

func TestVisitStateItemsAcquiresOnMissing(t *testing.T) {
	family := newMemFamily()
	env := testEnv()
	env.Family = family

	acquired := make(chan types.Hash256, 1)
	env.Inbound = inboundFunc(func(hash types.Hash256, seq uint32) {
		select {
		case acquired <- hash:
		default:
		}
	})

	l := mustGenesis(t, env)
	for i := byte(1); i < 8; i++ {
		account := types.AccountID{i}
		root := &entries.AccountRoot{Account: account, Balance: uint64(i)}
		if res, err := l.WriteBack(WriteCreate, keylet.Account(account).Key, root); err != nil || res != WriteCreated {
			t.Fatalf("WriteBack: %v %v", res, err)
		}
	}
	acceptAndClose(t, l)

	entriesList := l.stateMap.FlushDirty()
	if err := family.StoreBatch(entriesList); err != nil {
		t.Fatal(err)
	}
	// Drop one non-root node so traversal hits a hole
	delete(family.nodes, entriesList[1].Hash)

	hdr4 := l.Header()
	restored, _, err := NewFromBlob(env, hdr4.EncodeWithPrefix(), true)
	if err != nil {
		t.Fatalf("NewFromBlob: %v", err)
	}

	err = restored.VisitStateItems(func(entries.Entry) bool { return true })
	if !shamap.IsMissingNode(err) {
		t.Fatalf("expected missing-node error, got %v", err)
	}
	select {
	case h := <-acquired:
		if h != restored.Hash() {
			t.Errorf("acquired wrong hash %s", h)
		}
	default:
		t.Error("missing node did not trigger acquisition")
	}
}

// inboundFunc adapts a function to the InboundLedgers interface.
type inboundFunc func(hash types.Hash256, seq uint32)

func (f inboundFunc) Acquire(hash types.Hash256, seq uint32) { f(hash, seq) }
