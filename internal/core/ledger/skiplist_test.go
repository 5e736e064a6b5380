package ledger

import (
	"testing"

	"github.com/LeJamon/goledgerd/internal/core/types"
)

// buildChain advances a chain to the target sequence, returning the final
// ledger and the hash of every frozen ledger by sequence.
func buildChain(t *testing.T, target uint32) (*Ledger, map[uint32]types.Hash256) {
	t.Helper()

	env := testEnv()
	hashes := make(map[uint32]types.Hash256, target)

	l := mustGenesis(t, env)
	for l.Seq() < target {
		acceptAndClose(t, l)
		hashes[l.Seq()] = l.Hash()

		child, err := NewChild(l)
		if err != nil {
			t.Fatalf("NewChild at seq %d: %v", l.Seq(), err)
		}
		l = child
	}
	return l, hashes
}

func TestSkipListDense(t *testing.T) {
	last, hashes := buildChain(t, 300)

	if last.Seq() != 300 {
		t.Fatalf("chain ended at %d", last.Seq())
	}

	// Parent comes straight from the header
	if got := last.GetLedgerHash(299); got != last.ParentHash() {
		t.Errorf("GetLedgerHash(299) = %s, want parent %s", got, last.ParentHash())
	}

	// 256 back is the oldest dense entry
	if got := last.GetLedgerHash(44); got != hashes[44] {
		t.Errorf("GetLedgerHash(44) = %s, want %s", got, hashes[44])
	}

	// Epoch boundary resolves whether served dense or sparse
	if got := last.GetLedgerHash(256); got != hashes[256] {
		t.Errorf("GetLedgerHash(256) = %s, want %s", got, hashes[256])
	}

	// Beyond the dense window and off the 256 grid: unavailable
	if got := last.GetLedgerHash(43); !got.IsZero() {
		t.Errorf("GetLedgerHash(43) should be unavailable, got %s", got)
	}

	// The future is unavailable
	if got := last.GetLedgerHash(301); !got.IsZero() {
		t.Errorf("GetLedgerHash(301) should be unavailable, got %s", got)
	}

	// Own hash still answers after freezing
	acceptAndClose(t, last)
	if got := last.GetLedgerHash(300); got != last.Hash() {
		t.Errorf("GetLedgerHash(own seq) = %s, want %s", got, last.Hash())
	}
}

func TestSkipListSparse(t *testing.T) {
	last, hashes := buildChain(t, 600)

	// 256 is far outside the dense window of ledger 600; only the sparse
	// epoch page can answer
	if got := last.GetLedgerHash(256); got != hashes[256] {
		t.Errorf("sparse GetLedgerHash(256) = %s, want %s", got, hashes[256])
	}
	if got := last.GetLedgerHash(512); got != hashes[512] {
		t.Errorf("sparse GetLedgerHash(512) = %s, want %s", got, hashes[512])
	}

	// Off-grid historical sequences are unavailable
	if got := last.GetLedgerHash(257); !got.IsZero() {
		t.Errorf("GetLedgerHash(257) should be unavailable, got %s", got)
	}
}

func TestGetLedgerHashesDecodesDenseList(t *testing.T) {
	last, hashes := buildChain(t, 50)

	pairs, err := last.GetLedgerHashes()
	if err != nil {
		t.Fatalf("GetLedgerHashes: %v", err)
	}
	if len(pairs) != 49 {
		t.Fatalf("expected 49 entries, got %d", len(pairs))
	}
	for _, p := range pairs {
		if hashes[p.Seq] != p.Hash {
			t.Errorf("seq %d: %s != %s", p.Seq, p.Hash, hashes[p.Seq])
		}
	}
}

func TestSkipListCarriedBySnapshot(t *testing.T) {
	last, hashes := buildChain(t, 20)

	snap := last.Snapshot(false)
	if got := snap.GetLedgerHash(10); got != hashes[10] {
		t.Errorf("snapshot GetLedgerHash(10) = %s, want %s", got, hashes[10])
	}
}
