package ledger

import (
	"testing"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry/entries"
	"github.com/LeJamon/goledgerd/internal/core/ledger/keylet"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// populateOwnerDir gives owner a directory of count offers and returns the
// offer keys in directory order.
func populateOwnerDir(t *testing.T, l *Ledger, owner types.AccountID, count int) []types.Hash256 {
	t.Helper()

	dir := keylet.OwnerDir(owner)
	keys := make([]types.Hash256, 0, count)

	for i := 0; i < count; i++ {
		k := keylet.Offer(owner, uint32(i+1))
		offer := &entries.Offer{
			Account:   owner,
			Sequence:  uint32(i + 1),
			TakerPays: types.NativeAmount(int64(i + 1)),
			TakerGets: types.IssuedAmount(1, types.Issue{Currency: types.CurrencyFromCode("USD")}),
		}
		if res, err := l.WriteBack(WriteCreate, k.Key, offer); err != nil || res != WriteCreated {
			t.Fatalf("create offer %d: %v %v", i, res, err)
		}
		if _, err := l.DirAdd(dir, k.Key, OwnerDirDescriber(owner)); err != nil {
			t.Fatalf("DirAdd %d: %v", i, err)
		}
		keys = append(keys, k.Key)
	}
	return keys
}

func TestDirAddPaging(t *testing.T) {
	l := mustGenesis(t, testEnv())
	owner := masterAccount()

	// 4 pages of 32 keys each
	populateOwnerDir(t, l, owner, 128)

	root, err := l.GetDirNode(keylet.OwnerDir(owner).Key)
	if err != nil || root == nil {
		t.Fatalf("directory root: %v %v", root, err)
	}
	if len(root.Indexes) != entries.DirNodeMaxEntries {
		t.Errorf("root page holds %d keys, want %d", len(root.Indexes), entries.DirNodeMaxEntries)
	}
	if root.IndexNext != 1 {
		t.Errorf("root IndexNext = %d, want 1", root.IndexNext)
	}
	if root.IndexPrevious != 3 {
		t.Errorf("root IndexPrevious (last page) = %d, want 3", root.IndexPrevious)
	}
	if root.Owner != owner {
		t.Error("describer did not stamp the owner")
	}

	// Follow the chain: pages 1..3, then end
	pageCount := 1
	next := root.IndexNext
	for next != 0 {
		page, err := l.GetDirNode(keylet.DirPage(keylet.OwnerDir(owner).Key, next).Key)
		if err != nil || page == nil {
			t.Fatalf("page %d: %v %v", next, page, err)
		}
		pageCount++
		next = page.IndexNext
	}
	if pageCount != 4 {
		t.Errorf("directory has %d pages, want 4", pageCount)
	}
}

func TestVisitOwnedItems(t *testing.T) {
	l := mustGenesis(t, testEnv())
	owner := masterAccount()
	keys := populateOwnerDir(t, l, owner, 70)

	var visited []uint32
	err := l.VisitOwnedItems(owner, func(e entries.Entry) bool {
		visited = append(visited, e.(*entries.Offer).Sequence)
		return true
	})
	if err != nil {
		t.Fatalf("VisitOwnedItems: %v", err)
	}
	if len(visited) != len(keys) {
		t.Fatalf("visited %d items, want %d", len(visited), len(keys))
	}
	for i, seq := range visited {
		if seq != uint32(i+1) {
			t.Errorf("position %d: sequence %d", i, seq)
		}
	}
}

func TestVisitAccountItemsPaged(t *testing.T) {
	l := mustGenesis(t, testEnv())
	owner := masterAccount()
	keys := populateOwnerDir(t, l, owner, 128)

	collect := func(startAfter types.Hash256, hint uint64, limit int) ([]uint32, bool) {
		var seqs []uint32
		done, err := l.VisitAccountItems(owner, startAfter, hint, limit,
			func(e entries.Entry) bool {
				seqs = append(seqs, e.(*entries.Offer).Sequence)
				return true
			})
		if err != nil {
			t.Fatalf("VisitAccountItems: %v", err)
		}
		return seqs, done
	}

	// Resume after keys[45] (sequence 46, on page 1) with the right hint:
	// collects the ten following entries and does not exhaust the directory
	seqs, done := collect(keys[45], 1, 10)
	if len(seqs) != 10 {
		t.Fatalf("collected %d entries, want 10", len(seqs))
	}
	for i, seq := range seqs {
		if seq != uint32(47+i) {
			t.Errorf("position %d: sequence %d, want %d", i, seq, 47+i)
		}
	}
	if done {
		t.Error("walk must report not-exhausted when the limit stopped it")
	}

	// A wrong hint falls back to the root and still finds the start key
	seqsWrongHint, _ := collect(keys[45], 3, 10)
	if len(seqsWrongHint) != 10 || seqsWrongHint[0] != 47 {
		t.Errorf("wrong hint: got %v", seqsWrongHint)
	}

	// Zero start walks from the beginning
	fromStart, done := collect(types.Hash256{}, 0, 5)
	if len(fromStart) != 5 || fromStart[0] != 1 {
		t.Errorf("from start: got %v", fromStart)
	}
	if done {
		t.Error("limited walk from start must not report exhaustion")
	}

	// A walk that runs off the end reports exhaustion
	tail, done := collect(keys[120], 3, 100)
	if len(tail) != 7 {
		t.Errorf("tail walk collected %d, want 7", len(tail))
	}
	if !done {
		t.Error("walk off the end must report exhaustion")
	}

	// Early stop from the callback
	var stopped []uint32
	done, err := l.VisitAccountItems(owner, types.Hash256{}, 0, 100,
		func(e entries.Entry) bool {
			stopped = append(stopped, e.(*entries.Offer).Sequence)
			return len(stopped) < 3
		})
	if err != nil {
		t.Fatalf("VisitAccountItems: %v", err)
	}
	if len(stopped) != 3 || done {
		t.Errorf("callback stop: %d items, done=%v", len(stopped), done)
	}
}

func TestVisitAccountItemsEmptyDirectory(t *testing.T) {
	l := mustGenesis(t, testEnv())
	other := types.AccountID{0x05}

	done, err := l.VisitAccountItems(other, types.Hash256{}, 0, 10,
		func(entries.Entry) bool { return true })
	if err != nil {
		t.Fatalf("VisitAccountItems: %v", err)
	}
	if !done {
		t.Error("an absent directory is trivially exhausted")
	}
}

func TestBookDirectoryQualityOrder(t *testing.T) {
	l := mustGenesis(t, testEnv())
	owner := masterAccount()

	book := types.Book{
		In:  types.Issue{Currency: types.CurrencyFromCode("USD"), Account: types.AccountID{0x30}},
		Out: types.Issue{},
	}
	base := keylet.BookBase(book)

	// Offers at mixed qualities land in quality order when walking keys
	qualities := []uint64{5_000_000, 1_000, 2_500_000, 100, 9_999_999}
	for i, q := range qualities {
		pageKey := keylet.Quality(base, q)
		page := &entries.DirectoryNode{
			RootIndex:    pageKey.Key,
			Indexes:      []types.Hash256{keylet.Offer(owner, uint32(i+1)).Key},
			ExchangeRate: q,
		}
		QualityDirDescriber(book, q)(page)
		if res, err := l.WriteBack(WriteCreate, pageKey.Key, page); err != nil || res != WriteCreated {
			t.Fatalf("create book page q=%d: %v %v", q, res, err)
		}
	}

	var walked []uint64
	cursor := base.Key
	for {
		next, err := l.NextStateKeyBounded(cursor, keylet.QualityNext(keylet.Quality(base, ^uint64(0))).Key)
		if err != nil {
			t.Fatalf("NextStateKeyBounded: %v", err)
		}
		if next.IsZero() {
			break
		}
		dir, err := l.GetDirNode(next)
		if err != nil {
			t.Fatalf("GetDirNode: %v", err)
		}
		if dir != nil && dir.IsBookDir() {
			walked = append(walked, dir.ExchangeRate)
		}
		cursor = next
	}

	want := []uint64{100, 1_000, 2_500_000, 5_000_000, 9_999_999}
	if len(walked) != len(want) {
		t.Fatalf("walked %d book pages, want %d: %v", len(walked), len(want), walked)
	}
	for i := range want {
		if walked[i] != want[i] {
			t.Errorf("quality order broken at %d: %v", i, walked)
			break
		}
	}
}
