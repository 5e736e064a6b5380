package keylet

import (
	"bytes"
	"testing"

	"github.com/LeJamon/goledgerd/internal/core/types"
)

func accountFromByte(b byte) types.AccountID {
	var a types.AccountID
	for i := range a {
		a[i] = b
	}
	return a
}

func TestLineCanonicalization(t *testing.T) {
	a := accountFromByte(0x11)
	b := accountFromByte(0x99)
	usd := types.CurrencyFromCode("USD")

	if Line(a, b, usd).Key != Line(b, a, usd).Key {
		t.Error("trust line key must not depend on argument order")
	}
	if Line(a, b, usd).Key == Line(a, b, types.CurrencyFromCode("EUR")).Key {
		t.Error("different currencies must derive different keys")
	}
}

func TestSpacesAreDisjoint(t *testing.T) {
	a := accountFromByte(0x42)

	keys := map[types.Hash256]string{
		Account(a).Key:   "account",
		OwnerDir(a).Key:  "ownerdir",
		Generator(a).Key: "generator",
	}
	if len(keys) != 3 {
		t.Errorf("space tags failed to separate keys: %v", keys)
	}

	if Fees().Key == Amendments().Key || Fees().Key == SkipList().Key {
		t.Error("singleton keys collide")
	}
}

func TestOfferKeyDependsOnSequence(t *testing.T) {
	a := accountFromByte(0x42)
	if Offer(a, 1).Key == Offer(a, 2).Key {
		t.Error("offer keys must differ by sequence")
	}
}

func TestDirPageZeroIsRoot(t *testing.T) {
	root := Account(accountFromByte(0x01)).Key

	if DirPage(root, 0).Key != root {
		t.Error("page 0 of a directory must be the root itself")
	}
	if DirPage(root, 1).Key == root {
		t.Error("page 1 must hash away from the root")
	}
	if DirPage(root, 1).Key == DirPage(root, 2).Key {
		t.Error("distinct pages must have distinct keys")
	}
}

func TestQualityOrdering(t *testing.T) {
	book := types.Book{
		In:  types.Issue{Currency: types.CurrencyFromCode("USD"), Account: accountFromByte(0x10)},
		Out: types.Issue{},
	}
	base := BookBase(book)

	q1 := Quality(base, 1)
	q2 := Quality(base, 1_000_000)

	// Big-endian lexicographic comparison must follow the quality values
	if bytes.Compare(q1.Key[:], q2.Key[:]) >= 0 {
		t.Errorf("key(q1) must order before key(q2):\n  q1 %x\n  q2 %x", q1.Key, q2.Key)
	}

	// The high 24 bytes identify the book and are shared
	if !bytes.Equal(q1.Key[:24], base.Key[:24]) || !bytes.Equal(q2.Key[:24], base.Key[:24]) {
		t.Error("quality index must preserve the book base prefix")
	}

	if q2.Key.Quality() != 1_000_000 {
		t.Errorf("embedded quality readback: got %d", q2.Key.Quality())
	}
}

func TestQualityNext(t *testing.T) {
	book := types.Book{
		In:  types.Issue{Currency: types.CurrencyFromCode("BTC"), Account: accountFromByte(0x77)},
		Out: types.Issue{Currency: types.CurrencyFromCode("USD"), Account: accountFromByte(0x88)},
	}
	base := BookBase(book)
	q := Quality(base, ^uint64(0))

	next := QualityNext(q)
	if bytes.Compare(next.Key[:], q.Key[:]) <= 0 {
		t.Error("QualityNext must produce a strictly greater key")
	}
	if next.Key.Quality() != ^uint64(0) {
		t.Error("QualityNext must not disturb the low 64 bits")
	}
}

func TestSkipListEpochKeys(t *testing.T) {
	// Sequences in the same 2^16-epoch share a page; different epochs do not
	if SkipListEpoch(256).Key != SkipListEpoch(512).Key {
		t.Error("sequences under 65536 share the epoch-0 page")
	}
	if SkipListEpoch(0).Key == SkipListEpoch(1<<16).Key {
		t.Error("epoch pages must differ across 2^16 boundaries")
	}
	if SkipListEpoch(0).Key == SkipList().Key {
		t.Error("sparse epoch-0 page must differ from the dense list")
	}
}
