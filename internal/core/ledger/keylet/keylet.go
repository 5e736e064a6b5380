// Package keylet derives the 256-bit state-map key for every ledger entry
// kind. Each kind hashes under its own 16-bit space tag, which keeps the key
// spaces disjoint.
package keylet

import (
	"encoding/binary"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
	crypto "github.com/LeJamon/goledgerd/internal/crypto/common"
)

// Space identifiers for keylet generation.
// These correspond to the LedgerNameSpace enum in rippled.
const (
	spaceAccount   uint16 = 'a' // Account root
	spaceDirNode   uint16 = 'd' // Directory page
	spaceGenerator uint16 = 'g' // Generator map (legacy)
	spaceRipple    uint16 = 'r' // Trust line
	spaceOffer     uint16 = 'o' // Offer
	spaceOwnerDir  uint16 = 'O' // Owner directory
	spaceBookDir   uint16 = 'B' // Order book directory
	spaceSkipList  uint16 = 's' // Skip list
	spaceAmendment uint16 = 'f' // Amendments (singleton)
	spaceFee       uint16 = 'e' // Fee settings (singleton)
	spaceTicket    uint16 = 'T' // Ticket
)

// Keylet represents an addressable location in the ledger state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type entry.Type
	Key  types.Hash256
}

// indexHash computes a keylet key by hashing the space and provided data.
func indexHash(space uint16, data ...[]byte) types.Hash256 {
	spaceBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(spaceBytes, space)

	inputs := make([][]byte, 0, len(data)+1)
	inputs = append(inputs, spaceBytes)
	inputs = append(inputs, data...)

	return crypto.Sha512Half(inputs...)
}

// Account returns the keylet for an account root entry.
func Account(account types.AccountID) Keylet {
	return Keylet{
		Type: entry.TypeAccountRoot,
		Key:  indexHash(spaceAccount, account[:]),
	}
}

// OwnerDir returns the keylet for the root page of an account's owner
// directory.
func OwnerDir(account types.AccountID) Keylet {
	return Keylet{
		Type: entry.TypeDirectoryNode,
		Key:  indexHash(spaceOwnerDir, account[:]),
	}
}

// Offer returns the keylet for an offer entry.
func Offer(account types.AccountID, sequence uint32) Keylet {
	seqBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(seqBytes, sequence)
	return Keylet{
		Type: entry.TypeOffer,
		Key:  indexHash(spaceOffer, account[:], seqBytes),
	}
}

// Line returns the keylet for the trust line between two accounts in a
// currency. The pair is ordered with the numerically smaller account first,
// so both orderings derive the same key.
func Line(a, b types.AccountID, currency types.Currency) Keylet {
	low, high := a, b
	if low.Compare(high) > 0 {
		low, high = high, low
	}
	return Keylet{
		Type: entry.TypeRippleState,
		Key:  indexHash(spaceRipple, low[:], high[:], currency[:]),
	}
}

// Generator returns the keylet for a legacy generator map.
func Generator(generator types.AccountID) Keylet {
	return Keylet{
		Type: entry.TypeGeneratorMap,
		Key:  indexHash(spaceGenerator, generator[:]),
	}
}

// Ticket returns the keylet for a ticket entry.
func Ticket(account types.AccountID, ticketSeq uint32) Keylet {
	seqBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(seqBytes, ticketSeq)
	return Keylet{
		Type: entry.TypeTicket,
		Key:  indexHash(spaceTicket, account[:], seqBytes),
	}
}

// Fees returns the keylet for the singleton fee settings entry.
func Fees() Keylet {
	return Keylet{
		Type: entry.TypeFeeSettings,
		Key:  indexHash(spaceFee),
	}
}

// Amendments returns the keylet for the singleton amendments entry.
func Amendments() Keylet {
	return Keylet{
		Type: entry.TypeAmendments,
		Key:  indexHash(spaceAmendment),
	}
}

// SkipList returns the keylet for the recent-256 skip list.
func SkipList() Keylet {
	return Keylet{
		Type: entry.TypeLedgerHashes,
		Key:  indexHash(spaceSkipList),
	}
}

// SkipListEpoch returns the keylet for the sparse skip-list page covering the
// given ledger sequence: one page per 2^16 ledgers, holding one hash for each
// 256-ledger epoch in that range.
func SkipListEpoch(seq uint32) Keylet {
	epochBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(epochBytes, seq>>16)
	return Keylet{
		Type: entry.TypeLedgerHashes,
		Key:  indexHash(spaceSkipList, epochBytes),
	}
}

// BookBase returns the base key of an order book: the book fields hashed
// under the book space with a zeroed quality field.
func BookBase(book types.Book) Keylet {
	base := indexHash(spaceBookDir,
		book.In.Currency[:],
		book.Out.Currency[:],
		book.In.Account[:],
		book.Out.Account[:],
	)
	return Keylet{
		Type: entry.TypeDirectoryNode,
		Key:  base.WithQuality(0),
	}
}

// Quality returns the book directory key for a specific quality: base with
// the quality embedded big-endian in the trailing 8 bytes. Iterating state
// keys in order therefore walks a book from best to worst quality.
func Quality(base Keylet, quality uint64) Keylet {
	return Keylet{
		Type: entry.TypeDirectoryNode,
		Key:  base.Key.WithQuality(quality),
	}
}

// QualityNext returns the first key past the quality bucket of k, used to
// step to the next quality while iterating a book.
func QualityNext(k Keylet) Keylet {
	return Keylet{
		Type: entry.TypeDirectoryNode,
		Key:  k.Key.Next64(),
	}
}

// DirPage returns the keylet for a page of a directory. Page zero is the
// directory root itself; later pages hash the root and the page index.
func DirPage(root types.Hash256, page uint64) Keylet {
	if page == 0 {
		return Keylet{Type: entry.TypeDirectoryNode, Key: root}
	}
	pageBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(pageBytes, page)
	return Keylet{
		Type: entry.TypeDirectoryNode,
		Key:  indexHash(spaceDirNode, root[:], pageBytes),
	}
}
