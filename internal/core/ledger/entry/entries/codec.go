// Package entries implements the typed ledger entries stored in the state
// map. Every entry serializes deterministically: a 16-bit type tag followed
// by the entry's fields in a fixed big-endian layout, so identical contents
// always produce identical bytes and therefore identical map hashes.
package entries

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/ledger/entry"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

var (
	// ErrShortData is returned when a serialized entry truncates mid-field.
	ErrShortData = errors.New("serialized entry truncated")

	// ErrUnknownType is returned for a type tag outside the registry.
	ErrUnknownType = errors.New("unknown ledger entry type")
)

// Entry is one typed ledger entry. Entries handed out by the ledger's read
// path are shared and must be treated as immutable; build a fresh value to
// modify one.
type Entry interface {
	Type() entry.Type
	MarshalBinary() ([]byte, error)
}

// Decode parses a serialized entry, dispatching on the leading type tag.
func Decode(data []byte) (Entry, error) {
	if len(data) < 2 {
		return nil, ErrShortData
	}
	t := entry.Type(binary.BigEndian.Uint16(data[0:2]))
	r := &reader{buf: data, off: 2}

	var e Entry
	var err error
	switch t {
	case entry.TypeAccountRoot:
		e, err = readAccountRoot(r)
	case entry.TypeDirectoryNode:
		e, err = readDirectoryNode(r)
	case entry.TypeRippleState:
		e, err = readRippleState(r)
	case entry.TypeOffer:
		e, err = readOffer(r)
	case entry.TypeFeeSettings:
		e, err = readFeeSettings(r)
	case entry.TypeLedgerHashes:
		e, err = readLedgerHashes(r)
	case entry.TypeAmendments:
		e, err = readAmendments(r)
	case entry.TypeTicket:
		e, err = readTicket(r)
	case entry.TypeGeneratorMap:
		e, err = readGeneratorMap(r)
	default:
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnknownType, uint16(t))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return e, nil
}

// writer accumulates big-endian fields.
type writer struct {
	buf []byte
}

func newWriter(t entry.Type) *writer {
	w := &writer{buf: make([]byte, 0, 64)}
	w.u16(uint16(t))
	return w
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) hash(h types.Hash256) {
	w.buf = append(w.buf, h[:]...)
}

func (w *writer) account(a types.AccountID) {
	w.buf = append(w.buf, a[:]...)
}

func (w *writer) currency(c types.Currency) {
	w.buf = append(w.buf, c[:]...)
}

func (w *writer) amount(a types.Amount) {
	w.currency(a.Issue.Currency)
	w.account(a.Issue.Account)
	w.u64(uint64(a.Value))
}

func (w *writer) vl(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) bytes() []byte {
	return w.buf
}

// reader consumes big-endian fields, latching the first error.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortData
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) hash() types.Hash256 {
	var h types.Hash256
	copy(h[:], r.take(32))
	return h
}

func (r *reader) account() types.AccountID {
	var a types.AccountID
	copy(a[:], r.take(20))
	return a
}

func (r *reader) currency() types.Currency {
	var c types.Currency
	copy(c[:], r.take(20))
	return c
}

func (r *reader) amount() types.Amount {
	var a types.Amount
	a.Issue.Currency = r.currency()
	a.Issue.Account = r.account()
	a.Value = int64(r.u64())
	return a
}

func (r *reader) vl() []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
