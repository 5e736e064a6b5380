// Package types holds the primitive protocol types shared by the ledger core:
// 256-bit hashes, 160-bit account and currency identifiers, issues, order
// books and the compact amount representation.
package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Hash256 is a 256-bit opaque identifier. When treated numerically it is
// big-endian: byte 0 is the most significant.
type Hash256 [32]byte

// Blob is raw serialized object data.
type Blob = []byte

// Zero256 is the all-zero hash.
var Zero256 Hash256

// IsZero reports whether every byte of the hash is zero.
func (h Hash256) IsZero() bool {
	return h == Zero256
}

// Compare orders two hashes as big-endian 256-bit integers.
func (h Hash256) Compare(other Hash256) int {
	return bytes.Compare(h[:], other[:])
}

// String returns the lowercase hex representation.
func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// Quality returns the 64-bit quality field embedded in the trailing 8 bytes
// of the hash, interpreted big-endian.
func (h Hash256) Quality() uint64 {
	return binary.BigEndian.Uint64(h[24:])
}

// WithQuality returns a copy of the hash with the trailing 8 bytes replaced
// by q in big-endian order. Adjacent qualities produce adjacent keys, so
// iterating keys in order walks offers from best to worst quality.
func (h Hash256) WithQuality(q uint64) Hash256 {
	out := h
	binary.BigEndian.PutUint64(out[24:], q)
	return out
}

// Next64 returns the hash plus 2^64, i.e. the first key past the current
// quality bucket. The carry propagates through the upper 24 bytes.
func (h Hash256) Next64() Hash256 {
	out := h
	for i := 23; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			break
		}
	}
	return out
}

// ParseHash256 decodes a 64-character hex string.
func ParseHash256(s string) (Hash256, error) {
	var h Hash256
	if len(s) != 64 {
		return h, fmt.Errorf("invalid hash length: expected 64, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hex string: %w", err)
	}
	copy(h[:], b)
	return h, nil
}

// Hash256FromBytes copies up to 32 bytes into a Hash256.
func Hash256FromBytes(b []byte) Hash256 {
	var h Hash256
	copy(h[:], b)
	return h
}

// AccountID is a 160-bit account identifier.
type AccountID [20]byte

// IsZero reports whether the account ID is all zeroes.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// Compare orders two account IDs lexicographically.
func (a AccountID) Compare(other AccountID) int {
	return bytes.Compare(a[:], other[:])
}

// String returns the lowercase hex representation.
func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// Currency is a 160-bit currency code. The zero value is the native currency.
type Currency [20]byte

// NativeCurrency is the distinguished code for the system's native asset.
var NativeCurrency Currency

// IsNative reports whether the code names the native asset.
func (c Currency) IsNative() bool {
	return c == NativeCurrency
}

// String renders standard three-letter codes as ASCII and anything else as hex.
func (c Currency) String() string {
	if c.IsNative() {
		return "XRP"
	}
	if isStandardCode(c) {
		return string(c[12:15])
	}
	return hex.EncodeToString(c[:])
}

func isStandardCode(c Currency) bool {
	for i, b := range c {
		if i >= 12 && i <= 14 {
			if b < '!' || b > '~' {
				return false
			}
			continue
		}
		if b != 0 {
			return false
		}
	}
	return true
}

// CurrencyFromCode converts a currency string into its 160-bit form.
// Three-character codes occupy bytes 12-14; 40-character strings are decoded
// as hex; "XRP" and "" map to the native code.
func CurrencyFromCode(code string) Currency {
	var c Currency
	switch len(code) {
	case 0:
		return c
	case 3:
		if code == "XRP" {
			return c
		}
		copy(c[12:15], code)
	case 40:
		b, err := hex.DecodeString(code)
		if err == nil {
			copy(c[:], b)
		}
	}
	return c
}

// Issue identifies an asset: a currency and its issuing account.
// The native asset has a zero issuer.
type Issue struct {
	Currency Currency
	Account  AccountID
}

// IsNative reports whether the issue is the native asset.
func (i Issue) IsNative() bool {
	return i.Currency.IsNative()
}

// String formats the issue as currency/issuer.
func (i Issue) String() string {
	if i.IsNative() {
		return i.Currency.String()
	}
	return i.Currency.String() + "/" + i.Account.String()
}

// Book is an ordered pair of issues: offers in the book pay In and get Out.
type Book struct {
	In  Issue
	Out Issue
}

// IsConsistent reports whether the book relates two distinct assets.
func (b Book) IsConsistent() bool {
	return b.In != b.Out
}

// String formats the book as in->out.
func (b Book) String() string {
	return b.In.String() + "->" + b.Out.String()
}
