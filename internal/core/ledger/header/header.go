// Package header implements the canonical ledger header: the 118 bytes that
// are hashed into a ledger's identity.
package header

import (
	"encoding/binary"
	"fmt"

	"github.com/LeJamon/goledgerd/internal/core/types"
	crypto "github.com/LeJamon/goledgerd/internal/crypto/common"
	"github.com/LeJamon/goledgerd/internal/protocol"
)

// Ledger close flags
const (
	// FlagNoConsensusTime marks a close time that was not agreed by consensus.
	FlagNoConsensusTime uint8 = 0x01
)

// EncodedSize is the canonical header length in bytes.
const EncodedSize = 118

// PrefixedSize is the header length with the leading hash-prefix tag, the
// form stored in the node store.
const PrefixedSize = EncodedSize + 4

// Header carries a ledger's chain linkage and timing metadata. Times are
// held as 64-bit seconds since the protocol epoch and truncated to 32 bits
// on the wire.
type Header struct {
	Sequence            uint32
	TotalCoins          uint64
	ParentHash          types.Hash256
	TxHash              types.Hash256
	AccountHash         types.Hash256
	ParentCloseTime     uint64
	CloseTime           uint64
	CloseTimeResolution uint8
	CloseFlags          uint8
}

// CloseAgree returns true if there was consensus on the close time.
func (h *Header) CloseAgree() bool {
	return h.CloseFlags&FlagNoConsensusTime == 0
}

// Encode renders the header in its canonical 118-byte big-endian form.
func (h *Header) Encode() []byte {
	buf := make([]byte, EncodedSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Sequence)
	binary.BigEndian.PutUint64(buf[4:12], h.TotalCoins)
	copy(buf[12:44], h.ParentHash[:])
	copy(buf[44:76], h.TxHash[:])
	copy(buf[76:108], h.AccountHash[:])
	binary.BigEndian.PutUint32(buf[108:112], uint32(h.ParentCloseTime))
	binary.BigEndian.PutUint32(buf[112:116], uint32(h.CloseTime))
	buf[116] = h.CloseTimeResolution
	buf[117] = h.CloseFlags
	return buf
}

// EncodeWithPrefix renders the header prefixed with the ledger-master tag,
// the raw form stored in the node store and the preimage of the identity
// hash.
func (h *Header) EncodeWithPrefix() []byte {
	buf := make([]byte, 0, PrefixedSize)
	buf = append(buf, protocol.HashPrefixLedgerMaster[:]...)
	return append(buf, h.Encode()...)
}

// Decode parses a header from its canonical form. With skipPrefix set the
// leading 4-byte hash-prefix tag is discarded first.
func Decode(data []byte, skipPrefix bool) (*Header, error) {
	if skipPrefix {
		if len(data) < 4 {
			return nil, fmt.Errorf("header too short for prefix: %d bytes", len(data))
		}
		data = data[4:]
	}
	if len(data) < EncodedSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", EncodedSize, len(data))
	}

	h := &Header{
		Sequence:            binary.BigEndian.Uint32(data[0:4]),
		TotalCoins:          binary.BigEndian.Uint64(data[4:12]),
		ParentCloseTime:     uint64(binary.BigEndian.Uint32(data[108:112])),
		CloseTime:           uint64(binary.BigEndian.Uint32(data[112:116])),
		CloseTimeResolution: data[116],
		CloseFlags:          data[117],
	}
	copy(h.ParentHash[:], data[12:44])
	copy(h.TxHash[:], data[44:76])
	copy(h.AccountHash[:], data[76:108])
	return h, nil
}

// IdentityHash computes the ledger's identity: SHA512-Half over the
// ledger-master prefix and the canonical header bytes.
func (h *Header) IdentityHash() types.Hash256 {
	return crypto.Sha512Half(protocol.HashPrefixLedgerMaster[:], h.Encode())
}

// RoundCloseTime rounds t to the nearest multiple of the resolution.
// Zero stays zero: an unknown close time has no resolution to round to.
func RoundCloseTime(t uint64, resolution uint8) uint64 {
	if t == 0 || resolution == 0 {
		return t
	}
	r := uint64(resolution)
	t += r / 2
	return t - t%r
}
