// Package entry defines the ledger entry type registry shared by the keylet
// derivation and the typed entry codecs.
package entry

import "fmt"

// Type represents a ledger entry type
type Type uint16

// All ledger entry types handled by the core.
const (
	TypeTicket        Type = 0x0054 // Sequence tickets
	TypeAccountRoot   Type = 0x0061 // Account objects
	TypeDirectoryNode Type = 0x0064 // Directory nodes
	TypeAmendments    Type = 0x0066 // Protocol amendments (singleton)
	TypeGeneratorMap  Type = 0x0067 // Generator maps (legacy)
	TypeLedgerHashes  Type = 0x0068 // Historical hashes (singleton)
	TypeOffer         Type = 0x006f // DEX offers
	TypeRippleState   Type = 0x0072 // Trust lines
	TypeFeeSettings   Type = 0x0073 // Network fees (singleton)
)

// String returns the string representation of the Type
func (t Type) String() string {
	switch t {
	case TypeTicket:
		return "Ticket"
	case TypeAccountRoot:
		return "AccountRoot"
	case TypeDirectoryNode:
		return "DirectoryNode"
	case TypeAmendments:
		return "Amendments"
	case TypeGeneratorMap:
		return "GeneratorMap"
	case TypeLedgerHashes:
		return "LedgerHashes"
	case TypeOffer:
		return "Offer"
	case TypeRippleState:
		return "RippleState"
	case TypeFeeSettings:
		return "FeeSettings"
	default:
		return fmt.Sprintf("Type(0x%04x)", uint16(t))
	}
}

// IsValid reports whether t names a known entry type.
func (t Type) IsValid() bool {
	switch t {
	case TypeTicket, TypeAccountRoot, TypeDirectoryNode, TypeAmendments,
		TypeGeneratorMap, TypeLedgerHashes, TypeOffer, TypeRippleState,
		TypeFeeSettings:
		return true
	}
	return false
}
