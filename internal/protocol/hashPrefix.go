package protocol

// makeHashPrefix combines three ASCII characters into a 4-byte prefix with the last byte set to zero.
func makeHashPrefix(a, b, c byte) [4]byte {
	return [4]byte{a, b, c, 0}
}

// HashPrefix constants for the hash domains used by the ledger core.
// These MUST match the protocol enum values.
var (
	HashPrefixTransactionID = makeHashPrefix('T', 'X', 'N') // Transaction ID
	HashPrefixTxNode        = makeHashPrefix('S', 'N', 'D') // Transaction + Metadata
	HashPrefixLeafNode      = makeHashPrefix('M', 'L', 'N') // Account state leaf
	HashPrefixInnerNode     = makeHashPrefix('M', 'I', 'N') // Inner node
	HashPrefixLedgerMaster  = makeHashPrefix('L', 'W', 'R') // Ledger header / identity hash
	HashPrefixValidation    = makeHashPrefix('V', 'A', 'L') // Validation
	HashPrefixProposal      = makeHashPrefix('P', 'R', 'P') // Proposal
)
