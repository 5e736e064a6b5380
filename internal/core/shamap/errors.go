package shamap

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrImmutable    = errors.New("cannot modify immutable SHAMap")
	ErrNilItem      = errors.New("cannot add nil item")
	ErrItemExists   = errors.New("item already present")
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidState = errors.New("invalid state for operation")
	ErrNotBacked    = errors.New("map has no backing store")
)

// MissingNodeError signals that traversal reached a node whose data is not
// available locally. It is the one error callers are expected to treat as an
// event: the owner of the missing ledger should be asked to acquire it.
type MissingNodeError struct {
	Hash [32]byte
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("missing SHAMap node %x", e.Hash)
}

// IsMissingNode reports whether err wraps a MissingNodeError.
func IsMissingNode(err error) bool {
	var missing *MissingNodeError
	return errors.As(err, &missing)
}
