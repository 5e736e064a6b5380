package nodestore

import "errors"

var (
	// ErrBackendClosed is returned when operating on a closed backend.
	ErrBackendClosed = errors.New("nodestore backend is closed")

	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("object not found in nodestore")

	// ErrCorrupt is returned when stored data fails to decode.
	ErrCorrupt = errors.New("nodestore object is corrupt")

	// ErrUnknownBackend is returned for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown nodestore backend")
)
