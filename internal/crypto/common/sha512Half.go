package crypto

import "crypto/sha512"

// Sha512Half returns the first 32 bytes of the SHA-512 digest of the
// concatenation of the given byte slices.
func Sha512Half(chunks ...[]byte) [32]byte {
	h := sha512.New()
	for _, c := range chunks {
		h.Write(c)
	}
	var result [32]byte
	copy(result[:], h.Sum(nil)[:32])
	return result
}
