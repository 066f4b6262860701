package grit

import "crypto/sha256"

// Hash returns the content id of o: the SHA-256 digest of its canonical
// encoding. Identity is a pure function of content (spec.md §3): encoding
// the same object twice, or two objects with equal fields, always yields
// the same id.
func Hash(o Object) ObjectId {
	return sha256.Sum256(Encode(o))
}
