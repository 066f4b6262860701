package grit

import "encoding/binary"

// PointBlobKey is the core key a point-derived genesis core stores its
// 8-byte big-endian Point under (spec.md §3, extended form).
const PointBlobKey = "point"

// NameBlobKey is the tree key the legacy name-derived AgentId recipe (spec.md
// §6) stores its name blob under.
const NameBlobKey = "name"

// PointCore builds the minimal well-defined core a Point deterministically
// identifies: a single-entry tree mapping "point" to a blob holding the
// point's 8-byte big-endian encoding.
func PointCore(p Point) (Tree, Blob) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(p))

	blob := Blob{Data: buf[:]}
	tree := Tree{Entries: []TreeEntry{
		{Name: PointBlobKey, Id: Hash(blob)},
	}}
	return tree, blob
}

// AgentIdFromPoint derives the canonical AgentId for a Point: the TreeId of
// the minimal core { "point": blob(8-byte big-endian point) }. This is the
// spec's normative derivation (spec.md §3, §9 Open Questions); it requires
// no coordination with a running store to compute.
func AgentIdFromPoint(p Point) AgentId {
	tree, _ := PointCore(p)
	return Hash(tree)
}

// NameCore builds the legacy name-derived core recipe from spec.md §6: a
// blob tagged as a string (ct=s) holding the agent name, wrapped in a tree
// under the key "name".
func NameCore(name string) (Tree, Blob) {
	blob := Blob{
		Headers: map[string]string{"ct": CTString},
		Data:    []byte(name),
	}
	tree := Tree{Entries: []TreeEntry{
		{Name: NameBlobKey, Id: Hash(blob)},
	}}
	return tree, blob
}

// AgentIdFromName derives an AgentId the legacy way, by name rather than by
// Point. Retained for backwards compatibility per spec.md §9's Open
// Questions; AgentIdFromPoint is canonical for new agents.
func AgentIdFromName(name string) AgentId {
	tree, _ := NameCore(name)
	return Hash(tree)
}
