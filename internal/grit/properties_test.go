package grit

import (
	"testing"

	"pgregory.net/rapid"
)

func genObjectId(t *rapid.T, label string) ObjectId {
	bytes := rapid.SliceOfN(rapid.Byte(), idSize, idSize).Draw(t, label)
	var id ObjectId
	copy(id[:], bytes)
	return id
}

func genHeaders(t *rapid.T) map[string]string {
	n := rapid.IntRange(0, 4).Draw(t, "numHeaders")
	if n == 0 {
		return nil
	}
	headers := make(map[string]string, n)
	for i := 0; i < n; i++ {
		key := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9-]{0,10}`).Draw(t, "headerKey")
		value := rapid.String().Draw(t, "headerValue")
		headers[key] = value
	}
	return headers
}

// TestRoundTripBlob verifies spec.md §8 invariant 1 (round-trip) for Blob.
func TestRoundTripBlob(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := Blob{
			Headers: genHeaders(t),
			Data:    []byte(rapid.String().Draw(t, "data")),
		}

		decoded, err := Decode(Encode(b))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded.(Blob).Kind() != KindBlob {
			t.Fatal("kind mismatch")
		}

		got := decoded.(Blob)
		if len(got.Data) != len(b.Data) || string(got.Data) != string(b.Data) {
			t.Fatalf("data mismatch: got %q want %q", got.Data, b.Data)
		}
		if len(got.Headers) != len(b.Headers) {
			t.Fatalf("header count mismatch: got %d want %d",
				len(got.Headers), len(b.Headers))
		}
		for k, v := range b.Headers {
			if got.Headers[k] != v {
				t.Fatalf("header %q mismatch: got %q want %q", k, got.Headers[k], v)
			}
		}
	})
}

// TestRoundTripTree verifies round-trip and insertion-order stability
// (spec.md §8 invariants 1 and 6) for Tree.
func TestRoundTripTree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "numEntries")
		seen := make(map[string]struct{})
		var entries []TreeEntry
		for i := 0; i < n; i++ {
			name := rapid.StringMatching(`[a-z][a-z0-9_]{0,8}`).Draw(t, "name")
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			entries = append(entries, TreeEntry{
				Name: name,
				Id:   genObjectId(t, "id"),
			})
		}
		tr := Tree{Entries: entries}

		decoded, err := Decode(Encode(tr))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		got := decoded.(Tree)
		if len(got.Entries) != len(tr.Entries) {
			t.Fatalf("entry count mismatch: got %d want %d",
				len(got.Entries), len(tr.Entries))
		}
		for i, e := range tr.Entries {
			if got.Entries[i] != e {
				t.Fatalf("entry %d mismatch: got %+v want %+v", i, got.Entries[i], e)
			}
		}
	})
}

// TestPutIdempotentAcrossRandomContent verifies spec.md §8 invariant 2:
// hashing the same content twice always yields the same id.
func TestPutIdempotentAcrossRandomContent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := Blob{Data: []byte(rapid.String().Draw(t, "data"))}

		id1 := Hash(b)
		id2 := Hash(b)
		if id1 != id2 {
			t.Fatalf("hash not idempotent: %v != %v", id1, id2)
		}
	})
}

// TestRoundTripStep verifies round-trip for Step, including the
// previous/inbox/outbox optionality.
func TestRoundTripStep(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Step{
			Actor: genObjectId(t, "actor"),
			Core:  genObjectId(t, "core"),
		}
		if rapid.Bool().Draw(t, "hasPrevious") {
			p := genObjectId(t, "previous")
			s.Previous = &p
		}
		if rapid.Bool().Draw(t, "hasInbox") {
			i := genObjectId(t, "inbox")
			s.Inbox = &i
		}
		if rapid.Bool().Draw(t, "hasOutbox") {
			o := genObjectId(t, "outbox")
			s.Outbox = &o
		}

		decoded, err := Decode(Encode(s))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		got := decoded.(Step)

		if got.Actor != s.Actor || got.Core != s.Core {
			t.Fatalf("actor/core mismatch: got %+v want %+v", got, s)
		}
		if (got.Previous == nil) != (s.Previous == nil) {
			t.Fatalf("previous presence mismatch")
		}
		if s.Previous != nil && *got.Previous != *s.Previous {
			t.Fatalf("previous value mismatch")
		}
	})
}
