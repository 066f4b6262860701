// Package core implements the ergonomic Tree/Blob/Core views layered over
// the raw grit object model (spec.md §4.2): typed accessors, a dirty-tracked
// persist cycle, and the Core convention (wit/wit_query/wit_update/code/
// state/args sub-nodes).
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// BlobObject owns an optional header map and a byte payload, with typed
// views over the payload and setters that mark the blob dirty so Persist
// knows whether a new object write is needed.
type BlobObject struct {
	headers map[string]string
	data    []byte

	dirty     bool
	persisted bool
	id        grit.ObjectId

	resolver     ExternalBlobResolver
	externalOnce sync.Once
	externalData []byte
	externalErr  error
}

// NewBlob creates a new, not-yet-persisted BlobObject from raw bytes.
func NewBlob(data []byte) *BlobObject {
	return &BlobObject{data: data, dirty: true}
}

// NewBlobFromObject wraps an already-stored grit.Blob, recording its known
// id so Persist is a no-op unless the blob is subsequently mutated.
func NewBlobFromObject(id grit.ObjectId, b grit.Blob) *BlobObject {
	return &BlobObject{
		headers:   b.Headers,
		data:      b.Data,
		persisted: true,
		id:        id,
	}
}

// WithExternalResolver attaches the resolver AsBytes uses to fetch payloads
// whose content lives outside the object store (see externalblob.go).
func (b *BlobObject) WithExternalResolver(r ExternalBlobResolver) *BlobObject {
	b.resolver = r
	return b
}

// Header returns a header value and whether it was present.
func (b *BlobObject) Header(key string) (string, bool) {
	v, ok := b.headers[key]
	return v, ok
}

// SetHeader sets a header and marks the blob dirty.
func (b *BlobObject) SetHeader(key, value string) {
	if b.headers == nil {
		b.headers = make(map[string]string)
	}
	b.headers[key] = value
	b.dirty = true
}

// AsBytes returns the blob's raw payload, resolving an external storage
// pointer first if one is present (see externalblob.go).
func (b *BlobObject) AsBytes(ctx context.Context) ([]byte, error) {
	if loc, ok := b.Header(ExternalLocHeader); ok && b.resolver != nil {
		return b.resolveExternal(ctx, loc)
	}
	return b.data, nil
}

// AsStr returns the blob's payload as a string.
func (b *BlobObject) AsStr(ctx context.Context) (string, error) {
	data, err := b.AsBytes(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AsJSON unmarshals the blob's payload into v.
func (b *BlobObject) AsJSON(ctx context.Context, v any) error {
	data, err := b.AsBytes(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// AsModel unmarshals a blob's payload into a fresh value of type T. It is a
// free function rather than a method because Go methods cannot introduce
// their own type parameters.
func AsModel[T any](ctx context.Context, b *BlobObject) (T, error) {
	var v T
	if err := b.AsJSON(ctx, &v); err != nil {
		return v, err
	}
	return v, nil
}

// SetBytes replaces the blob's payload and marks it dirty.
func (b *BlobObject) SetBytes(data []byte) {
	b.data = data
	b.dirty = true
}

// SetStr replaces the blob's payload with a string and tags it as a string
// blob (ct=s).
func (b *BlobObject) SetStr(s string) {
	b.SetBytes([]byte(s))
	b.SetHeader("ct", grit.CTString)
}

// SetJSON replaces the blob's payload with the JSON encoding of v and tags
// it as a json blob (ct=j).
func (b *BlobObject) SetJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.SetBytes(data)
	b.SetHeader("ct", grit.CTJSON)
	return nil
}

// Id returns the blob's content id, valid only after Persist has been
// called at least once since the last mutation.
func (b *BlobObject) Id() grit.ObjectId {
	return b.id
}

// Dirty reports whether the blob has unpersisted changes.
func (b *BlobObject) Dirty() bool {
	return b.dirty || !b.persisted
}

// Persist stores the blob iff it is dirty or has never been persisted,
// returning its (possibly cached) content id.
func (b *BlobObject) Persist(ctx context.Context, store gritstore.Store) (grit.ObjectId, error) {
	if !b.Dirty() {
		return b.id, nil
	}

	id, err := store.Put(ctx, grit.Blob{Headers: b.headers, Data: b.data})
	if err != nil {
		return grit.ObjectId{}, fmt.Errorf("core: persisting blob: %w", err)
	}

	b.id = id
	b.dirty = false
	b.persisted = true
	return id, nil
}
