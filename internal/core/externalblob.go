package core

import (
	"context"
	"fmt"
	"sync"
)

// ExternalLocHeader is the blob header key naming an external storage key
// instead of carrying the payload inline. Supplemented from
// aos/wit/external_storage.py / external_storage_executor.py: large binary
// payloads that shouldn't round-trip through put/get inline can live in a
// separate keyed store and be resolved lazily on read.
const ExternalLocHeader = "loc"

// ExternalBlobResolver fetches the bytes an external "loc" header points at.
type ExternalBlobResolver interface {
	Resolve(ctx context.Context, loc string) ([]byte, error)
}

// ExternalBlobResolverFunc adapts a plain function to ExternalBlobResolver.
type ExternalBlobResolverFunc func(ctx context.Context, loc string) ([]byte, error)

func (f ExternalBlobResolverFunc) Resolve(ctx context.Context, loc string) ([]byte, error) {
	return f(ctx, loc)
}

// resolveExternal fetches and caches the payload for an external blob. The
// cached bytes are kept in externalData so subsequent AsBytes calls are free.
func (b *BlobObject) resolveExternal(ctx context.Context, loc string) ([]byte, error) {
	b.externalOnce.Do(func() {
		b.externalData, b.externalErr = b.resolver.Resolve(ctx, loc)
	})
	if b.externalErr != nil {
		return nil, fmt.Errorf("core: resolving external blob %q: %w", loc, b.externalErr)
	}
	return b.externalData, nil
}

// MemoryExternalBlobResolver is a simple map-backed ExternalBlobResolver
// useful for tests and for a single-process reference deployment.
type MemoryExternalBlobResolver struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemoryExternalBlobResolver creates an empty resolver.
func NewMemoryExternalBlobResolver() *MemoryExternalBlobResolver {
	return &MemoryExternalBlobResolver{store: make(map[string][]byte)}
}

// Put registers bytes under loc for later resolution.
func (r *MemoryExternalBlobResolver) Put(loc string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[loc] = data
}

func (r *MemoryExternalBlobResolver) Resolve(_ context.Context, loc string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.store[loc]
	if !ok {
		return nil, fmt.Errorf("core: no external blob registered for loc %q", loc)
	}
	return data, nil
}
