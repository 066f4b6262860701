package core

import (
	"context"
	"testing"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/stretchr/testify/require"
)

func TestBlobSetGetBytes(t *testing.T) {
	ctx := context.Background()
	b := NewBlob([]byte("hello"))

	data, err := b.AsBytes(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	require.True(t, b.Dirty())
}

func TestBlobSetStr(t *testing.T) {
	ctx := context.Background()
	b := NewBlob(nil)
	b.SetStr("hi")

	s, err := b.AsStr(ctx)
	require.NoError(t, err)
	require.Equal(t, "hi", s)

	ct, ok := b.Header("ct")
	require.True(t, ok)
	require.Equal(t, "s", ct)
}

func TestBlobSetJSON(t *testing.T) {
	ctx := context.Background()
	b := NewBlob(nil)

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, b.SetJSON(payload{Name: "agent"}))

	got, err := AsModel[payload](ctx, b)
	require.NoError(t, err)
	require.Equal(t, "agent", got.Name)
}

func TestBlobPersistIdempotent(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	b := NewBlob([]byte("x"))
	id1, err := b.Persist(ctx, store)
	require.NoError(t, err)
	require.False(t, b.Dirty())

	id2, err := b.Persist(ctx, store)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestBlobExternalResolver(t *testing.T) {
	ctx := context.Background()
	resolver := NewMemoryExternalBlobResolver()
	resolver.Put("loc://1", []byte("external payload"))

	b := NewBlob(nil).WithExternalResolver(resolver)
	b.SetHeader(ExternalLocHeader, "loc://1")

	data, err := b.AsBytes(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("external payload"), data)
}

func TestBlobExternalResolverMissing(t *testing.T) {
	ctx := context.Background()
	resolver := NewMemoryExternalBlobResolver()

	b := NewBlob(nil).WithExternalResolver(resolver)
	b.SetHeader(ExternalLocHeader, "loc://missing")

	_, err := b.AsBytes(ctx)
	require.Error(t, err)
}
