package mailbox

import (
	"context"
	"testing"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/stretchr/testify/require"
)

func TestBuilderSetAndPersist(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	peer := grit.ActorId{1}
	b := NewBuilder()

	contentId, err := store.Put(ctx, grit.Blob{Data: []byte("hi")})
	require.NoError(t, err)

	_, err = Send(ctx, store, b, peer, nil, contentId)
	require.NoError(t, err)

	id, err := b.Persist(ctx, store)
	require.NoError(t, err)

	obj, err := store.Get(ctx, id)
	require.NoError(t, err)
	gm := obj.(grit.Mailbox)
	require.Len(t, gm.Entries, 1)
	require.Equal(t, peer, gm.Entries[0].Peer)
}

func TestSendChains(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()
	peer := grit.ActorId{2}

	c1, _ := store.Put(ctx, grit.Blob{Data: []byte("first")})
	c2, _ := store.Put(ctx, grit.Blob{Data: []byte("second")})

	b := NewBuilder()
	_, err := Send(ctx, store, b, peer, nil, c1)
	require.NoError(t, err)
	head, err := Send(ctx, store, b, peer, nil, c2)
	require.NoError(t, err)

	msgs, err := Chain(ctx, store, head)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, c1, msgs[0].Content)
	require.Equal(t, c2, msgs[1].Content)
}

func TestDeliverAtMostOnce(t *testing.T) {
	peer := grit.ActorId{3}
	msg := grit.MessageId{9}

	b := NewBuilder()
	require.True(t, Deliver(b, peer, msg))
	require.False(t, Deliver(b, peer, msg))

	head, ok := b.Head(peer)
	require.True(t, ok)
	require.Equal(t, msg, head)
}

func TestDrain(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()
	peer := grit.ActorId{4}

	c1, _ := store.Put(ctx, grit.Blob{Data: []byte("a")})
	c2, _ := store.Put(ctx, grit.Blob{Data: []byte("b")})

	b := NewBuilder()
	_, err := Send(ctx, store, b, peer, nil, c1)
	require.NoError(t, err)
	_, err = Send(ctx, store, b, peer, nil, c2)
	require.NoError(t, err)

	msgs, err := Drain(ctx, store, b, peer)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	_, ok := b.Head(peer)
	require.False(t, ok)
}

func TestViewRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()
	peer := grit.ActorId{5}

	c1, _ := store.Put(ctx, grit.Blob{Data: []byte("x")})
	b := NewBuilder()
	_, err := Send(ctx, store, b, peer, nil, c1)
	require.NoError(t, err)

	id, err := b.Persist(ctx, store)
	require.NoError(t, err)

	obj, err := store.Get(ctx, id)
	require.NoError(t, err)
	v := Load(obj.(grit.Mailbox))

	require.False(t, v.IsEmpty())
	head, ok := v.Head(peer)
	require.True(t, ok)
	require.NotEqual(t, grit.MessageId{}, head)
}
