package wit

import (
	"context"
	"testing"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
	"github.com/stretchr/testify/require"
)

func TestMailboxPresencePublishesASignal(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	outbox := mailbox.NewBuilder()
	args := &MessageArgs{
		ActorId: grit.ActorId{1},
		Outbox:  outbox,
		Store:   store,
	}
	peer := grit.ActorId{2}

	content, err := store.Put(ctx, grit.Blob{Data: []byte("alive")})
	require.NoError(t, err)

	presence := NewMailboxPresence(args)
	require.NoError(t, presence.Publish(ctx, peer, content))

	msgId, ok := outbox.Head(peer)
	require.True(t, ok)
	obj, err := store.Get(ctx, msgId)
	require.NoError(t, err)
	msg := obj.(grit.Message)

	require.True(t, msg.IsSignal())
	require.Equal(t, MTPresence, msg.Headers[grit.MessageType])
	require.Equal(t, content, msg.Content)
}

func TestMailboxPresenceChecksWithoutConsuming(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	peer := grit.ActorId{3}
	content, err := store.Put(ctx, grit.Blob{Data: []byte("alive")})
	require.NoError(t, err)

	msgId, err := store.Put(ctx, grit.Message{
		Headers: map[string]string{grit.MessageType: MTPresence},
		Content: content,
	})
	require.NoError(t, err)

	b := mailbox.NewBuilder()
	b.Set(peer, msgId)
	current := mailbox.Load(b.Build())
	inbox := mailbox.NewInbox(store, current, mailbox.Load(grit.Mailbox{}))

	args := &MessageArgs{ActorId: grit.ActorId{1}, Inbox: inbox, Store: store}
	presence := NewMailboxPresence(args)

	alive, err := presence.Check(ctx, peer)
	require.NoError(t, err)
	require.True(t, alive)

	// Checking never advances last_read: the message is still there to be
	// read normally afterwards.
	msgs, err := inbox.ReadNew(ctx, peer, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestMailboxPresenceChecksFalseForOrdinaryMessage(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	peer := grit.ActorId{4}
	content, err := store.Put(ctx, grit.Blob{Data: []byte("hello")})
	require.NoError(t, err)

	msgId, err := store.Put(ctx, grit.Message{
		Headers: map[string]string{grit.MessageType: "greeting"},
		Content: content,
	})
	require.NoError(t, err)

	b := mailbox.NewBuilder()
	b.Set(peer, msgId)
	current := mailbox.Load(b.Build())
	inbox := mailbox.NewInbox(store, current, mailbox.Load(grit.Mailbox{}))

	args := &MessageArgs{ActorId: grit.ActorId{1}, Inbox: inbox, Store: store}
	presence := NewMailboxPresence(args)

	alive, err := presence.Check(ctx, peer)
	require.NoError(t, err)
	require.False(t, alive)
}
