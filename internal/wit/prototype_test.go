package wit

import (
	"context"
	"testing"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
	"github.com/stretchr/testify/require"
)

func buildPrototypeCore(t *testing.T, ctx context.Context, store gritstore.Store) *core.Core {
	t.Helper()

	self := core.NewCore(store)
	proto, err := self.MakeTree(ctx, NodePrototype)
	require.NoError(t, err)
	wb, err := proto.MakeBlob(ctx, NodeWit)
	require.NoError(t, err)
	wb.SetStr("external:child-echo")

	_, err = self.Persist(ctx, store)
	require.NoError(t, err)
	return self
}

func TestPrototypeCreateBirthsChildAndRecords(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	self := buildPrototypeCore(t, ctx, store)
	router := NewPrototypeMessageRouter(nil)

	outbox := mailbox.NewBuilder()
	args := &MessageArgs{
		ActorId:     grit.ActorId{1},
		MessageType: "create",
		Headers:     map[string]string{"name": "worker-1"},
		Core:        self,
		Outbox:      outbox,
		Store:       store,
	}

	_, err := router.Dispatch(ctx, args)
	require.NoError(t, err)

	require.False(t, outbox.IsEmpty())
	peers := outbox.Peers()
	require.Len(t, peers, 1)
	childId := peers[0]

	msgId, ok := outbox.Head(childId)
	require.True(t, ok)

	obj, err := store.Get(ctx, msgId)
	require.NoError(t, err)
	msg := obj.(grit.Message)
	require.Nil(t, msg.Previous)
	require.Equal(t, childId, msg.Content)
	require.Equal(t, MTGenesis, msg.Headers[grit.MessageType])

	children, err := CreatedChildren(ctx, self)
	require.NoError(t, err)
	require.Equal(t, childId, children["worker-1"])

	childCoreObj, err := store.Get(ctx, childId)
	require.NoError(t, err)
	childTree := childCoreObj.(grit.Tree)
	childCore := core.NewCoreFromObject(store, childId, childTree)
	wit, err := childCore.Wit(ctx)
	require.NoError(t, err)
	require.Equal(t, "external:child-echo", wit)
}

func TestPrototypeUpdateForwardsToChildren(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	self := buildPrototypeCore(t, ctx, store)
	router := NewPrototypeMessageRouter(nil)

	outbox := mailbox.NewBuilder()
	createArgs := &MessageArgs{
		ActorId:     grit.ActorId{1},
		MessageType: "create",
		Headers:     map[string]string{"name": "worker-1"},
		Core:        self,
		Outbox:      outbox,
		Store:       store,
	}
	_, err := router.Dispatch(ctx, createArgs)
	require.NoError(t, err)

	children, err := CreatedChildren(ctx, self)
	require.NoError(t, err)
	childId := children["worker-1"]

	newCoreId, err := store.Put(ctx, grit.Tree{})
	require.NoError(t, err)

	updateOutbox := mailbox.NewBuilder()
	updateArgs := &MessageArgs{
		ActorId:     grit.ActorId{1},
		MessageType: MTUpdate,
		Content:     newCoreId,
		Core:        self,
		Outbox:      updateOutbox,
		Store:       store,
	}
	_, err = router.Dispatch(ctx, updateArgs)
	require.NoError(t, err)

	msgId, ok := updateOutbox.Head(childId)
	require.True(t, ok)
	obj, err := store.Get(ctx, msgId)
	require.NoError(t, err)
	msg := obj.(grit.Message)
	require.Equal(t, newCoreId, msg.Content)
	require.Equal(t, MTUpdate, msg.Headers[grit.MessageType])
}
