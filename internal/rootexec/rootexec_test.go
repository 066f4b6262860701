package rootexec

import (
	"context"
	"testing"
	"time"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/executor"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/stretchr/testify/require"
)

func awaitTrue(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	actorId, err := Bootstrap(ctx, store, grit.Point(7))
	require.NoError(t, err)
	require.False(t, actorId.IsZero())

	again, err := Bootstrap(ctx, store, grit.Point(99))
	require.NoError(t, err)
	require.Equal(t, actorId, again)

	agentRef, err := store.GetRef(ctx, grit.RefRuntimeAgent)
	require.NoError(t, err)
	require.Equal(t, actorId, agentRef)

	headRef, err := store.GetRef(ctx, grit.HeadRef(actorId))
	require.NoError(t, err)
	require.False(t, headRef.IsZero())
}

func TestBootstrapMatchesAgentIdFromPoint(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	actorId, err := Bootstrap(ctx, store, grit.Point(42))
	require.NoError(t, err)
	require.Equal(t, grit.AgentIdFromPoint(grit.Point(42)), actorId)
}

func TestRootExecutorInjectDeliversToPeer(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	actorId, err := Bootstrap(ctx, store, grit.Point(1))
	require.NoError(t, err)

	re := New(Config{AgentId: actorId, Store: store}, actorId)

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- re.Executor().Run(runCtx) }()

	peer := grit.ActorId{5}
	content, err := store.Put(ctx, grit.Blob{Data: []byte("hi")})
	require.NoError(t, err)
	re.Inject(peer, map[string]string{"mt": "note"}, content)

	awaitTrue(t, func() bool {
		heads, err := store.GetRefs(ctx, grit.RefHeadsPrefix)
		if err != nil {
			return false
		}
		stepId, ok := heads[grit.HeadRef(actorId)]
		if !ok {
			return false
		}
		obj, err := store.Get(ctx, stepId)
		if err != nil {
			return false
		}
		step, ok := obj.(grit.Step)
		if !ok || step.Outbox == nil {
			return false
		}
		obObj, err := store.Get(ctx, *step.Outbox)
		if err != nil {
			return false
		}
		outbox, ok := obObj.(grit.Mailbox)
		if !ok {
			return false
		}
		_, has := outbox.Get(peer)
		return has
	}, "injected message never appeared in root outbox")

	re.Executor().Stop()
	err = <-done
	require.ErrorIs(t, err, executor.ErrStopped)
}

func TestRootExecutorSubscribeReceivesInboundMessages(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	actorId, err := Bootstrap(ctx, store, grit.Point(2))
	require.NoError(t, err)

	re := New(Config{AgentId: actorId, Store: store}, actorId)

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	events := re.Subscribe(subCtx)

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- re.Executor().Run(runCtx) }()

	sender := grit.ActorId{6}
	content, err := store.Put(ctx, grit.Blob{Data: []byte("hello root")})
	require.NoError(t, err)
	msg := grit.Message{Content: content}
	msgId, err := store.Put(ctx, msg)
	require.NoError(t, err)

	re.Executor().Deliver(ctx, sender, msgId)

	select {
	case ev := <-events:
		require.Equal(t, sender, ev.Sender)
		require.Equal(t, content, ev.Message.Content)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the inbound event")
	}

	re.Executor().Stop()
	err = <-done
	require.ErrorIs(t, err, executor.ErrStopped)
}
