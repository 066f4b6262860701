package rootexec

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// Bootstrap synthesizes the minimal genesis sequence for a brand-new agent
// (spec.md §4.7): point-blob -> core-tree -> genesis-message -> genesis-inbox
// -> genesis-step, then sets runtime/agent and heads/<root> directly. It is
// idempotent: if runtime/agent is already set, it returns the existing
// AgentId without writing anything.
//
// The genesis core is exactly grit.PointCore(point) — no wit node — since
// the root actor's behavior is a fixed Go handler, never resolved from its
// core (spec.md §4.7). This keeps the AgentId deterministically reproducible
// from point alone, per spec.md §3/§9.
func Bootstrap(ctx context.Context, store gritstore.Store, point grit.Point) (grit.AgentId, error) {
	if existing, err := store.GetRef(ctx, grit.RefRuntimeAgent); err == nil {
		return existing, nil
	} else if !errors.Is(err, gritstore.ErrNotFound) {
		return grit.AgentId{}, fmt.Errorf("rootexec: checking existing agent: %w", err)
	}

	tree, blob := grit.PointCore(point)
	if _, err := store.Put(ctx, blob); err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: persisting point blob: %w", err)
	}
	actorId, err := store.Put(ctx, tree)
	if err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: persisting genesis core: %w", err)
	}

	genesisMsg := grit.Message{
		Headers: map[string]string{grit.MessageType: grit.MTGenesis},
		Content: actorId,
	}
	msgId, err := store.Put(ctx, genesisMsg)
	if err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: persisting genesis message: %w", err)
	}

	genesisInbox := grit.Mailbox{Entries: []grit.MailboxEntry{{Peer: actorId, Message: msgId}}}
	inboxId, err := store.Put(ctx, genesisInbox)
	if err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: persisting genesis inbox: %w", err)
	}

	step := grit.Step{Actor: actorId, Inbox: &inboxId, Core: actorId}
	stepId, err := store.Put(ctx, step)
	if err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: persisting genesis step: %w", err)
	}

	if err := store.SetRef(ctx, grit.HeadRef(actorId), stepId); err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: setting heads/<root>: %w", err)
	}
	if err := store.SetRef(ctx, grit.RefRuntimeAgent, actorId); err != nil {
		return grit.AgentId{}, fmt.Errorf("rootexec: setting runtime/agent: %w", err)
	}

	return actorId, nil
}
