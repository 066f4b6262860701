package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// recover implements spec.md §4.8 step 2: scan every (inbox, outbox) pair
// and seed a pending delivery for any recipient whose inbox is missing the
// sender's current outbox pointer — messages produced before a crash but
// never delivered. Runs once at startup, before any executor is started, so
// seeded deliveries just land in a not-yet-running executor's pending
// builder and are picked up on its first iteration.
func (rt *Runtime) recover(ctx context.Context) error {
	rt.mu.Lock()
	senders := make([]grit.ActorId, 0, len(rt.actors))
	for actorId := range rt.actors {
		senders = append(senders, actorId)
	}
	rt.mu.Unlock()

	for _, sender := range senders {
		step, ok, err := rt.loadHeadStep(ctx, sender)
		if err != nil {
			return err
		}
		if !ok || step.Outbox == nil {
			continue
		}

		outbox, err := rt.loadMailbox(ctx, *step.Outbox)
		if err != nil {
			return err
		}

		for _, entry := range outbox.Entries {
			recipient, msg := entry.Peer, entry.Message

			recvStep, hasRecv, err := rt.loadHeadStep(ctx, recipient)
			if err != nil {
				return err
			}

			needsDelivery := true
			if hasRecv && recvStep.Inbox != nil {
				inbox, err := rt.loadMailbox(ctx, *recvStep.Inbox)
				if err != nil {
					return err
				}
				if cur, has := inbox.Get(sender); has && cur == msg {
					needsDelivery = false
				}
			}
			if !needsDelivery {
				continue
			}

			ex := rt.spawnExecutor(recipient)
			ex.Deliver(ctx, sender, msg)
		}
	}
	return nil
}

func (rt *Runtime) loadHeadStep(ctx context.Context, actorId grit.ActorId) (grit.Step, bool, error) {
	stepId, err := rt.cfg.Store.GetRef(ctx, grit.HeadRef(actorId))
	if errors.Is(err, gritstore.ErrNotFound) {
		return grit.Step{}, false, nil
	}
	if err != nil {
		return grit.Step{}, false, fmt.Errorf("runtime: loading head for %s: %w", actorId, err)
	}

	obj, err := rt.cfg.Store.Get(ctx, stepId)
	if err != nil {
		return grit.Step{}, false, fmt.Errorf("runtime: loading step %s: %w", stepId, err)
	}
	step, ok := obj.(grit.Step)
	if !ok {
		return grit.Step{}, false, fmt.Errorf("runtime: %s is not a step", stepId)
	}
	return step, true, nil
}

func (rt *Runtime) loadMailbox(ctx context.Context, id grit.MailboxId) (grit.Mailbox, error) {
	obj, err := rt.cfg.Store.Get(ctx, id)
	if err != nil {
		return grit.Mailbox{}, fmt.Errorf("runtime: loading mailbox %s: %w", id, err)
	}
	m, ok := obj.(grit.Mailbox)
	if !ok {
		return grit.Mailbox{}, fmt.Errorf("runtime: %s is not a mailbox", id)
	}
	return m, nil
}
