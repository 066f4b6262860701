package mailbox

import (
	"context"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// Send appends a new outbound message to peer's chain in b, threading
// Previous through the existing head, and returns the persisted message id.
// Used to grow both a sender's Outbox and a receiver's Inbox: the mailbox
// structure is symmetric, only the role differs.
func Send(
	ctx context.Context, store gritstore.Store, b *Builder,
	peer grit.ActorId, headers map[string]string, content grit.ObjectId,
) (grit.MessageId, error) {

	msg := grit.Message{Headers: headers, Content: content}
	if prev, ok := b.Head(peer); ok {
		p := prev
		msg.Previous = &p
	}

	id, err := store.Put(ctx, msg)
	if err != nil {
		return grit.ObjectId{}, fmt.Errorf("mailbox: sending to %s: %w", peer, err)
	}
	b.Set(peer, id)
	return id, nil
}

// SendSignal appends a new outbound "signal" message to peer's chain in b
// (spec.md §3: "a message whose previous is null"). Unlike Send, it never
// threads Previous through the existing head, so rapid repeated signals to
// the same peer bear no ordering relationship to one another and may be
// coalesced rather than individually delivered.
func SendSignal(
	ctx context.Context, store gritstore.Store, b *Builder,
	peer grit.ActorId, headers map[string]string, content grit.ObjectId,
) (grit.MessageId, error) {

	msg := grit.Message{Headers: headers, Content: content}

	id, err := store.Put(ctx, msg)
	if err != nil {
		return grit.ObjectId{}, fmt.Errorf("mailbox: sending signal to %s: %w", peer, err)
	}
	b.Set(peer, id)
	return id, nil
}

// Reply sends content to peer as an explicit answer to inReplyTo, setting
// the outgoing message's Previous to inReplyTo directly instead of
// threading it through peer's existing outbox chain — "a reply copies the
// inbound message's id into its outgoing previous" (spec.md §4.3), the
// correlation mechanism internal/reqres's request/response wait matches on
// (spec.md §4.10).
func Reply(
	ctx context.Context, store gritstore.Store, b *Builder,
	peer grit.ActorId, headers map[string]string, content grit.ObjectId, inReplyTo grit.MessageId,
) (grit.MessageId, error) {

	prev := inReplyTo
	msg := grit.Message{Previous: &prev, Headers: headers, Content: content}

	id, err := store.Put(ctx, msg)
	if err != nil {
		return grit.ObjectId{}, fmt.Errorf("mailbox: replying to %s: %w", peer, err)
	}
	b.Set(peer, id)
	return id, nil
}

// Deliver records an inbound message from peer into b. Redelivering a
// message that already sits at peer's head is a no-op, giving the inbox
// at-most-once semantics under retried delivery.
func Deliver(b *Builder, peer grit.ActorId, msg grit.MessageId) (delivered bool) {
	if head, ok := b.Head(peer); ok && head == msg {
		return false
	}
	b.Set(peer, msg)
	return true
}

// Drain returns, oldest-first, every message queued for peer and clears the
// peer's entry — the executor's standard "consume inbox" operation.
func Drain(
	ctx context.Context, store gritstore.Store, b *Builder, peer grit.ActorId,
) ([]grit.Message, error) {

	head, ok := b.Head(peer)
	if !ok {
		return nil, nil
	}

	msgs, err := Chain(ctx, store, head)
	if err != nil {
		return nil, err
	}

	b.Delete(peer)
	return msgs, nil
}
