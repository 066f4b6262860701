// Package mailbox implements the Inbox/Outbox projections over a grit
// Mailbox object (spec.md §4.3): one message head per peer actor, with
// at-most-once delivery and FIFO ordering within a peer's chain.
package mailbox

import (
	"context"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// View is a read-only projection over a persisted grit.Mailbox.
type View struct {
	peers []grit.ActorId
	heads map[grit.ActorId]grit.MessageId
}

// Load wraps a decoded grit.Mailbox for reading.
func Load(m grit.Mailbox) *View {
	heads := make(map[grit.ActorId]grit.MessageId, len(m.Entries))
	peers := make([]grit.ActorId, 0, len(m.Entries))

	for _, e := range m.Entries {
		heads[e.Peer] = e.Message
		peers = append(peers, e.Peer)
	}
	return &View{peers: peers, heads: heads}
}

// Peers returns the peer actors with a pending head, in mailbox order.
func (v *View) Peers() []grit.ActorId {
	out := make([]grit.ActorId, len(v.peers))
	copy(out, v.peers)
	return out
}

// Head returns the latest message id queued for peer.
func (v *View) Head(peer grit.ActorId) (grit.MessageId, bool) {
	id, ok := v.heads[peer]
	return id, ok
}

// IsEmpty reports whether the mailbox has no peers at all.
func (v *View) IsEmpty() bool {
	return len(v.peers) == 0
}

// Chain walks a message's history oldest-first, following Previous pointers
// back from head.
func Chain(
	ctx context.Context, store gritstore.Store, head grit.MessageId,
) ([]grit.Message, error) {

	var reversed []grit.Message
	cur := head

	for {
		obj, err := store.Get(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("mailbox: walking chain at %s: %w", cur, err)
		}
		msg, ok := obj.(grit.Message)
		if !ok {
			return nil, fmt.Errorf("mailbox: %s is not a message", cur)
		}

		reversed = append(reversed, msg)
		if msg.Previous == nil {
			break
		}
		cur = *msg.Previous
	}

	out := make([]grit.Message, len(reversed))
	for i, msg := range reversed {
		out[len(reversed)-1-i] = msg
	}
	return out, nil
}
