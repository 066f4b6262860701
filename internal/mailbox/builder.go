package mailbox

import (
	"context"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// Builder accumulates per-peer message heads before persisting a new
// grit.Mailbox. Peer order is preserved on first insertion, matching the
// canonical encoding's insertion-order requirement (spec.md §3).
type Builder struct {
	peers []grit.ActorId
	heads map[grit.ActorId]grit.MessageId
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{heads: make(map[grit.ActorId]grit.MessageId)}
}

// FromView seeds a Builder with an existing mailbox's state.
func FromView(v *View) *Builder {
	b := NewBuilder()
	for _, peer := range v.peers {
		b.Set(peer, v.heads[peer])
	}
	return b
}

// Head returns the current head queued for peer.
func (b *Builder) Head(peer grit.ActorId) (grit.MessageId, bool) {
	id, ok := b.heads[peer]
	return id, ok
}

// Peers returns the peers with a pending head, in insertion order.
func (b *Builder) Peers() []grit.ActorId {
	out := make([]grit.ActorId, len(b.peers))
	copy(out, b.peers)
	return out
}

// IsEmpty reports whether the builder has no peers at all.
func (b *Builder) IsEmpty() bool {
	return len(b.peers) == 0
}

// Set records head as the latest message queued for peer.
func (b *Builder) Set(peer grit.ActorId, head grit.MessageId) {
	if _, exists := b.heads[peer]; !exists {
		b.peers = append(b.peers, peer)
	}
	b.heads[peer] = head
}

// Delete removes peer's entry entirely, e.g. once its queued message has
// been fully drained and acknowledged.
func (b *Builder) Delete(peer grit.ActorId) {
	if _, exists := b.heads[peer]; !exists {
		return
	}
	delete(b.heads, peer)

	for i, p := range b.peers {
		if p == peer {
			b.peers = append(b.peers[:i], b.peers[i+1:]...)
			break
		}
	}
}

// Build renders the accumulated state into a grit.Mailbox.
func (b *Builder) Build() grit.Mailbox {
	entries := make([]grit.MailboxEntry, 0, len(b.peers))
	for _, peer := range b.peers {
		entries = append(entries, grit.MailboxEntry{
			Peer:    peer,
			Message: b.heads[peer],
		})
	}
	return grit.Mailbox{Entries: entries}
}

// Persist stores the accumulated mailbox and returns its content id.
func (b *Builder) Persist(ctx context.Context, store gritstore.Store) (grit.MailboxId, error) {
	id, err := store.Put(ctx, b.Build())
	if err != nil {
		return grit.ObjectId{}, fmt.Errorf("mailbox: persisting: %w", err)
	}
	return id, nil
}
