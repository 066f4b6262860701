package mailbox

import (
	"context"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// Inbox projects "new" messages out of a mailbox pair (spec.md §4.3): for
// each peer where current differs from last_read, the new messages are
// everything from current's head back to (but not including) last_read's
// head, reversed into chronological order. ReadNew advances last_read as it
// consumes a peer's new messages; Persist writes the resulting mailbox.
type Inbox struct {
	store    gritstore.Store
	current  *View
	lastRead *Builder
}

// NewInbox builds an Inbox projection over current (what the router has
// delivered) and lastRead (what the previous step consumed).
func NewInbox(store gritstore.Store, current *View, lastRead *View) *Inbox {
	return &Inbox{store: store, current: current, lastRead: FromView(lastRead)}
}

// Peers returns every peer with a pending head in the current mailbox.
func (ib *Inbox) Peers() []grit.ActorId {
	return ib.current.Peers()
}

// HasNew reports whether peer has unread messages without consuming them.
func (ib *Inbox) HasNew(peer grit.ActorId) bool {
	cur, ok := ib.current.Head(peer)
	if !ok {
		return false
	}
	last, hasLast := ib.lastRead.Head(peer)
	return !hasLast || last != cur
}

// ReadNew returns, oldest-first, up to limit new messages from peer and
// advances last_read to the consumed head. limit <= 0 means unlimited.
func (ib *Inbox) ReadNew(ctx context.Context, peer grit.ActorId, limit int) ([]grit.Message, error) {
	curHead, ok := ib.current.Head(peer)
	if !ok {
		return nil, nil
	}

	lastHead, hasLast := ib.lastRead.Head(peer)
	if hasLast && lastHead == curHead {
		return nil, nil
	}

	var stopAt *grit.MessageId
	if hasLast {
		h := lastHead
		stopAt = &h
	}

	msgs, err := chainUntil(ctx, ib.store, curHead, stopAt)
	if err != nil {
		return nil, fmt.Errorf("mailbox: reading new messages from %s: %w", peer, err)
	}

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	ib.lastRead.Set(peer, curHead)
	return msgs, nil
}

// Peek returns peer's current head message, if any, without advancing
// last_read — used by collaborators like presence checks that need to
// inspect what a peer last sent without consuming it as a handled message.
func (ib *Inbox) Peek(ctx context.Context, peer grit.ActorId) (grit.Message, bool, error) {
	curHead, ok := ib.current.Head(peer)
	if !ok {
		return grit.Message{}, false, nil
	}

	obj, err := ib.store.Get(ctx, curHead)
	if err != nil {
		return grit.Message{}, false, fmt.Errorf("mailbox: peeking at %s: %w", peer, err)
	}
	msg, ok := obj.(grit.Message)
	if !ok {
		return grit.Message{}, false, fmt.Errorf("mailbox: %s is not a message", curHead)
	}
	return msg, true, nil
}

// Persist stores the advanced last_read mailbox.
func (ib *Inbox) Persist(ctx context.Context) (grit.MailboxId, error) {
	return ib.lastRead.Persist(ctx, ib.store)
}

// chainUntil walks Previous pointers from head back, stopping once stopAt
// (exclusive) is reached or the chain ends, returning messages oldest-first.
func chainUntil(
	ctx context.Context, store gritstore.Store, head grit.MessageId, stopAt *grit.MessageId,
) ([]grit.Message, error) {

	var reversed []grit.Message
	cur := head

	for {
		if stopAt != nil && cur == *stopAt {
			break
		}

		obj, err := store.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		msg, ok := obj.(grit.Message)
		if !ok {
			return nil, fmt.Errorf("%s is not a message", cur)
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
