package wit

import (
	"context"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
)

// MTPresence marks a "this actor is alive" signal (spec.md §10, grounded on
// the original implementation's aos/wit/presence.py): a liveness channel a
// handler can publish to and query independent of the runtime's own
// outbox-delta bookkeeping.
const MTPresence = "presence"

// Presence lets a handler publish or query "is this actor alive" signals
// over the mailbox model, travelling as an ordinary signal message with
// mt == MTPresence rather than as runtime-internal state.
type Presence interface {
	// Check reports whether peer's current inbox head is a live presence
	// signal. It never consumes the message: repeated checks and the
	// handler's own ordinary Inbox.ReadNew traffic don't interfere.
	Check(ctx context.Context, peer grit.ActorId) (bool, error)

	// Publish sends content to peer as a presence signal.
	Publish(ctx context.Context, peer grit.ActorId, content grit.ObjectId) error
}

// MailboxPresence is the mailbox-backed Presence a handler reaches via
// MessageArgs.Extra (spec.md §9's "collaborators not named here... travel
// in Extra"). It publishes via SendSignal so rapid republishing coalesces
// the same way any other signal does (spec.md §3), and checks via Inbox.Peek
// so a liveness query never steals a message the handler's own router still
// needs to read.
type MailboxPresence struct {
	args *MessageArgs
}

// NewMailboxPresence wraps args for use as the current step's Presence
// collaborator.
func NewMailboxPresence(args *MessageArgs) *MailboxPresence {
	return &MailboxPresence{args: args}
}

func (p *MailboxPresence) Check(ctx context.Context, peer grit.ActorId) (bool, error) {
	msg, ok, err := p.args.Inbox.Peek(ctx, peer)
	if err != nil || !ok {
		return false, err
	}
	return msg.IsSignal() && msg.Headers[grit.MessageType] == MTPresence, nil
}

func (p *MailboxPresence) Publish(ctx context.Context, peer grit.ActorId, content grit.ObjectId) error {
	headers := map[string]string{grit.MessageType: MTPresence}
	_, err := mailbox.SendSignal(ctx, p.args.Store, p.args.Outbox, peer, headers, content)
	return err
}
