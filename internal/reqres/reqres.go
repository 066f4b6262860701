// Package reqres implements spec.md §4.10: a request-response correlation
// protocol layered on top of the root executor's mailbox traffic. A request
// sends a message and waits for a reply that references it, either via a
// direct `previous` link or a `reply_to` header, within a timeout.
package reqres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/baselib/actor"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
)

// ErrTimeout is returned when no matching reply arrives within the request's
// timeout. It is a distinct failure from an unmatched-but-present reply,
// which is simply ignored (spec.md §4.10).
var ErrTimeout = errors.New("reqres: timed out waiting for a reply")

// ErrSubscriptionClosed is returned if the root executor's event stream ends
// before a matching reply arrives (e.g. the runtime shutting down).
var ErrSubscriptionClosed = errors.New("reqres: root executor's event stream closed")

// Config configures a Client.
type Config struct {
	Root *rootexec.RootExecutor
}

// Client issues correlated request/response exchanges against an agent's
// root executor.
type Client struct {
	cfg Config
}

// New creates a Client bound to a running RootExecutor.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// Request sends a message to peer via the root executor's outbox and blocks
// until a reply matching responseTypes arrives or timeout elapses. A reply
// matches when its Previous equals the outgoing message's id or its
// grit.HeaderReplyTo header equals the outgoing message's id, and its mt
// header is one of responseTypes. Unrelated messages observed in the
// meantime are ignored — they remain visible to every other subscriber of
// the root executor's stream, since each Subscribe call gets its own copy.
func (c *Client) Request(
	ctx context.Context,
	peer grit.ActorId,
	headers map[string]string,
	content grit.ObjectId,
	responseTypes []string,
	timeout time.Duration,
) (grit.Message, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events := c.cfg.Root.Subscribe(reqCtx)
	sentCh := c.cfg.Root.InjectRequest(peer, headers, content)

	wanted := make(map[string]struct{}, len(responseTypes))
	for _, t := range responseTypes {
		wanted[t] = struct{}{}
	}

	promise := actor.NewPromise[grit.Message]()
	go c.await(reqCtx, peer, sentCh, events, wanted, promise)

	result := promise.Future().Await(ctx)
	return result.Unpack()
}

func (c *Client) await(
	ctx context.Context,
	peer grit.ActorId,
	sentCh <-chan grit.MessageId,
	events <-chan rootexec.InboundEvent,
	wanted map[string]struct{},
	promise actor.Promise[grit.Message],
) {
	var outgoingId grit.MessageId
	select {
	case outgoingId = <-sentCh:
	case <-ctx.Done():
		promise.Complete(fn.Err[grit.Message](fmt.Errorf("%w: request to %s never sent", ErrTimeout, peer)))
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				promise.Complete(fn.Err[grit.Message](ErrSubscriptionClosed))
				return
			}
			if ev.Sender != peer || !matchesReply(ev.Message, outgoingId, wanted) {
				continue
			}
			promise.Complete(fn.Ok(ev.Message))
			return

		case <-ctx.Done():
			promise.Complete(fn.Err[grit.Message](fmt.Errorf("%w: peer %s", ErrTimeout, peer)))
			return
		}
	}
}

// matchesReply implements spec.md §4.10's reply predicate.
func matchesReply(msg grit.Message, outgoingId grit.MessageId, wanted map[string]struct{}) bool {
	byPrevious := msg.Previous != nil && *msg.Previous == outgoingId
	byReplyTo := msg.Headers[grit.HeaderReplyTo] == outgoingId.String()
	if !byPrevious && !byReplyTo {
		return false
	}

	mt, ok := msg.Headers[grit.MessageType]
	if !ok {
		return false
	}
	_, isWanted := wanted[mt]
	return isWanted
}
