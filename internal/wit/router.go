package wit

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
)

// ErrUnknownMessageType is returned by a MessageRouter with no fallback when
// an incoming message's mt has no registered handler.
var ErrUnknownMessageType = errors.New("wit: unknown message type")

// ErrUnknownQuery is the query-router analogue of ErrUnknownMessageType.
var ErrUnknownQuery = errors.New("wit: unknown query")

// Message-type constants recognized by the executor itself (spec.md §4.6);
// a wit's internal router dispatches these the same way as any other mt.
const (
	MTGenesis = "genesis"
	MTUpdate  = "update"
)

// MessageArgs is the explicit injection struct a wit/wit_update handler
// receives — spec.md §9's design note renders "named-injection slots" as
// struct fields rather than reflection over parameter names. Collaborators
// not named here (discovery, external storage, ...) travel in Extra, keyed
// by the name the host registered them under. Presence is the one exception:
// NewMailboxPresence(args) builds it directly from Inbox/Outbox/Store, so a
// handler doesn't need the host to have registered it under Extra at all.
type MessageArgs struct {
	HeadStep    grit.StepId
	AgentId     grit.AgentId
	ActorId     grit.ActorId
	MessageType string
	Headers     map[string]string
	Content     grit.ObjectId
	Sender      grit.ActorId

	Core *core.Core
	// Inbox is the current/last_read projection (spec.md §4.3): handlers
	// call Inbox.ReadNew(peer, limit) rather than re-deriving "new"
	// messages themselves.
	Inbox *mailbox.Inbox
	// Outbox accumulates the handler's outgoing messages; the executor
	// persists it alongside the new core once the handler returns.
	Outbox *mailbox.Builder
	Store  gritstore.Store

	Extra map[string]any
}

// MessageHandlerFunc handles one message type. It mutates Args.Core/Outbox
// in place and returns the resulting core tree id (or a zero id if
// unchanged — the executor reuses the previous core in that case).
type MessageHandlerFunc func(ctx context.Context, args *MessageArgs) (grit.TreeId, error)

// MessageRouter maps mt values to registered handlers inside a wit,
// matching spec.md §4.11.
type MessageRouter struct {
	handlers map[string]MessageHandlerFunc
	fallback MessageHandlerFunc
}

// NewMessageRouter creates an empty MessageRouter.
func NewMessageRouter() *MessageRouter {
	return &MessageRouter{handlers: make(map[string]MessageHandlerFunc)}
}

// On registers h for mt, returning the router for chaining.
func (r *MessageRouter) On(mt string, h MessageHandlerFunc) *MessageRouter {
	r.handlers[mt] = h
	return r
}

// OnGenesis registers the handler run for the synthetic "genesis" mt.
func (r *MessageRouter) OnGenesis(h MessageHandlerFunc) *MessageRouter {
	return r.On(MTGenesis, h)
}

// OnUpdate registers the handler run for the "update" mt.
func (r *MessageRouter) OnUpdate(h MessageHandlerFunc) *MessageRouter {
	return r.On(MTUpdate, h)
}

// Fallback registers a handler used for any mt without a specific
// registration; without one, an unmatched mt is an error.
func (r *MessageRouter) Fallback(h MessageHandlerFunc) *MessageRouter {
	r.fallback = h
	return r
}

// Dispatch runs the handler registered for args.MessageType.
func (r *MessageRouter) Dispatch(ctx context.Context, args *MessageArgs) (grit.TreeId, error) {
	h, ok := r.handlers[args.MessageType]
	if !ok {
		if r.fallback != nil {
			return r.fallback(ctx, args)
		}
		return grit.ObjectId{}, fmt.Errorf(
			"%w: %q", ErrUnknownMessageType, args.MessageType,
		)
	}
	return h(ctx, args)
}

// AsHandler adapts the router to resolver.Handler so it can be returned from
// a codeloader Factory as a wit/wit_update attribute.
func (r *MessageRouter) AsHandler() resolver.Handler {
	return func(ctx context.Context, args any) (any, error) {
		ma, ok := args.(*MessageArgs)
		if !ok {
			return nil, fmt.Errorf("wit: expected *MessageArgs, got %T", args)
		}
		return r.Dispatch(ctx, ma)
	}
}

// QueryArgs is the explicit injection struct a wit_query handler receives.
type QueryArgs struct {
	HeadStep  grit.StepId
	ActorId   grit.ActorId
	QueryName string
	Context   *core.BlobObject

	Core  *core.Core
	Store gritstore.Store

	Extra map[string]any
}

// QueryHandlerFunc handles one query name, returning a Tree, a Blob, or any
// other value the caller will convert to a blob.
type QueryHandlerFunc func(ctx context.Context, args *QueryArgs) (any, error)

// QueryRouter is the wit_query analogue of MessageRouter.
type QueryRouter struct {
	handlers map[string]QueryHandlerFunc
	fallback QueryHandlerFunc
}

// NewQueryRouter creates an empty QueryRouter.
func NewQueryRouter() *QueryRouter {
	return &QueryRouter{handlers: make(map[string]QueryHandlerFunc)}
}

func (r *QueryRouter) On(name string, h QueryHandlerFunc) *QueryRouter {
	r.handlers[name] = h
	return r
}

func (r *QueryRouter) Fallback(h QueryHandlerFunc) *QueryRouter {
	r.fallback = h
	return r
}

func (r *QueryRouter) Dispatch(ctx context.Context, args *QueryArgs) (any, error) {
	h, ok := r.handlers[args.QueryName]
	if !ok {
		if r.fallback != nil {
			return r.fallback(ctx, args)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuery, args.QueryName)
	}
	return h(ctx, args)
}

func (r *QueryRouter) AsHandler() resolver.Handler {
	return func(ctx context.Context, args any) (any, error) {
		qa, ok := args.(*QueryArgs)
		if !ok {
			return nil, fmt.Errorf("wit: expected *QueryArgs, got %T", args)
		}
		return r.Dispatch(ctx, qa)
	}
}
