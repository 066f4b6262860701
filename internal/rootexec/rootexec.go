// Package rootexec implements the root executor (spec.md §4.7): the
// specialization of the actor executor that represents the agent itself. It
// exposes an externally-mutable outbox so a host can inject messages from
// outside the scheduler, forwards copies of incoming traffic to external
// subscribers, and owns the agent's bootstrap sequence.
package rootexec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/executor"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/wit"
)

// subscriberBuffer bounds how many undelivered events a slow subscriber can
// accumulate before new ones are dropped for it (teacher's
// internal/mail.NotificationHub non-blocking-send shape).
const subscriberBuffer = 64

// OutboxMessage is one message a host wants the root actor to send, queued
// via Inject ahead of the next step.
type OutboxMessage struct {
	Peer    grit.ActorId
	Headers map[string]string
	Content grit.ObjectId

	// IsSignal sends this message with no Previous link (spec.md §3's
	// "Signal"), rather than threading it through the peer's existing
	// outbox chain.
	IsSignal bool

	// sent, if non-nil, receives the persisted message's id once
	// builtinHandler actually sends it — internal/reqres's correlation key
	// (spec.md §4.10).
	sent chan<- grit.MessageId
}

// InboundEvent is a copy of a message the root actor received, fanned out to
// every subscriber registered via Subscribe.
type InboundEvent struct {
	Sender  grit.ActorId
	Message grit.Message
}

type subscriber struct {
	id int64
	ch chan InboundEvent
}

// Config configures a RootExecutor.
type Config struct {
	AgentId grit.AgentId
	Store   gritstore.Store

	OnOutboxDelta executor.DeltaCallback

	// Collaborators is forwarded to the built-in handler's MessageArgs.Extra,
	// matching the ordinary executor's convention.
	Collaborators map[string]any

	// Concurrency and BlockingPool are forwarded to the underlying
	// Executor's Config (spec.md §5); see internal/executor.Config.
	Concurrency  *semaphore.Weighted
	BlockingPool *executor.BlockingPool
}

// RootExecutor drives the agent's root actor. Unlike an ordinary Executor,
// its per-step behavior is a fixed Go function, not resolved from the
// actor's core (spec.md §4.7).
type RootExecutor struct {
	cfg Config
	exec *executor.Executor

	injectMu    sync.Mutex
	injectQueue []OutboxMessage

	subMu     sync.Mutex
	subs      []subscriber
	nextSubId atomic.Int64
}

// New wires a RootExecutor for an already-bootstrapped agent (actorId is the
// root actor's id, i.e. its AgentId). Call Bootstrap first if the agent has
// no history yet.
func New(cfg Config, actorId grit.ActorId) *RootExecutor {
	re := &RootExecutor{cfg: cfg}

	re.exec = executor.New(executor.Config{
		ActorId:       actorId,
		AgentId:       cfg.AgentId,
		Store:         cfg.Store,
		FixedHandler:  re.builtinHandler,
		OnOutboxDelta: cfg.OnOutboxDelta,
		Collaborators: cfg.Collaborators,
		MustRun:       re.hasPendingInject,
		Concurrency:   cfg.Concurrency,
		BlockingPool:  cfg.BlockingPool,
	})
	return re
}

// Executor exposes the underlying Executor, e.g. for the runtime to call Run
// and Stop on it alongside every other actor's executor.
func (re *RootExecutor) Executor() *executor.Executor {
	return re.exec
}

// Inject queues an outbound message from the host, to be merged into the
// root actor's outbox on its next step, and nudges the loop to run even
// though no inbound message arrived.
func (re *RootExecutor) Inject(peer grit.ActorId, headers map[string]string, content grit.ObjectId) {
	re.injectMu.Lock()
	re.injectQueue = append(re.injectQueue, OutboxMessage{Peer: peer, Headers: headers, Content: content})
	re.injectMu.Unlock()

	re.exec.Wake()
}

// InjectSignal behaves like Inject but sends content as a signal (spec.md
// §3): the persisted message's Previous is always nil, so rapid repeated
// signals to the same peer carry no ordering relationship and may be
// coalesced by the runtime rather than chained.
func (re *RootExecutor) InjectSignal(peer grit.ActorId, headers map[string]string, content grit.ObjectId) {
	re.injectMu.Lock()
	re.injectQueue = append(re.injectQueue, OutboxMessage{Peer: peer, Headers: headers, Content: content, IsSignal: true})
	re.injectMu.Unlock()

	re.exec.Wake()
}

// InjectRequest behaves like Inject but also reports the persisted message
// id of the sent message back on the returned channel once the next step
// processes it. internal/reqres uses this id as the correlation key a reply
// must reference via `previous` or the reply_to header (spec.md §4.10).
func (re *RootExecutor) InjectRequest(
	peer grit.ActorId, headers map[string]string, content grit.ObjectId,
) <-chan grit.MessageId {
	ch := make(chan grit.MessageId, 1)

	re.injectMu.Lock()
	re.injectQueue = append(re.injectQueue, OutboxMessage{
		Peer: peer, Headers: headers, Content: content, sent: ch,
	})
	re.injectMu.Unlock()

	re.exec.Wake()
	return ch
}

func (re *RootExecutor) hasPendingInject() bool {
	re.injectMu.Lock()
	defer re.injectMu.Unlock()
	return len(re.injectQueue) > 0
}

func (re *RootExecutor) drainInject() []OutboxMessage {
	re.injectMu.Lock()
	defer re.injectMu.Unlock()
	if len(re.injectQueue) == 0 {
		return nil
	}
	out := re.injectQueue
	re.injectQueue = nil
	return out
}

// Subscribe registers a new listener for copies of every message the root
// actor receives. The returned channel is closed and its subscription
// removed when ctx is cancelled.
func (re *RootExecutor) Subscribe(ctx context.Context) <-chan InboundEvent {
	id := re.nextSubId.Add(1)
	ch := make(chan InboundEvent, subscriberBuffer)

	re.subMu.Lock()
	re.subs = append(re.subs, subscriber{id: id, ch: ch})
	re.subMu.Unlock()

	go func() {
		<-ctx.Done()
		re.unsubscribe(id)
	}()

	return ch
}

func (re *RootExecutor) unsubscribe(id int64) {
	re.subMu.Lock()
	defer re.subMu.Unlock()
	for i, s := range re.subs {
		if s.id == id {
			close(s.ch)
			re.subs = append(re.subs[:i], re.subs[i+1:]...)
			return
		}
	}
}

// publish fans out ev to every subscriber. A slow subscriber whose buffer is
// full is skipped rather than allowed to block the root actor's step.
func (re *RootExecutor) publish(ev InboundEvent) {
	re.subMu.Lock()
	defer re.subMu.Unlock()
	for _, s := range re.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// builtinHandler is the root actor's fixed per-step behavior (spec.md §4.7):
// merge injected outbox entries with the message router's own outgoing
// traffic, and forward copies of incoming messages to subscribers. It never
// touches args.Core, so the root actor's core id never changes after
// bootstrap.
func (re *RootExecutor) builtinHandler(ctx context.Context, a any) (any, error) {
	args, ok := a.(*wit.MessageArgs)
	if !ok {
		return nil, fmt.Errorf("rootexec: expected *wit.MessageArgs, got %T", a)
	}

	for _, peer := range args.Inbox.Peers() {
		msgs, err := args.Inbox.ReadNew(ctx, peer, 0)
		if err != nil {
			return nil, fmt.Errorf("rootexec: reading new messages from %s: %w", peer, err)
		}
		for _, msg := range msgs {
			re.publish(InboundEvent{Sender: peer, Message: msg})
		}
	}

	for _, om := range re.drainInject() {
		send := mailbox.Send
		if om.IsSignal {
			send = mailbox.SendSignal
		}
		id, err := send(ctx, args.Store, args.Outbox, om.Peer, om.Headers, om.Content)
		if err != nil {
			return nil, fmt.Errorf("rootexec: sending injected message to %s: %w", om.Peer, err)
		}
		if om.sent != nil {
			om.sent <- id
			close(om.sent)
		}
	}

	return args.Core.Persist(ctx, args.Store)
}
