package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/wit"
)

// genesisPollInterval bounds how often the executor retries looking up an
// actor's HEAD before it exists, e.g. while a concurrent birth is still
// writing it (spec.md §4.6 step 3: "release the lock, sleep briefly, retry").
const genesisPollInterval = 20 * time.Millisecond

// DeltaCallback hands a produced outbox entry to the runtime once a step
// commits (spec.md §4.6 step 8).
type DeltaCallback func(ctx context.Context, from, to grit.ActorId, msg grit.MessageId) error

// Config configures one actor's Executor.
type Config struct {
	ActorId  grit.ActorId
	AgentId  grit.AgentId
	Store    gritstore.Store
	Resolver *resolver.Resolver

	// FixedHandler, when set, runs every iteration in place of resolving
	// wit/wit_update from the core (spec.md §4.7: the root executor "runs a
	// built-in handler, not resolved from core"). Resolver may be left nil
	// when FixedHandler is set.
	FixedHandler resolver.Handler

	OnOutboxDelta DeltaCallback

	// Collaborators is passed through to every handler invocation as
	// MessageArgs.Extra / QueryArgs.Extra (discovery, presence, external
	// storage, request-response, ...).
	Collaborators map[string]any

	// MustRun lets a specialized executor (the root executor) force an
	// iteration even when the inbox has not changed, e.g. to flush
	// externally injected outbox entries.
	MustRun func() bool

	// Concurrency, if set, bounds how many cooperative handler invocations
	// may run at once across every executor sharing it (spec.md §5).
	// Ignored when BlockingPool is set, since the pool's fixed size is
	// itself the concurrency bound for blocking handlers.
	Concurrency *semaphore.Weighted

	// BlockingPool, if set, runs this executor's handler on a bounded
	// worker pool instead of directly on the calling goroutine (spec.md
	// §5: "blocking handlers execute on a worker pool"). Shared across
	// every executor in a runtime.
	BlockingPool *BlockingPool
}

// Executor drives one actor's step loop (spec.md §4.6).
type Executor struct {
	cfg Config

	mu                 sync.Mutex
	pending            *mailbox.Builder
	lastStepId         *grit.StepId
	lastCore           grit.TreeId
	lastInboxSnapshot  grit.Mailbox
	lastOutboxSnapshot grit.Mailbox

	state    atomic.Int32
	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an Executor. It does not start running until Run is called.
func New(cfg Config) *Executor {
	return &Executor{
		cfg:     cfg,
		pending: mailbox.NewBuilder(),
		wakeCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// State returns the executor's current lifecycle state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// ActorId returns the actor this executor drives.
func (e *Executor) ActorId() grit.ActorId {
	return e.cfg.ActorId
}

// LastStepId returns the last step id the executor committed, or the zero
// id if it has not yet produced one.
func (e *Executor) LastStepId() grit.StepId {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastStepId == nil {
		return grit.StepId{}
	}
	return *e.lastStepId
}

// Deliver injects an inbound message from sender and wakes the executor.
// Redelivery of an already-queued message is a no-op (at-most-once).
func (e *Executor) Deliver(_ context.Context, sender grit.ActorId, msg grit.MessageId) {
	e.mu.Lock()
	delivered := mailbox.Deliver(e.pending, sender, msg)
	e.mu.Unlock()

	if delivered {
		e.wake()
	}
}

func (e *Executor) wake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

// Wake nudges the loop to re-evaluate its MustRun predicate even though no
// inbound message arrived — the root executor uses this after an external
// inject (spec.md §4.6 step 2, "root executor uses this for outbox-driven
// steps").
func (e *Executor) Wake() {
	e.wake()
}

// Stop requests the executor's loop to unwind at its next suspension point.
func (e *Executor) Stop() {
	e.state.Store(int32(Stopping))
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Run drives the executor loop until Stop is called, ctx is cancelled, or a
// handler returns an error (spec.md §4.6's failure policy: a handler error
// is fatal to the executor, not auto-retried).
func (e *Executor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return ErrStopped
		default:
		}

		e.state.Store(int32(Idle))
		ran, err := e.step(ctx)
		if err != nil {
			e.state.Store(int32(Stopping))
			return err
		}
		if ran {
			continue
		}

		select {
		case <-e.wakeCh:
		case <-e.stopCh:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// step runs zero or one iteration, looping internally while it only needs
// to adopt an existing HEAD or wait for a genesis message to appear.
func (e *Executor) step(ctx context.Context) (bool, error) {
	for {
		e.mu.Lock()
		snapshot := e.pending.Build()
		hasStep := e.lastStepId != nil
		e.mu.Unlock()

		if !hasStep {
			// Restart case: this Executor is freshly constructed but the
			// actor already has history on disk (spec.md §4.8 step 1,
			// "instantiate an executor per actor using the from_last_step
			// constructor"). Adopt it rather than re-running genesis.
			adopted, err := e.tryAdoptExistingHead(ctx)
			if err != nil {
				return false, err
			}
			if adopted {
				continue
			}

			// True genesis case (spec.md §4.6 step 3): find the unique
			// message in the current inbox whose content is this actor's
			// own id and whose previous is null.
			peer, genesisMsg, err := findGenesisMessage(ctx, e.cfg.Store, snapshot, e.cfg.ActorId)
			if err != nil {
				return false, err
			}
			if genesisMsg != nil {
				e.state.Store(int32(Pending))
				return e.runGenesis(ctx, snapshot, peer, *genesisMsg)
			}

			select {
			case <-time.After(genesisPollInterval):
				continue
			case <-e.stopCh:
				return false, nil
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}

		e.mu.Lock()
		unchanged := mailboxEqual(snapshot, e.lastInboxSnapshot)
		e.mu.Unlock()

		mustRun := e.cfg.MustRun != nil && e.cfg.MustRun()
		if unchanged && !mustRun {
			return false, nil
		}

		e.state.Store(int32(Pending))
		return e.runIteration(ctx, snapshot)
	}
}

// findGenesisMessage scans snapshot for the message content==actorId,
// previous==nil (spec.md §4.6 step 3). There is at most one such message in
// the system for a given actorId, since ActorId is the content hash of the
// genesis core and a core is only ever birthed once.
func findGenesisMessage(
	ctx context.Context, store gritstore.Store, snapshot grit.Mailbox, actorId grit.ActorId,
) (grit.ActorId, *grit.Message, error) {

	for _, entry := range snapshot.Entries {
		msgs, err := mailbox.Chain(ctx, store, entry.Message)
		if err != nil {
			return grit.ActorId{}, nil, err
		}
		for _, msg := range msgs {
			if msg.Previous == nil && msg.Content == actorId {
				m := msg
				return entry.Peer, &m, nil
			}
		}
	}
	return grit.ActorId{}, nil, nil
}

// runGenesis executes the actor's first step: its own genesis core is
// loaded directly from the store by content address (ActorId == the
// genesis core's TreeId), and the wit is dispatched with MessageType
// "genesis" against an inbox view restricted to just the genesis message.
func (e *Executor) runGenesis(
	ctx context.Context, snapshot grit.Mailbox, peer grit.ActorId, genesisMsg grit.Message,
) (bool, error) {

	coreObj, err := e.cfg.Store.Get(ctx, e.cfg.ActorId)
	if err != nil {
		return false, fmt.Errorf("executor: loading genesis core for %s: %w", e.cfg.ActorId, err)
	}
	tree, ok := coreObj.(grit.Tree)
	if !ok {
		return false, fmt.Errorf("executor: genesis core %s is not a tree", e.cfg.ActorId)
	}
	activeCore := core.NewCoreFromObject(e.cfg.Store, e.cfg.ActorId, tree)

	handler := e.cfg.FixedHandler
	if handler == nil {
		handler, err = e.cfg.Resolver.Resolve(ctx, activeCore, core.NodeWit)
		if err != nil {
			return false, err
		}
	}

	msgId, err := mustHashChecked(ctx, e.cfg.Store, genesisMsg)
	if err != nil {
		return false, err
	}
	restrictedCurrent := grit.Mailbox{Entries: []grit.MailboxEntry{{Peer: peer, Message: msgId}}}
	inboxView := mailbox.NewInbox(e.cfg.Store, mailbox.Load(restrictedCurrent), mailbox.Load(grit.Mailbox{}))

	outboxBuilder := mailbox.NewBuilder()

	e.state.Store(int32(Running))

	args := &wit.MessageArgs{
		AgentId:     e.cfg.AgentId,
		ActorId:     e.cfg.ActorId,
		MessageType: wit.MTGenesis,
		Headers:     genesisMsg.Headers,
		Content:     genesisMsg.Content,
		Sender:      peer,
		Core:        activeCore,
		Inbox:       inboxView,
		Outbox:      outboxBuilder,
		Store:       e.cfg.Store,
		Extra:       e.cfg.Collaborators,
	}

	newCoreId, err := e.invokeHandler(ctx, handler, args)
	if err != nil {
		return false, fmt.Errorf("executor: genesis handler failed for %s: %w", e.cfg.ActorId, err)
	}
	resultCoreId, _ := newCoreId.(grit.TreeId)
	if resultCoreId.IsZero() {
		resultCoreId = e.cfg.ActorId
	}

	return e.commitStep(ctx, snapshot, outboxBuilder, nil, resultCoreId, grit.Mailbox{})
}

// tryAdoptExistingHead loads the actor's current HEAD step, if one already
// exists on disk, as the executor's starting point — the restart-recovery
// path, not genesis. It returns (false, nil) if no HEAD exists yet.
func (e *Executor) tryAdoptExistingHead(ctx context.Context) (bool, error) {
	stepId, err := e.cfg.Store.GetRef(ctx, grit.HeadRef(e.cfg.ActorId))
	if errors.Is(err, gritstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("executor: loading head for %s: %w", e.cfg.ActorId, err)
	}

	step, err := getStep(ctx, e.cfg.Store, stepId)
	if err != nil {
		return false, err
	}

	inboxSnap, err := loadMailbox(ctx, e.cfg.Store, step.Inbox)
	if err != nil {
		return false, err
	}
	outboxSnap, err := loadMailbox(ctx, e.cfg.Store, step.Outbox)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	id := stepId
	e.lastStepId = &id
	e.lastCore = step.Core
	e.lastInboxSnapshot = inboxSnap
	e.lastOutboxSnapshot = outboxSnap
	for _, entry := range inboxSnap.Entries {
		if _, ok := e.pending.Head(entry.Peer); !ok {
			e.pending.Set(entry.Peer, entry.Message)
		}
	}
	e.mu.Unlock()

	return true, nil
}

// runIteration executes steps 3-8 of spec.md §4.6 for one resolved inbox
// snapshot.
func (e *Executor) runIteration(ctx context.Context, snapshot grit.Mailbox) (bool, error) {
	e.mu.Lock()
	lastInbox := e.lastInboxSnapshot
	lastOutbox := e.lastOutboxSnapshot
	lastCore := e.lastCore
	lastStepId := *e.lastStepId
	e.mu.Unlock()

	updatePeer, updateMsg, err := findUpdateMessage(ctx, e.cfg.Store, snapshot, lastInbox)
	if err != nil {
		return false, err
	}

	var (
		activeCore *core.Core
		handler    resolver.Handler
		inboxView  *mailbox.Inbox
	)

	if updateMsg != nil {
		newCoreObj, err := e.cfg.Store.Get(ctx, updateMsg.Content)
		if err != nil {
			return false, fmt.Errorf("executor: loading update core: %w", err)
		}
		tree, ok := newCoreObj.(grit.Tree)
		if !ok {
			return false, fmt.Errorf("executor: update message content %s is not a tree", updateMsg.Content)
		}
		activeCore = core.NewCoreFromObject(e.cfg.Store, updateMsg.Content, tree)

		handler = e.cfg.FixedHandler
		if handler == nil {
			handler, err = e.cfg.Resolver.Resolve(ctx, activeCore, core.NodeWitUpdate)
			if err != nil {
				return false, err
			}
			if handler == nil {
				// No dedicated wit_update: the ordinary wit handles the
				// update too, distinguished by args.MessageType.
				handler, err = e.cfg.Resolver.Resolve(ctx, activeCore, core.NodeWit)
				if err != nil {
					return false, err
				}
			}
		}

		restrictedLastRead := grit.Mailbox{}
		if updateMsg.Previous != nil {
			restrictedLastRead = grit.Mailbox{
				Entries: []grit.MailboxEntry{{Peer: updatePeer, Message: *updateMsg.Previous}},
			}
		}
		restrictedCurrent := grit.Mailbox{
			Entries: []grit.MailboxEntry{{Peer: updatePeer, Message: mustHash(ctx, e.cfg.Store, *updateMsg)}},
		}
		inboxView = mailbox.NewInbox(e.cfg.Store, mailbox.Load(restrictedCurrent), mailbox.Load(restrictedLastRead))
	} else {
		coreObj, err := e.cfg.Store.Get(ctx, lastCore)
		if err != nil {
			return false, fmt.Errorf("executor: loading core: %w", err)
		}
		tree, ok := coreObj.(grit.Tree)
		if !ok {
			return false, fmt.Errorf("executor: core %s is not a tree", lastCore)
		}
		activeCore = core.NewCoreFromObject(e.cfg.Store, lastCore, tree)

		handler = e.cfg.FixedHandler
		if handler == nil {
			handler, err = e.cfg.Resolver.Resolve(ctx, activeCore, core.NodeWit)
			if err != nil {
				return false, err
			}
		}
		inboxView = mailbox.NewInbox(e.cfg.Store, mailbox.Load(snapshot), mailbox.Load(lastInbox))
	}

	if handler == nil {
		return false, resolver.ErrInvalidCore
	}

	outboxBuilder := mailbox.FromView(mailbox.Load(lastOutbox))

	e.state.Store(int32(Running))

	mt := ""
	if updateMsg != nil {
		mt = wit.MTUpdate
	}

	args := &wit.MessageArgs{
		HeadStep:    lastStepId,
		AgentId:     e.cfg.AgentId,
		ActorId:     e.cfg.ActorId,
		MessageType: mt,
		Sender:      updatePeer,
		Core:        activeCore,
		Inbox:       inboxView,
		Outbox:      outboxBuilder,
		Store:       e.cfg.Store,
		Extra:       e.cfg.Collaborators,
	}
	if updateMsg != nil {
		args.Content = updateMsg.Content
		args.Headers = updateMsg.Headers
	}

	newCoreId, err := e.invokeHandler(ctx, handler, args)
	if err != nil {
		return false, fmt.Errorf("executor: handler failed for %s: %w", e.cfg.ActorId, err)
	}
	resultCoreId, _ := newCoreId.(grit.TreeId)
	if resultCoreId.IsZero() {
		resultCoreId = activeCore.Id()
		if resultCoreId.IsZero() {
			if id, perr := activeCore.Persist(ctx, e.cfg.Store); perr == nil {
				resultCoreId = id
			}
		}
	}

	return e.commitStep(ctx, snapshot, outboxBuilder, &lastStepId, resultCoreId, lastOutbox)
}

// commitStep persists steps 5-8 of spec.md §4.6 common to the genesis and
// ordinary paths: write the inbox/outbox objects, write the new Step, move
// heads/<actor>, compute and deliver the outbox delta, and advance
// bookkeeping. prevStepId is nil for a genesis step.
func (e *Executor) commitStep(
	ctx context.Context, snapshot grit.Mailbox, outboxBuilder *mailbox.Builder,
	prevStepId *grit.StepId, resultCoreId grit.TreeId, lastOutbox grit.Mailbox,
) (bool, error) {

	inboxId, err := e.cfg.Store.Put(ctx, snapshot)
	if err != nil {
		return false, fmt.Errorf("executor: persisting inbox: %w", err)
	}

	newOutbox := outboxBuilder.Build()
	var outboxIdPtr *grit.MailboxId
	if !outboxBuilder.IsEmpty() {
		id, err := e.cfg.Store.Put(ctx, newOutbox)
		if err != nil {
			return false, fmt.Errorf("executor: persisting outbox: %w", err)
		}
		outboxIdPtr = &id
	}

	step := grit.Step{
		Previous: prevStepId,
		Actor:    e.cfg.ActorId,
		Inbox:    &inboxId,
		Outbox:   outboxIdPtr,
		Core:     resultCoreId,
	}
	newStepId, err := e.cfg.Store.Put(ctx, step)
	if err != nil {
		return false, fmt.Errorf("executor: persisting step: %w", err)
	}
	if err := e.cfg.Store.SetRef(ctx, grit.HeadRef(e.cfg.ActorId), newStepId); err != nil {
		return false, fmt.Errorf("executor: setting head: %w", err)
	}

	if e.cfg.OnOutboxDelta != nil {
		for _, delta := range outboxDelta(newOutbox, lastOutbox) {
			if err := e.cfg.OnOutboxDelta(ctx, e.cfg.ActorId, delta.Peer, delta.Message); err != nil {
				return false, fmt.Errorf("executor: delivering outbox delta: %w", err)
			}
		}
	}

	e.mu.Lock()
	id := newStepId
	e.lastStepId = &id
	e.lastCore = resultCoreId
	e.lastInboxSnapshot = snapshot
	e.lastOutboxSnapshot = newOutbox
	e.mu.Unlock()

	return true, nil
}

func mustHash(ctx context.Context, store gritstore.Store, msg grit.Message) grit.MessageId {
	id, err := store.Put(ctx, msg)
	if err != nil {
		return grit.MessageId{}
	}
	return id
}

func mustHashChecked(ctx context.Context, store gritstore.Store, msg grit.Message) (grit.MessageId, error) {
	return store.Put(ctx, msg)
}

// findUpdateMessage scans the peers whose head differs between snapshot
// and lastInbox for a message carrying header mt == "update".
func findUpdateMessage(
	ctx context.Context, store gritstore.Store, snapshot, lastInbox grit.Mailbox,
) (grit.ActorId, *grit.Message, error) {

	lastHeads := make(map[grit.ActorId]grit.MessageId, len(lastInbox.Entries))
	for _, e := range lastInbox.Entries {
		lastHeads[e.Peer] = e.Message
	}

	for _, entry := range snapshot.Entries {
		prevHead, hadPrev := lastHeads[entry.Peer]
		if hadPrev && prevHead == entry.Message {
			continue
		}

		var stopAt *grit.MessageId
		if hadPrev {
			h := prevHead
			stopAt = &h
		}

		msgs, err := mailbox.Chain(ctx, store, entry.Message)
		if err != nil {
			return grit.ActorId{}, nil, err
		}
		for i := len(msgs) - 1; i >= 0; i-- {
			if stopAt != nil {
				hashed := mustHash(ctx, store, msgs[i])
				if hashed == *stopAt {
					break
				}
			}
			if msgs[i].Headers[grit.MessageType] == wit.MTUpdate {
				m := msgs[i]
				return entry.Peer, &m, nil
			}
		}
	}
	return grit.ActorId{}, nil, nil
}

func getStep(ctx context.Context, store gritstore.Store, id grit.StepId) (grit.Step, error) {
	obj, err := store.Get(ctx, id)
	if err != nil {
		return grit.Step{}, fmt.Errorf("executor: loading step %s: %w", id, err)
	}
	step, ok := obj.(grit.Step)
	if !ok {
		return grit.Step{}, fmt.Errorf("executor: %s is not a step", id)
	}
	return step, nil
}

func loadMailbox(ctx context.Context, store gritstore.Store, id *grit.MailboxId) (grit.Mailbox, error) {
	if id == nil {
		return grit.Mailbox{}, nil
	}
	obj, err := store.Get(ctx, *id)
	if err != nil {
		return grit.Mailbox{}, fmt.Errorf("executor: loading mailbox %s: %w", *id, err)
	}
	m, ok := obj.(grit.Mailbox)
	if !ok {
		return grit.Mailbox{}, fmt.Errorf("executor: %s is not a mailbox", *id)
	}
	return m, nil
}

func mailboxEqual(a, b grit.Mailbox) bool {
	if len(a.Entries) != len(b.Entries) {
		return false
	}
	bm := make(map[grit.ActorId]grit.MessageId, len(b.Entries))
	for _, e := range b.Entries {
		bm[e.Peer] = e.Message
	}
	for _, e := range a.Entries {
		if bm[e.Peer] != e.Message {
			return false
		}
	}
	return true
}

type outboxDeltaEntry struct {
	Peer    grit.ActorId
	Message grit.MessageId
}

// outboxDelta returns, for each recipient whose outbox entry changed or is
// new, the (recipient, message) pair to deliver (spec.md §4.6 step 7).
func outboxDelta(newOutbox, lastOutbox grit.Mailbox) []outboxDeltaEntry {
	lastHeads := make(map[grit.ActorId]grit.MessageId, len(lastOutbox.Entries))
	for _, e := range lastOutbox.Entries {
		lastHeads[e.Peer] = e.Message
	}

	var out []outboxDeltaEntry
	for _, e := range newOutbox.Entries {
		if prev, ok := lastHeads[e.Peer]; ok && prev == e.Message {
			continue
		}
		out = append(out, outboxDeltaEntry{Peer: e.Peer, Message: e.Message})
	}
	return out
}
