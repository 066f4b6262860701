// Package runtime implements the router/orchestrator that owns every
// actor's executor plus the root executor (spec.md §4.8): startup HEAD
// loading, crash recovery, and the outbox-delta main loop that realizes
// "unknown recipient ⇒ spin up a new executor" (the mechanism that actually
// births a Prototype's children, spec.md §4.11).
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/executor"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
)

// Config configures a Runtime.
type Config struct {
	Store    gritstore.Store
	Resolver *resolver.Resolver

	// Collaborators is forwarded to every actor executor's MessageArgs.Extra.
	Collaborators map[string]any

	// Point bootstraps a brand-new agent if runtime/agent is not already
	// set (spec.md §4.7). Ignored once an agent exists.
	Point grit.Point

	// DeltaQueueSize bounds the outbox-delta channel. 0 uses a sane default.
	DeltaQueueSize int

	// CooperativeConcurrency, if > 0, bounds how many cooperative wit
	// handlers may run at once across every actor this Runtime owns, via a
	// shared golang.org/x/sync/semaphore.Weighted (spec.md §5). 0 disables
	// the bound.
	CooperativeConcurrency int64

	// BlockingWorkers, if > 0, routes every actor's handler invocations
	// through a shared internal/actorutil-backed worker pool of this size
	// instead of running them on the calling goroutine (spec.md §5: "blocking
	// handlers execute on a worker pool"). 0 disables the pool.
	BlockingWorkers int
}

type delta struct {
	from grit.ActorId
	to   grit.ActorId
	msg  grit.MessageId
}

// Runtime owns every actor's executor and drives the outbox-delta main
// loop that wires them together.
type Runtime struct {
	cfg    Config
	rootId grit.ActorId
	root   *rootexec.RootExecutor

	mu     sync.Mutex
	actors map[grit.ActorId]*executor.Executor

	deltaCh chan delta

	wg       sync.WaitGroup
	errMu    sync.Mutex
	firstErr error

	// concurrency and blockingPool, when configured, are shared across every
	// executor this Runtime spawns (spec.md §5) so the bound applies
	// agent-wide rather than per actor.
	concurrency  *semaphore.Weighted
	blockingPool *executor.BlockingPool
}

const defaultDeltaQueueSize = 256

// New prepares a Runtime. Call Run to bootstrap (if needed), recover, and
// start every executor.
func New(cfg Config) *Runtime {
	size := cfg.DeltaQueueSize
	if size <= 0 {
		size = defaultDeltaQueueSize
	}
	rt := &Runtime{
		cfg:     cfg,
		actors:  make(map[grit.ActorId]*executor.Executor),
		deltaCh: make(chan delta, size),
	}
	if cfg.CooperativeConcurrency > 0 {
		rt.concurrency = semaphore.NewWeighted(cfg.CooperativeConcurrency)
	}
	if cfg.BlockingWorkers > 0 {
		rt.blockingPool = executor.NewBlockingPool("runtime.blocking", cfg.BlockingWorkers)
	}
	return rt
}

// Root returns the root executor, or nil if Run has not yet bootstrapped it.
func (rt *Runtime) Root() *rootexec.RootExecutor {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.root
}

// RootId returns the agent's AgentId (== the root actor's ActorId), the zero
// id if Run has not yet bootstrapped it.
func (rt *Runtime) RootId() grit.ActorId {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.rootId
}

// Run bootstraps the agent if necessary, instantiates an executor per actor
// with existing history (spec.md §4.8 step 1), performs the crash-recovery
// scan (step 2), starts every executor (step 3), and then drives the main
// outbox-delta loop (step 4) until ctx is cancelled (step 5).
func (rt *Runtime) Run(ctx context.Context) error {
	rootId, err := rootexec.Bootstrap(ctx, rt.cfg.Store, rt.cfg.Point)
	if err != nil {
		return fmt.Errorf("runtime: bootstrapping agent: %w", err)
	}
	root := rootexec.New(rootexec.Config{
		AgentId:       rootId,
		Store:         rt.cfg.Store,
		Collaborators: rt.cfg.Collaborators,
		OnOutboxDelta: rt.onOutboxDelta,
		Concurrency:   rt.concurrency,
		BlockingPool:  rt.blockingPool,
	}, rootId)

	rt.mu.Lock()
	rt.rootId = rootId
	rt.root = root
	rt.actors[rootId] = root.Executor()
	rt.mu.Unlock()

	heads, err := rt.cfg.Store.GetRefs(ctx, grit.RefHeadsPrefix)
	if err != nil {
		return fmt.Errorf("runtime: loading heads: %w", err)
	}
	for ref := range heads {
		actorId, ok := grit.ActorFromHeadRef(ref)
		if !ok || actorId == rootId {
			continue
		}
		rt.spawnExecutor(actorId)
	}

	if err := rt.recover(ctx); err != nil {
		return fmt.Errorf("runtime: recovery scan: %w", err)
	}

	rt.mu.Lock()
	toStart := make([]*executor.Executor, 0, len(rt.actors))
	for _, ex := range rt.actors {
		toStart = append(toStart, ex)
	}
	rt.mu.Unlock()
	for _, ex := range toStart {
		rt.start(ctx, ex)
	}

	for {
		select {
		case d := <-rt.deltaCh:
			rt.deliver(ctx, d)
		case <-ctx.Done():
			rt.shutdown()
			rt.wg.Wait()
			if err := rt.firstRecordedErr(); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

// spawnExecutor creates (but does not start) an executor for actorId. The
// caller must hold no lock; spawnExecutor takes rt.mu itself.
func (rt *Runtime) spawnExecutor(actorId grit.ActorId) *executor.Executor {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if ex, ok := rt.actors[actorId]; ok {
		return ex
	}
	ex := executor.New(executor.Config{
		ActorId:       actorId,
		AgentId:       rt.rootId,
		Store:         rt.cfg.Store,
		Resolver:      rt.cfg.Resolver,
		OnOutboxDelta: rt.onOutboxDelta,
		Collaborators: rt.cfg.Collaborators,
		Concurrency:   rt.concurrency,
		BlockingPool:  rt.blockingPool,
	})
	rt.actors[actorId] = ex
	return ex
}

func (rt *Runtime) start(ctx context.Context, ex *executor.Executor) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := ex.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, executor.ErrStopped) {
			rt.recordErr(fmt.Errorf("runtime: actor %s: %w", ex.ActorId(), err))
		}
	}()
}

func (rt *Runtime) recordErr(err error) {
	rt.errMu.Lock()
	defer rt.errMu.Unlock()
	if rt.firstErr == nil {
		rt.firstErr = err
	}
}

func (rt *Runtime) firstRecordedErr() error {
	rt.errMu.Lock()
	defer rt.errMu.Unlock()
	return rt.firstErr
}

// onOutboxDelta is the callback every executor (including the root) reports
// a changed outbox entry through (spec.md §4.6 step 8).
func (rt *Runtime) onOutboxDelta(ctx context.Context, from, to grit.ActorId, msg grit.MessageId) error {
	select {
	case rt.deltaCh <- delta{from: from, to: to, msg: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver applies one outbox delta: an unknown recipient gets a
// freshly-spawned, freshly-started executor under the assumption that this
// is a genesis delivery (spec.md §4.8 step 4); a known recipient's executor
// just gets the new message. Applying deltas for the same recipient in
// arrival order already yields "keep only the latest message per sender"
// (spec.md §4.8 step 4), since mailbox.Deliver overwrites a peer's head
// rather than accumulating a backlog — older messages remain reachable via
// `previous` regardless.
func (rt *Runtime) deliver(ctx context.Context, d delta) {
	rt.mu.Lock()
	ex, ok := rt.actors[d.to]
	rt.mu.Unlock()

	if !ok {
		ex = rt.spawnExecutor(d.to)
		rt.start(ctx, ex)
	}
	ex.Deliver(ctx, d.from, d.msg)
}

func (rt *Runtime) shutdown() {
	rt.mu.Lock()
	actors := make([]*executor.Executor, 0, len(rt.actors))
	for _, ex := range rt.actors {
		actors = append(actors, ex)
	}
	rt.mu.Unlock()

	for _, ex := range actors {
		ex.Stop()
	}
}
