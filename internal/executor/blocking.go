package executor

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/actorutil"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/baselib/actor"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
)

// handlerTask is one resolved wit invocation submitted to a BlockingPool
// (spec.md §5: "blocking handlers execute on a worker pool"). It satisfies
// actor.Message by embedding actor.BaseMessage.
type handlerTask struct {
	actor.BaseMessage
	ctx     context.Context
	handler resolver.Handler
	args    any
}

func (handlerTask) MessageType() string { return "executor.handlerTask" }

// handlerTaskBehavior runs a handlerTask's handler to completion. It carries
// no state, so the same instance backs every worker in a BlockingPool.
type handlerTaskBehavior struct{}

func (handlerTaskBehavior) Receive(_ context.Context, t handlerTask) fn.Result[any] {
	result, err := t.handler(t.ctx, t.args)
	if err != nil {
		return fn.Err[any](err)
	}
	return fn.Ok(result)
}

// BlockingPool is the worker-pool type internal/runtime builds once (from
// Config.BlockingWorkers) and configures on every Executor for blocking wit
// handlers (spec.md §5); see NewBlockingPool.
type BlockingPool = actorutil.Pool[handlerTask, any]

// NewBlockingPool builds a BlockingPool with size workers, all sharing the
// same stateless dispatch behavior.
func NewBlockingPool(id string, size int) *BlockingPool {
	return actorutil.NewPool(actorutil.PoolConfig[handlerTask, any]{
		ID:   id,
		Size: size,
		Factory: func(int) actor.ActorBehavior[handlerTask, any] {
			return handlerTaskBehavior{}
		},
	})
}

// invokeHandler runs handler(ctx, args), routing it through e.cfg.Concurrency
// (an optional semaphore bounding concurrent cooperative invocations) and/or
// e.cfg.BlockingPool (an optional bounded worker pool for blocking wit
// handlers), per spec.md §5's cooperative/blocking concurrency model.
func (e *Executor) invokeHandler(ctx context.Context, handler resolver.Handler, args any) (any, error) {
	if e.cfg.BlockingPool != nil {
		return actorutil.AskAwait(ctx, actorutil.NewPoolRef(e.cfg.BlockingPool), handlerTask{
			ctx: ctx, handler: handler, args: args,
		})
	}

	if e.cfg.Concurrency != nil {
		if err := e.cfg.Concurrency.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer e.cfg.Concurrency.Release(1)
	}

	return handler(ctx, args)
}
