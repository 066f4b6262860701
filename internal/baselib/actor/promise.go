package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// futureImpl is the channel-backed Future returned by NewPromise. It may be
// completed at most once; Await, ThenApply, and OnComplete are all safe to
// call concurrently and any number of times.
type futureImpl[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	result    fn.Result[T]
	completed bool
}

// promiseImpl is the Promise half of a promise/future pair created by
// NewPromise.
type promiseImpl[T any] struct {
	fut *futureImpl[T]
}

// NewPromise creates a new, unfulfilled Promise/Future pair. The producer of
// an async result calls Complete on the Promise; consumers call Await (or
// register a callback) on its Future.
func NewPromise[T any]() Promise[T] {
	return &promiseImpl[T]{
		fut: &futureImpl[T]{done: make(chan struct{})},
	}
}

// Future returns the Future associated with this Promise.
func (p *promiseImpl[T]) Future() Future[T] {
	return p.fut
}

// Complete sets the result of the associated future. Only the first call
// succeeds; later calls return false without effect.
func (p *promiseImpl[T]) Complete(result fn.Result[T]) bool {
	f := p.fut

	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.result = result
	f.mu.Unlock()

	close(f.done)
	return true
}

// Await blocks until the promise is completed or ctx is cancelled, whichever
// comes first.
func (f *futureImpl[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.done:
		f.mu.Lock()
		r := f.result
		f.mu.Unlock()
		return r

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply returns a new Future that resolves to transform applied to this
// future's value, or propagates this future's error unchanged.
func (f *futureImpl[T]) ThenApply(ctx context.Context, transform func(T) T) Future[T] {
	next := NewPromise[T]()

	go func() {
		result := f.Await(ctx)
		val, err := result.Unpack()
		if err != nil {
			next.Complete(fn.Err[T](err))
			return
		}
		next.Complete(fn.Ok(transform(val)))
	}()

	return next.Future()
}

// OnComplete registers a callback invoked with this future's result once it
// is available, or with the context's error if ctx is cancelled first.
func (f *futureImpl[T]) OnComplete(ctx context.Context, cb func(fn.Result[T])) {
	go func() {
		cb(f.Await(ctx))
	}()
}
