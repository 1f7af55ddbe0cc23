// Package future provides a settle-once asynchronous result.
//
// A Future is either pending or settled. It settles exactly once, with a value
// or with a non-nil error, and any number of goroutines may wait on it.
package future

import (
	"context"
	"errors"
	"sync"

	"github.com/Bahjat/arrestorgear/internal/platform/errs"
)

// ErrNilReason is the rejection reason used when reject is called with nil.
var ErrNilReason = errors.New("future rejected with nil reason")

// Future is the eventual outcome of one asynchronous operation.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New returns a pending Future together with its settle functions.
// Only the first call to either function has an effect.
func New[T any]() (f *Future[T], resolve func(T), reject func(error)) {
	f = &Future[T]{done: make(chan struct{})}
	return f, f.resolve, f.reject
}

// Go runs fn on its own goroutine and returns a Future for its result.
// A panic inside fn rejects the Future instead of crashing the process.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f, resolve, reject := New[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(errs.Recovered("operation", r))
			}
		}()

		v, err := fn(ctx)
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return f
}

// Resolved returns a Future already fulfilled with v.
func Resolved[T any](v T) *Future[T] {
	f, resolve, _ := New[T]()
	resolve(v)
	return f
}

// Rejected returns a Future already rejected with err.
func Rejected[T any](err error) *Future[T] {
	f, _, reject := New[T]()
	reject(err)
	return f
}

func (f *Future[T]) resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

func (f *Future[T]) reject(err error) {
	if err == nil {
		err = ErrNilReason
	}
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the Future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the Future has settled.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the Future settles and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Wait is like Result but gives up when ctx ends. Giving up does not stop
// the underlying operation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
