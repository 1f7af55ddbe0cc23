// Package arrestor routes the outcome of one asynchronous HTTP call.
//
// A Gear wraps a single future. When the future is fulfilled, OnFulfilled
// hooks run; when it is rejected, the registered arrestors are tried in
// registration order and the first one whose predicate matches claims the
// failure. Finally hooks run after either path. Panics raised by any hook or
// arrestor are recovered per invocation and routed to OnError hooks, or to
// the configured Sink when there are none.
//
//	g, err := arrestor.New(client.Send(ctx, req))
//	if err != nil {
//		return err
//	}
//	g.CaptureValidationError(showFieldErrors).
//		CaptureStatusCode(failure.Codes(401, 403), redirectToLogin).
//		CaptureAny(reportUnexpected)
//	ok, _ := g.Wait(ctx)
package arrestor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Bahjat/arrestorgear/internal/failure"
	"github.com/Bahjat/arrestorgear/internal/future"
	"github.com/Bahjat/arrestorgear/internal/platform/errs"
)

var (
	// ErrNilFuture is returned when New is given a nil future.
	ErrNilFuture = errors.New("argument must be a pending future")
	// ErrNilFactory is returned when NewFromFactory is given a nil factory.
	ErrNilFactory = errors.New("factory must not be nil")
	// ErrFactoryResult is returned when a factory does not produce a future.
	ErrFactoryResult = errors.New("factory must return a future")
	// ErrInvalidSource is returned when From is given neither a future nor a factory.
	ErrInvalidSource = errors.New("source must be a future or a factory returning one")
)

// State is the settlement state of the wrapped operation.
type State int

const (
	StateDefault State = iota
	StatePending
	StateFulfilled
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return "default"
	}
}

// Hook stages, as reported in faults and metrics.
const (
	stageFulfilled = "fulfilled"
	stageFinally   = "finally"
	stageArrestor  = "arrestor"
	stageError     = "error"
)

type arrestor struct {
	kind string
	try  func(reason error) bool
}

// Gear coordinates the hooks and arrestors of one asynchronous operation.
type Gear[T any] struct {
	id      string
	name    string
	source  *future.Future[T]
	done    *future.Future[bool]
	finish  func(bool)
	sink    Sink
	logger  *slog.Logger
	metrics *gearMetrics

	mu     sync.Mutex
	state  State
	value  T
	reason error

	fulfilledHooks []func(T)
	finallyHooks   []func(bool)
	errorHooks     []func(error) bool
	arrestors      []arrestor

	// Hook lists are snapshotted when their pass starts; later registrations replay.
	fulfilledFired bool
	finallyFired   bool

	// The arrestor chain is live: next indexes the first untried entry.
	next    int
	walking bool
	claimed bool
}

// New wraps a pending future.
func New[T any](f *future.Future[T], opts ...Option) (*Gear[T], error) {
	if f == nil {
		return nil, invalidSource(ErrNilFuture)
	}
	return start(f, buildOptions(opts)), nil
}

// NewFromFactory invokes factory immediately and wraps the future it returns.
func NewFromFactory[T any](factory func() *future.Future[T], opts ...Option) (*Gear[T], error) {
	if factory == nil {
		return nil, invalidSource(ErrNilFactory)
	}

	f, err := callFactory(factory)
	if err != nil {
		return nil, invalidSource(err)
	}
	if f == nil {
		return nil, invalidSource(ErrFactoryResult)
	}
	return start(f, buildOptions(opts)), nil
}

// From accepts either a *future.Future[T] or a func() *future.Future[T].
func From[T any](src any, opts ...Option) (*Gear[T], error) {
	switch s := src.(type) {
	case *future.Future[T]:
		return New(s, opts...)
	case func() *future.Future[T]:
		return NewFromFactory(s, opts...)
	}
	return nil, invalidSource(fmt.Errorf("%w: got %T", ErrInvalidSource, src))
}

func callFactory[T any](factory func() *future.Future[T]) (f *future.Future[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: factory panicked: %v", ErrFactoryResult, r)
		}
	}()
	return factory(), nil
}

func invalidSource(cause error) error {
	return &errs.AppError{
		Kind:    errs.InvalidInput,
		Message: "cannot create arrestor gear",
		Cause:   cause,
	}
}

func start[T any](f *future.Future[T], o options) *Gear[T] {
	done, finish, _ := future.New[bool]()
	id := uuid.NewString()

	g := &Gear[T]{
		id:      id,
		name:    o.name,
		source:  f,
		done:    done,
		finish:  finish,
		sink:    o.sink,
		logger:  o.logger.With("gear_id", id, "gear", o.name),
		metrics: newGearMetrics(o.meter, o.name),
		state:   StatePending,
	}
	go g.watch()
	return g
}

// watch is the only goroutine that drives settlement.
func (g *Gear[T]) watch() {
	v, err := g.source.Result()
	if err != nil {
		g.reject(err)
	} else {
		g.fulfill(v)
	}
	g.fireFinally()
}

func (g *Gear[T]) fulfill(v T) {
	g.mu.Lock()
	g.state = StateFulfilled
	g.value = v
	g.fulfilledFired = true
	hooks := slices.Clone(g.fulfilledHooks)
	g.mu.Unlock()

	g.metrics.settled(StateFulfilled.String())
	g.logger.Debug("operation fulfilled", "hooks", len(hooks))

	for _, h := range hooks {
		g.guard(stageFulfilled, func() { h(v) })
	}
}

func (g *Gear[T]) reject(reason error) {
	g.mu.Lock()
	g.state = StateRejected
	g.reason = reason
	g.walking = true
	g.mu.Unlock()

	g.metrics.settled(StateRejected.String())
	g.logger.Debug("operation rejected", "error", reason)

	if !g.walk() {
		g.metrics.unclaimedRejection()
		g.logger.Debug("rejection not claimed by any arrestor", "error", reason)
	}
}

// walk tries untried arrestors in order until one claims the reason. The
// caller must have set walking. It reports whether the reason is claimed.
func (g *Gear[T]) walk() bool {
	for {
		g.mu.Lock()
		if g.claimed || g.next >= len(g.arrestors) {
			g.walking = false
			claimed := g.claimed
			g.mu.Unlock()
			return claimed
		}
		a := g.arrestors[g.next]
		g.next++
		reason := g.reason
		g.mu.Unlock()

		var claimed bool
		g.guard(stageArrestor, func() { claimed = a.try(reason) })
		if claimed {
			g.mu.Lock()
			g.claimed = true
			g.mu.Unlock()
			g.metrics.claimed(a.kind)
			g.logger.Debug("rejection claimed", "arrestor", a.kind)
		}
	}
}

func (g *Gear[T]) fireFinally() {
	g.mu.Lock()
	g.finallyFired = true
	fulfilled := g.state == StateFulfilled
	hooks := slices.Clone(g.finallyHooks)
	g.mu.Unlock()

	for _, h := range hooks {
		g.guard(stageFinally, func() { h(fulfilled) })
	}
	g.finish(fulfilled)
}

// guard runs fn and converts a panic into a fault. It reports whether fn
// returned normally.
func (g *Gear[T]) guard(stage string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			g.fault(stage, errs.Recovered(stage, r))
		}
	}()
	fn()
	return true
}

func (g *Gear[T]) fault(stage string, err error) {
	g.metrics.fault(stage)

	g.mu.Lock()
	hooks := slices.Clone(g.errorHooks)
	g.mu.Unlock()

	if len(hooks) == 0 {
		g.sink.Report(g.id, err)
		return
	}

	for _, h := range hooks {
		if g.handleFault(h, err) {
			return
		}
	}
}

// handleFault runs one OnError hook. A panicking error hook goes straight to
// the sink so fault handling cannot recurse.
func (g *Gear[T]) handleFault(h func(error) bool, err error) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			handled = false
			g.metrics.fault(stageError)
			g.sink.Report(g.id, errs.Recovered(stageError, r))
		}
	}()
	return h(err)
}

// ID returns the gear's unique identifier.
func (g *Gear[T]) ID() string {
	return g.id
}

// State returns the current settlement state.
func (g *Gear[T]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsSettled reports whether the operation was fulfilled or rejected.
func (g *Gear[T]) IsSettled() bool {
	s := g.State()
	return s == StateFulfilled || s == StateRejected
}

// OnFulfilled registers a hook that receives the fulfilled value. If the
// value is already available the hook runs immediately in the caller's
// goroutine.
func (g *Gear[T]) OnFulfilled(handler func(T)) *Gear[T] {
	if handler == nil {
		return g
	}

	g.mu.Lock()
	g.fulfilledHooks = append(g.fulfilledHooks, handler)
	replay := g.fulfilledFired
	v := g.value
	g.mu.Unlock()

	if replay {
		g.guard(stageFulfilled, func() { handler(v) })
	}
	return g
}

// OnError registers a hook for panics raised inside other hooks and
// arrestors. Returning true stops later OnError hooks from seeing the fault.
// Faults raised before registration are not replayed.
func (g *Gear[T]) OnError(handler func(fault error) bool) *Gear[T] {
	if handler == nil {
		return g
	}

	g.mu.Lock()
	g.errorHooks = append(g.errorHooks, handler)
	g.mu.Unlock()
	return g
}

// Finally registers an optional hook receiving whether the operation was
// fulfilled, and returns a future resolved with the same boolean once every
// hook and arrestor has run.
func (g *Gear[T]) Finally(handler func(fulfilled bool)) *future.Future[bool] {
	if handler == nil {
		return g.done
	}

	g.mu.Lock()
	g.finallyHooks = append(g.finallyHooks, handler)
	replay := g.finallyFired
	fulfilled := g.state == StateFulfilled
	g.mu.Unlock()

	if replay {
		g.guard(stageFinally, func() { handler(fulfilled) })
	}
	return g.done
}

// Wait blocks until all processing completes or ctx ends, and reports
// whether the operation was fulfilled.
func (g *Gear[T]) Wait(ctx context.Context) (bool, error) {
	return g.done.Wait(ctx)
}

// Future returns the wrapped operation.
func (g *Gear[T]) Future() *future.Future[T] {
	return g.source
}

// Promise is shorthand for Future.
func (g *Gear[T]) Promise() *future.Future[T] {
	return g.Future()
}

// Capture registers an arrestor that claims any reason for which match
// returns true. Like the hook registrations, a nil match or handler is
// ignored.
func (g *Gear[T]) Capture(match func(error) bool, handler func(error)) *Gear[T] {
	if match == nil || handler == nil {
		return g
	}
	return g.addArrestor("custom", func(reason error) bool {
		if !match(reason) {
			return false
		}
		handler(reason)
		return true
	})
}

// CaptureHTTPError claims any failure that carries an HTTP response.
func (g *Gear[T]) CaptureHTTPError(handler func(failure.HTTPContext)) *Gear[T] {
	if handler == nil {
		return g
	}
	return g.addArrestor("http", func(reason error) bool {
		return failure.ArrestHTTPError(reason, handler)
	})
}

// CaptureStatusCode claims HTTP failures whose status matches patterns.
func (g *Gear[T]) CaptureStatusCode(patterns failure.StatusPatterns, handler func(failure.HTTPContext)) *Gear[T] {
	if handler == nil {
		return g
	}
	return g.addArrestor("status", func(reason error) bool {
		return failure.ArrestStatusCode(reason, patterns, handler)
	})
}

// CaptureValidationError claims 422 failures and hands their field messages
// to handler.
func (g *Gear[T]) CaptureValidationError(handler func(*failure.MessageBag, failure.HTTPContext)) *Gear[T] {
	if handler == nil {
		return g
	}
	return g.addArrestor("validation", func(reason error) bool {
		return failure.ArrestValidationError(reason, handler)
	})
}

// CaptureAny claims every failure. Register it last to act as a fallback.
func (g *Gear[T]) CaptureAny(handler func(error)) *Gear[T] {
	if handler == nil {
		return g
	}
	return g.addArrestor("any", func(reason error) bool {
		handler(reason)
		return true
	})
}

// addArrestor appends to the chain. When the operation was already rejected
// and nothing has claimed it, the chain walk resumes with the new entry.
func (g *Gear[T]) addArrestor(kind string, try func(error) bool) *Gear[T] {
	g.mu.Lock()
	g.arrestors = append(g.arrestors, arrestor{kind: kind, try: try})
	resume := g.state == StateRejected && !g.walking && !g.claimed
	if resume {
		g.walking = true
	}
	g.mu.Unlock()

	if resume {
		g.walk()
	}
	return g
}
