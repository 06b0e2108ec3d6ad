// internal/browser/jsexec/runtime.go
package jsexec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"
)

// DefaultTimeout is the fallback execution timeout if the context has no deadline.
const DefaultTimeout = 30 * time.Second

// ErrClosed is returned by Evaluate after Close.
var ErrClosed = errors.New("runtime is closed")

// Setup prepares the VM before any script runs, typically by installing host objects.
type Setup func(vm *goja.Runtime) error

// Runtime is a single goja VM driven by an event loop. Every evaluation runs
// the loop until it is idle, so promise reactions and timers queued by a
// script have settled by the time Evaluate returns. Evaluations are serialized.
type Runtime struct {
	vm     *goja.Runtime
	loop   *eventloop.EventLoop
	logger *zap.Logger

	// Timers armed during the current evaluation. Only touched on the loop
	// goroutine or while the loop is stopped.
	timeouts  map[*eventloop.Timer]struct{}
	intervals map[*eventloop.Interval]struct{}

	execMutex sync.Mutex
	closed    bool
}

// NewRuntime creates a runtime and applies each setup step in order.
func NewRuntime(logger *zap.Logger, setup ...Setup) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		loop:      eventloop.NewEventLoop(eventloop.EnableConsole(false)),
		logger:    logger.Named("jsexec"),
		timeouts:  make(map[*eventloop.Timer]struct{}),
		intervals: make(map[*eventloop.Interval]struct{}),
	}

	var setupErr error
	r.loop.Run(func(vm *goja.Runtime) {
		r.vm = vm
		if setupErr = r.trackTimers(vm); setupErr != nil {
			return
		}
		for _, s := range setup {
			if err := s(vm); err != nil {
				setupErr = err
				return
			}
		}
	})
	if setupErr != nil {
		r.loop.Terminate()
		return nil, fmt.Errorf("failed to set up javascript runtime: %w", setupErr)
	}
	return r, nil
}

// trackTimers wraps setTimeout and setInterval so the handles they return
// can be cleared when an evaluation is cancelled.
func (r *Runtime) trackTimers(vm *goja.Runtime) error {
	for _, name := range []string{"setTimeout", "setInterval"} {
		schedule, ok := goja.AssertFunction(vm.Get(name))
		if !ok {
			return fmt.Errorf("event loop did not install %s", name)
		}
		if err := vm.Set(name, func(call goja.FunctionCall) goja.Value {
			handle, err := schedule(call.This, call.Arguments...)
			if err != nil {
				panic(err)
			}
			if handle != nil {
				switch h := handle.Export().(type) {
				case *eventloop.Timer:
					r.timeouts[h] = struct{}{}
				case *eventloop.Interval:
					r.intervals[h] = struct{}{}
				}
			}
			return handle
		}); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs a script and exports its completion value. A returned promise
// is unwrapped: its fulfilment value is returned and a rejection becomes an
// error. Cancelling ctx interrupts the running script, stops the loop and
// clears the timers the script armed.
func (r *Runtime) Evaluate(ctx context.Context, script string) (interface{}, error) {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	// A script without a deadline could spin forever.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript execution interrupted by context: %w", err)
	}

	var (
		result goja.Value
		err    error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.loop.Run(func(vm *goja.Runtime) {
			result, err = vm.RunString(script)
		})
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.vm.Interrupt(ctx.Err())
		r.stopLoop(done)
		r.clearTimers()
	}
	// The interrupt flag must not leak into the next evaluation.
	r.vm.ClearInterrupt()
	clear(r.timeouts)
	clear(r.intervals)

	if err != nil {
		var interruptErr *goja.InterruptedError
		if errors.As(err, &interruptErr) {
			return nil, fmt.Errorf("javascript execution interrupted by context: %w", ctx.Err())
		}
		var jsErr *goja.Exception
		if errors.As(err, &jsErr) {
			return nil, fmt.Errorf("javascript exception: %s", jsErr.String())
		}
		return nil, fmt.Errorf("javascript error: %w", err)
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("javascript execution interrupted by context: %w", ctx.Err())
	}
	return settle(result)
}

// stopLoop asks the loop to stop until the run in flight returns. The
// request is repeated because it has no effect before the loop has started.
func (r *Runtime) stopLoop(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		r.loop.StopNoWait()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// clearTimers cancels every timer the cancelled evaluation armed, then lets
// the loop process the cancellations. The VM is still interrupted, so no
// script callback can run here.
func (r *Runtime) clearTimers() {
	if len(r.timeouts) == 0 && len(r.intervals) == 0 {
		return
	}
	for t := range r.timeouts {
		r.loop.ClearTimeout(t)
	}
	for i := range r.intervals {
		r.loop.ClearInterval(i)
	}
	r.loop.Run(func(*goja.Runtime) {})
	r.logger.Debug("Cleared timers of a cancelled evaluation",
		zap.Int("timeouts", len(r.timeouts)), zap.Int("intervals", len(r.intervals)))
}

// Close releases the runtime and its timers. Later evaluations fail with ErrClosed.
func (r *Runtime) Close() {
	r.execMutex.Lock()
	defer r.execMutex.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.loop.Terminate()
}

func settle(result goja.Value) (interface{}, error) {
	if result == nil {
		return nil, nil
	}
	promise, ok := result.Export().(*goja.Promise)
	if !ok {
		return result.Export(), nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result().Export(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("javascript promise rejected: %s", promise.Result().String())
	default:
		return nil, errors.New("javascript promise did not settle")
	}
}
