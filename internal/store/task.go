// Package store holds the in-memory entity collections and their request
// lifecycles. Every mutating operation runs the remote call on its own
// goroutine and applies the outcome atomically when it completes.
package store

import (
	"context"
	"sync"
)

// Task is the eventual result of one store operation.
type Task[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// settledTask returns a task that has already completed.
func settledTask[T any](value T, err error) *Task[T] {
	t := newTask[T]()
	t.settle(value, err)
	return t
}

func (t *Task[T]) settle(value T, err error) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	t.settled = true
	t.value = value
	t.err = err
	callbacks := t.callbacks
	t.callbacks = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(value, err)
	}
}

// Done is closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles or ctx ends. A context error leaves the
// underlying operation running; its result is still applied to the store.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome. Before the task settles it returns the zero
// value and a nil error; check Done first.
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// OnSettled registers fn to run once with the outcome. If the task has
// already settled fn runs immediately on the calling goroutine.
func (t *Task[T]) OnSettled(fn func(T, error)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	if !t.settled {
		t.callbacks = append(t.callbacks, fn)
		t.mu.Unlock()
		return
	}
	value, err := t.value, t.err
	t.mu.Unlock()
	fn(value, err)
}

// Then returns a task that settles with t's outcome once fn has observed it.
// Callers waiting on the returned task see every side effect of fn.
func Then[T any](t *Task[T], fn func(T, error)) *Task[T] {
	next := newTask[T]()
	t.OnSettled(func(value T, err error) {
		if fn != nil {
			fn(value, err)
		}
		next.settle(value, err)
	})
	return next
}
