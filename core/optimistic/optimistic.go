// Package optimistic applies local state changes before the server confirms them,
// with a fallback that runs when the confirmation fails.
package optimistic

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Fallback computes the state to settle on after a failed commit, given the pre-update snapshot.
type Fallback[T any] func(ctx context.Context, snapshot T) (T, error)

// Restore settles back on the snapshot.
func Restore[T any]() Fallback[T] {
	return func(_ context.Context, snapshot T) (T, error) {
		return snapshot, nil
	}
}

// Refetch settles on a fresh authoritative read, discarding the snapshot.
func Refetch[T any](load func(ctx context.Context) (T, error)) Fallback[T] {
	return func(ctx context.Context, _ T) (T, error) {
		return load(ctx)
	}
}

// Value holds a state that can be updated optimistically.
type Value[T any] struct {
	mu    sync.RWMutex
	v     T
	clone func(T) T
}

// New returns a Value holding `v`. `clone` must return a deep enough copy of a state
// for mutations of the copy not to leak into the original.
func New[T any](v T, clone func(T) T) *Value[T] {
	return &Value[T]{v: v, clone: clone}
}

// Get returns a copy of the current state.
func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.clone(o.v)
}

func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	o.v = v
	o.mu.Unlock()
}

// Modify replaces the state with `mutate`'s result, applied on a copy.
func (o *Value[T]) Modify(mutate func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = mutate(o.clone(o.v))
	return o.clone(o.v)
}

// Update snapshots the state, applies `mutate` immediately, then runs `commit`.
// When `commit` fails the state is replaced by what `fallback` returns; if the fallback
// fails too, the snapshot is restored. The commit error is returned in both cases.
func (o *Value[T]) Update(ctx context.Context, mutate func(T) T, commit func(ctx context.Context) error, fallback Fallback[T]) error {
	o.mu.Lock()
	snapshot := o.clone(o.v)
	o.v = mutate(o.clone(o.v))
	o.mu.Unlock()

	err := commit(ctx)
	if err == nil {
		return nil
	}

	settled, fErr := fallback(ctx, o.clone(snapshot))
	if fErr != nil {
		o.Set(snapshot)
		return errors.Wrapf(err, "fallback failed (%v), snapshot restored", fErr)
	}
	o.Set(settled)
	return err
}
