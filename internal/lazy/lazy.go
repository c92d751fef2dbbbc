// Package lazy defers building expensive components until first use.
package lazy

import (
	"context"
	"sync"
)

// Loader builds the value
type Loader[T any] func(ctx context.Context) (T, error)

// Value is loaded on the first successful Get and reused afterwards.
// A failed load is not remembered, so the next Get tries again.
type Value[T any] struct {
	loader Loader[T]
	value  T
	loaded bool
	mutex  sync.Mutex
}

// New creates a lazy value with a loader function
func New[T any](loader func(ctx context.Context) (T, error)) *Value[T] {
	return &Value[T]{loader: loader}
}

// Get returns the value, loading it if necessary
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.loaded {
		return v.value, nil
	}
	value, err := v.loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	v.value, v.loaded = value, true
	return value, nil
}

// Loaded returns the value without loading it
func (v *Value[T]) Loaded() (T, bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.value, v.loaded
}

// Reset forgets the value and returns what was loaded, if anything
func (v *Value[T]) Reset() (T, bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	value, loaded := v.value, v.loaded
	var zero T
	v.value, v.loaded = zero, false
	return value, loaded
}
