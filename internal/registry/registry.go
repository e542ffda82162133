// Package registry maps type names to values so serialized data can name the
// concrete type that should decode it.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnknownName is returned when a name has not been registered.
	ErrUnknownName = errors.New("unknown name")
	// ErrDuplicateName is returned when a name is registered twice.
	ErrDuplicateName = errors.New("name already registered")
)

// Registry is a name-keyed table safe for concurrent use. Entries are
// normally added from package init functions and read afterwards.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]T
}

// New creates an empty registry. kind names the registered things in errors.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]T)}
}

// Register adds value under name.
func (r *Registry[T]) Register(name string, value T) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("register %s: empty name", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateName, r.kind, name)
	}
	r.entries[name] = value
	return nil
}

// MustRegister is Register for init-time wiring, where a failure is a
// programming error.
func (r *Registry[T]) MustRegister(name string, value T) {
	if err := r.Register(name, value); err != nil {
		panic(err)
	}
}

// Lookup returns the value registered under name.
func (r *Registry[T]) Lookup(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrUnknownName, r.kind, name)
	}
	return value, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Values returns the registered values ordered by name.
func (r *Registry[T]) Values() []T {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	values := make([]T, 0, len(names))
	for _, name := range names {
		if v, ok := r.entries[name]; ok {
			values = append(values, v)
		}
	}
	return values
}
