// Package registry implements the process-wide shared-document registry of
// spec §4.4/§9 (component C4): "encapsulate it behind get_or_create,
// remove_if_empty, and remove(name) so it is mockable in tests". It is
// generic over the document type so the coordinator package can own the
// concrete SharedDocument type without an import cycle.
package registry

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry is a name -> T map enforcing invariant I1 (at most one entry per
// name at any instant) via the bind-promise pattern (GLOSSARY): concurrent
// first-openers of the same name collapse onto one singleflight call.
type Registry[T any] struct {
	mu    sync.Mutex
	docs  map[string]T
	group singleflight.Group
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{docs: make(map[string]T)}
}

// Get returns the live entry for name, if any.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.docs[name]
	return v, ok
}

// GetOrCreate returns the existing entry for name, or calls create exactly
// once across any number of concurrent callers and stores its result —
// the "bind promise" of the GLOSSARY made concrete with singleflight.
func (r *Registry[T]) GetOrCreate(name string, create func() (T, error)) (T, error) {
	if v, ok := r.Get(name); ok {
		return v, nil
	}

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if v, ok := r.Get(name); ok {
			return v, nil
		}
		created, err := create()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.docs[name] = created
		r.mu.Unlock()
		return created, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// RemoveIfEmpty deletes the entry for name if isEmpty reports true for it,
// per spec I3 ("on graceful close of the last session, the document is
// removed from the registry before returning"). It reports whether it
// removed the entry.
func (r *Registry[T]) RemoveIfEmpty(name string, isEmpty func(T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.docs[name]
	if !ok || !isEmpty(v) {
		return false
	}
	delete(r.docs, name)
	return true
}

// Remove unconditionally deletes the entry for name. Admin invalidation does
// not call it: closing every session makes the document remove itself via
// RemoveIfEmpty.
func (r *Registry[T]) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, name)
}

// Len reports the number of live entries, chiefly for tests asserting I1/I2.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}
