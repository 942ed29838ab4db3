package weavedi

import (
	"sync"
	"sync/atomic"
	"time"
)

// Factory produces one service instance per invocation. Factories may call
// back into the container to resolve their own dependencies; the resolution
// guard catches the cyclic ones.
type Factory func() any

type binding struct {
	factory   Factory
	createdAt time.Time
	shared    bool
	instance  atomic.Pointer[any]
	mu        sync.Mutex // serializes shared materialization
}

func newBinding(factory Factory, shared bool) *binding {
	return &binding{
		factory:   factory,
		createdAt: time.Now(),
		shared:    shared,
	}
}

// typeRegistry is the ground-truth binding store. Reads are concurrent;
// writes only ever come from the container's serialization worker.
type typeRegistry struct {
	mu       sync.RWMutex
	bindings map[ServiceKey]*binding
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{bindings: make(map[ServiceKey]*binding)}
}

func (r *typeRegistry) put(key ServiceKey, b *binding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings[key] = b
}

func (r *typeRegistry) get(key ServiceKey) (*binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[key]

	return b, ok
}

func (r *typeRegistry) remove(key ServiceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[key]; !ok {
		return false
	}

	delete(r.bindings, key)

	return true
}

// removeExact deletes key only while it still holds b, so a disposer cannot
// tear down a binding registered after its own.
func (r *typeRegistry) removeExact(key ServiceKey, b *binding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.bindings[key]; !ok || current != b {
		return false
	}

	delete(r.bindings, key)

	return true
}

func (r *typeRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings = make(map[ServiceKey]*binding)
}

func (r *typeRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings)
}
