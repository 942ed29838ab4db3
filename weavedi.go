package weavedi

import "reflect"

// Disposer removes exactly the registration that produced it. Calling it
// twice is a no-op, and it leaves later registrations of the same key alone.
type Disposer func()

// Stats is a consistent snapshot of the container, taken on the
// serialization worker.
type Stats struct {
	// Registered is the number of process-lifetime bindings.
	Registered int
	// ScopedRegistered is the number of bindings across all scopes.
	ScopedRegistered int
	// TotalResolutions counts every successful resolution, hot path included.
	TotalResolutions int64
	// Resolved maps each non-scoped key to its usage count. Hot-path hits
	// bypass counting, so promoted keys undercount by design.
	Resolved map[ServiceKey]int64
	// HotKeys lists the currently promoted keys in sorted order.
	HotKeys []ServiceKey
}

// Container is the dependency-resolution engine: a registry of service
// bindings with named scopes, cycle detection and usage-driven hot-path
// caching. All methods are safe for concurrent use.
//
// Mutating methods come in two flavors: the plain ones block until the
// mutation is applied by the serialization worker, the *Async ones return a
// one-shot channel instead. Resolve never throws for an unregistered key;
// absence is reported through the boolean.
//
// This interface is sealed.
type Container interface {
	sealed()

	// Register stores a binding for key; the last registration always
	// wins, silently. shared bindings are resolved once and cached until
	// released.
	Register(key ServiceKey, factory Factory, shared bool) Disposer
	// RegisterInstance stores an already-constructed value as a shared
	// binding.
	RegisterInstance(key ServiceKey, instance any) Disposer
	// RegisterScoped stores a binding under (scope, key); it is invisible
	// to Resolve and released in bulk by ReleaseScope.
	RegisterScoped(scope ScopeKey, key ServiceKey, factory Factory, shared bool) Disposer

	// Resolve returns the instance for key, or ok=false when no binding
	// exists. The only error it produces is *CircularDependencyError.
	Resolve(key ServiceKey) (instance any, ok bool, err error)
	// ResolveScoped looks only in scope; an unscoped binding of the same
	// key is a different binding and is never consulted.
	ResolveScoped(scope ScopeKey, key ServiceKey) (instance any, ok bool, err error)

	// Release removes key's binding and every derived cache entry.
	// Releasing an absent key is a no-op.
	Release(key ServiceKey)
	// ReleaseAll resets the registry, all scopes and all derived state.
	ReleaseAll()
	// ReleaseScope removes every binding under scope and returns the count.
	ReleaseScope(scope ScopeKey) int
	// ReleaseScoped removes one scoped binding and reports whether it
	// existed.
	ReleaseScoped(scope ScopeKey, key ServiceKey) bool

	RegisterAsync(key ServiceKey, factory Factory, shared bool) <-chan Disposer
	RegisterInstanceAsync(key ServiceKey, instance any) <-chan Disposer
	RegisterScopedAsync(scope ScopeKey, key ServiceKey, factory Factory, shared bool) <-chan Disposer
	ReleaseAsync(key ServiceKey) <-chan struct{}
	ReleaseScopeAsync(scope ScopeKey) <-chan int
	StatsAsync() <-chan Stats

	Stats() Stats

	// Close stops the serialization worker. Reads keep serving the frozen
	// state; further mutations are dropped with a warning log. Idempotent.
	Close()
}

// RegisterFor registers factory under T's key.
func RegisterFor[T any](c Container, factory func() T, shared bool) Disposer {
	return c.Register(KeyOf[T](), func() any { return factory() }, shared)
}

// RegisterInstanceFor registers instance under T's key as a shared binding.
func RegisterInstanceFor[T any](c Container, instance T) Disposer {
	return c.RegisterInstance(KeyOf[T](), instance)
}

// Resolve resolves T's binding. Unlike Container.Resolve it upgrades absence
// to *ServiceNotFoundError and a factory producing the wrong shape to
// *TypeMismatchError; that policy lives here, not in the engine.
func Resolve[T any](c Container) (T, error) {
	return resolveAs[T](c, KeyOf[T]())
}

// ResolveNamed resolves the binding registered under KeyNamed[T](name).
func ResolveNamed[T any](c Container, name string) (T, error) {
	return resolveAs[T](c, KeyNamed[T](name))
}

// MustResolve is Resolve that panics on any error.
func MustResolve[T any](c Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}

	return v
}

func resolveAs[T any](c Container, key ServiceKey) (T, error) {
	var zero T

	instance, ok, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}

	if !ok {
		return zero, newServiceNotFoundError(key)
	}

	typed, ok := instance.(T)
	if !ok {
		expected := reflect.TypeOf((*T)(nil)).Elem()

		return zero, newTypeMismatchError(key, expected, reflect.TypeOf(instance))
	}

	return typed, nil
}
