package weavedi

// The engine's mutations are conceptually asynchronous: they are enqueued on
// the serialization worker and applied in submission order. The *Async
// methods expose that directly through one-shot result channels. The plain
// methods are the blocking bridge over them: enqueue, then wait on the
// signal.
//
// The bridge must never be driven from code executing on the worker itself
// (overwrite observers): the blocking wait would starve the only goroutine
// able to complete the pending operation. User factories run on the
// resolving caller's goroutine and are safe.

func (c *container) RegisterAsync(key ServiceKey, factory Factory, shared bool) <-chan Disposer {
	out := make(chan Disposer, 1)
	b := newBinding(factory, shared)

	c.submit(func() {
		c.install(key, b)
		out <- c.disposer(key, b)
	}, func() {
		out <- func() {}
	})

	return out
}

func (c *container) RegisterInstanceAsync(key ServiceKey, instance any) <-chan Disposer {
	out := make(chan Disposer, 1)

	b := newBinding(func() any { return instance }, true)
	value := instance
	b.instance.Store(&value)

	c.submit(func() {
		c.install(key, b)
		out <- c.disposer(key, b)
	}, func() {
		out <- func() {}
	})

	return out
}

func (c *container) RegisterScopedAsync(scope ScopeKey, key ServiceKey, factory Factory, shared bool) <-chan Disposer {
	out := make(chan Disposer, 1)
	b := newBinding(factory, shared)

	c.submit(func() {
		c.scopes.put(scope, key, b)
		out <- c.scopedDisposer(scope, key, b)
	}, func() {
		out <- func() {}
	})

	return out
}

func (c *container) ReleaseAsync(key ServiceKey) <-chan struct{} {
	return c.submit(func() {
		if c.registry.remove(key) {
			c.optimizer.invalidate(key)
		}
	}, nil)
}

func (c *container) ReleaseScopeAsync(scope ScopeKey) <-chan int {
	out := make(chan int, 1)

	c.submit(func() {
		out <- c.scopes.releaseScope(scope)
	}, func() {
		out <- 0
	})

	return out
}

func (c *container) StatsAsync() <-chan Stats {
	out := make(chan Stats, 1)

	c.submit(func() {
		out <- c.snapshot()
	}, func() {
		out <- Stats{}
	})

	return out
}

func (c *container) Register(key ServiceKey, factory Factory, shared bool) Disposer {
	return <-c.RegisterAsync(key, factory, shared)
}

func (c *container) RegisterInstance(key ServiceKey, instance any) Disposer {
	return <-c.RegisterInstanceAsync(key, instance)
}

func (c *container) RegisterScoped(scope ScopeKey, key ServiceKey, factory Factory, shared bool) Disposer {
	return <-c.RegisterScopedAsync(scope, key, factory, shared)
}

func (c *container) Release(key ServiceKey) {
	<-c.ReleaseAsync(key)
}

func (c *container) ReleaseAll() {
	<-c.submit(func() {
		c.registry.clear()
		c.scopes.clear()
		c.optimizer.reset()
	}, nil)
}

func (c *container) ReleaseScope(scope ScopeKey) int {
	return <-c.ReleaseScopeAsync(scope)
}

func (c *container) ReleaseScoped(scope ScopeKey, key ServiceKey) bool {
	released := false

	<-c.submit(func() {
		released = c.scopes.releaseScoped(scope, key)
	}, nil)

	return released
}

func (c *container) Stats() Stats {
	return <-c.StatsAsync()
}
