package weavedi

import "time"

func (c *container) Resolve(key ServiceKey) (any, bool, error) {
	start := time.Now()

	instance, ok, err := c.resolve(key)
	c.observeResolve(key, time.Since(start), err)

	return instance, ok, err
}

// resolve order matters: the materialized singleton is authoritative and
// short-circuits both the hot cache and the guard; a promoted factory skips
// the registry and the counters; everything else takes the guarded general
// path. A hot read racing a concurrent release may still serve the old
// factory once — the documented weak-consistency window.
func (c *container) resolve(key ServiceKey) (any, bool, error) {
	b, registered := c.registry.get(key)

	if registered && b.shared {
		if v := b.instance.Load(); v != nil {
			c.recordResolution(key, b, true)

			return *v, true, nil
		}
	}

	if factory, hot := c.optimizer.lookup(key); hot {
		c.totalResolutions.Add(1)

		return factory(), true, nil
	}

	if !registered {
		return nil, false, nil
	}

	return c.construct(key, b, true)
}

func (c *container) ResolveScoped(scope ScopeKey, key ServiceKey) (any, bool, error) {
	start := time.Now()

	instance, ok, err := c.resolveScoped(scope, key)
	c.observeResolve(key, time.Since(start), err)

	return instance, ok, err
}

func (c *container) resolveScoped(scope ScopeKey, key ServiceKey) (any, bool, error) {
	b, ok := c.scopes.get(scope, key)
	if !ok {
		return nil, false, nil
	}

	// Scoped bindings stay off the usage tracker: promotion is defined only
	// for process-lifetime bindings.
	return c.construct(key, b, false)
}

// construct runs the factory under the resolution guard. For shared bindings
// the instance is set inside the same critical section that observed the
// miss, so concurrent resolvers cannot construct twice; the guard is entered
// first so a self-cycle fails instead of self-deadlocking on the binding
// mutex.
func (c *container) construct(key ServiceKey, b *binding, counted bool) (any, bool, error) {
	if err := c.guard.begin(key); err != nil {
		return nil, false, err
	}

	ended := false
	defer func() {
		// Keeps the frame bookkeeping intact when a factory panics.
		if !ended {
			c.guard.end(key)
		}
	}()

	if b.shared {
		b.mu.Lock()
		defer b.mu.Unlock()

		if v := b.instance.Load(); v != nil {
			ended = true
			if err := c.guard.end(key); err != nil {
				return nil, false, err
			}

			c.recordResolution(key, b, counted)

			return *v, true, nil
		}

		v := b.factory()

		ended = true
		if err := c.guard.end(key); err != nil {
			// A cycle somewhere beneath this frame: do not cache the
			// half-built value.
			return nil, false, err
		}

		b.instance.Store(&v)
		c.recordResolution(key, b, counted)

		return v, true, nil
	}

	v := b.factory()

	ended = true
	if err := c.guard.end(key); err != nil {
		return nil, false, err
	}

	c.recordResolution(key, b, counted)

	return v, true, nil
}

func (c *container) recordResolution(key ServiceKey, b *binding, counted bool) {
	c.totalResolutions.Add(1)

	if counted {
		c.optimizer.note(key, b.factory, !b.shared)
	}
}

func (c *container) observeResolve(key ServiceKey, duration time.Duration, err error) {
	for _, hook := range c.onResolve {
		hook(key, duration, err)
	}
}
