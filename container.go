package weavedi

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var _ Container = new(container)

// command is one serialized mutation. apply runs on the worker; cancel, if
// set, delivers zero results when the container shuts down before apply runs.
type command struct {
	apply  func()
	cancel func()
	done   chan struct{}
}

type container struct {
	registry  *typeRegistry
	scopes    *scopeStore
	guard     *resolutionGuard
	optimizer *optimizer
	log       *slog.Logger

	commands  chan command
	closed    chan struct{}
	closeMu   sync.RWMutex
	isClosed  bool
	closeOnce sync.Once

	warnOnOverwrite bool
	onResolve       []ResolveHook
	onOverwrite     []OverwriteHook

	totalResolutions atomic.Int64
}

// New returns a Container assembled from opts.
func New(opts ...ContainerOption) Container {
	conf := ContainerConfiguration{
		Ctx:       context.Background(),
		Optimizer: DefaultOptimizerConfig(),
	}

	for _, opt := range opts {
		opt(&conf)
	}

	log := conf.Logger
	if log == nil {
		log = logger()
	}

	opt, err := newOptimizer(conf.Optimizer, log)
	if err != nil {
		// Promotion is best-effort; run with plain lookups instead.
		log.Warn("hot path cache unavailable", "error", err)

		disabled := conf.Optimizer
		disabled.Enabled = false
		opt, _ = newOptimizer(disabled, log)
	}

	c := &container{
		registry:        newTypeRegistry(),
		scopes:          newScopeStore(),
		guard:           newResolutionGuard(),
		optimizer:       opt,
		log:             log,
		commands:        make(chan command, 64),
		closed:          make(chan struct{}),
		warnOnOverwrite: !conf.SilenceOverwriteWarnings,
		onResolve:       conf.OnResolve,
		onOverwrite:     conf.OnOverwrite,
	}

	go c.run(conf.Ctx)

	return c
}

func (c *container) sealed() {}

// run drains the command queue. It is the single writer for registry and
// scope state: commands apply one at a time, in submission order.
func (c *container) run(ctx context.Context) {
	for {
		select {
		case cmd := <-c.commands:
			cmd.apply()
			close(cmd.done)
		case <-ctx.Done():
			c.Close()
			c.drain()
			return
		case <-c.closed:
			c.drain()
			return
		}
	}
}

// drain settles commands that were still queued when the container closed.
// Their mutations are dropped; waiters are released with zero results.
func (c *container) drain() {
	for {
		select {
		case cmd := <-c.commands:
			if cmd.cancel != nil {
				cmd.cancel()
			}
			close(cmd.done)
		default:
			c.optimizer.close()
			return
		}
	}
}

// submit hands a mutation to the worker. The returned channel closes once
// the mutation was applied, or immediately when the container is closed.
func (c *container) submit(apply, cancel func()) <-chan struct{} {
	cmd := command{apply: apply, cancel: cancel, done: make(chan struct{})}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	if c.isClosed {
		if cancel != nil {
			cancel()
		}
		close(cmd.done)
		c.log.Warn("container is closed; operation dropped")

		return cmd.done
	}

	c.commands <- cmd

	return cmd.done
}

func (c *container) Close() {
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.isClosed = true
		c.closeMu.Unlock()

		close(c.closed)
	})
}

// install puts b under key. A hot entry left over from a previous binding is
// dropped before the new one becomes visible, so the fast path can never
// serve a replaced factory.
func (c *container) install(key ServiceKey, b *binding) {
	previous, existed := c.registry.get(key)
	if existed {
		c.optimizer.invalidate(key)
	}

	c.registry.put(key, b)

	if !existed {
		return
	}

	age := time.Since(previous.createdAt)
	if c.warnOnOverwrite {
		c.log.Warn("replacing existing binding",
			"service", string(key),
			"previous_age", age.String(),
		)
	}

	for _, hook := range c.onOverwrite {
		hook(key, age)
	}
}

func (c *container) disposer(key ServiceKey, b *binding) Disposer {
	var once sync.Once

	return func() {
		once.Do(func() {
			<-c.submit(func() {
				if c.registry.removeExact(key, b) {
					c.optimizer.invalidate(key)
				}
			}, nil)
		})
	}
}

func (c *container) scopedDisposer(scope ScopeKey, key ServiceKey, b *binding) Disposer {
	var once sync.Once

	return func() {
		once.Do(func() {
			<-c.submit(func() {
				c.scopes.removeExact(scope, key, b)
			}, nil)
		})
	}
}

func (c *container) snapshot() Stats {
	return Stats{
		Registered:       c.registry.len(),
		ScopedRegistered: c.scopes.len(),
		TotalResolutions: c.totalResolutions.Load(),
		Resolved:         c.optimizer.usage(),
		HotKeys:          c.optimizer.hotServiceKeys(),
	}
}
