package weavedi

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// usageCounter tracks one key's resolutions: total since registration, and
// within the current sweep window.
type usageCounter struct {
	total  atomic.Int64
	window atomic.Int64
}

// optimizer is the usage tracker and hot-path cache. Promotion mirrors a
// frequently resolved factory into a ristretto cache; reads served from there
// skip the registry, the guard and the counters, trading exact counting and
// strict consistency with concurrent releases for throughput.
type optimizer struct {
	cfg OptimizerConfig
	log *slog.Logger

	counters sync.Map // ServiceKey -> *usageCounter
	hot      *ristretto.Cache[string, Factory]
	hotKeys  sync.Map // ServiceKey -> struct{}; demotion bookkeeping

	noted     atomic.Int64
	lastSweep atomic.Int64 // unix nanos
	closed    atomic.Bool
}

func newOptimizer(cfg OptimizerConfig, log *slog.Logger) (*optimizer, error) {
	o := &optimizer{
		cfg: cfg,
		log: log,
	}
	o.lastSweep.Store(time.Now().UnixNano())

	if !cfg.Enabled {
		return o, nil
	}

	hot, err := ristretto.NewCache(&ristretto.Config[string, Factory]{
		NumCounters: cfg.MaxHotEntries * 10,
		MaxCost:     cfg.MaxHotEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	o.hot = hot

	return o, nil
}

// lookup serves the promoted fast path.
func (o *optimizer) lookup(key ServiceKey) (Factory, bool) {
	if o.hot == nil || o.closed.Load() {
		return nil, false
	}

	return o.hot.Get(string(key))
}

// note records one successful non-scoped resolution and drives promotion and
// the opportunistic demotion sweep. promotable is false for shared bindings:
// their instance cache already short-circuits ahead of the hot cache, and a
// hot entry would wrongly re-run their factory.
func (o *optimizer) note(key ServiceKey, factory Factory, promotable bool) {
	counter := o.counter(key)
	counter.total.Add(1)
	window := counter.window.Add(1)

	if o.hot == nil || o.closed.Load() {
		return
	}

	if promotable && window >= o.cfg.PromotionThreshold {
		if _, already := o.hotKeys.LoadOrStore(key, struct{}{}); !already {
			o.hot.Set(string(key), factory, 1)
			// Set is buffered; flush so the promotion is immediately visible.
			o.hot.Wait()
			o.log.Debug("promoted to hot path", "service", string(key), "usage", counter.total.Load())
		}
	}

	if o.cfg.SweepEvery > 0 && o.noted.Add(1)%o.cfg.SweepEvery == 0 {
		o.sweep(time.Now())
	}
}

// sweep demotes hot entries that went cold during the last window, then
// resets every window counter. Runs at most once per cooldown interval;
// best-effort by design, never surfaces to callers.
func (o *optimizer) sweep(now time.Time) {
	last := o.lastSweep.Load()
	if now.UnixNano()-last < int64(o.cfg.CooldownInterval) {
		return
	}

	if !o.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	o.hotKeys.Range(func(k, _ any) bool {
		key := k.(ServiceKey)
		if o.counter(key).window.Load() < o.cfg.DemotionFloor {
			o.demote(key)
		}

		return true
	})

	o.counters.Range(func(_, v any) bool {
		v.(*usageCounter).window.Store(0)

		return true
	})
}

func (o *optimizer) demote(key ServiceKey) {
	o.hot.Del(string(key))
	o.hotKeys.Delete(key)
	o.log.Debug("demoted from hot path", "service", string(key))
}

// invalidate drops every piece of derived state for key. Called by the
// serialized mutation that releases or replaces the binding, before the new
// state is considered live.
func (o *optimizer) invalidate(key ServiceKey) {
	if o.hot != nil && !o.closed.Load() {
		o.hot.Del(string(key))
		o.hotKeys.Delete(key)
	}

	o.counters.Delete(key)
}

func (o *optimizer) reset() {
	o.counters.Range(func(k, _ any) bool {
		o.counters.Delete(k)

		return true
	})

	if o.hot == nil || o.closed.Load() {
		return
	}

	o.hot.Clear()
	o.hotKeys.Range(func(k, _ any) bool {
		o.hotKeys.Delete(k)

		return true
	})
}

func (o *optimizer) counter(key ServiceKey) *usageCounter {
	if v, ok := o.counters.Load(key); ok {
		return v.(*usageCounter)
	}

	v, _ := o.counters.LoadOrStore(key, &usageCounter{})

	return v.(*usageCounter)
}

func (o *optimizer) usage() map[ServiceKey]int64 {
	out := make(map[ServiceKey]int64)
	o.counters.Range(func(k, v any) bool {
		out[k.(ServiceKey)] = v.(*usageCounter).total.Load()

		return true
	})

	return out
}

func (o *optimizer) hotServiceKeys() []ServiceKey {
	keys := make([]ServiceKey, 0)
	o.hotKeys.Range(func(k, _ any) bool {
		keys = append(keys, k.(ServiceKey))

		return true
	})

	slices.Sort(keys)

	return keys
}

func (o *optimizer) close() {
	if o.closed.Swap(true) {
		return
	}

	if o.hot != nil {
		o.hot.Close()
	}
}
