package weavedi_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Roy-wonji/weavedi"
)

var _ = Describe("usage tracking and hot path", func() {
	// Tight thresholds and an effectively infinite cooldown so promotion is
	// deterministic and no sweep interferes.
	promoteFast := weavedi.OptimizerConfig{
		Enabled:            true,
		PromotionThreshold: 3,
		DemotionFloor:      2,
		SweepEvery:         1000,
		CooldownInterval:   time.Hour,
		MaxHotEntries:      64,
	}

	It("should promote a non-shared binding once it crosses the threshold", func() {
		c := weavedi.New(weavedi.WithOptimizer(promoteFast))
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("renderer")
		factory, calls := countingFactory()
		c.Register(key, factory, false)

		for i := 0; i < 2; i++ {
			_, _, err := c.Resolve(key)
			Expect(err).ShouldNot(HaveOccurred())
		}

		Expect(c.Stats().HotKeys).To(BeEmpty())

		_, _, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())

		stats := c.Stats()
		Expect(stats.HotKeys).To(Equal([]weavedi.ServiceKey{key}))
		Expect(stats.Resolved[key]).To(Equal(int64(3)))
		Expect(calls.Load()).To(Equal(int64(3)))
	})

	It("should stop per-key counting once the hot path serves the key", func() {
		c := weavedi.New(weavedi.WithOptimizer(promoteFast))
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("renderer")
		factory, calls := countingFactory()
		c.Register(key, factory, false)

		for i := 0; i < 13; i++ {
			_, ok, err := c.Resolve(key)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		}

		stats := c.Stats()
		// Three counted resolutions earned the promotion; the ten served
		// from the hot cache counted only toward the global total.
		Expect(stats.Resolved[key]).To(Equal(int64(3)))
		Expect(stats.TotalResolutions).To(Equal(int64(13)))
		Expect(calls.Load()).To(Equal(int64(13)))
	})

	It("should never promote a shared binding", func() {
		c := weavedi.New(weavedi.WithOptimizer(promoteFast))
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("config")
		factory, calls := countingFactory()
		c.Register(key, factory, true)

		for i := 0; i < 20; i++ {
			_, _, err := c.Resolve(key)
			Expect(err).ShouldNot(HaveOccurred())
		}

		stats := c.Stats()
		Expect(stats.HotKeys).To(BeEmpty())
		Expect(stats.Resolved[key]).To(Equal(int64(20)))
		Expect(calls.Load()).To(Equal(int64(1)))
	})

	It("should demote a hot entry that went cold by the next sweep", func() {
		c := weavedi.New(weavedi.WithOptimizer(weavedi.OptimizerConfig{
			Enabled:            true,
			PromotionThreshold: 3,
			DemotionFloor:      4,
			SweepEvery:         5,
			CooldownInterval:   time.Nanosecond,
			MaxHotEntries:      64,
		}))
		DeferCleanup(c.Close)

		hotKey := weavedi.ServiceKey("burst")
		coldKey := weavedi.ServiceKey("steady")
		c.Register(hotKey, func() any { return NameProvider("burst") }, false)
		c.Register(coldKey, func() any { return NameProvider("steady") }, false)

		for i := 0; i < 3; i++ {
			c.Resolve(hotKey)
		}

		Expect(c.Stats().HotKeys).To(Equal([]weavedi.ServiceKey{hotKey}))

		// Two more counted resolutions land on the sweep boundary; the
		// burst key's window sits below the floor and it gets demoted.
		c.Resolve(coldKey)
		c.Resolve(coldKey)

		Expect(c.Stats().HotKeys).To(BeEmpty())
	})

	It("should keep a hot entry that stayed above the floor through a sweep", func() {
		c := weavedi.New(weavedi.WithOptimizer(weavedi.OptimizerConfig{
			Enabled:            true,
			PromotionThreshold: 3,
			DemotionFloor:      2,
			SweepEvery:         5,
			CooldownInterval:   time.Nanosecond,
			MaxHotEntries:      64,
		}))
		DeferCleanup(c.Close)

		hotKey := weavedi.ServiceKey("burst")
		coldKey := weavedi.ServiceKey("steady")
		c.Register(hotKey, func() any { return NameProvider("burst") }, false)
		c.Register(coldKey, func() any { return NameProvider("steady") }, false)

		for i := 0; i < 3; i++ {
			c.Resolve(hotKey)
		}

		c.Resolve(coldKey)
		c.Resolve(coldKey)

		Expect(c.Stats().HotKeys).To(Equal([]weavedi.ServiceKey{hotKey}))
	})

	It("should drop hot and counter state when the binding is released", func() {
		c := weavedi.New(weavedi.WithOptimizer(promoteFast))
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("renderer")
		factory, _ := countingFactory()
		c.Register(key, factory, false)

		for i := 0; i < 5; i++ {
			c.Resolve(key)
		}

		Expect(c.Stats().HotKeys).To(Equal([]weavedi.ServiceKey{key}))

		c.Release(key)

		stats := c.Stats()
		Expect(stats.HotKeys).To(BeEmpty())
		Expect(stats.Resolved).ToNot(HaveKey(key))

		_, ok, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should serve the new factory after a hot key is re-registered", func() {
		c := weavedi.New(weavedi.WithOptimizer(promoteFast))
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("renderer")
		c.Register(key, func() any { return NameProvider("old") }, false)

		for i := 0; i < 5; i++ {
			c.Resolve(key)
		}

		Expect(c.Stats().HotKeys).To(Equal([]weavedi.ServiceKey{key}))

		c.Register(key, func() any { return NameProvider("new") }, false)

		instance, ok, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(instance).To(Equal(NameProvider("new")))
	})

	It("should keep counting with promotion disabled", func() {
		c := weavedi.New(weavedi.WithOptimizerDisabled)
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("renderer")
		factory, calls := countingFactory()
		c.Register(key, factory, false)

		for i := 0; i < 25; i++ {
			_, _, err := c.Resolve(key)
			Expect(err).ShouldNot(HaveOccurred())
		}

		stats := c.Stats()
		Expect(stats.HotKeys).To(BeEmpty())
		Expect(stats.Resolved[key]).To(Equal(int64(25)))
		Expect(calls.Load()).To(Equal(int64(25)))
	})
})
