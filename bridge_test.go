package weavedi_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/Roy-wonji/weavedi"
)

var _ = Describe("async engine and blocking bridge", func() {
	It("should deliver a disposer through the async register channel", func() {
		c := weavedi.New()
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("svc")
		dispose := <-c.RegisterAsync(key, func() any { return NameProvider("svc") }, false)

		_, ok, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		dispose()

		_, ok, err = c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should apply async mutations in submission order", func() {
		c := weavedi.New(weavedi.SilenceOverwriteWarnings)
		DeferCleanup(c.Close)

		key := weavedi.ServiceKey("svc")

		// Enqueue both registrations before waiting on either; the later
		// submission must win.
		first := c.RegisterAsync(key, func() any { return NameProvider("first") }, false)
		second := c.RegisterAsync(key, func() any { return NameProvider("second") }, false)
		<-first
		<-second

		instance, _, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(instance).To(Equal(NameProvider("second")))
	})

	It("should report scoped release counts through the async channel", func() {
		c := weavedi.New()
		DeferCleanup(c.Close)

		scope := weavedi.ScopeKey{Kind: "request", ID: "42"}
		c.RegisterScoped(scope, weavedi.ServiceKey("a"), func() any { return NameProvider("a") }, false)
		c.RegisterScoped(scope, weavedi.ServiceKey("b"), func() any { return NameProvider("b") }, false)

		Expect(<-c.ReleaseScopeAsync(scope)).To(Equal(2))
		Expect(<-c.ReleaseScopeAsync(scope)).To(Equal(0))
	})

	It("should serve a stats snapshot asynchronously", func() {
		c := weavedi.New()
		DeferCleanup(c.Close)

		c.Register(weavedi.ServiceKey("svc"), func() any { return NameProvider("svc") }, false)
		c.Resolve(weavedi.ServiceKey("svc"))

		stats := <-c.StatsAsync()
		Expect(stats.Registered).To(Equal(1))
		Expect(stats.TotalResolutions).To(Equal(int64(1)))
	})

	It("should tolerate Close being called more than once", func() {
		c := weavedi.New()

		c.Close()
		c.Close()
		c.Close()
	})

	It("should drop mutations after Close but keep serving reads", func() {
		c := weavedi.New()

		key := weavedi.ServiceKey("svc")
		c.Register(key, func() any { return NameProvider("svc") }, false)

		c.Close()

		// The dropped registration settles its waiter with a no-op disposer
		// instead of blocking forever.
		dispose := <-c.RegisterAsync(weavedi.ServiceKey("late"), func() any { return NameProvider("late") }, false)
		dispose()

		_, ok, err := c.Resolve(weavedi.ServiceKey("late"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())

		// State from before the close stays resolvable.
		instance, ok, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(instance).To(Equal(NameProvider("svc")))
	})

	It("should settle blocked waiters when still queued at close", func() {
		c := weavedi.New()
		c.Close()

		Expect(<-c.ReleaseScopeAsync(weavedi.ScopeKey{Kind: "request", ID: "1"})).To(BeZero())
		Expect(<-c.StatsAsync()).To(Equal(weavedi.Stats{}))

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Release(weavedi.ServiceKey("svc"))
			c.ReleaseAll()
		}()

		Eventually(done).Should(BeClosed())
	})

	It("should close itself when the worker context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		c := weavedi.New(weavedi.WithWorkerContext(ctx))

		key := weavedi.ServiceKey("svc")
		c.Register(key, func() any { return NameProvider("svc") }, false)

		cancel()

		// Once the worker notices the cancellation it shuts the container
		// down; stats waiters are then settled with the zero snapshot.
		Eventually(func() weavedi.Stats {
			return <-c.StatsAsync()
		}).Should(Equal(weavedi.Stats{}))

		_, ok, err := c.Resolve(key)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("should keep blocking and async paths consistent under concurrency", func() {
		c := weavedi.New(weavedi.SilenceOverwriteWarnings)
		DeferCleanup(c.Close)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()

				key := weavedi.KeyNamed[NameService]("worker")
				if i%2 == 0 {
					c.Register(key, func() any { return NameProvider("even") }, false)
				} else {
					<-c.RegisterAsync(key, func() any { return NameProvider("odd") }, false)
				}

				_, _, err := c.Resolve(key)
				Expect(err).ShouldNot(HaveOccurred())
			}(i)
		}

		wg.Wait()

		Expect(c.Stats().Registered).To(Equal(1))
	})

	It("should not leak goroutines after the container closes", func() {
		c := weavedi.New()
		c.Register(weavedi.ServiceKey("svc"), func() any { return NameProvider("svc") }, true)
		c.Resolve(weavedi.ServiceKey("svc"))
		c.Close()

		time.Sleep(time.Millisecond)
		err := goleak.Find(
			goleak.
				IgnoreTopFunction(
					"github.com/onsi/ginkgo/v2/internal.(*Suite).runNode",
				),
			goleak.
				IgnoreTopFunction(
					"github.com/onsi/ginkgo/v2/internal/interrupt_handler.(*InterruptHandler).registerForInterrupts.func2",
				),
			goleak.
				IgnoreAnyFunction(
					"github.com/onsi/ginkgo/v2/internal.RegisterForProgressSignal.func1",
				),
			goleak.
				IgnoreAnyFunction(
					"github.com/dgraph-io/ristretto/v2.(*Cache[...]).processItems",
				),
			goleak.
				IgnoreAnyFunction(
					"os/signal.NotifyContext.func1",
				),
		)

		Expect(err).ShouldNot(HaveOccurred())
	})
})
