package weavedi

import "sync"

// Lazy resolves its service on first use and hands back the cached result
// afterwards. It is the explicit form of a field-level injector: same
// resolve-once semantics, no language magic.
type Lazy[T any] func() (T, error)

// Prepare returns a Lazy accessor for T. A failed first resolution is not
// cached; the next call tries again.
func Prepare[T any](c Container) Lazy[T] {
	var (
		mu     sync.Mutex
		cached T
		have   bool
	)

	return func() (T, error) {
		mu.Lock()
		defer mu.Unlock()

		if have {
			return cached, nil
		}

		v, err := Resolve[T](c)
		if err != nil {
			var zero T

			return zero, err
		}

		cached, have = v, true

		return v, nil
	}
}
