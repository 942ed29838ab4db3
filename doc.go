/*
Package weavedi is an in-process dependency-resolution runtime.
It maps service identities to factories or singleton instances, resolves them
under concurrent access, and manages their lifetime through named scopes.
Frequently resolved bindings are promoted into a lock-light hot-path cache,
so steady-state lookups of busy services skip the registry entirely.

To install weavedi:

	go get -u github.com/Roy-wonji/weavedi

How to use:

	type Logger interface {
		Log(msg string)
	}

	type consoleLogger struct{}

	func (consoleLogger) Log(msg string) { fmt.Println(msg) }

	c := weavedi.New()
	defer c.Close()

	dispose := weavedi.RegisterFor[Logger](c, func() Logger {
		return consoleLogger{}
	}, true) // shared: resolved once, cached until released
	defer dispose()

	log, err := weavedi.Resolve[Logger](c)
	if err != nil {
		// handle error
	}
	log.Log("hello")

Scoped bindings live in named buckets and are released in bulk:

	scope := weavedi.ScopeKey{Kind: "request", ID: "r1"}
	c.RegisterScoped(scope, weavedi.KeyOf[*RequestCtx](), newRequestCtx, true)

	ctx, ok, err := c.ResolveScoped(scope, weavedi.KeyOf[*RequestCtx]())
	// ...
	removed := c.ReleaseScope(scope)

Resolution of an unregistered key is not an error: Container.Resolve reports
absence through its second return value. The one failure the engine produces
on its own is *CircularDependencyError, raised when a factory transitively
resolves its own key. Typed wrappers (Resolve[T], MustResolve[T]) upgrade
absence and bad assertions into errors for call sites that want them.

Functions:
  - weavedi.New
  - weavedi.KeyOf / weavedi.KeyNamed
  - weavedi.RegisterFor / weavedi.RegisterInstanceFor
  - weavedi.Resolve / weavedi.MustResolve
  - weavedi.Prepare
  - weavedi.SetDefaultLogger

The container's mutating operations are serialized on a single worker; the
plain methods block until the mutation is applied, while the *Async variants
return one-shot result channels for call sites that must not block. Callbacks
that execute on the worker (see WithOverwriteObserver) must never invoke a
blocking container method: the wait would starve the only goroutine able to
complete it.
*/
package weavedi
