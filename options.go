package weavedi

import (
	"context"
	"log/slog"
	"time"
)

// ResolveHook observes every resolution attempt: key, wall time spent and the
// error, if any. Hooks run on the resolving goroutine.
type ResolveHook func(key ServiceKey, duration time.Duration, err error)

// OverwriteHook observes a registration replacing an existing binding.
// Last write always wins and no error is raised; this hook exists purely so
// callers can spot two subsystems racing for the same key. It runs on the
// container's serialization worker and must not call blocking container
// methods.
type OverwriteHook func(key ServiceKey, previousAge time.Duration)

type ContainerConfiguration struct {
	Ctx                      context.Context
	Logger                   *slog.Logger
	Optimizer                OptimizerConfig
	SilenceOverwriteWarnings bool
	OnResolve                []ResolveHook
	OnOverwrite              []OverwriteHook
}

type ContainerOption func(*ContainerConfiguration)

var (
	// WithWorkerContext bounds the lifetime of the container's
	// serialization worker; when ctx is done the container closes itself.
	WithWorkerContext = func(ctx context.Context) ContainerOption {
		return func(conf *ContainerConfiguration) { conf.Ctx = ctx }
	}

	SilenceOverwriteWarnings ContainerOption = func(conf *ContainerConfiguration) { conf.SilenceOverwriteWarnings = true }

	// WithOptimizerDisabled turns hot-path promotion off; usage counting
	// stays active for Stats.
	WithOptimizerDisabled ContainerOption = func(conf *ContainerConfiguration) { conf.Optimizer.Enabled = false }
)

func WithLogger(l *slog.Logger) ContainerOption {
	return func(conf *ContainerConfiguration) { conf.Logger = l }
}

func WithOptimizer(cfg OptimizerConfig) ContainerOption {
	return func(conf *ContainerConfiguration) { conf.Optimizer = cfg }
}

func WithResolveObserver(hook ResolveHook) ContainerOption {
	return func(conf *ContainerConfiguration) { conf.OnResolve = append(conf.OnResolve, hook) }
}

func WithOverwriteObserver(hook OverwriteHook) ContainerOption {
	return func(conf *ContainerConfiguration) { conf.OnOverwrite = append(conf.OnOverwrite, hook) }
}
