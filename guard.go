package weavedi

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type resolutionFrame struct {
	key       ServiceKey
	startedAt time.Time
	poisoned  bool
}

type resolutionStack struct {
	frames  []resolutionFrame
	active  map[ServiceKey]struct{}
	failure *CircularDependencyError
}

// resolutionGuard tracks in-flight resolution frames per goroutine. Nested
// resolutions run on the caller's goroutine, so one goroutine is one logical
// resolution call tree: two concurrent top-level resolutions of the same key
// never see each other's frames.
//
// A factory that spawns its own goroutine and resolves from there starts a
// fresh call tree; cycles crossing that boundary are not detected.
type resolutionGuard struct {
	stacks sync.Map // goroutine id -> *resolutionStack
}

func newResolutionGuard() *resolutionGuard {
	return &resolutionGuard{}
}

// begin pushes a frame for key. If key is already on this call tree's stack
// it fails with *CircularDependencyError and poisons every in-flight frame:
// the whole chain that led into the cycle must fail, not just the innermost
// resolve.
func (g *resolutionGuard) begin(key ServiceKey) error {
	gid := goroutineID()

	var stack *resolutionStack
	if v, ok := g.stacks.Load(gid); ok {
		stack = v.(*resolutionStack)
	} else {
		stack = &resolutionStack{active: make(map[ServiceKey]struct{}, 4)}
		g.stacks.Store(gid, stack)
	}

	if _, inFlight := stack.active[key]; inFlight {
		chain := make([]ServiceKey, 0, len(stack.frames))
		for i := range stack.frames {
			stack.frames[i].poisoned = true
			chain = append(chain, stack.frames[i].key)
		}

		err := newCircularDependencyError(key, chain)
		if stack.failure == nil {
			stack.failure = err
		}

		return err
	}

	stack.active[key] = struct{}{}
	stack.frames = append(stack.frames, resolutionFrame{key: key, startedAt: time.Now()})

	return nil
}

// end pops key's frame. It returns the recorded chain failure when the frame
// was poisoned by a cycle detected beneath it. Must be called exactly once
// per successful begin, on every path.
func (g *resolutionGuard) end(key ServiceKey) error {
	gid := goroutineID()

	v, ok := g.stacks.Load(gid)
	if !ok {
		return nil
	}
	stack := v.(*resolutionStack)

	delete(stack.active, key)

	var err error
	for i := len(stack.frames) - 1; i >= 0; i-- {
		if stack.frames[i].key != key {
			continue
		}

		if stack.frames[i].poisoned {
			err = stack.failure
		}

		stack.frames = append(stack.frames[:i], stack.frames[i+1:]...)
		break
	}

	if len(stack.frames) == 0 {
		g.stacks.Delete(gid)
	}

	return err
}

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	id, _ := strconv.ParseInt(fields[0], 10, 64)

	return id
}
