package weavedi

import (
	"fmt"
	"reflect"
	"strings"
)

func newCircularDependencyError(key ServiceKey, chain []ServiceKey) *CircularDependencyError {
	return &CircularDependencyError{
		Key:   key,
		Chain: chain,
	}
}

// CircularDependencyError reports that resolving Key re-entered its own
// resolution chain. Chain holds the frames that were in flight, outermost
// first; Key closes the loop.
type CircularDependencyError struct {
	Key   ServiceKey
	Chain []ServiceKey
}

func (err *CircularDependencyError) Error() string {
	parts := make([]string, 0, len(err.Chain)+1)
	for _, key := range err.Chain {
		parts = append(parts, string(key))
	}

	parts = append(parts, string(err.Key))

	return fmt.Sprintf("circular dependency: %s", strings.Join(parts, " -> "))
}

func newServiceNotFoundError(key ServiceKey) *ServiceNotFoundError {
	return &ServiceNotFoundError{Key: key}
}

// ServiceNotFoundError upgrades an ordinary registry miss into an error.
// The core engine reports absence as a plain boolean; only the typed
// call-site wrappers produce this.
type ServiceNotFoundError struct {
	Key ServiceKey
}

func (err *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("no binding registered for %s", err.Key)
}

func newTypeMismatchError(key ServiceKey, expected, got reflect.Type) *TypeMismatchError {
	return &TypeMismatchError{
		Key:      key,
		Expected: expected,
		Got:      got,
	}
}

// TypeMismatchError reports that a binding's factory produced a value the
// typed call site cannot accept.
type TypeMismatchError struct {
	Key      ServiceKey
	Expected reflect.Type
	Got      reflect.Type
}

func (err *TypeMismatchError) Error() string {
	return fmt.Sprintf("binding for %s produced %v, want %v", err.Key, err.Got, err.Expected)
}
