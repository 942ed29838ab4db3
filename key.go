package weavedi

import (
	"reflect"
	"sync"
)

// ServiceKey identifies one logical service. Keys derived from the same Go
// type are always equal and keys derived from distinct types never collide;
// the string form is the canonical type path, so keys are totally ordered.
type ServiceKey string

var typeKeyCache sync.Map // reflect.Type -> ServiceKey

// KeyOf returns the ServiceKey for T.
func KeyOf[T any]() ServiceKey {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		// T is an interface type.
		t = reflect.TypeOf((*T)(nil)).Elem()
	}

	return keyFromType(t)
}

// KeyNamed returns the ServiceKey for T discriminated by name, letting
// several bindings of the same type coexist ("primary", "readonly", ...).
func KeyNamed[T any](name string) ServiceKey {
	return KeyOf[T]() + ServiceKey("#"+name)
}

func keyFromType(t reflect.Type) ServiceKey {
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(ServiceKey)
	}

	key := ServiceKey(buildTypeKey(t))
	typeKeyCache.Store(t, key)

	return key
}

func buildTypeKey(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + buildTypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeKey(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeKey(t.Key()) + "]" + buildTypeKey(t.Elem())
	case reflect.Chan:
		return "chan " + buildTypeKey(t.Elem())
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}

		return t.String()
	}
}
