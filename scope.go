package weavedi

import "sync"

// ScopeKey names one lifetime bucket, e.g. {Kind: "request", ID: "r1"}.
// Bindings stored under a ScopeKey are released together.
type ScopeKey struct {
	Kind string
	ID   string
}

func (s ScopeKey) String() string {
	return s.Kind + "/" + s.ID
}

// scopeStore keeps per-scope sub-registries. Scoped bindings never reach the
// hot-path cache: their correct lifetime is scope-bounded, and a promoted
// mirror would outlive the scope.
type scopeStore struct {
	mu     sync.RWMutex
	scopes map[ScopeKey]map[ServiceKey]*binding
}

func newScopeStore() *scopeStore {
	return &scopeStore{scopes: make(map[ScopeKey]map[ServiceKey]*binding)}
}

func (s *scopeStore) put(scope ScopeKey, key ServiceKey, b *binding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.scopes[scope]
	if !ok {
		bucket = make(map[ServiceKey]*binding)
		s.scopes[scope] = bucket
	}

	bucket[key] = b
}

func (s *scopeStore) get(scope ScopeKey, key ServiceKey) (*binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.scopes[scope]
	if !ok {
		return nil, false
	}

	b, ok := bucket[key]

	return b, ok
}

// removeExact deletes (scope, key) only while it still holds b; see
// typeRegistry.removeExact.
func (s *scopeStore) removeExact(scope ScopeKey, key ServiceKey, b *binding) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.scopes[scope]
	if !ok {
		return false
	}

	if current, ok := bucket[key]; !ok || current != b {
		return false
	}

	delete(bucket, key)
	if len(bucket) == 0 {
		delete(s.scopes, scope)
	}

	return true
}

func (s *scopeStore) releaseScoped(scope ScopeKey, key ServiceKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.scopes[scope]
	if !ok {
		return false
	}

	if _, ok := bucket[key]; !ok {
		return false
	}

	delete(bucket, key)
	if len(bucket) == 0 {
		delete(s.scopes, scope)
	}

	return true
}

// releaseScope removes every binding under scope and reports how many.
func (s *scopeStore) releaseScope(scope ScopeKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.scopes[scope]
	if !ok {
		return 0
	}

	delete(s.scopes, scope)

	return len(bucket)
}

func (s *scopeStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes = make(map[ScopeKey]map[ServiceKey]*binding)
}

func (s *scopeStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, bucket := range s.scopes {
		total += len(bucket)
	}

	return total
}
