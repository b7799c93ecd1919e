package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/reshape/schema"
)

// Registry holds validation rules indexed by id and by type. It is an
// explicit mutable collection constructed once at startup and effectively
// immutable afterwards; the mutex exists for safe setup and for tests.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]Rule
	byType map[string][]string // type -> rule ids, registration order
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]Rule),
		byType: make(map[string][]string),
	}
}

// DefaultRegistry returns a registry with the reference rules registered:
// required-field checking and type coercion-and-check.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewRequiredRule())
	r.Register(NewTypeRule())
	return r
}

// Register adds a rule to the registry.
// Panics if a rule with the same id is already registered.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rule.ID()]; exists {
		panic(fmt.Sprintf("rule already registered: %s", rule.ID()))
	}

	r.byID[rule.ID()] = rule
	r.byType[rule.Type()] = append(r.byType[rule.Type()], rule.ID())
}

// Get returns a rule by id.
// Returns false if not found.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.byID[id]
	return rule, ok
}

// ByType returns all rules of the given type in registration order.
func (r *Registry) ByType(ruleType string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byType[ruleType]
	result := make([]Rule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := r.byID[id]; ok {
			result = append(result, rule)
		}
	}
	return result
}

// ForField returns the enabled rules that apply to the given field, sorted
// by rule id for deterministic validation order.
func (r *Registry) ForField(field schema.TargetField) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Rule
	for _, rule := range r.byID {
		if rule.Enabled() && rule.AppliesTo(field) {
			result = append(result, rule)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Unregister removes a rule by id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)

	ids := r.byType[rule.Type()]
	for i, rid := range ids {
		if rid == id {
			r.byType[rule.Type()] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byType[rule.Type()]) == 0 {
		delete(r.byType, rule.Type())
	}
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// All returns every registered rule sorted by id.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Rule, 0, len(r.byID))
	for _, rule := range r.byID {
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Clear removes all registered rules.
// Primarily useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]Rule)
	r.byType = make(map[string][]string)
}
