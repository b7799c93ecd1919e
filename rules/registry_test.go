package rules

import (
	"testing"

	"github.com/JonMunkholm/reshape/schema"
)

// stubRule is a minimal rule for registry tests.
type stubRule struct {
	BaseRule
}

func (s *stubRule) Validate(any, schema.TargetField, Context) ValidationResult {
	return Valid()
}

func newStubRule(id, ruleType string) *stubRule {
	return &stubRule{BaseRule: BaseRule{RuleID: id, RuleType: ruleType}}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubRule("a", "format"))

	if _, ok := r.Get("a"); !ok {
		t.Error("expected rule a to be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing rule to not be found")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubRule("a", "format"))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register(newStubRule("a", "format"))
}

func TestRegistryByType(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubRule("a", "format"))
	r.Register(newStubRule("b", "format"))
	r.Register(newStubRule("c", "range"))

	if got := len(r.ByType("format")); got != 2 {
		t.Errorf("ByType(format) returned %d rules, want 2", got)
	}
	if got := len(r.ByType("range")); got != 1 {
		t.Errorf("ByType(range) returned %d rules, want 1", got)
	}
	if got := len(r.ByType("nope")); got != 0 {
		t.Errorf("ByType(nope) returned %d rules, want 0", got)
	}
}

func TestRegistryForField(t *testing.T) {
	r := DefaultRegistry()

	required := schema.TargetField{Name: "name", Type: schema.FieldString, Required: true}
	optional := schema.TargetField{Name: "age", Type: schema.FieldNumber}

	// Required field gets both reference rules.
	if got := len(r.ForField(required)); got != 2 {
		t.Errorf("ForField(required) returned %d rules, want 2", got)
	}

	// Optional field gets only the type rule.
	forOptional := r.ForField(optional)
	if len(forOptional) != 1 {
		t.Fatalf("ForField(optional) returned %d rules, want 1", len(forOptional))
	}
	if forOptional[0].ID() != "type" {
		t.Errorf("ForField(optional)[0] = %s, want type", forOptional[0].ID())
	}
}

func TestRegistryForFieldSkipsDisabled(t *testing.T) {
	r := NewRegistry()
	disabled := newStubRule("off", "format")
	disabled.Disabled = true
	r.Register(disabled)
	r.Register(newStubRule("on", "format"))

	forField := r.ForField(schema.TargetField{Name: "x"})
	if len(forField) != 1 || forField[0].ID() != "on" {
		t.Errorf("expected only enabled rule, got %d rules", len(forField))
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubRule("a", "format"))
	r.Register(newStubRule("b", "format"))

	r.Unregister("a")
	if _, ok := r.Get("a"); ok {
		t.Error("expected rule a to be removed")
	}
	if got := len(r.ByType("format")); got != 1 {
		t.Errorf("ByType(format) after unregister returned %d, want 1", got)
	}

	// Unregistering an unknown id is a no-op.
	r.Unregister("missing")
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryClear(t *testing.T) {
	r := DefaultRegistry()
	r.Clear()

	if r.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", r.Count())
	}
	if got := len(r.All()); got != 0 {
		t.Errorf("All() after Clear returned %d rules, want 0", got)
	}
}

func TestRegistryAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubRule("zeta", "format"))
	r.Register(newStubRule("alpha", "format"))

	all := r.All()
	if len(all) != 2 || all[0].ID() != "alpha" || all[1].ID() != "zeta" {
		t.Errorf("All() not sorted by id: got %v, %v", all[0].ID(), all[1].ID())
	}
}
