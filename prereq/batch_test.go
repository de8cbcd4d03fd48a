package prereq

import (
	"errors"
	"testing"
)

func TestCheckMany(t *testing.T) {
	engine := NewEngine()
	facts := warrior()

	strength, _ := TraitMin("strength", 3)
	arete, _ := TraitMin("arete", 5)

	results, errs := engine.CheckMany(map[string]Requirement{
		"a": strength,
		"b": arete,
	}, facts)

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if !results["a"].Passed {
		t.Error("entry a should pass")
	}
	if results["b"].Passed {
		t.Error("entry b should fail")
	}

	// Each entry must equal a standalone evaluation.
	solo, err := engine.Check(arete, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if results["b"].Message != solo.Message {
		t.Errorf("batch entry diverges from standalone check: %q vs %q", results["b"].Message, solo.Message)
	}
}

func TestCheckManyIsolatesErrors(t *testing.T) {
	engine := NewEngine()
	facts := warrior()
	facts.failOn = "relics" // only requirement touching relics errors

	good, _ := TraitMin("strength", 3)
	bad, _ := NewPossession("relics", Filter{Name: "Grail"})

	results, errs := engine.CheckMany(map[string]Requirement{
		"good": good,
		"bad":  bad,
	}, facts)

	if len(results) != 1 || results["good"] == nil {
		t.Fatalf("healthy entry should still evaluate, results: %v", results)
	}
	if len(errs) != 1 || errs["bad"] == nil {
		t.Fatalf("failing entry should land in the error map, errs: %v", errs)
	}
	var perr *ProviderError
	if !errors.As(errs["bad"], &perr) {
		t.Errorf("error should be a *ProviderError, got %T", errs["bad"])
	}
	if _, dup := results["bad"]; dup {
		t.Error("a key must not appear in both maps")
	}
}

func TestCheckManyEmpty(t *testing.T) {
	engine := NewEngine()

	results, errs := engine.CheckMany(nil, warrior())
	if len(results) != 0 || errs != nil {
		t.Errorf("empty input: results %v, errs %v", results, errs)
	}
}

func TestCheckAcross(t *testing.T) {
	engine := NewEngine()

	strong := warrior()
	weak := warrior()
	weak.name = "apprentice"
	weak.traits = map[string]int{"strength": 1}

	tr, _ := TraitMin("strength", 3)
	results, errs := engine.CheckAcross(tr, []FactProvider{strong, weak})

	if len(results) != 2 || len(errs) != 2 {
		t.Fatalf("slices must be index-aligned with input, got %d/%d", len(results), len(errs))
	}
	if errs[0] != nil || errs[1] != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !results[0].Passed {
		t.Error("first character should pass")
	}
	if results[1].Passed {
		t.Error("second character should fail")
	}
}

func TestCheckAcrossIsolatesErrors(t *testing.T) {
	engine := NewEngine()

	healthy := warrior()
	broken := warrior()
	broken.failOn = "strength"

	tr, _ := TraitMin("strength", 3)
	results, errs := engine.CheckAcross(tr, []FactProvider{broken, healthy})

	if errs[0] == nil {
		t.Error("broken provider should report an error")
	}
	if results[0] != nil {
		t.Error("errored entry should have no result")
	}
	if errs[1] != nil || results[1] == nil || !results[1].Passed {
		t.Error("healthy provider should be unaffected by the broken one")
	}
}
