package prereq

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// stubFacts is a fixed-answer fact provider for engine tests.
type stubFacts struct {
	name    string
	traits  map[string]int
	matches map[string]bool // collection -> match exists
	counts  map[string]int  // collection/tag -> count
	failOn  string          // trait/collection name that errors
}

func (s *stubFacts) Trait(name string) (int, bool, error) {
	if name == s.failOn {
		return 0, false, fmt.Errorf("trait store unavailable")
	}
	v, ok := s.traits[name]
	return v, ok, nil
}

func (s *stubFacts) HasMatch(collection string, filter Filter) (bool, error) {
	if collection == s.failOn {
		return false, fmt.Errorf("collection store unavailable")
	}
	return s.matches[collection], nil
}

func (s *stubFacts) CountTagged(collection, tag string) (int, error) {
	if collection == s.failOn {
		return 0, fmt.Errorf("collection store unavailable")
	}
	return s.counts[collection+"/"+tag], nil
}

func (s *stubFacts) Identity() string { return s.name }

func warrior() *stubFacts {
	return &stubFacts{
		name:   "warrior",
		traits: map[string]int{"strength": 3, "arete": 2},
		matches: map[string]bool{
			"weapons": true,
		},
		counts: map[string]int{
			"spheres/elemental": 2,
		},
	}
}

func TestCheckTraitMinimum(t *testing.T) {
	engine := NewEngine()

	tr, _ := TraitMin("strength", 3)
	res, err := engine.Check(tr, warrior())
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if !res.Passed {
		t.Errorf("strength 3 against min 3 should pass, message: %q", res.Message)
	}
	if res.Kind != KindTrait {
		t.Errorf("Kind = %q, want %q", res.Kind, KindTrait)
	}
	if len(res.Children) != 0 {
		t.Error("leaf result should have no children")
	}
}

func TestCheckTraitMinimumFailureMessage(t *testing.T) {
	engine := NewEngine()
	facts := warrior()
	facts.traits["strength"] = 2

	tr, _ := TraitMin("strength", 3)
	res, err := engine.Check(tr, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if res.Passed {
		t.Fatal("strength 2 against min 3 should fail")
	}
	// The message cites observed vs required.
	if !strings.Contains(res.Message, "2") || !strings.Contains(res.Message, "3") {
		t.Errorf("message %q should contain both observed 2 and required 3", res.Message)
	}
	if res.Message != "Strength requirement not met (2 < 3)" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestCheckTraitNonASCIIName(t *testing.T) {
	engine := NewEngine()
	facts := &stubFacts{traits: map[string]int{"éclat": 1}}

	tr, _ := TraitMin("éclat", 3)
	res, err := engine.Check(tr, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if !strings.HasPrefix(res.Message, "Éclat ") {
		t.Errorf("message = %q, want the full first rune capitalized", res.Message)
	}
}

func TestCheckTraitBounds(t *testing.T) {
	engine := NewEngine()

	testCases := []struct {
		name            string
		min, max, exact *int
		value           int
		wantPass        bool
	}{
		{"min inclusive", Int(3), nil, nil, 3, true},
		{"below min", Int(3), nil, nil, 2, false},
		{"max inclusive", nil, Int(5), nil, 5, true},
		{"above max", nil, Int(5), nil, 6, false},
		{"exact match", nil, nil, Int(4), 4, true},
		{"exact mismatch", nil, nil, Int(4), 3, false},
		{"inside range", Int(1), Int(5), nil, 3, true},
		{"all bounds hold", Int(4), Int(4), Int(4), 4, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := NewTrait("willpower", tc.min, tc.max, tc.exact)
			if err != nil {
				t.Fatalf("NewTrait() failed: %v", err)
			}
			facts := &stubFacts{traits: map[string]int{"willpower": tc.value}}
			res, err := engine.Check(tr, facts)
			if err != nil {
				t.Fatalf("Check() failed: %v", err)
			}
			if res.Passed != tc.wantPass {
				t.Errorf("value %d: Passed = %v, want %v (message %q)", tc.value, res.Passed, tc.wantPass, res.Message)
			}
		})
	}
}

func TestCheckTraitAbsentFailsClosed(t *testing.T) {
	engine := NewEngine()

	tr, _ := TraitMin("charisma", 1)
	res, err := engine.Check(tr, warrior())
	if err != nil {
		t.Fatalf("absent trait must not be an error, got %v", err)
	}
	if res.Passed {
		t.Error("absent trait should fail")
	}
	if !strings.Contains(res.Message, "trait not found") {
		t.Errorf("message %q should say the trait was not found", res.Message)
	}
}

func TestCheckPossession(t *testing.T) {
	engine := NewEngine()

	p, _ := NewPossession("weapons", Filter{Name: "Magic Sword"})
	res, err := engine.Check(p, warrior())
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if !res.Passed {
		t.Errorf("possession should pass when provider reports a match, message: %q", res.Message)
	}

	facts := warrior()
	facts.matches["weapons"] = false
	res, err = engine.Check(p, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if res.Passed {
		t.Error("possession should fail when provider reports no match")
	}
	if !strings.Contains(res.Message, "Magic Sword") {
		t.Errorf("message %q should name the missing object", res.Message)
	}
}

func TestCheckTagCount(t *testing.T) {
	engine := NewEngine()

	testCases := []struct {
		name     string
		min, max *int
		wantPass bool
	}{
		{"enough tagged", Int(2), nil, true},
		{"too few tagged", Int(3), nil, false},
		{"under max", nil, Int(2), true},
		{"over max", nil, Int(1), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tag, err := NewTagCount("spheres", "elemental", tc.min, tc.max)
			if err != nil {
				t.Fatalf("NewTagCount() failed: %v", err)
			}
			res, err := engine.Check(tag, warrior())
			if err != nil {
				t.Fatalf("Check() failed: %v", err)
			}
			if res.Passed != tc.wantPass {
				t.Errorf("Passed = %v, want %v (message %q)", res.Passed, tc.wantPass, res.Message)
			}
		})
	}
}

func TestCheckAllOf(t *testing.T) {
	engine := NewEngine()
	facts := warrior() // strength 3, arete 2

	pass, _ := TraitMin("strength", 3)
	fail, _ := TraitMin("arete", 5)

	testCases := []struct {
		name     string
		children []Requirement
		wantPass bool
	}{
		{"both pass", []Requirement{pass, pass}, true},
		{"first fails", []Requirement{fail, pass}, false},
		{"second fails", []Requirement{pass, fail}, false},
		{"both fail", []Requirement{fail, fail}, false},
		{"empty passes vacuously", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			all, err := NewAllOf(tc.children...)
			if err != nil {
				t.Fatalf("NewAllOf() failed: %v", err)
			}
			res, err := engine.Check(all, facts)
			if err != nil {
				t.Fatalf("Check() failed: %v", err)
			}
			if res.Passed != tc.wantPass {
				t.Errorf("Passed = %v, want %v", res.Passed, tc.wantPass)
			}
			if len(res.Children) != len(tc.children) {
				t.Errorf("len(Children) = %d, want %d", len(res.Children), len(tc.children))
			}
		})
	}
}

func TestCheckAllOfNoShortCircuit(t *testing.T) {
	engine := NewEngine()
	facts := warrior()

	fail, _ := TraitMin("strength", 10)
	pass, _ := TraitMin("arete", 2)

	all, _ := NewAllOf(fail, pass)
	res, err := engine.Check(all, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if res.Passed {
		t.Fatal("conjunction with one failing child should fail")
	}
	// The second child is fully evaluated even though the outcome was
	// already decided by the first.
	if len(res.Children) != 2 {
		t.Fatalf("len(Children) = %d, want 2", len(res.Children))
	}
	second := res.Children[1]
	if !second.Passed {
		t.Error("second child should have been evaluated and passed")
	}
	if second.Message == "" {
		t.Error("second child should carry its full message")
	}
}

func TestCheckAnyOf(t *testing.T) {
	engine := NewEngine()
	facts := warrior()

	pass, _ := TraitMin("strength", 3)
	fail, _ := TraitMin("arete", 5)

	testCases := []struct {
		name     string
		children []Requirement
		wantPass bool
	}{
		{"both pass", []Requirement{pass, pass}, true},
		{"one passes", []Requirement{fail, pass}, true},
		{"both fail", []Requirement{fail, fail}, false},
		{"empty fails vacuously", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			anyOf, err := NewAnyOf(tc.children...)
			if err != nil {
				t.Fatalf("NewAnyOf() failed: %v", err)
			}
			res, err := engine.Check(anyOf, facts)
			if err != nil {
				t.Fatalf("Check() failed: %v", err)
			}
			if res.Passed != tc.wantPass {
				t.Errorf("Passed = %v, want %v", res.Passed, tc.wantPass)
			}
			if len(res.Children) != len(tc.children) {
				t.Errorf("len(Children) = %d, want %d (no short-circuit)", len(res.Children), len(tc.children))
			}
		})
	}
}

func TestCheckNestedTree(t *testing.T) {
	engine := NewEngine()
	facts := warrior()

	strength, _ := TraitMin("strength", 3)
	arete, _ := TraitMin("arete", 5) // fails
	sword, _ := NewPossession("weapons", Filter{Name: "Magic Sword"})
	alt, _ := NewAnyOf(arete, sword)
	root, _ := NewAllOf(strength, alt)

	res, err := engine.Check(root, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if !res.Passed {
		t.Errorf("nested tree should pass: strength met, sword owned; reasons: %v", res.FailureReasons())
	}
	if len(res.Children) != 2 || len(res.Children[1].Children) != 2 {
		t.Error("result tree should mirror requirement tree shape")
	}
}

func TestCheckProviderErrorAbortsCall(t *testing.T) {
	engine := NewEngine()
	facts := warrior()
	facts.failOn = "strength"

	tr, _ := TraitMin("strength", 3)
	res, err := engine.Check(tr, facts)
	if err == nil {
		t.Fatal("provider failure should surface as an error")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("error should be a *ProviderError, got %T", err)
	}
	if res != nil {
		t.Error("result should be nil on provider error")
	}
}

func TestCheckNilArguments(t *testing.T) {
	engine := NewEngine()

	if _, err := engine.Check(nil, warrior()); !errors.Is(err, ErrInvalidRequirement) {
		t.Errorf("nil requirement: got %v, want ErrInvalidRequirement", err)
	}
	tr, _ := TraitMin("strength", 3)
	if _, err := engine.Check(tr, nil); err == nil {
		t.Error("nil provider should be rejected")
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	engine := NewEngine()
	facts := warrior()

	tr, _ := TraitMin("strength", 3)
	sword, _ := NewPossession("weapons", Filter{Name: "Magic Sword"})
	root, _ := NewAllOf(tr, sword)

	first, err := engine.Check(root, facts)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.Check(root, facts)
		if err != nil {
			t.Fatalf("Check() failed on repeat %d: %v", i, err)
		}
		if again.Passed != first.Passed || again.Message != first.Message {
			t.Fatalf("repeat %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestCheckConcurrent(t *testing.T) {
	engine := NewEngine()
	facts := warrior()

	tr, _ := TraitMin("strength", 3)
	sphere, _ := NewTagCount("spheres", "elemental", Int(2), nil)
	root, _ := NewAllOf(tr, sphere)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.Check(root, facts)
			if err != nil {
				t.Errorf("concurrent Check() failed: %v", err)
				return
			}
			if !res.Passed {
				t.Errorf("concurrent Check() should pass, message: %q", res.Message)
			}
		}()
	}
	wg.Wait()
}

// recordingSink captures audit entries for assertions.
type recordingSink struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (s *recordingSink) Record(entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestCheckRecordsAudit(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(WithAuditSink(sink))

	tr, _ := TraitMin("strength", 3)
	if _, err := engine.Check(tr, warrior()); err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if len(sink.entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.Provider != "warrior" {
		t.Errorf("Provider = %q, want %q", entry.Provider, "warrior")
	}
	if entry.Result == nil || !entry.Result.Passed {
		t.Error("entry should carry the passing result")
	}
	if entry.Timestamp.IsZero() {
		t.Error("entry should carry a timestamp")
	}
}

func TestCheckAuditFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: fmt.Errorf("audit table gone")}
	engine := NewEngine(WithAuditSink(sink))

	tr, _ := TraitMin("strength", 3)
	res, err := engine.Check(tr, warrior())
	if err != nil {
		t.Fatalf("sink failure must not fail the check: %v", err)
	}
	if !res.Passed {
		t.Error("result should be unaffected by the sink")
	}
}
