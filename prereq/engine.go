package prereq

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/exp/maps"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Engine evaluates requirement trees against fact providers. It holds
// no per-evaluation state, so one Engine can serve any number of
// concurrent Check calls. The zero configuration (NewEngine with no
// options) audits nowhere and logs through slog's default logger.
type Engine struct {
	audit AuditSink
	log   *slog.Logger
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuditSink records every evaluation outcome to sink. Sink errors
// are logged and swallowed; auditing never affects the result.
func WithAuditSink(sink AuditSink) Option {
	return func(e *Engine) { e.audit = sink }
}

// WithLogger sets the logger used for audit failures.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check evaluates one requirement tree against one character's facts
// and returns a result tree mirroring the requirement's shape.
//
// Unmet bounds, missing traits and empty collections are not errors:
// they produce Passed=false with a message citing observed vs required
// values. The only error case is a fact-provider failure, returned as
// a *ProviderError with a nil result.
func (e *Engine) Check(r Requirement, facts FactProvider) (*CheckResult, error) {
	if r == nil {
		return nil, invalidf("cannot check nil requirement")
	}
	if facts == nil {
		return nil, errors.New("fact provider is required")
	}

	result, err := e.check(r, facts)
	if err != nil {
		return nil, err
	}

	if e.audit != nil {
		entry := AuditEntry{
			Requirement: r,
			Provider:    providerIdentity(facts),
			Result:      result,
			Timestamp:   e.now(),
		}
		if err := e.audit.Record(entry); err != nil {
			e.log.Warn("audit record failed", "provider", entry.Provider, "error", err)
		}
	}

	return result, nil
}

// check walks the tree depth-first, left to right. Composite nodes
// evaluate every child even after the outcome is decided so the result
// tree always reports each sub-requirement's status.
func (e *Engine) check(r Requirement, facts FactProvider) (*CheckResult, error) {
	switch n := r.(type) {
	case *Trait:
		return e.checkTrait(n, facts)
	case *Possession:
		return e.checkPossession(n, facts)
	case *TagCount:
		return e.checkTagCount(n, facts)
	case *AllOf:
		return e.checkAllOf(n, facts)
	case *AnyOf:
		return e.checkAnyOf(n, facts)
	default:
		return nil, invalidf("unknown requirement type %T", r)
	}
}

func (e *Engine) checkTrait(n *Trait, facts FactProvider) (*CheckResult, error) {
	value, ok, err := facts.Trait(n.Name)
	if err != nil {
		return nil, &ProviderError{Op: fmt.Sprintf("trait %q", n.Name), Err: err}
	}

	label := titleWord(n.Name)
	if !ok {
		return &CheckResult{
			Kind:    KindTrait,
			Message: fmt.Sprintf("%s requirement not met (trait not found)", label),
		}, nil
	}

	if n.Min != nil && value < *n.Min {
		return &CheckResult{
			Kind:    KindTrait,
			Message: fmt.Sprintf("%s requirement not met (%d < %d)", label, value, *n.Min),
		}, nil
	}
	if n.Max != nil && value > *n.Max {
		return &CheckResult{
			Kind:    KindTrait,
			Message: fmt.Sprintf("%s requirement not met (%d > %d)", label, value, *n.Max),
		}, nil
	}
	if n.Exact != nil && value != *n.Exact {
		return &CheckResult{
			Kind:    KindTrait,
			Message: fmt.Sprintf("%s requirement not met (%d != %d)", label, value, *n.Exact),
		}, nil
	}

	return &CheckResult{
		Passed:  true,
		Kind:    KindTrait,
		Message: fmt.Sprintf("%s requirement met (%d)", label, value),
	}, nil
}

func (e *Engine) checkPossession(n *Possession, facts FactProvider) (*CheckResult, error) {
	found, err := facts.HasMatch(n.Collection, n.Filter)
	if err != nil {
		return nil, &ProviderError{Op: fmt.Sprintf("match in %q", n.Collection), Err: err}
	}

	what := describeFilter(n.Filter)
	if !found {
		return &CheckResult{
			Kind:    KindPossession,
			Message: fmt.Sprintf("No %s found in %s", what, n.Collection),
		}, nil
	}
	return &CheckResult{
		Passed:  true,
		Kind:    KindPossession,
		Message: fmt.Sprintf("Found %s in %s", what, n.Collection),
	}, nil
}

func (e *Engine) checkTagCount(n *TagCount, facts FactProvider) (*CheckResult, error) {
	count, err := facts.CountTagged(n.Collection, n.Tag)
	if err != nil {
		return nil, &ProviderError{Op: fmt.Sprintf("count tag %q in %q", n.Tag, n.Collection), Err: err}
	}

	if n.Min != nil && count < *n.Min {
		return &CheckResult{
			Kind:    KindTagCount,
			Message: fmt.Sprintf("Not enough %s tagged %q (%d < %d)", n.Collection, n.Tag, count, *n.Min),
		}, nil
	}
	if n.Max != nil && count > *n.Max {
		return &CheckResult{
			Kind:    KindTagCount,
			Message: fmt.Sprintf("Too many %s tagged %q (%d > %d)", n.Collection, n.Tag, count, *n.Max),
		}, nil
	}
	return &CheckResult{
		Passed:  true,
		Kind:    KindTagCount,
		Message: fmt.Sprintf("%d %s tagged %q", count, n.Collection, n.Tag),
	}, nil
}

func (e *Engine) checkAllOf(n *AllOf, facts FactProvider) (*CheckResult, error) {
	children, failed, err := e.checkChildren(n.Children, facts)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		Kind:     KindAllOf,
		Children: children,
	}
	if failed == 0 {
		result.Passed = true
		result.Message = fmt.Sprintf("All %d requirements met", len(children))
		if len(children) == 0 {
			result.Message = "No requirements to meet"
		}
	} else {
		result.Message = fmt.Sprintf("%d of %d requirements not met", failed, len(children))
	}
	return result, nil
}

func (e *Engine) checkAnyOf(n *AnyOf, facts FactProvider) (*CheckResult, error) {
	children, failed, err := e.checkChildren(n.Children, facts)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		Kind:     KindAnyOf,
		Children: children,
	}
	switch {
	case len(children) == 0:
		result.Message = "No requirements to choose from"
	case failed < len(children):
		result.Passed = true
		result.Message = fmt.Sprintf("%d of %d alternatives met", len(children)-failed, len(children))
	default:
		result.Message = fmt.Sprintf("None of %d alternatives met", len(children))
	}
	return result, nil
}

// checkChildren evaluates every child in order with no short-circuit.
func (e *Engine) checkChildren(nodes []Requirement, facts FactProvider) ([]*CheckResult, int, error) {
	results := make([]*CheckResult, 0, len(nodes))
	failed := 0
	for _, child := range nodes {
		res, err := e.check(child, facts)
		if err != nil {
			return nil, 0, err
		}
		if !res.Passed {
			failed++
		}
		results = append(results, res)
	}
	return results, failed, nil
}

func providerIdentity(facts FactProvider) string {
	if id, ok := facts.(Identified); ok {
		return id.Identity()
	}
	return "unknown"
}

// titleWord capitalizes the first letter of a trait name for messages,
// so "strength" reads as "Strength requirement not met".
func titleWord(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// describeFilter renders a filter for possession messages.
func describeFilter(f Filter) string {
	if f.Empty() {
		return "object"
	}
	var parts []string
	if f.Name != "" {
		parts = append(parts, f.Name)
	}
	if f.ID != "" {
		parts = append(parts, fmt.Sprintf("id=%s", f.ID))
	}
	keys := maps.Keys(f.Attributes)
	slices.Sort(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f.Attributes[k]))
	}
	return strings.Join(parts, " ")
}
