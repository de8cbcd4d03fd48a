package prereq

// CheckResult is the outcome of evaluating one requirement node. The
// result tree mirrors the requirement tree shape exactly: composite
// nodes carry one child result per child requirement, in the same
// order, and leaves carry none. A result is built fresh on every Check
// and owned by the caller.
type CheckResult struct {
	Passed   bool           `json:"passed"`
	Message  string         `json:"message"`
	Kind     Kind           `json:"type"`
	Children []*CheckResult `json:"children,omitempty"`
}

// FailureReasons collects the messages of failing leaf nodes,
// depth-first, so callers can show a flat explanation list without
// re-walking the tree. A passing result yields nil. Failing composite
// nodes contribute their failing children's reasons rather than their
// own summary line; a failing composite with no children at all (an
// empty AnyOf) contributes its own message so the list is never empty
// for a failed check.
func (r *CheckResult) FailureReasons() []string {
	if r == nil || r.Passed {
		return nil
	}
	var reasons []string
	r.collectFailures(&reasons)
	return reasons
}

func (r *CheckResult) collectFailures(reasons *[]string) {
	if r.Passed {
		return
	}
	if len(r.Children) == 0 {
		*reasons = append(*reasons, r.Message)
		return
	}
	for _, child := range r.Children {
		child.collectFailures(reasons)
	}
}
