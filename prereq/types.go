// Package prereq models nested logical prerequisites for tabletop-RPG
// characters (trait minimums, owned items, tagged-object counts) and
// evaluates them against a character's current facts. Requirement
// trees are plain data: built once, checked many times, serialized to
// a small JSON format for storage.
package prereq

// Kind identifies a Requirement variant. The values double as the
// top-level keys of the wire format.
type Kind string

const (
	KindTrait      Kind = "trait"
	KindPossession Kind = "has"
	KindTagCount   Kind = "count_tag"
	KindAllOf      Kind = "all"
	KindAnyOf      Kind = "any"
)

// Requirement is one node in a prerequisite expression tree. Trees are
// built bottom-up through the New* constructors and never mutated
// afterwards, so a Requirement may be shared across any number of
// concurrent Check calls.
//
// Exactly five types implement this interface: Trait, Possession,
// TagCount, AllOf and AnyOf. The engine dispatches on the concrete type
// with an exhaustive switch; there is no way to add a variant from
// outside the package.
type Requirement interface {
	Kind() Kind

	// isRequirement keeps the variant set closed.
	isRequirement()
}

// Trait compares a named numeric character trait against one or more
// bounds. Min and Max are inclusive; Exact requires equality. At least
// one bound must be set, and every bound that is set must hold.
type Trait struct {
	Name  string
	Min   *int
	Max   *int
	Exact *int
}

// Possession requires at least one object in a named collection to
// match the filter. An empty filter matches any object, so the node
// then reads as "owns anything in this collection".
type Possession struct {
	Collection string
	Filter     Filter
}

// TagCount counts the objects in a collection carrying a tag and
// compares the count against inclusive bounds. At least one bound must
// be set.
type TagCount struct {
	Collection string
	Tag        string
	Min        *int
	Max        *int
}

// AllOf passes when every child passes. Children keep their order so
// result trees are deterministic; order has no effect on the outcome.
// An empty AllOf passes vacuously.
type AllOf struct {
	Children []Requirement
}

// AnyOf passes when at least one child passes. An empty AnyOf fails
// vacuously.
type AnyOf struct {
	Children []Requirement
}

func (*Trait) Kind() Kind      { return KindTrait }
func (*Possession) Kind() Kind { return KindPossession }
func (*TagCount) Kind() Kind   { return KindTagCount }
func (*AllOf) Kind() Kind      { return KindAllOf }
func (*AnyOf) Kind() Kind      { return KindAnyOf }

func (*Trait) isRequirement()      {}
func (*Possession) isRequirement() {}
func (*TagCount) isRequirement()   {}
func (*AllOf) isRequirement()      {}
func (*AnyOf) isRequirement()      {}

// Int returns a pointer to v, for filling in optional bounds.
func Int(v int) *int {
	return &v
}
