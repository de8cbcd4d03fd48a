package prereq

// Filter selects objects within a collection. All set fields must
// match; the zero Filter matches every object. Attribute values are
// compared with loose equality so numbers decoded from JSON match
// regardless of int/float representation.
type Filter struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Empty reports whether the filter matches unconditionally.
func (f Filter) Empty() bool {
	return f.ID == "" && f.Name == "" && len(f.Attributes) == 0
}

// FactProvider answers read-only queries about one character's current
// traits and possessions. The engine issues O(tree nodes) queries per
// Check and never mutates the provider; concurrent Checks against the
// same provider are safe as long as the provider itself is not being
// mutated mid-flight.
//
// The backing store is opaque here: implementations range from an
// in-memory sheet to a SQL database.
type FactProvider interface {
	// Trait returns the value of a named trait, or ok=false when the
	// character has no such trait. An absent trait is not an error.
	Trait(name string) (value int, ok bool, err error)

	// HasMatch reports whether at least one object in the named
	// collection matches the filter.
	HasMatch(collection string, filter Filter) (bool, error)

	// CountTagged returns how many objects in the named collection
	// carry the tag.
	CountTagged(collection, tag string) (int, error)
}

// Identified is optionally implemented by fact providers that can name
// the character they answer for. The engine uses it to fill in the
// provider identity on audit entries.
type Identified interface {
	Identity() string
}
