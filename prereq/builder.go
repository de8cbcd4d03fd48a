package prereq

// NewTrait builds a trait comparison. At least one of min, max, exact
// must be non-nil.
func NewTrait(name string, min, max, exact *int) (*Trait, error) {
	if name == "" {
		return nil, invalidf("trait name cannot be empty")
	}
	if min == nil && max == nil && exact == nil {
		return nil, invalidf("trait %q must specify at least one bound", name)
	}
	if min != nil && max != nil && *min > *max {
		return nil, invalidf("trait %q has min %d greater than max %d", name, *min, *max)
	}
	return &Trait{Name: name, Min: min, Max: max, Exact: exact}, nil
}

// TraitMin builds the common "trait at least n" requirement.
func TraitMin(name string, min int) (*Trait, error) {
	return NewTrait(name, Int(min), nil, nil)
}

// NewPossession builds an ownership requirement over a named
// collection. The filter may be empty, in which case owning any object
// in the collection satisfies the node.
func NewPossession(collection string, filter Filter) (*Possession, error) {
	if collection == "" {
		return nil, invalidf("possession collection field cannot be empty")
	}
	return &Possession{Collection: collection, Filter: filter}, nil
}

// NewTagCount builds a tagged-object count comparison. At least one of
// min, max must be non-nil.
func NewTagCount(collection, tag string, min, max *int) (*TagCount, error) {
	if collection == "" {
		return nil, invalidf("tag count collection field cannot be empty")
	}
	if tag == "" {
		return nil, invalidf("tag count tag cannot be empty")
	}
	if min == nil && max == nil {
		return nil, invalidf("tag count for %q must specify at least one bound", tag)
	}
	if min != nil && max != nil && *min > *max {
		return nil, invalidf("tag count for %q has minimum %d greater than maximum %d", tag, *min, *max)
	}
	return &TagCount{Collection: collection, Tag: tag, Min: min, Max: max}, nil
}

// NewAllOf builds a conjunction. Child order is preserved in result
// trees. An empty conjunction is valid and passes vacuously.
func NewAllOf(children ...Requirement) (*AllOf, error) {
	if err := checkChildren(children); err != nil {
		return nil, err
	}
	return &AllOf{Children: children}, nil
}

// NewAnyOf builds a disjunction. Child order is preserved in result
// trees. An empty disjunction is valid and fails vacuously.
func NewAnyOf(children ...Requirement) (*AnyOf, error) {
	if err := checkChildren(children); err != nil {
		return nil, err
	}
	return &AnyOf{Children: children}, nil
}

func checkChildren(children []Requirement) error {
	for i, c := range children {
		if c == nil {
			return invalidf("child %d is nil", i)
		}
	}
	return nil
}
