// Package character provides fact providers backed by character data:
// an in-memory Sheet for inline facts supplied over the API, and a
// sqlite-backed provider for characters living in a local database.
// Both answer the read-only queries the checking engine issues and
// never expose mutation to it.
package character

import (
	"reflect"
	"slices"

	"github.com/liamcoop/prereq/prereq"
)

// Object is one owned thing in a collection: a weapon, a spell, a
// sphere rating. ID and Name identify it; Tags and Attributes carry
// whatever the game content attaches.
type Object struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Sheet is an in-memory character: named numeric traits plus named
// collections of objects. It implements prereq.FactProvider directly,
// which makes it both the test double of choice and the carrier for
// inline facts in API requests.
//
// A Sheet is not safe for mutation concurrent with an in-flight check;
// callers that share one across goroutines must treat it as frozen.
type Sheet struct {
	Name        string              `json:"name"`
	Traits      map[string]int      `json:"traits,omitempty"`
	Collections map[string][]Object `json:"collections,omitempty"`
}

// Identity returns the character name for audit entries.
func (s *Sheet) Identity() string {
	return s.Name
}

// Trait returns the named trait value, or ok=false when the sheet has
// no such trait.
func (s *Sheet) Trait(name string) (int, bool, error) {
	v, ok := s.Traits[name]
	return v, ok, nil
}

// HasMatch reports whether any object in the collection matches the
// filter. An unknown collection simply has no matches.
func (s *Sheet) HasMatch(collection string, filter prereq.Filter) (bool, error) {
	for _, obj := range s.Collections[collection] {
		if obj.Matches(filter) {
			return true, nil
		}
	}
	return false, nil
}

// CountTagged returns how many objects in the collection carry the tag.
func (s *Sheet) CountTagged(collection, tag string) (int, error) {
	count := 0
	for _, obj := range s.Collections[collection] {
		if slices.Contains(obj.Tags, tag) {
			count++
		}
	}
	return count, nil
}

// Matches reports whether the object satisfies every set field of the
// filter. The zero filter matches everything.
func (o Object) Matches(filter prereq.Filter) bool {
	if filter.ID != "" && o.ID != filter.ID {
		return false
	}
	if filter.Name != "" && o.Name != filter.Name {
		return false
	}
	for key, want := range filter.Attributes {
		got, ok := o.Attributes[key]
		if !ok || !attrEqual(got, want) {
			return false
		}
	}
	return true
}

// attrEqual compares attribute values loosely across numeric types, so
// a filter decoded from JSON (float64) still matches a sheet built in
// Go with ints.
func attrEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, okb := toFloat(b)
		return okb && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

var _ prereq.FactProvider = (*Sheet)(nil)
var _ prereq.Identified = (*Sheet)(nil)
