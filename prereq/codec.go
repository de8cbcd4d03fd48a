package prereq

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire format: one top-level key per variant.
//
//	{"trait": {"name": "strength", "min": 3}}
//	{"has": {"field": "weapons", "name": "Magic Sword"}}
//	{"count_tag": {"model": "spheres", "tag": "elemental", "minimum": 2}}
//	{"all": [ ... ]}
//	{"any": [ ... ]}
//
// Unknown top-level keys, unknown sub-fields, missing required
// sub-fields and non-array all/any values are all rejected with
// ErrInvalidRequirement at decode time, so a tree that deserialized
// successfully can never fail structurally mid-walk.

type traitDoc struct {
	Name  string `json:"name"`
	Min   *int   `json:"min,omitempty"`
	Max   *int   `json:"max,omitempty"`
	Exact *int   `json:"exact,omitempty"`
}

type possessionDoc struct {
	Field      string         `json:"field"`
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type tagCountDoc struct {
	Model string `json:"model"`
	Tag   string `json:"tag"`
	Min   *int   `json:"minimum,omitempty"`
	Max   *int   `json:"maximum,omitempty"`
}

// Marshal encodes a requirement tree into the wire format.
func Marshal(r Requirement) ([]byte, error) {
	doc, err := encode(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func encode(r Requirement) (map[string]any, error) {
	switch n := r.(type) {
	case *Trait:
		return map[string]any{"trait": traitDoc{
			Name: n.Name, Min: n.Min, Max: n.Max, Exact: n.Exact,
		}}, nil
	case *Possession:
		return map[string]any{"has": possessionDoc{
			Field:      n.Collection,
			ID:         n.Filter.ID,
			Name:       n.Filter.Name,
			Attributes: n.Filter.Attributes,
		}}, nil
	case *TagCount:
		return map[string]any{"count_tag": tagCountDoc{
			Model: n.Collection, Tag: n.Tag, Min: n.Min, Max: n.Max,
		}}, nil
	case *AllOf:
		children, err := encodeChildren(n.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"all": children}, nil
	case *AnyOf:
		children, err := encodeChildren(n.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"any": children}, nil
	case nil:
		return nil, invalidf("cannot marshal nil requirement")
	default:
		return nil, invalidf("unknown requirement type %T", r)
	}
}

func encodeChildren(children []Requirement) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(children))
	for _, c := range children {
		doc, err := encode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Unmarshal decodes a wire-format document into a requirement tree,
// running the same validation as the builders.
func Unmarshal(data []byte) (Requirement, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalidf("malformed document: %v", err)
	}
	return decode(doc)
}

func decode(doc map[string]json.RawMessage) (Requirement, error) {
	if len(doc) != 1 {
		return nil, invalidf("document must have exactly one variant key, got %d", len(doc))
	}

	for key, raw := range doc {
		switch Kind(key) {
		case KindTrait:
			var td traitDoc
			if err := decodeStrict(raw, &td); err != nil {
				return nil, fmt.Errorf("trait: %w", err)
			}
			return NewTrait(td.Name, td.Min, td.Max, td.Exact)

		case KindPossession:
			var pd possessionDoc
			if err := decodeStrict(raw, &pd); err != nil {
				return nil, fmt.Errorf("has: %w", err)
			}
			return NewPossession(pd.Field, Filter{
				ID: pd.ID, Name: pd.Name, Attributes: pd.Attributes,
			})

		case KindTagCount:
			var cd tagCountDoc
			if err := decodeStrict(raw, &cd); err != nil {
				return nil, fmt.Errorf("count_tag: %w", err)
			}
			return NewTagCount(cd.Model, cd.Tag, cd.Min, cd.Max)

		case KindAllOf:
			children, err := decodeChildren(key, raw)
			if err != nil {
				return nil, err
			}
			return NewAllOf(children...)

		case KindAnyOf:
			children, err := decodeChildren(key, raw)
			if err != nil {
				return nil, err
			}
			return NewAnyOf(children...)

		default:
			return nil, invalidf("unknown variant %q", key)
		}
	}

	// len(doc) == 1 guarantees the loop returns.
	panic("unreachable")
}

func decodeChildren(key string, raw json.RawMessage) ([]Requirement, error) {
	// json.Unmarshal accepts null for a slice; here that would decode
	// into an empty (always-passing for "all") composite.
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, invalidf("%s must be an array, got null", key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalidf("%s must be an array: %v", key, err)
	}
	children := make([]Requirement, 0, len(items))
	for i, item := range items {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(item, &doc); err != nil {
			return nil, invalidf("%s[%d]: malformed document: %v", key, i, err)
		}
		child, err := decode(doc)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		children = append(children, child)
	}
	return children, nil
}

// decodeStrict rejects unknown sub-fields so typos like "minimun" fail
// loudly instead of silently dropping a bound.
func decodeStrict(raw json.RawMessage, target any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return invalidf("%v", err)
	}
	return nil
}
