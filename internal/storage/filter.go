package storage

import "fmt"

// PredicateOp selects a predicate form.
type PredicateOp string

const (
	OpEq    PredicateOp = "eq"
	OpIn    PredicateOp = "in"
	OpRange PredicateOp = "range"
)

// Predicate is one filter clause over a metadata field.
//
// Eq matches when the field equals Value. In matches when the field equals
// any of Values. Range matches when Min <= field <= Max; a nil bound leaves
// that side open. A missing field fails the clause unless AllowNull is set.
type Predicate struct {
	Op        PredicateOp `json:"op"`
	Value     Value       `json:"value,omitzero"`
	Values    []Value     `json:"values,omitempty"`
	Min       *Value      `json:"min,omitempty"`
	Max       *Value      `json:"max,omitempty"`
	AllowNull bool        `json:"allow_null,omitempty"`
}

// Filter is a conjunction of predicates keyed by field name. A chunk matches
// when every clause holds against its own metadata, falling back to the
// parent document's metadata for fields the chunk does not carry.
type Filter map[string]Predicate

// Validate rejects malformed filters before they reach an index search.
func (f Filter) Validate() error {
	for field, p := range f {
		switch p.Op {
		case OpEq:
		case OpIn:
			if len(p.Values) == 0 {
				return fmt.Errorf("%w: filter %q: membership set is empty", ErrInvalid, field)
			}
		case OpRange:
			if p.Min == nil && p.Max == nil {
				return fmt.Errorf("%w: filter %q: range needs at least one bound", ErrInvalid, field)
			}
			if p.Min != nil && p.Max != nil {
				if _, ok := p.Min.Compare(*p.Max); !ok {
					return fmt.Errorf("%w: filter %q: range bounds are not comparable", ErrInvalid, field)
				}
			}
		default:
			return fmt.Errorf("%w: filter %q: unsupported predicate %q", ErrInvalid, field, p.Op)
		}
	}
	return nil
}

// Matches evaluates the filter against a chunk's metadata with the document's
// metadata as fallback. Chunk keys shadow document keys.
func (f Filter) Matches(chunkMeta, docMeta Metadata) bool {
	for field, p := range f {
		v, ok := chunkMeta[field]
		if !ok {
			v, ok = docMeta[field]
		}
		if !ok {
			if p.AllowNull {
				continue
			}
			return false
		}
		if !p.matches(v) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(v Value) bool {
	switch p.Op {
	case OpEq:
		return v.Equal(p.Value)
	case OpIn:
		for _, want := range p.Values {
			if v.Equal(want) {
				return true
			}
		}
		return false
	case OpRange:
		if p.Min != nil {
			c, ok := v.Compare(*p.Min)
			if !ok || c < 0 {
				return false
			}
		}
		if p.Max != nil {
			c, ok := v.Compare(*p.Max)
			if !ok || c > 0 {
				return false
			}
		}
		return true
	}
	return false
}
