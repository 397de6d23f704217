package index

import "fmt"

// New constructs an index variant from its kind tag. The LSH configuration is
// ignored by the exact variants.
func New(kind Kind, lsh LSHConfig) (Index, error) {
	switch kind {
	case KindLinear:
		return NewLinear(), nil
	case KindKDTree:
		return NewKDTree(DefaultLeafSize), nil
	case KindLSH:
		return NewLSH(lsh), nil
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
}
