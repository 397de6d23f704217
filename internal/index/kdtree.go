package index

import (
	"math"
	"time"

	"vectoria/internal/vecmath"
)

// DefaultLeafSize is the node size below which a KD-tree subtree is stored as
// a flat leaf and scanned linearly.
const DefaultLeafSize = 16

// filterExpansion multiplies k during a filtered search so that selective
// filters still surface k survivors without a second pass.
const filterExpansion = 4

type kdNode struct {
	axis  int
	split float64
	left  *kdNode
	right *kdNode
	// leaf payload: indices into the point slice. Non-nil only on leaves.
	items []int
}

func (n *kdNode) leaf() bool { return n.items != nil }

// KDTree is a balanced KD-tree built by median split on the axis of maximum
// variance, with best-first branch-and-bound k-NN search. Exact for L2.
// High-dimensional inputs (d beyond roughly 20) degrade toward a linear scan.
type KDTree struct {
	points   []Point
	root     *kdNode
	leafSize int
	dim      int
	builtAt  time.Time
}

// NewKDTree creates a KD-tree index with the given leaf size.
// Non-positive leafSize falls back to DefaultLeafSize.
func NewKDTree(leafSize int) *KDTree {
	if leafSize <= 0 {
		leafSize = DefaultLeafSize
	}
	return &KDTree{leafSize: leafSize}
}

// Build constructs a fresh tree over the given points, replacing any prior
// state.
func (t *KDTree) Build(points []Point) {
	t.points = make([]Point, len(points))
	copy(t.points, points)
	t.dim = 0
	if len(t.points) > 0 {
		t.dim = len(t.points[0].Vector)
	}
	idx := make([]int, len(t.points))
	for i := range idx {
		idx[i] = i
	}
	t.root = t.buildNode(idx)
	t.builtAt = time.Now().UTC()
}

func (t *KDTree) buildNode(idx []int) *kdNode {
	if len(idx) == 0 {
		return nil
	}
	if len(idx) <= t.leafSize {
		return &kdNode{items: idx}
	}

	axis := t.spreadAxis(idx)
	mid := len(idx) / 2
	selectNth(idx, mid, func(a, b int) bool {
		return t.points[a].Vector[axis] < t.points[b].Vector[axis]
	})

	// Read the split value before recursing: the child builds reorder idx.
	split := t.points[idx[mid]].Vector[axis]
	return &kdNode{
		axis:  axis,
		split: split,
		left:  t.buildNode(idx[:mid]),
		right: t.buildNode(idx[mid:]),
	}
}

// spreadAxis picks the axis with maximum variance over the subset.
func (t *KDTree) spreadAxis(idx []int) int {
	best := 0
	bestVar := -1.0
	n := float64(len(idx))
	for axis := 0; axis < t.dim; axis++ {
		var sum, sumSq float64
		for _, i := range idx {
			v := t.points[i].Vector[axis]
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance > bestVar {
			bestVar = variance
			best = axis
		}
	}
	return best
}

// selectNth partially sorts idx so that idx[n] holds the element that would
// be at position n in full sorted order (quickselect).
func selectNth(idx []int, n int, less func(a, b int) bool) {
	lo, hi := 0, len(idx)-1
	for lo < hi {
		pivot := idx[(lo+hi)/2]
		i, j := lo, hi
		for i <= j {
			for less(idx[i], pivot) {
				i++
			}
			for less(pivot, idx[j]) {
				j--
			}
			if i <= j {
				idx[i], idx[j] = idx[j], idx[i]
				i++
				j--
			}
		}
		if n <= j {
			hi = j
		} else if n >= i {
			lo = i
		} else {
			return
		}
	}
}

// Search runs best-first branch-and-bound k-NN. The accept predicate is
// applied when scoring leaf points; under a filter the internal k is expanded
// and the result truncated so selective filters still fill k slots.
func (t *KDTree) Search(query []float64, k int, accept Accept) []Hit {
	if k <= 0 || t.root == nil {
		return nil
	}
	kk := k
	if accept != nil {
		kk = k * filterExpansion
	}
	top := newTopK(kk)
	t.searchNode(t.root, query, top, accept)
	hits := top.hits()
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Distance = math.Sqrt(hits[i].Distance)
	}
	return hits
}

func (t *KDTree) searchNode(n *kdNode, query []float64, top *topK, accept Accept) {
	if n.leaf() {
		for _, i := range n.items {
			p := t.points[i]
			if accept != nil && !accept(p.ID) {
				continue
			}
			top.push(candidate{id: p.ID, dist: vecmath.SquaredL2(query, p.Vector), order: i})
		}
		return
	}

	diff := query[n.axis] - n.split
	first, second := n.left, n.right
	if diff >= 0 {
		first, second = n.right, n.left
	}
	if first != nil {
		t.searchNode(first, query, top, accept)
	}
	if second != nil {
		// Visit the far side only while it can still beat the k-th hit.
		if bound, ok := top.bound(); !ok || diff*diff < bound {
			t.searchNode(second, query, top, accept)
		}
	}
}

// Stats reports size, build time and tree configuration.
func (t *KDTree) Stats() Stats {
	return Stats{
		Kind:    KindKDTree,
		Size:    len(t.points),
		BuiltAt: t.builtAt,
		Config: map[string]any{
			"leaf_size":  t.leafSize,
			"axis_rule":  "max_variance",
			"dimensions": t.dim,
		},
	}
}
