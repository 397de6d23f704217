package index

import (
	"math"
	"time"

	"vectoria/internal/vecmath"
)

// Linear is an exhaustive-scan index. Build is a copy; search scores every
// point. Exact, and the reference for the approximate variants.
type Linear struct {
	points  []Point
	builtAt time.Time
}

// NewLinear creates an empty linear index.
func NewLinear() *Linear {
	return &Linear{}
}

// Build replaces the stored points with a copy of the given points.
func (l *Linear) Build(points []Point) {
	l.points = make([]Point, len(points))
	copy(l.points, points)
	l.builtAt = time.Now().UTC()
}

// Search scans all points, keeping the k nearest in a bounded max-heap.
// The accept predicate is applied before scoring so filtered points never
// enter the heap.
func (l *Linear) Search(query []float64, k int, accept Accept) []Hit {
	if k <= 0 {
		return nil
	}
	top := newTopK(k)
	for i, p := range l.points {
		if accept != nil && !accept(p.ID) {
			continue
		}
		sq := vecmath.SquaredL2(query, p.Vector)
		if bound, ok := top.bound(); ok && sq > bound {
			continue
		}
		top.push(candidate{id: p.ID, dist: sq, order: i})
	}
	hits := top.hits()
	for i := range hits {
		hits[i].Distance = math.Sqrt(hits[i].Distance)
	}
	return hits
}

// Stats reports the index size and build time.
func (l *Linear) Stats() Stats {
	return Stats{
		Kind:    KindLinear,
		Size:    len(l.points),
		BuiltAt: l.builtAt,
	}
}
