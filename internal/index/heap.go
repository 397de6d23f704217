package index

import (
	"container/heap"
	"sort"
)

type candidate struct {
	id    string
	dist  float64
	order int
}

// worse reports whether a ranks after b: greater distance, or equal distance
// with later insertion order.
func worse(a, b candidate) bool {
	if a.dist != b.dist {
		return a.dist > b.dist
	}
	return a.order > b.order
}

// resultHeap is a max-heap of the k best candidates seen so far, worst at the
// top so it can be evicted in O(log k).
type resultHeap []candidate

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK keeps the k nearest candidates using a bounded max-heap.
type topK struct {
	k    int
	heap resultHeap
}

func newTopK(k int) *topK {
	return &topK{k: k, heap: make(resultHeap, 0, k)}
}

func (t *topK) push(c candidate) {
	if t.k <= 0 {
		return
	}
	if len(t.heap) < t.k {
		heap.Push(&t.heap, c)
		return
	}
	if worse(t.heap[0], c) {
		t.heap[0] = c
		heap.Fix(&t.heap, 0)
	}
}

// full reports whether k candidates are held.
func (t *topK) full() bool { return len(t.heap) >= t.k }

// bound is the current k-th best distance, or +Inf semantics via ok=false
// when fewer than k candidates are held.
func (t *topK) bound() (float64, bool) {
	if !t.full() {
		return 0, false
	}
	return t.heap[0].dist, true
}

// hits drains the heap into ascending order.
func (t *topK) hits() []Hit {
	out := make([]candidate, len(t.heap))
	copy(out, t.heap)
	sort.Slice(out, func(i, j int) bool { return worse(out[j], out[i]) })
	hits := make([]Hit, len(out))
	for i, c := range out {
		hits[i] = Hit{ID: c.id, Distance: c.dist}
	}
	return hits
}
