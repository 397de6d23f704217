package index

import (
	"fmt"
	"math/rand"
	"testing"
)

func randomPoints(rng *rand.Rand, n, dim int) []Point {
	points := make([]Point, n)
	for i := range points {
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = rng.NormFloat64()
		}
		points[i] = Point{ID: fmt.Sprintf("p%04d", i), Vector: vec}
	}
	return points
}

func hitIDs(hits []Hit) map[string]bool {
	ids := make(map[string]bool, len(hits))
	for _, h := range hits {
		ids[h.ID] = true
	}
	return ids
}

func TestKDTree_SearchAxisQuery(t *testing.T) {
	idx := NewKDTree(0)
	idx.Build(axisPoints())

	hits := idx.Search([]float64{0.9, 0.1, 0}, 2, nil)
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].ID != "a" || hits[1].ID != "b" {
		t.Errorf("hits = [%s %s], want [a b]", hits[0].ID, hits[1].ID)
	}
}

func TestKDTree_MatchesLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := randomPoints(rng, 500, 8)

	linear := NewLinear()
	linear.Build(points)
	tree := NewKDTree(0)
	tree.Build(points)

	for q := 0; q < 50; q++ {
		query := make([]float64, 8)
		for j := range query {
			query[j] = rng.NormFloat64()
		}

		want := linear.Search(query, 10, nil)
		got := tree.Search(query, 10, nil)

		if len(got) != len(want) {
			t.Fatalf("query %d: tree returned %d hits, linear %d", q, len(got), len(want))
		}
		wantIDs := hitIDs(want)
		for _, h := range got {
			if !wantIDs[h.ID] {
				t.Errorf("query %d: tree hit %s not in linear top-k", q, h.ID)
			}
		}
	}
}

func TestKDTree_OrderingAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	points := randomPoints(rng, 200, 4)

	tree := NewKDTree(0)
	tree.Build(points)

	hits := tree.Search([]float64{0, 0, 0, 0}, 20, nil)
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Fatalf("hits not ascending at %d: %v after %v", i, hits[i].Distance, hits[i-1].Distance)
		}
	}
}

func TestKDTree_FilteredSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := randomPoints(rng, 300, 6)

	// Accept one point in ten; the expanded internal k must still find the
	// exact filtered top-k.
	accept := func(id string) bool { return id[3] == '0' }

	linear := NewLinear()
	linear.Build(points)
	tree := NewKDTree(0)
	tree.Build(points)

	query := make([]float64, 6)
	want := linear.Search(query, 5, accept)
	got := tree.Search(query, 5, accept)

	if len(got) != len(want) {
		t.Fatalf("tree returned %d filtered hits, linear %d", len(got), len(want))
	}
	for i := range got {
		if got[i].ID != want[i].ID {
			t.Errorf("filtered hit %d = %s, want %s", i, got[i].ID, want[i].ID)
		}
	}
	for _, h := range got {
		if !accept(h.ID) {
			t.Errorf("hit %s does not satisfy the filter", h.ID)
		}
	}
}

func TestKDTree_RebuildIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	points := randomPoints(rng, 100, 5)
	query := []float64{0.1, -0.2, 0.3, 0, 0.5}

	tree := NewKDTree(0)
	tree.Build(points)
	first := tree.Search(query, 10, nil)
	tree.Build(points)
	second := tree.Search(query, 10, nil)

	if len(first) != len(second) {
		t.Fatalf("result sizes differ after rebuild: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("hit %d differs after rebuild: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestKDTree_EmptyAndZeroK(t *testing.T) {
	tree := NewKDTree(0)
	tree.Build(nil)
	if hits := tree.Search([]float64{1, 2}, 5, nil); len(hits) != 0 {
		t.Errorf("Search() on empty tree returned %d hits, want 0", len(hits))
	}

	tree.Build(axisPoints())
	if hits := tree.Search([]float64{1, 0, 0}, 0, nil); hits != nil {
		t.Errorf("Search(k=0) = %v, want nil", hits)
	}
}

func TestKDTree_Stats(t *testing.T) {
	tree := NewKDTree(8)
	tree.Build(axisPoints())

	stats := tree.Stats()
	if stats.Kind != KindKDTree {
		t.Errorf("Kind = %q, want %q", stats.Kind, KindKDTree)
	}
	if stats.Size != 3 {
		t.Errorf("Size = %d, want 3", stats.Size)
	}
	if stats.Config["leaf_size"] != 8 {
		t.Errorf("Config[leaf_size] = %v, want 8", stats.Config["leaf_size"])
	}
}

func TestSelectNth(t *testing.T) {
	vals := []float64{9, 1, 8, 2, 7, 3, 6, 4, 5}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}

	selectNth(idx, 4, func(a, b int) bool { return vals[a] < vals[b] })
	if vals[idx[4]] != 5 {
		t.Errorf("median = %v, want 5", vals[idx[4]])
	}
	for i := 0; i < 4; i++ {
		if vals[idx[i]] > vals[idx[4]] {
			t.Errorf("left element %v greater than median", vals[idx[i]])
		}
	}
	for i := 5; i < len(idx); i++ {
		if vals[idx[i]] < vals[idx[4]] {
			t.Errorf("right element %v less than median", vals[idx[i]])
		}
	}
}
