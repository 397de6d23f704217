package index

import (
	"math"
	"testing"
)

func axisPoints() []Point {
	return []Point{
		{ID: "a", Vector: []float64{1, 0, 0}},
		{ID: "b", Vector: []float64{0, 1, 0}},
		{ID: "c", Vector: []float64{0, 0, 1}},
	}
}

func TestLinear_Search(t *testing.T) {
	idx := NewLinear()
	idx.Build(axisPoints())

	hits := idx.Search([]float64{0.9, 0.1, 0}, 2, nil)
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].ID != "a" {
		t.Errorf("hits[0].ID = %q, want %q", hits[0].ID, "a")
	}
	if hits[1].ID != "b" {
		t.Errorf("hits[1].ID = %q, want %q", hits[1].ID, "b")
	}
	if hits[0].Distance > hits[1].Distance {
		t.Errorf("distances not ascending: %v then %v", hits[0].Distance, hits[1].Distance)
	}
}

func TestLinear_SearchExactDistance(t *testing.T) {
	idx := NewLinear()
	idx.Build([]Point{{ID: "a", Vector: []float64{3, 4}}})

	hits := idx.Search([]float64{0, 0}, 1, nil)
	if len(hits) != 1 {
		t.Fatalf("Search() returned %d hits, want 1", len(hits))
	}
	if math.Abs(hits[0].Distance-5) > 1e-12 {
		t.Errorf("Distance = %v, want 5", hits[0].Distance)
	}
}

func TestLinear_SearchKLargerThanN(t *testing.T) {
	idx := NewLinear()
	idx.Build(axisPoints())

	hits := idx.Search([]float64{0, 0, 0}, 10, nil)
	if len(hits) != 3 {
		t.Fatalf("Search() returned %d hits, want 3", len(hits))
	}
}

func TestLinear_SearchZeroK(t *testing.T) {
	idx := NewLinear()
	idx.Build(axisPoints())

	if hits := idx.Search([]float64{0, 0, 0}, 0, nil); hits != nil {
		t.Errorf("Search(k=0) = %v, want nil", hits)
	}
}

func TestLinear_SearchAccept(t *testing.T) {
	idx := NewLinear()
	idx.Build(axisPoints())

	hits := idx.Search([]float64{1, 0, 0}, 3, func(id string) bool { return id == "c" })
	if len(hits) != 1 {
		t.Fatalf("Search() returned %d hits, want 1", len(hits))
	}
	if hits[0].ID != "c" {
		t.Errorf("hits[0].ID = %q, want %q", hits[0].ID, "c")
	}
}

func TestLinear_TieBrokenByInsertionOrder(t *testing.T) {
	idx := NewLinear()
	idx.Build([]Point{
		{ID: "first", Vector: []float64{1, 0}},
		{ID: "second", Vector: []float64{1, 0}},
		{ID: "third", Vector: []float64{0, 1}},
	})

	hits := idx.Search([]float64{1, 0}, 2, nil)
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].ID != "first" || hits[1].ID != "second" {
		t.Errorf("tie order = [%s %s], want [first second]", hits[0].ID, hits[1].ID)
	}
}

func TestLinear_EmptyIndex(t *testing.T) {
	idx := NewLinear()
	idx.Build(nil)

	if hits := idx.Search([]float64{1}, 5, nil); len(hits) != 0 {
		t.Errorf("Search() on empty index returned %d hits, want 0", len(hits))
	}
}

func TestLinear_Stats(t *testing.T) {
	idx := NewLinear()
	idx.Build(axisPoints())

	stats := idx.Stats()
	if stats.Kind != KindLinear {
		t.Errorf("Kind = %q, want %q", stats.Kind, KindLinear)
	}
	if stats.Size != 3 {
		t.Errorf("Size = %d, want 3", stats.Size)
	}
	if stats.BuiltAt.IsZero() {
		t.Error("BuiltAt is zero, want build timestamp")
	}
}
