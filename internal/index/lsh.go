package index

import (
	"math"
	"math/rand"
	"time"

	"vectoria/internal/vecmath"
)

// DefaultLSHBands is the default number of LSH bands.
const DefaultLSHBands = 10

// LSHConfig configures a random-hyperplane LSH index.
type LSHConfig struct {
	// Hashes is the number of hash functions per band. Zero lets Build pick
	// H so that 2^H is comparable to sqrt(n).
	Hashes int
	// Bands is the number of independent bands. Zero means DefaultLSHBands.
	Bands int
	// Seed drives the hyperplane PRNG; a fixed seed gives a reproducible
	// index.
	Seed int64
	// Strict disables the linear fall-back that pads short candidate sets.
	Strict bool
}

// LSH is a random-hyperplane locality-sensitive hash index. Candidates are
// the union of bucket contents across bands and are rescored exactly with L2,
// so every reported distance is exact. The hits are the nearest candidates,
// not necessarily the exact top k; recall rises with the band count.
type LSH struct {
	cfg     LSHConfig
	hashes  int
	points  []Point
	planes  [][]float64          // bands*hashes unit vectors
	tables  []map[uint64][]int   // one signature table per band
	builtAt time.Time
}

// NewLSH creates an LSH index with the given configuration.
func NewLSH(cfg LSHConfig) *LSH {
	if cfg.Bands <= 0 {
		cfg.Bands = DefaultLSHBands
	}
	return &LSH{cfg: cfg}
}

// Build draws the hyperplane family from the configured seed and inserts
// every point's band signatures.
func (l *LSH) Build(points []Point) {
	l.points = make([]Point, len(points))
	copy(l.points, points)

	l.hashes = l.cfg.Hashes
	if l.hashes <= 0 {
		l.hashes = defaultHashes(len(points))
	}

	dim := 0
	if len(l.points) > 0 {
		dim = len(l.points[0].Vector)
	}

	rng := rand.New(rand.NewSource(l.cfg.Seed))
	total := l.cfg.Bands * l.hashes
	l.planes = make([][]float64, total)
	for i := range l.planes {
		plane := make([]float64, dim)
		for j := range plane {
			plane[j] = rng.NormFloat64()
		}
		l.planes[i] = vecmath.Normalize(plane)
	}

	l.tables = make([]map[uint64][]int, l.cfg.Bands)
	for b := range l.tables {
		l.tables[b] = make(map[uint64][]int)
	}
	for i, p := range l.points {
		for b := 0; b < l.cfg.Bands; b++ {
			sig := l.signature(b, p.Vector)
			l.tables[b][sig] = append(l.tables[b][sig], i)
		}
	}
	l.builtAt = time.Now().UTC()
}

// defaultHashes picks H so that 2^H is comparable to sqrt(n).
func defaultHashes(n int) int {
	if n < 4 {
		return 1
	}
	h := int(math.Round(math.Log2(math.Sqrt(float64(n)))))
	if h < 1 {
		h = 1
	}
	if h > 20 {
		h = 20
	}
	return h
}

// signature packs the sign bits of the band's hyperplane projections into an
// integer.
func (l *LSH) signature(band int, v []float64) uint64 {
	var sig uint64
	base := band * l.hashes
	for i := 0; i < l.hashes; i++ {
		if vecmath.Dot(l.planes[base+i], v) >= 0 {
			sig |= 1 << uint(i)
		}
	}
	return sig
}

// Search unions the query's buckets across bands, rescores candidates
// exactly, and returns the top k. When fewer than k candidates survive and
// the index is not strict, the result is padded from a linear scan.
func (l *LSH) Search(query []float64, k int, accept Accept) []Hit {
	if k <= 0 || len(l.points) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	for b := 0; b < l.cfg.Bands; b++ {
		sig := l.signature(b, query)
		for _, i := range l.tables[b][sig] {
			seen[i] = struct{}{}
		}
	}

	top := newTopK(k)
	for i := range seen {
		p := l.points[i]
		if accept != nil && !accept(p.ID) {
			continue
		}
		top.push(candidate{id: p.ID, dist: vecmath.SquaredL2(query, p.Vector), order: i})
	}

	if len(top.heap) < k && !l.cfg.Strict {
		for i, p := range l.points {
			if _, hit := seen[i]; hit {
				continue
			}
			if accept != nil && !accept(p.ID) {
				continue
			}
			top.push(candidate{id: p.ID, dist: vecmath.SquaredL2(query, p.Vector), order: i})
		}
	}

	hits := top.hits()
	for i := range hits {
		hits[i].Distance = math.Sqrt(hits[i].Distance)
	}
	return hits
}

// Stats reports size, build time and the hash-family configuration.
func (l *LSH) Stats() Stats {
	return Stats{
		Kind:    KindLSH,
		Size:    len(l.points),
		BuiltAt: l.builtAt,
		Config: map[string]any{
			"hashes": l.hashes,
			"bands":  l.cfg.Bands,
			"seed":   l.cfg.Seed,
			"strict": l.cfg.Strict,
		},
	}
}
