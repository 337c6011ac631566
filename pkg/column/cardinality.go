package column

import "github.com/cespare/xxhash/v2"

// sketchCap bounds the exact-counting set before falling back to a running
// estimate; spec.md §9 explicitly allows "any ascending-by-estimated-
// cardinality scheme (exact count for small columns, HyperLogLog for
// large)". joedb keeps an exact xxhash-keyed set up to sketchCap distinct
// values; once the set grows past the cap, every later observation
// (repeats included) adds one to the estimate. Cardinality here is only
// ever used to pick a column sort order (spec.md §4.E step 3), not reported.
const sketchCap = 4096

// Cardinality is a cheap approximate distinct-value counter for one
// column, hashed with xxhash (the teacher's go.mod already depends on
// cespare/xxhash/v2) so large string values aren't retained in memory.
type Cardinality struct {
	seen      map[uint64]struct{}
	overCap   bool
	estimate  uint64
}

func newCardinality() *Cardinality {
	return &Cardinality{seen: make(map[uint64]struct{})}
}

// Observe records one occurrence of s.
func (c *Cardinality) Observe(s string) {
	if c.overCap {
		c.estimate++
		return
	}
	h := xxhash.Sum64String(s)
	c.seen[h] = struct{}{}
	if len(c.seen) > sketchCap {
		c.overCap = true
		c.estimate = uint64(len(c.seen))
	}
}

// Estimate returns the current distinct-value estimate.
func (c *Cardinality) Estimate() uint64 {
	if c.overCap {
		return c.estimate
	}
	return uint64(len(c.seen))
}
