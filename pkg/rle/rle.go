// Package rle implements the run-length and delta transforms shared by
// pkg/encoder and pkg/decoder (spec.md §4.E), grounded on
// original_source/joedb/joedb.py's encode/decode column helpers.
package rle

// Run is one RLE pair, optionally carrying the leading-zero count shared
// by every row in the run (NUMBER columns only; spec.md §4.E).
type Run struct {
	Value        int64
	Length       uint64
	LeadingZeros uint8
}

// Encode collapses values (already delta-encoded where applicable) into
// maximal runs of equal value. For NUMBER columns, leadingZeros must be
// supplied (len(values) == len(leadingZeros)) and a run also breaks
// whenever the leading-zero count changes, so a run's single
// leading_zeros byte is always correct for every row folded into it
// (spec.md §9 "Known limitation", resolved per DESIGN.md decision 1).
func Encode(values []int64, leadingZeros []uint8) []Run {
	if len(values) == 0 {
		return nil
	}
	hasLZ := leadingZeros != nil
	out := make([]Run, 0, len(values)/2+1)
	cur := Run{Value: values[0], Length: 1}
	if hasLZ {
		cur.LeadingZeros = leadingZeros[0]
	}
	for i := 1; i < len(values); i++ {
		sameValue := values[i] == cur.Value
		sameLZ := !hasLZ || leadingZeros[i] == cur.LeadingZeros
		if sameValue && sameLZ {
			cur.Length++
			continue
		}
		out = append(out, cur)
		cur = Run{Value: values[i], Length: 1}
		if hasLZ {
			cur.LeadingZeros = leadingZeros[i]
		}
	}
	out = append(out, cur)
	return out
}

// Expand is Encode's inverse: expanding reproduces the original vector
// exactly (spec.md §8 property 5).
func Expand(runs []Run) (values []int64, leadingZeros []uint8) {
	n := 0
	for _, r := range runs {
		n += int(r.Length)
	}
	values = make([]int64, 0, n)
	leadingZeros = make([]uint8, 0, n)
	for _, r := range runs {
		for i := uint64(0); i < r.Length; i++ {
			values = append(values, r.Value)
			leadingZeros = append(leadingZeros, r.LeadingZeros)
		}
	}
	return values, leadingZeros
}

// Delta replaces v with v[0], v[1]-v[0], v[2]-v[1], ... (spec.md §4.E).
func Delta(v []int64) []int64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]int64, len(v))
	out[0] = v[0]
	for i := 1; i < len(v); i++ {
		out[i] = v[i] - v[i-1]
	}
	return out
}

// InverseDelta undoes Delta: v[i] = v[i-1] + Δ[i] (spec.md §8 property 6).
func InverseDelta(d []int64) []int64 {
	if len(d) == 0 {
		return nil
	}
	out := make([]int64, len(d))
	out[0] = d[0]
	for i := 1; i < len(d); i++ {
		out[i] = out[i-1] + d[i]
	}
	return out
}
