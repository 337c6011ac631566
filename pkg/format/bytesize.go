package format

import "math/bits"

// CeilDiv8 computes ⌈n/8⌉ for n >= 0 using integer arithmetic.
func CeilDiv8(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 7) / 8
}

// BitLen mirrors Python's int.bit_length(): the number of bits needed to
// represent n, excluding sign, with BitLen(0) == 0.
func BitLen(n uint64) int {
	return bits.Len64(n)
}

// AbsUint64 returns |v| as an unsigned value, safe for v == math.MinInt64.
func AbsUint64(v int64) uint64 {
	if v >= 0 {
		return uint64(v)
	}
	return uint64(-(v + 1)) + 1
}

// ValueByteSize computes spec.md §4.E's byte width for a column's value
// field: ⌈(max_abs_value.bit_length + k)/8⌉, k=7 for unsigned trie indices,
// k=8 for signed deltas. Always at least 1 byte.
func ValueByteSize(maxAbs uint64, k int) int {
	n := CeilDiv8(BitLen(maxAbs) + k)
	if n < 1 {
		n = 1
	}
	return n
}

// LengthByteSize computes spec.md §4.E's byte width for a run's length
// field: ⌈(max_run_length.bit_length + 7)/8⌉. Always at least 1 byte.
func LengthByteSize(maxLen uint64) int {
	n := CeilDiv8(BitLen(maxLen) + 7)
	if n < 1 {
		n = 1
	}
	return n
}
