// Package column implements the per-column store: a typed vector of
// values plus, for STRING columns, a dictionary trie and a cardinality
// sketch (spec.md §3, §4.C).
package column

import (
	"strconv"
	"strings"

	"joedb/pkg/trie"
)

// Type is the closed tagged union of column kinds (spec.md §3).
type Type uint8

const (
	TypeUnknown   Type = 0
	TypeString    Type = 1
	TypeNumber    Type = 2
	TypeTimestamp Type = 3
)

// Column holds one flattened key's values across every inserted record.
type Column struct {
	Name string
	Type Type

	// Values holds, per row: trie indices for STRING columns (0 =
	// absent), raw signed integers for NUMBER columns, or UNIX seconds
	// for TIMESTAMP columns.
	Values []int64

	// LeadingZeros holds, for NUMBER columns only, the count of leading
	// '0' characters in the original decimal literal at each row (0 for
	// rows with no leading zeros or for non-NUMBER columns). Kept
	// per-row rather than per-RLE-run because RLE runs of the value
	// don't generally align with runs of the leading-zero count
	// (spec.md §9, §4.E "Known limitation").
	LeadingZeros []uint8

	Trie        *trie.Trie
	Cardinality *Cardinality
}

// TypeFor infers a column's type from its key, per spec.md §3: names
// ending "_timestamp" (and beginning "var_") are TIMESTAMP, those ending
// "_number" are NUMBER, everything else is STRING.
func TypeFor(key string) Type {
	if strings.HasPrefix(key, "var_") {
		switch {
		case strings.HasSuffix(key, "_timestamp"):
			return TypeTimestamp
		case strings.HasSuffix(key, "_number"):
			return TypeNumber
		}
	}
	return TypeString
}

// New creates an empty column of the given type, already back-filled with
// n absent/zero rows (spec.md §4.C get_or_create + backfill).
func New(name string, t Type, n int) *Column {
	c := &Column{Name: name, Type: t}
	if t == TypeString {
		c.Trie = trie.New()
		c.Cardinality = newCardinality()
	}
	c.Values = make([]int64, n)
	if t == TypeNumber {
		c.LeadingZeros = make([]uint8, n)
	}
	return c
}

// AppendString inserts s into the column's trie and appends the resulting
// index. Only valid for STRING columns.
func (c *Column) AppendString(s string) {
	idx := c.Trie.Insert(s)
	c.Cardinality.Observe(s)
	c.Values = append(c.Values, int64(idx))
}

// ConvertNumberToString rewrites an already-populated NUMBER column into
// a STRING column backed by a fresh trie, restoring each existing row's
// decimal literal (leading zeros included) before inserting it. Used when
// a later value sharing this column's key doesn't fit int64 (e.g. a 20+
// digit transaction id) and must be stored losslessly as a string instead
// of dropping the record (spec.md §8.1 has no large-integer exception).
func (c *Column) ConvertNumberToString() {
	c.Trie = trie.New()
	c.Cardinality = newCardinality()
	values := make([]int64, len(c.Values))
	for i, v := range c.Values {
		s := formatLeadingZeroInt(v, c.LeadingZeros[i])
		idx := c.Trie.Insert(s)
		c.Cardinality.Observe(s)
		values[i] = int64(idx)
	}
	c.Values = values
	c.LeadingZeros = nil
	c.Type = TypeString
}

func formatLeadingZeroInt(v int64, zeros uint8) string {
	digits := strconv.FormatInt(v, 10)
	if zeros > 0 {
		digits = strings.Repeat("0", int(zeros)) + digits
	}
	return digits
}

// AppendNumber appends a NUMBER value, recording its leading-zero count
// so `"007"` can round-trip (spec.md §4.E "Leading-zero preservation").
func (c *Column) AppendNumber(v int64, leadingZeros uint8) {
	c.Values = append(c.Values, v)
	c.LeadingZeros = append(c.LeadingZeros, leadingZeros)
}

// AppendTimestamp appends a TIMESTAMP value (UNIX seconds).
func (c *Column) AppendTimestamp(v int64) {
	c.Values = append(c.Values, v)
}

// AppendAbsent appends the sentinel 0 for a row where this column had no
// value (spec.md §4.C pad_absent).
func (c *Column) AppendAbsent() {
	c.Values = append(c.Values, 0)
	if c.Type == TypeNumber {
		c.LeadingZeros = append(c.LeadingZeros, 0)
	}
}

// Len returns the current row count.
func (c *Column) Len() int { return len(c.Values) }

// Backfill pads the column with n absent/zero rows, used when a key first
// appears after earlier records were already inserted (spec.md §4.C).
func (c *Column) Backfill(n int) {
	for i := 0; i < n; i++ {
		c.AppendAbsent()
	}
}
