// Package encoder serializes a database.Database into joedb's self-describing
// binary container (spec.md §4.E, §6), grounded on
// original_source/joedb/joedb.py's JoeDB.to_bytes and on the teacher's
// zstd-based compression usage in pkg/compression/http_compressor.go.
package encoder

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zstd"

	"joedb/pkg/column"
	"joedb/pkg/database"
	joerr "joedb/pkg/errors"
	"joedb/pkg/format"
	"joedb/pkg/rle"
)

// Option configures the encoder.
type Option func(*encodeState)

type encodeState struct {
	level zstd.EncoderLevel
}

// WithCompressionLevel overrides the default zstd level (SpeedDefault).
func WithCompressionLevel(level zstd.EncoderLevel) Option {
	return func(s *encodeState) { s.level = level }
}

// Encode builds db's full binary container in memory and returns it (spec.md
// §6). The database's columns are left permuted (row-sorted) and
// compacted (merged/renumbered tries) as a side effect, matching
// original_source/joedb/joedb.py, which likewise mutates in place before
// writing.
func Encode(db *database.Database, opts ...Option) ([]byte, error) {
	st := &encodeState{level: zstd.SpeedDefault}
	for _, o := range opts {
		o(st)
	}

	cols := db.Columns()
	n := db.RecordCount()

	for _, c := range cols {
		if c.Type != column.TypeString {
			continue
		}
		protected := make(map[int]bool)
		for _, v := range c.Values {
			if v != 0 {
				protected[int(v)] = true
			}
		}
		c.Trie.MergeSingleChildren(protected)
		renamed := c.Trie.RenameIndices()
		for i, v := range c.Values {
			if v == 0 {
				continue
			}
			nv, ok := renamed[int(v)]
			if !ok {
				return nil, joerr.NewCritical(joerr.CodeTrieInvariant, joerr.ComponentEncoder, "encode",
					"column value references an index missing from the renamed trie").
					WithMetadata("column", c.Name).WithMetadata("index", v)
			}
			c.Values[i] = int64(nv)
		}
	}

	sortOrder := append([]*column.Column(nil), cols...)
	cardinalities := make(map[string]uint64, len(cols))
	for _, c := range cols {
		cardinalities[c.Name] = estimateCardinality(c)
	}
	sort.SliceStable(sortOrder, func(i, j int) bool {
		return cardinalities[sortOrder[i].Name] < cardinalities[sortOrder[j].Name]
	})

	formatted := make([][]string, len(sortOrder))
	valueMaps := make([]map[int]string, len(sortOrder))
	for ci, c := range sortOrder {
		if c.Type == column.TypeString {
			valueMaps[ci] = c.Trie.BuildValueMap()
		}
		formatted[ci] = formatColumnForSort(c, valueMaps[ci])
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ra, rb := perm[a], perm[b]
		for ci := range sortOrder {
			va, vb := formatted[ci][ra], formatted[ci][rb]
			if va != vb {
				return va < vb
			}
		}
		return false
	})

	for _, c := range cols {
		applyPermutation(c, perm)
	}

	var out bytes.Buffer
	out.Write(format.Magic[:])
	out.Write(format.PutUintBE(nil, uint64(n), 8))

	for _, c := range cols {
		if err := writeColumnHeader(&out, c, st); err != nil {
			return nil, err
		}
	}
	out.WriteByte(0x00) // end-of-headers terminator

	for _, c := range cols {
		if err := writeColumnData(&out, c, st); err != nil {
			return nil, err
		}
	}

	return out.Bytes(), nil
}

func writeColumnHeader(out *bytes.Buffer, c *column.Column, st *encodeState) error {
	out.WriteByte(colType(c.Type))
	out.WriteString(c.Name)
	out.WriteByte(0x00)
	if c.Type != column.TypeString {
		return nil
	}
	var trieBuf bytes.Buffer
	if err := c.Trie.WriteTo(&trieBuf); err != nil {
		return joerr.NewCritical(joerr.CodeTrieInvariant, joerr.ComponentEncoder, "encode",
			"failed writing trie").WithMetadata("column", c.Name).Wrap(err)
	}
	payload, err := compress(trieBuf.Bytes(), st.level)
	if err != nil {
		return err
	}
	out.Write(format.PutUintBE(nil, uint64(len(payload)), 4))
	out.Write(payload)
	return nil
}

func writeColumnData(out *bytes.Buffer, c *column.Column, st *encodeState) error {
	var runs []rle.Run
	switch c.Type {
	case column.TypeString:
		runs = rle.Encode(c.Values, nil)
	case column.TypeNumber:
		runs = rle.Encode(rle.Delta(c.Values), c.LeadingZeros)
	case column.TypeTimestamp:
		runs = rle.Encode(rle.Delta(c.Values), nil)
	}

	var maxAbs, maxLen uint64
	for _, r := range runs {
		if a := format.AbsUint64(r.Value); a > maxAbs {
			maxAbs = a
		}
		if r.Length > maxLen {
			maxLen = r.Length
		}
	}
	k := 8
	if c.Type == column.TypeString {
		k = 7
	}
	vbs := format.ValueByteSize(maxAbs, k)
	lbs := format.LengthByteSize(maxLen)

	var payload []byte
	for _, r := range runs {
		if c.Type == column.TypeString {
			payload = format.PutUintBE(payload, uint64(r.Value), vbs)
		} else {
			payload = format.PutIntBE(payload, r.Value, vbs)
		}
		payload = format.PutUintBE(payload, r.Length, lbs)
		if c.Type == column.TypeNumber {
			payload = append(payload, r.LeadingZeros)
		}
	}

	compressed, err := compress(payload, st.level)
	if err != nil {
		return err
	}
	out.WriteByte(byte(vbs))
	out.WriteByte(byte(lbs))
	out.Write(format.PutUintBE(nil, uint64(len(compressed)), 4))
	out.Write(compressed)
	return nil
}

func compress(data []byte, level zstd.EncoderLevel) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, joerr.New(joerr.CodeProcessingInvalid, joerr.ComponentEncoder, "compress",
			"failed to create zstd encoder").Wrap(err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func colType(t column.Type) byte {
	switch t {
	case column.TypeString:
		return format.ColTypeString
	case column.TypeNumber:
		return format.ColTypeNumber
	case column.TypeTimestamp:
		return format.ColTypeTimestamp
	}
	return 0
}

// formatColumnForSort produces the string-formatted sort key for every row
// of c (spec.md §4.E step 4): the resolved string for STRING columns (""
// for absent), or the decimal raw value for NUMBER/TIMESTAMP columns.
func formatColumnForSort(c *column.Column, valueMap map[int]string) []string {
	out := make([]string, len(c.Values))
	for i, v := range c.Values {
		if c.Type == column.TypeString {
			if v == 0 {
				out[i] = ""
			} else {
				out[i] = valueMap[int(v)]
			}
			continue
		}
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}

// estimateCardinality returns the distinct-value estimate used to order
// columns ascending for the row sort key (spec.md §4.E step 3). STRING
// columns reuse the running sketch maintained during insert; NUMBER and
// TIMESTAMP columns have no such sketch, so their exact distinct count is
// computed on demand from the already-materialized value vector.
func estimateCardinality(c *column.Column) uint64 {
	if c.Type == column.TypeString {
		return c.Cardinality.Estimate()
	}
	seen := make(map[int64]struct{}, len(c.Values))
	for _, v := range c.Values {
		seen[v] = struct{}{}
	}
	return uint64(len(seen))
}

func applyPermutation(c *column.Column, perm []int) {
	nv := make([]int64, len(c.Values))
	for i, p := range perm {
		nv[i] = c.Values[p]
	}
	c.Values = nv
	if c.LeadingZeros != nil {
		nz := make([]uint8, len(c.LeadingZeros))
		for i, p := range perm {
			nz[i] = c.LeadingZeros[p]
		}
		c.LeadingZeros = nz
	}
}
