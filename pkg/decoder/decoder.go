// Package decoder reconstructs a database.Database (and, ultimately, the
// original flattened records) from joedb's binary container (spec.md §4.F,
// §6), the inverse of pkg/encoder, grounded on
// original_source/joedb/joedb.py's JoeDB.from_bytes.
package decoder

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"joedb/pkg/column"
	"joedb/pkg/database"
	joerr "joedb/pkg/errors"
	"joedb/pkg/format"
	"joedb/pkg/pattern"
	"joedb/pkg/rle"
	"joedb/pkg/trie"
	"joedb/pkg/types"
)

// columnHeader is one column's decoded header: type, name, and (STRING
// only) its reconstructed trie.
type columnHeader struct {
	name string
	typ  column.Type
	trie *trie.Trie
}

// Decode parses data into a Database with patternization disabled: the
// stored STRING columns already hold extracted patterns, not raw text, so
// re-running the extractor on Columns() would be meaningless. Use
// Rehydrate to reassemble the original flattened records.
func Decode(data []byte) (*database.Database, error) {
	if len(data) < len(format.Magic) {
		return nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode",
			"file shorter than the magic header")
	}
	if !bytes.Equal(data[:len(format.Magic)], format.Magic[:]) {
		return nil, joerr.NewCritical(joerr.CodeInvalidMagic, joerr.ComponentDecoder, "decode",
			"magic header mismatch")
	}
	rest := data[len(format.Magic):]
	if err := format.RequireBytes(rest, 8, "record count"); err != nil {
		return nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode", err.Error())
	}
	recordCount := int(format.GetUintBE(rest[:8]))
	rest = rest[8:]

	var headers []columnHeader
	for {
		if len(rest) < 1 {
			return nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode",
				"truncated column header section")
		}
		ct := rest[0]
		rest = rest[1:]
		if ct == 0 {
			break
		}
		t, err := columnTypeFromWire(ct)
		if err != nil {
			return nil, err
		}
		nameEnd := bytes.IndexByte(rest, 0x00)
		if nameEnd < 0 {
			return nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode",
				"unterminated column name")
		}
		name := string(rest[:nameEnd])
		rest = rest[nameEnd+1:]

		h := columnHeader{name: name, typ: t}
		if t == column.TypeString {
			if err := format.RequireBytes(rest, 4, "trie payload length"); err != nil {
				return nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode", err.Error())
			}
			payloadLen := int(format.GetUintBE(rest[:4]))
			rest = rest[4:]
			if err := format.RequireBytes(rest, payloadLen, "trie payload"); err != nil {
				return nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode", err.Error())
			}
			raw, err := decompress(rest[:payloadLen])
			if err != nil {
				return nil, err
			}
			rest = rest[payloadLen:]
			tr, err := trie.ReadFrom(bytes.NewReader(raw))
			if err != nil {
				return nil, wrapTrieReadErr(err, name)
			}
			h.trie = tr
		}
		headers = append(headers, h)
	}

	db := database.New(database.WithPatternization(false))
	for _, h := range headers {
		col, newRest, err := readColumnData(rest, h, recordCount)
		if err != nil {
			return nil, err
		}
		rest = newRest
		db.AdoptColumn(col)
	}
	db.SetRecordCount(recordCount)
	return db, nil
}

func readColumnData(rest []byte, h columnHeader, recordCount int) (*column.Column, []byte, error) {
	if err := format.RequireBytes(rest, 2, "column byte-size header"); err != nil {
		return nil, nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode", err.Error())
	}
	vbs := int(rest[0])
	lbs := int(rest[1])
	rest = rest[2:]

	if err := format.RequireBytes(rest, 4, "column payload length"); err != nil {
		return nil, nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode", err.Error())
	}
	payloadLen := int(format.GetUintBE(rest[:4]))
	rest = rest[4:]
	if err := format.RequireBytes(rest, payloadLen, "column payload"); err != nil {
		return nil, nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode", err.Error())
	}
	raw, err := decompress(rest[:payloadLen])
	if err != nil {
		return nil, nil, err
	}
	rest = rest[payloadLen:]

	recordStride := vbs + lbs
	if h.typ == column.TypeNumber {
		recordStride++
	}

	var runValues []int64
	var runLengths []uint64
	var runLZ []uint8
	for off := 0; off+recordStride <= len(raw); off += recordStride {
		rec := raw[off : off+recordStride]
		var v int64
		if h.typ == column.TypeString {
			v = int64(format.GetUintBE(rec[:vbs]))
		} else {
			v = format.GetIntBE(rec[:vbs])
		}
		length := format.GetUintBE(rec[vbs : vbs+lbs])
		runValues = append(runValues, v)
		runLengths = append(runLengths, length)
		if h.typ == column.TypeNumber {
			runLZ = append(runLZ, rec[vbs+lbs])
		} else {
			runLZ = append(runLZ, 0)
		}
	}

	runs := make([]rle.Run, len(runValues))
	for i := range runValues {
		runs[i] = rle.Run{Value: runValues[i], Length: runLengths[i], LeadingZeros: runLZ[i]}
	}
	values, leadingZeros := rle.Expand(runs)

	switch h.typ {
	case column.TypeNumber, column.TypeTimestamp:
		values = rle.InverseDelta(values)
	}

	if len(values) != recordCount {
		return nil, nil, joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode",
			"column row count does not match the file's record count").
			WithMetadata("column", h.name).WithMetadata("got", len(values)).WithMetadata("want", recordCount)
	}

	col := column.New(h.name, h.typ, 0)
	col.Values = values
	if h.typ == column.TypeNumber {
		col.LeadingZeros = leadingZeros
	}
	if h.typ == column.TypeString {
		col.Trie = h.trie
	}
	return col, rest, nil
}

func columnTypeFromWire(b byte) (column.Type, error) {
	switch b {
	case format.ColTypeString:
		return column.TypeString, nil
	case format.ColTypeNumber:
		return column.TypeNumber, nil
	case format.ColTypeTimestamp:
		return column.TypeTimestamp, nil
	}
	return 0, joerr.NewCritical(joerr.CodeUnknownColumnType, joerr.ComponentDecoder, "decode",
		"unrecognized column type byte").WithMetadata("byte", b)
}

func wrapTrieReadErr(err error, columnName string) error {
	if err == trie.ErrTruncated {
		return joerr.NewCritical(joerr.CodeTruncatedFile, joerr.ComponentDecoder, "decode",
			"truncated trie section").WithMetadata("column", columnName)
	}
	return err
}

func decompress(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, joerr.New(joerr.CodeProcessingInvalid, joerr.ComponentDecoder, "decompress",
			"failed to create zstd decoder").Wrap(err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, joerr.New(joerr.CodeProcessingInvalid, joerr.ComponentDecoder, "decompress",
			"failed to decompress column payload").Wrap(err)
	}
	return out, nil
}

// Rehydrate reconstructs the original flattened records from a decoded
// database: for each STRING row, it resolves the stored pattern, rehydrates
// its variables from the matching var_* columns on the same row, and
// re-nests dotted-path keys back into maps (spec.md §8 property 2).
func Rehydrate(db *database.Database) ([]types.Record, error) {
	cols := db.Columns()
	realCols := make([]*column.Column, 0, len(cols))
	varCols := make(map[string]*column.Column)
	valueMaps := make(map[string]map[int]string, len(cols))
	for _, c := range cols {
		if c.Type == column.TypeString {
			valueMaps[c.Name] = c.Trie.BuildValueMap()
		}
		if isVarColumn(c.Name) {
			varCols[c.Name] = c
		} else {
			realCols = append(realCols, c)
		}
	}

	n := db.RecordCount()
	out := make([]types.Record, n)
	for row := 0; row < n; row++ {
		rec := make(types.Record)

		// Every var_* column's name embeds its own root and a running
		// counter (pattern.Extract's var_{root}_{n}_{kind}), so distinct
		// real columns never produce colliding variable names: it is
		// safe to hand every real column's Rehydrate call the full set
		// of this row's variables rather than first routing each var_*
		// column back to the one real column it was extracted from.
		vars := make(map[string]string, len(varCols))
		for name, vc := range varCols {
			if lit, ok := formatVarValue(vc, row, valueMaps[name]); ok {
				vars[name] = lit
			}
		}

		for _, c := range realCols {
			v := c.Values[row]
			if v == 0 {
				continue
			}
			pat := valueMaps[c.Name][int(v)]
			literal := pattern.Rehydrate(pat, vars)
			setNested(rec, c.Name, types.String(literal))
		}
		out[row] = rec
	}
	return out, nil
}

func isVarColumn(name string) bool {
	return strings.HasPrefix(name, "var_")
}

// formatVarValue renders the value of var column vc at row as the literal
// string pattern.Rehydrate should splice back in. Reports false for an
// absent STRING value (so the placeholder is left unexpanded, matching
// what Extract would have produced had the value never been captured).
// NUMBER and TIMESTAMP columns store absent rows as 0, which cannot be
// told apart from a real 0, so for those it always reports true.
func formatVarValue(vc *column.Column, row int, valueMap map[int]string) (string, bool) {
	v := vc.Values[row]
	switch vc.Type {
	case column.TypeString:
		if v == 0 {
			return "", false
		}
		return valueMap[int(v)], true
	case column.TypeNumber:
		return formatLeadingZeroInt(v, vc.LeadingZeros[row]), true
	case column.TypeTimestamp:
		// TIMESTAMP columns only retain UNIX-second resolution (spec.md
		// §3), so sub-second digits and the literal's original "Z"
		// suffix or separator style are not recoverable; joedb
		// normalizes every rehydrated timestamp to this one layout.
		return time.Unix(v, 0).UTC().Format("2006-01-02T15:04:05Z"), true
	}
	return "", false
}

func formatLeadingZeroInt(v int64, zeros uint8) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	if zeros > 0 {
		digits = strings.Repeat("0", int(zeros)) + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// setNested assigns val at key, re-nesting any dotted path into maps
// (spec.md §3, the inverse of database.flatten).
func setNested(rec types.Record, key string, val types.Value) {
	parts := strings.Split(key, ".")
	m := rec
	for _, p := range parts[:len(parts)-1] {
		existing, ok := m[p]
		if !ok || existing.Kind != types.KindMap {
			existing = types.Map(types.Record{})
			m[p] = existing
		}
		m = existing.Map
	}
	m[parts[len(parts)-1]] = val
}
