// Package format holds the shared binary container constants (spec.md §6).
package format

// Magic is the 12-byte file header: the 🐿️ emoji sequence (U+1F43F plus
// variation selector U+FE0F, 7 bytes of UTF-8) followed by "joedb" in
// ASCII, exactly as in original_source/joedb/joedb.py's
// MAGIC_HEADER.
var Magic = [12]byte{0xF0, 0x9F, 0x90, 0xBF, 0xEF, 0xB8, 0x8F, 0x6A, 0x6F, 0x65, 0x64, 0x62}

// ColumnType is the wire representation of column.Type.
type ColumnType = uint8

const (
	ColTypeString    ColumnType = 1
	ColTypeNumber    ColumnType = 2
	ColTypeTimestamp ColumnType = 3
)
