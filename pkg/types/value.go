// Package types holds the narrow value model accepted at the boundary of
// the database: JSON-like leaves plus nested maps, flattened on insert.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the dynamic shape of an input leaf value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBool
	KindMap
)

// Value is a single JSON-like input leaf or a nested map of the same.
// The core never inspects a Value's Kind beyond stringifying non-map
// leaves before patternization (spec.md §9).
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	Map  map[string]Value
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value     { return Value{Kind: KindInteger, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Flt: f} }
func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Null() Value           { return Value{Kind: KindNull} }
func Map(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

// Stringify converts a non-map leaf to its string form, matching how a
// log record's scalars are serialized into the store (spec.md §1, §9:
// "all scalars are serialized as their string form").
func (v Value) Stringify() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MarshalJSON renders a Value the way the dump server's NDJSON export
// needs it: nested maps stay nested, scalars use their native JSON
// representation rather than Stringify's pattern-extraction form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindInteger:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Flt)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindMap:
		return json.Marshal(v.Map)
	default:
		return json.Marshal(nil)
	}
}

// Record is a single ingestible log record: a mapping from (possibly
// nested) string keys to scalar or map values.
type Record map[string]Value
