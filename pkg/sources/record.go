// Package sources implements the ingestion connectors (file, Docker,
// Kafka) that feed records into a pkg/store.Store, grounded on the
// teacher's internal/monitors file/container monitors and
// internal/sinks Kafka client for the wire-protocol and library
// choices, but producing types.Record instead of types.LogEntry.
package sources

import (
	"encoding/json"
	"strings"

	"joedb/pkg/types"
)

// LineToRecord converts one raw log line into a types.Record, grounded on
// the teacher's docker_json_parser.go: a line that parses as a JSON
// object is converted field-by-field, nested objects becoming nested
// maps that database.Insert later flattens (so structured logs route
// through patternization per field); anything else becomes a single "message"
// column, matching original_source/joedb/joedb.py's plain-string insert
// path.
func LineToRecord(line string) (types.Record, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, false
	}

	if trimmed[0] == '{' {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
			return jsonObjectToRecord(raw), true
		}
	}

	return types.Record{"message": types.String(trimmed)}, true
}

func jsonObjectToRecord(raw map[string]interface{}) types.Record {
	rec := make(types.Record, len(raw))
	for k, v := range raw {
		rec[k] = jsonValueToValue(v)
	}
	return rec
}

func jsonValueToValue(v interface{}) types.Value {
	switch t := v.(type) {
	case string:
		return types.String(t)
	case float64:
		if t == float64(int64(t)) {
			return types.Int(int64(t))
		}
		return types.Float(t)
	case bool:
		return types.Bool(t)
	case nil:
		return types.Null()
	case map[string]interface{}:
		nested := make(map[string]types.Value, len(t))
		for k, vv := range t {
			nested[k] = jsonValueToValue(vv)
		}
		return types.Map(nested)
	default:
		// Arrays and anything else unsupported by the column model are
		// serialized to their JSON text so the record is never dropped.
		encoded, err := json.Marshal(t)
		if err != nil {
			return types.String("")
		}
		return types.String(string(encoded))
	}
}
