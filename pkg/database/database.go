// Package database is the record ingestor and in-memory column-oriented
// database (spec.md §4.C, §4.D). It flattens nested records, routes each
// leaf through the pattern extractor, and maintains one column per
// flattened key, grounded on original_source/joedb/joedb.py's JoeDB and
// its flatten_json/insert.
package database

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"joedb/pkg/column"
	joerr "joedb/pkg/errors"
	"joedb/pkg/pattern"
	"joedb/pkg/types"
)

// Database is a single in-memory instance. It is not safe for concurrent
// use (spec.md §5).
type Database struct {
	columns     map[string]*column.Column
	order       []string // first-seen (declaration) order
	recordCount int
	patternize  bool
	logger      *logrus.Logger
}

// Option configures a Database at construction.
type Option func(*Database)

// WithPatternization toggles the pattern extractor (spec.md §4.A "disable
// switch", reintroduced from original_source's `JoeDB(use_patternization=...)`).
func WithPatternization(enabled bool) Option {
	return func(d *Database) { d.patternize = enabled }
}

// WithLogger attaches a logger; defaults to logrus.StandardLogger().
func WithLogger(l *logrus.Logger) Option {
	return func(d *Database) { d.logger = l }
}

// New creates an empty database.
func New(opts ...Option) *Database {
	d := &Database{
		columns:    make(map[string]*column.Column),
		patternize: true,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Columns returns the column map, in declaration order (the order keys
// were first seen across all inserts so far). Callers must not mutate the
// returned columns directly.
func (d *Database) Columns() []*column.Column {
	out := make([]*column.Column, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.columns[name])
	}
	return out
}

// RecordCount returns the number of records inserted so far.
func (d *Database) RecordCount() int { return d.recordCount }

// AdoptColumn registers a fully-built column (used by pkg/decoder to
// reassemble a Database from its wire form, bypassing Insert's routing).
func (d *Database) AdoptColumn(c *column.Column) {
	if _, exists := d.columns[c.Name]; !exists {
		d.order = append(d.order, c.Name)
	}
	d.columns[c.Name] = c
}

// SetRecordCount overrides the record count directly (used by pkg/decoder,
// which reconstructs columns out of Insert's normal per-record flow).
func (d *Database) SetRecordCount(n int) { d.recordCount = n }

// Patternized reports whether pattern extraction is enabled.
func (d *Database) Patternized() bool { return d.patternize }

func (d *Database) getOrCreate(key string, t column.Type) *column.Column {
	if c, ok := d.columns[key]; ok {
		return c
	}
	c := column.New(key, t, d.recordCount)
	d.columns[key] = c
	d.order = append(d.order, key)
	return c
}

// Insert flattens record, routes every leaf through the pattern extractor
// (when enabled), provisions columns lazily, and pads every other known
// column with the absent sentinel (spec.md §4.D).
func (d *Database) Insert(record types.Record) error {
	flat := flatten(record)
	touched := make(map[string]bool, len(flat))

	for key, val := range flat {
		s := val.Stringify()
		if s == "" {
			return joerr.New(joerr.CodeProcessingInvalid, joerr.ComponentDatabase, "insert",
				"empty string values are not supported (spec.md §9); omit the key instead").
				WithMetadata("key", key)
		}

		var patternStr string
		var vars map[string]string
		if d.patternize {
			res := pattern.Extract(s, key)
			patternStr, vars = res.Pattern, res.Variables
		} else {
			patternStr = s
		}

		real := d.getOrCreate(key, column.TypeString)
		real.AppendString(patternStr)
		touched[key] = true

		for name, lit := range vars {
			t := column.TypeFor(name)
			vcol := d.getOrCreate(name, t)
			switch t {
			case column.TypeString:
				vcol.AppendString(lit)
			case column.TypeNumber:
				iv, lz, err := parseLeadingZeroInt(lit)
				switch {
				case err == nil && vcol.Type == column.TypeNumber:
					vcol.AppendNumber(iv, lz)
				case err == nil:
					// vcol was already converted to TypeString below by
					// an earlier out-of-range literal sharing this key.
					vcol.AppendString(lit)
				default:
					// digit literal too large for int64 (e.g. a 20+
					// digit transaction id): store it losslessly as a
					// trie-backed string instead of dropping the whole
					// record (spec.md §8.1 has no large-integer
					// exception; original_source/joedb.py keeps such
					// values as strings too).
					if vcol.Type == column.TypeNumber {
						vcol.ConvertNumberToString()
					}
					vcol.AppendString(lit)
				}
			case column.TypeTimestamp:
				ts, err := parseISOTimestamp(lit)
				if err != nil {
					return joerr.NewCritical(joerr.CodeTimestampParse, joerr.ComponentDatabase, "insert",
						"extracted timestamp variable could not be parsed").WithMetadata("literal", lit).Wrap(err)
				}
				vcol.AppendTimestamp(ts)
			}
			touched[name] = true
		}
	}

	for name, col := range d.columns {
		if !touched[name] {
			col.AppendAbsent()
		}
	}

	d.recordCount++
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"record_count": d.recordCount,
			"columns":      len(d.columns),
		}).Debug("joedb: record inserted")
	}
	return nil
}

// flatten turns a nested record into a map of dotted-path keys to scalar
// values (spec.md §3, §4.D step 1).
func flatten(rec types.Record) map[string]types.Value {
	out := make(map[string]types.Value)
	var walk func(prefix string, m map[string]types.Value)
	walk = func(prefix string, m map[string]types.Value) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if v.Kind == types.KindMap {
				walk(key, v.Map)
				continue
			}
			out[key] = v
		}
	}
	walk("", rec)
	return out
}

// parseLeadingZeroInt parses a decimal literal, returning its integer
// value and the count of leading '0' characters so NUMBER columns can
// restore "007" rather than "7" (spec.md §4.E "Leading-zero preservation").
// The literal is always unsigned digits (pattern.go's numberFullRe is
// `^\d+$`), so no sign handling is needed; it returns an error when the
// literal doesn't fit int64.
func parseLeadingZeroInt(lit string) (int64, uint8, error) {
	zeros := 0
	for zeros < len(lit)-1 && lit[zeros] == '0' {
		zeros++
	}
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return v, uint8(zeros), nil
}

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// parseISOTimestamp parses an ISO-8601-like literal into UNIX seconds.
func parseISOTimestamp(s string) (int64, error) {
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Unix(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}
