package database

import (
	"testing"

	"joedb/pkg/column"
	"joedb/pkg/types"
)

func TestInsertFlattensNestedKeys(t *testing.T) {
	db := New()
	rec := types.Record{
		"host": types.Map(types.Record{
			"name": types.String("web-01"),
		}),
		"message": types.String("plain log line"),
	}
	if err := db.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	names := make(map[string]bool)
	for _, c := range db.Columns() {
		names[c.Name] = true
	}
	if !names["host.name"] {
		t.Errorf("expected a flattened \"host.name\" column, got %v", names)
	}
	if !names["message"] {
		t.Errorf("expected a \"message\" column, got %v", names)
	}
}

func TestInsertPadsUntouchedColumns(t *testing.T) {
	db := New(WithPatternization(false))
	if err := db.Insert(types.Record{"a": types.String("x")}); err != nil {
		t.Fatalf("Insert 1: %v", err)
	}
	if err := db.Insert(types.Record{"b": types.String("y")}); err != nil {
		t.Fatalf("Insert 2: %v", err)
	}
	for _, c := range db.Columns() {
		if c.Len() != 2 {
			t.Errorf("column %q has %d rows, want 2 (one real + one absent pad)", c.Name, c.Len())
		}
	}
}

func TestInsertRejectsEmptyString(t *testing.T) {
	db := New()
	err := db.Insert(types.Record{"message": types.String("")})
	if err == nil {
		t.Fatal("expected an error inserting an empty string value")
	}
}

func TestInsertRoutesExtractedVariablesByType(t *testing.T) {
	db := New()
	rec := types.Record{"message": types.String("retry count=007 at 2024-01-02T03:04:05Z")}
	if err := db.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var sawNumber, sawTimestamp bool
	for _, c := range db.Columns() {
		switch c.Type {
		case column.TypeNumber:
			sawNumber = true
			if c.LeadingZeros[0] != 2 {
				t.Errorf("expected 2 leading zeros for \"007\", got %d", c.LeadingZeros[0])
			}
			if c.Values[0] != 7 {
				t.Errorf("expected numeric value 7, got %d", c.Values[0])
			}
		case column.TypeTimestamp:
			sawTimestamp = true
		}
	}
	if !sawNumber {
		t.Error("expected a NUMBER column to be created for the extracted \"007\"")
	}
	if !sawTimestamp {
		t.Error("expected a TIMESTAMP column to be created for the extracted ISO timestamp")
	}
}

func TestInsertFallsBackToStringForOversizedNumber(t *testing.T) {
	db := New()
	// 25 digits: well past int64's ~19-digit range.
	big := "1234567890123456789012345"
	rec := types.Record{"message": types.String("txn id=" + big + " accepted")}
	if err := db.Insert(rec); err != nil {
		t.Fatalf("Insert should not drop a record over an oversized NUMBER literal: %v", err)
	}

	var found bool
	for _, c := range db.Columns() {
		if c.Type != column.TypeString || c.Name == "message" {
			continue
		}
		found = true
		vm := c.Trie.BuildValueMap()
		if vm[int(c.Values[0])] != big {
			t.Errorf("expected the oversized literal %q preserved losslessly as a string, got %q", big, vm[int(c.Values[0])])
		}
	}
	if !found {
		t.Fatal("expected the extracted oversized number variable to land in a fallback STRING column")
	}
}

func TestInsertConvertsNumberColumnOnLaterOverflow(t *testing.T) {
	db := New()
	if err := db.Insert(types.Record{"message": types.String("retry count=3")}); err != nil {
		t.Fatalf("Insert 1: %v", err)
	}
	big := "99999999999999999999999999999"
	if err := db.Insert(types.Record{"message": types.String("retry count=" + big)}); err != nil {
		t.Fatalf("Insert 2 should not drop the record: %v", err)
	}

	for _, c := range db.Columns() {
		if c.Name == "message" {
			continue
		}
		if c.Type != column.TypeString {
			t.Fatalf("expected column %q to have been converted to STRING after the overflowing second insert, got %v", c.Name, c.Type)
		}
		if c.LeadingZeros != nil {
			t.Errorf("expected LeadingZeros cleared after conversion, got %v", c.LeadingZeros)
		}
		vm := c.Trie.BuildValueMap()
		if vm[int(c.Values[0])] != "3" {
			t.Errorf("expected row 0's original value \"3\" preserved after conversion, got %q", vm[int(c.Values[0])])
		}
		if vm[int(c.Values[1])] != big {
			t.Errorf("expected row 1's oversized literal %q preserved, got %q", big, vm[int(c.Values[1])])
		}
	}
}

func TestPatternizationDisableSwitch(t *testing.T) {
	db := New(WithPatternization(false))
	if err := db.Insert(types.Record{"message": types.String("2024-01-02T03:04:05Z")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(db.Columns()) != 1 {
		t.Fatalf("with patternization disabled, expected exactly one column (no extracted vars), got %d", len(db.Columns()))
	}
}
