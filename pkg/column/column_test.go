package column

import "testing"

func TestTypeFor(t *testing.T) {
	cases := map[string]Type{
		"message":                    TypeString,
		"var_message_0_number":       TypeNumber,
		"var_message_0_timestamp":    TypeTimestamp,
		"var_message_0_ip":           TypeString,
		"var_message_0_hex":          TypeString,
		"host.name":                  TypeString,
	}
	for key, want := range cases {
		if got := TypeFor(key); got != want {
			t.Errorf("TypeFor(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestAppendAbsentPadsZero(t *testing.T) {
	c := New("host", TypeString, 0)
	c.AppendAbsent()
	c.AppendAbsent()
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	for i, v := range c.Values {
		if v != 0 {
			t.Errorf("Values[%d] = %d, want 0 (absent sentinel)", i, v)
		}
	}
}

func TestBackfillMatchesPriorRowCount(t *testing.T) {
	c := New("host", TypeString, 3)
	if c.Len() != 3 {
		t.Fatalf("New with n=3 should pre-backfill 3 rows, got %d", c.Len())
	}
	c.Backfill(2)
	if c.Len() != 5 {
		t.Fatalf("after Backfill(2), Len() = %d, want 5", c.Len())
	}
}

func TestAppendStringUsesTrie(t *testing.T) {
	c := New("message", TypeString, 0)
	idx1 := indexOfLastAppend(c, "hello")
	idx2 := indexOfLastAppend(c, "hello")
	if idx1 != idx2 {
		t.Errorf("appending the same string twice produced different indices: %d vs %d", idx1, idx2)
	}
	if c.Trie.BuildValueMap()[idx1] != "hello" {
		t.Errorf("trie does not resolve index %d back to %q", idx1, "hello")
	}
}

func indexOfLastAppend(c *Column, s string) int64 {
	c.AppendString(s)
	return c.Values[len(c.Values)-1]
}
