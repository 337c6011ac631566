package trie

import (
	"bytes"
	"testing"
)

func TestInsertAssignsStablePositiveIndices(t *testing.T) {
	tr := New()
	words := []string{"apple", "app", "application", "banana", "band"}
	indices := make(map[string]int)
	for _, w := range words {
		indices[w] = tr.Insert(w)
	}
	for w, idx := range indices {
		if idx <= 0 {
			t.Errorf("Insert(%q) returned non-positive index %d", w, idx)
		}
	}
	// Re-inserting the same word must return the same index.
	for w, idx := range indices {
		if got := tr.Insert(w); got != idx {
			t.Errorf("re-insert of %q changed its index: got %d, want %d", w, got, idx)
		}
	}
}

func TestBuildValueMapRecoversEveryWord(t *testing.T) {
	tr := New()
	words := []string{"apple", "app", "application", "banana", "band", "bandana"}
	indices := make(map[string]int)
	for _, w := range words {
		indices[w] = tr.Insert(w)
	}
	values := tr.BuildValueMap()
	for w, idx := range indices {
		if values[idx] != w {
			t.Errorf("BuildValueMap()[%d] = %q, want %q", idx, values[idx], w)
		}
	}
}

func TestMergeSingleChildrenPreservesProtectedIndices(t *testing.T) {
	tr := New()
	words := []string{"apple", "application"}
	indices := make(map[string]int)
	for _, w := range words {
		indices[w] = tr.Insert(w)
	}
	protected := make(map[int]bool)
	for _, idx := range indices {
		protected[idx] = true
	}
	tr.MergeSingleChildren(protected)
	values := tr.BuildValueMap()
	for w, idx := range indices {
		if values[idx] != w {
			t.Errorf("after merge, BuildValueMap()[%d] = %q, want %q", idx, values[idx], w)
		}
	}
}

func TestRenameIndicesProducesDenseRange(t *testing.T) {
	tr := New()
	words := []string{"apple", "app", "application", "banana", "band"}
	oldIdx := make(map[string]int)
	for _, w := range words {
		oldIdx[w] = tr.Insert(w)
	}
	renamed := tr.RenameIndices()

	seen := make(map[int]bool)
	values := tr.BuildValueMap()
	for idx := range values {
		if idx < 1 || idx > len(values) {
			t.Errorf("renamed index %d out of dense 1..%d range", idx, len(values))
		}
		if seen[idx] {
			t.Errorf("duplicate renamed index %d", idx)
		}
		seen[idx] = true
	}
	for w, old := range oldIdx {
		nv, ok := renamed[old]
		if !ok {
			t.Fatalf("RenameIndices map missing old index %d for %q", old, w)
		}
		if values[nv] != w {
			t.Errorf("after rename, BuildValueMap()[%d] = %q, want %q", nv, values[nv], w)
		}
	}
}

func TestWireRoundTrip(t *testing.T) {
	tr := New()
	// Empty strings are rejected upstream by database.Insert (spec.md §9)
	// and are never handed to the trie in practice, so they're excluded
	// here too.
	words := []string{"apple", "app", "application", "banana", "band", "bandana"}
	protected := make(map[int]bool)
	for _, w := range words {
		protected[tr.Insert(w)] = true
	}
	tr.MergeSingleChildren(protected)
	tr.RenameIndices()
	want := tr.BuildValueMap()

	var buf bytes.Buffer
	if err := tr.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	gotValues := got.BuildValueMap()
	if len(gotValues) != len(want) {
		t.Fatalf("round-tripped trie has %d indexed nodes, want %d", len(gotValues), len(want))
	}
	for idx, w := range want {
		if gotValues[idx] != w {
			t.Errorf("round trip: index %d = %q, want %q", idx, gotValues[idx], w)
		}
	}
}

func TestReadFromTruncatedStreamReturnsErrTruncated(t *testing.T) {
	tr := New()
	tr.Insert("hello")
	tr.Insert("help")
	var buf bytes.Buffer
	if err := tr.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-1]
	if _, err := ReadFrom(bytes.NewReader(truncated)); err != ErrTruncated {
		t.Fatalf("ReadFrom(truncated) = %v, want ErrTruncated", err)
	}
}
