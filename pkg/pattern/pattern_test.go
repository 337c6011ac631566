package pattern

import "testing"

func TestExtractAndRehydrateRoundTrip(t *testing.T) {
	cases := []string{
		"connection from 10.0.0.1 refused",
		"request took 42ms at 2024-01-02T03:04:05Z",
		"user=007 session=0xFF actions=3",
		"plain text with no variables",
		"",
	}
	for _, s := range cases {
		res := Extract(s, "message")
		got := Rehydrate(res.Pattern, res.Variables)
		if got != s {
			t.Errorf("Extract/Rehydrate(%q) round-trip mismatch: got %q, pattern=%q vars=%v", s, got, res.Pattern, res.Variables)
		}
	}
}

func TestExtractIP(t *testing.T) {
	res := Extract("connection from 10.0.0.1 refused", "message")
	found := false
	for name, lit := range res.Variables {
		if lit == "10.0.0.1" {
			found = true
			if KindOf(name) != KindIP {
				t.Errorf("expected %q to be classified as ip, got %s", name, KindOf(name))
			}
		}
	}
	if !found {
		t.Fatalf("expected 10.0.0.1 to be extracted as a variable, pattern=%q vars=%v", res.Pattern, res.Variables)
	}
}

func TestExtractCapsAtTenVariables(t *testing.T) {
	s := "1 2 3 4 5 6 7 8 9 10 11 12"
	res := Extract(s, "message")
	if len(res.Variables) > maxVariables {
		t.Fatalf("expected at most %d variables, got %d", maxVariables, len(res.Variables))
	}
	if Rehydrate(res.Pattern, res.Variables) != s {
		t.Fatalf("round-trip failed once the cap is hit")
	}
}

func TestExtractLeadingZerosPreservedAsLiteral(t *testing.T) {
	res := Extract("code=007", "message")
	for _, lit := range res.Variables {
		if lit == "007" {
			return
		}
	}
	t.Fatalf("expected the literal \"007\" to survive unmodified in Variables, got %v", res.Variables)
}

// KindOf is a tiny test helper that recovers a variable's kind suffix from
// its name (var_{root}_{n}_{kind}), since the kind itself isn't otherwise
// exposed in Result.
func KindOf(name string) Kind {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '_' {
			return Kind(name[i+1:])
		}
	}
	return ""
}
