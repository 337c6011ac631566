// Package pattern implements the CLP-style pattern extractor: splitting a
// log string into a template plus the small set of literals it varies by
// (spec.md §4.A), grounded on original_source/joedb/clp.py.
package pattern

import (
	"regexp"
	"strings"
)

// Kind names the category of an extracted variable.
type Kind string

const (
	KindTimestamp Kind = "timestamp"
	KindNumber    Kind = "number"
	KindTime      Kind = "time"
	KindHex       Kind = "hex"
	KindIP        Kind = "ip"
)

// maxVariables caps the number of literals extracted per input string
// (spec.md §4.A "Cap").
const maxVariables = 10

var (
	timestampRe = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z?\b`)
	ipRe        = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	numberFullRe = regexp.MustCompile(`^\d+$`)
	timeFullRe   = regexp.MustCompile(`^\d+s$`)
	hexFullRe    = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+$`)

	separators = " \t\n\r{}[](),;:\"'=-."
)

// Result is the outcome of extracting a pattern from one string.
type Result struct {
	Pattern   string
	Variables map[string]string // name -> literal
}

// Extract splits s into a pattern template and the variables it extracted,
// naming each var_{root}_{n}_{kind} (spec.md §4.A). Disabled callers should
// skip Extract entirely and use s as its own pattern with no variables
// (the "disable switch" in spec.md §4.A).
func Extract(s string, root string) Result {
	variables := make(map[string]string)
	counters := map[Kind]int{}
	total := 0

	// Whole-string passes: timestamps and IPs both contain literal
	// separator characters ('.' for IPs, the date's own punctuation for
	// timestamps) that the per-token scan in step 2 would otherwise
	// split apart before a fullmatch test ever sees them (see DESIGN.md,
	// "IP extraction vs. tokenization on .").
	s = replaceWhole(s, timestampRe, root, KindTimestamp, counters, variables, &total)
	s = replaceWhole(s, ipRe, root, KindIP, counters, variables, &total)

	tokens := tokenize(s)
	var out strings.Builder
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			out.WriteString(tok)
			continue
		}
		if total >= maxVariables {
			out.WriteString(tok)
			continue
		}
		if name, ok := matchToken(tok, root, counters, variables, &total); ok {
			out.WriteString("{")
			out.WriteString(name)
			out.WriteString("}")
			continue
		}
		out.WriteString(tok)
	}

	return Result{Pattern: out.String(), Variables: variables}
}

func replaceWhole(s string, re *regexp.Regexp, root string, kind Kind, counters map[Kind]int, variables map[string]string, total *int) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		if *total >= maxVariables {
			return match
		}
		name := varName(root, kind, counters[kind])
		counters[kind]++
		*total++
		variables[name] = match
		return "{" + name + "}"
	})
}

// matchToken tests a single non-whitespace token against number, time,
// hex, ip in that order (spec.md §4.A step 3). The IP test is kept in
// that order, but since '.' is a separator no token ever contains a dot,
// so it never matches here; IPs are extracted only by the whole-string
// pass in Extract.
func matchToken(tok, root string, counters map[Kind]int, variables map[string]string, total *int) (string, bool) {
	order := []struct {
		kind Kind
		re   *regexp.Regexp
	}{
		{KindNumber, numberFullRe},
		{KindTime, timeFullRe},
		{KindHex, hexFullRe},
		{KindIP, ipRe},
	}
	for _, c := range order {
		if c.kind == KindIP {
			if !ipFullMatch(tok) {
				continue
			}
		} else if !c.re.MatchString(tok) {
			continue
		}
		name := varName(root, c.kind, counters[c.kind])
		counters[c.kind]++
		*total++
		variables[name] = tok
		return name, true
	}
	return "", false
}

func ipFullMatch(tok string) bool {
	loc := ipRe.FindStringIndex(tok)
	return loc != nil && loc[0] == 0 && loc[1] == len(tok)
}

func varName(root string, kind Kind, n int) string {
	return "var_" + root + "_" + itoa(n) + "_" + string(kind)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// tokenize splits s into whitespace runs, single separator characters, and
// the word-like runs between them, such that concatenating the tokens
// reproduces s exactly (spec.md §4.A "Guarantees").
func tokenize(s string) []string {
	var tokens []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, buf.String())
			buf.Reset()
		}
	}

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			flush()
			j := i
			for j < len(runes) && isSpace(runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
			continue
		}
		if strings.ContainsRune(separators, r) {
			flush()
			tokens = append(tokens, string(r))
			i++
			continue
		}
		buf.WriteRune(r)
		i++
	}
	flush()
	return tokens
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Rehydrate substitutes every {var_…} placeholder in pattern with its
// literal, reproducing the original string (spec.md §4.A "Guarantees",
// §8 property 2).
func Rehydrate(patternStr string, variables map[string]string) string {
	out := patternStr
	for name, lit := range variables {
		if lit == "" {
			continue
		}
		out = strings.ReplaceAll(out, "{"+name+"}", lit)
	}
	return out
}
