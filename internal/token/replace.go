package token

import (
	"sort"
	"strings"
)

// Lookup resolves an original token to its replacement.
type Lookup interface {
	Lookup(original string) (replacement string, ok bool)
}

// MapLookup is a Lookup over a fixed replacement map.
type MapLookup map[string]string

// Lookup returns m[original].
func (m MapLookup) Lookup(original string) (string, bool) {
	r, ok := m[original]
	return r, ok
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(original string) (string, bool)

// Lookup calls f.
func (f LookupFunc) Lookup(original string) (string, bool) { return f(original) }

// Policy describes the unit of text being rewritten.
type Policy struct {
	SplitOnQuotes bool
	// Ignored means the unit carries an ignore directive: nothing is rewritten
	// and the lookup is never consulted.
	Ignored bool
	// GluedStart and GluedEnd mark a text edge that continues into other
	// syntax (a template substitution), so it is not a token boundary.
	GluedStart bool
	GluedEnd   bool
}

// Edit replaces text[Start:End] (== Original) with Replacement.
type Edit struct {
	Start       int
	End         int
	Original    string
	Replacement string
}

// Replace substitutes every whole-token occurrence of a resolvable token in text.
func Replace(text string, lookup Lookup, policy Policy) string {
	return Apply(text, Edits(text, lookup, policy))
}

// Edits computes the substitutions Replace would make, ordered by Start.
//
// Matched tokens are substituted longest first (ties lexical) so a token is
// never rewritten inside a longer token containing it. An occurrence counts
// only when it is bounded on both sides by a text edge, whitespace or, with
// SplitOnQuotes, a quote, and lines up with a token found by Spans. Each byte
// is claimed at most once, so replacements are never re-matched.
func Edits(text string, lookup Lookup, policy Policy) []Edit {
	if policy.Ignored || text == "" || lookup == nil {
		return nil
	}

	opts := Options{SplitOnQuotes: policy.SplitOnQuotes}
	spans := Spans(text, opts)
	if len(spans) == 0 {
		return nil
	}

	tokenEnd := make(map[int]int, len(spans))
	resolved := make(map[string]string)
	var unresolved map[string]bool
	for _, s := range spans {
		if s.Start == 0 && policy.GluedStart || s.End == len(text) && policy.GluedEnd {
			continue
		}
		tokenEnd[s.Start] = s.End
		tok := text[s.Start:s.End]
		if _, done := resolved[tok]; done || unresolved[tok] {
			continue
		}
		if r, ok := lookup.Lookup(tok); ok && r != tok {
			resolved[tok] = r
		} else {
			if unresolved == nil {
				unresolved = make(map[string]bool)
			}
			unresolved[tok] = true
		}
	}
	if len(resolved) == 0 {
		return nil
	}

	ordered := make([]string, 0, len(resolved))
	for tok := range resolved {
		ordered = append(ordered, tok)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	claimed := make([]bool, len(text))
	var edits []Edit
	for _, tok := range ordered {
		for from := 0; from < len(text); {
			idx := strings.Index(text[from:], tok)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(tok)
			from = start + 1

			if !boundaryBefore(text, start, policy) || !boundaryAfter(text, end, policy) {
				continue
			}
			if e, ok := tokenEnd[start]; !ok || e != end {
				continue
			}
			if anyClaimed(claimed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				claimed[i] = true
			}
			edits = append(edits, Edit{Start: start, End: end, Original: tok, Replacement: resolved[tok]})
		}
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
	return edits
}

// Apply splices non-overlapping edits, sorted by Start, into text.
func Apply(text string, edits []Edit) string {
	if len(edits) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, e := range edits {
		b.WriteString(text[last:e.Start])
		b.WriteString(e.Replacement)
		last = e.End
	}
	b.WriteString(text[last:])
	return b.String()
}

func boundaryBefore(text string, i int, p Policy) bool {
	if i == 0 {
		return !p.GluedStart
	}
	c := text[i-1]
	return isSpace(c) || p.SplitOnQuotes && isQuote(c)
}

func boundaryAfter(text string, i int, p Policy) bool {
	if i == len(text) {
		return !p.GluedEnd
	}
	c := text[i]
	return isSpace(c) || p.SplitOnQuotes && isQuote(c)
}

func anyClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}
