// Package usage tracks which sources reference which original class names,
// and which names are exempt from renaming.
package usage

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PatternSet matches names exactly or against regular expressions.
// An entry written as /expr/ is compiled as a regexp; anything else is exact.
type PatternSet struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewPatternSet compiles entries. Empty entries are ignored.
func NewPatternSet(entries []string) (*PatternSet, error) {
	ps := &PatternSet{exact: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if len(e) >= 2 && strings.HasPrefix(e, "/") && strings.HasSuffix(e, "/") {
			re, err := regexp.Compile(e[1 : len(e)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", e, err)
			}
			ps.patterns = append(ps.patterns, re)
			continue
		}
		ps.exact[e] = struct{}{}
	}
	return ps, nil
}

// Contains reports whether name matches an exact entry or a pattern.
// A nil set contains nothing.
func (ps *PatternSet) Contains(name string) bool {
	if ps == nil {
		return false
	}
	if _, ok := ps.exact[name]; ok {
		return true
	}
	for _, re := range ps.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Empty reports whether the set has no entries.
func (ps *PatternSet) Empty() bool {
	return ps == nil || len(ps.exact) == 0 && len(ps.patterns) == 0
}

// PreserveSet lists names that are never renamed.
type PreserveSet struct {
	set *PatternSet
}

// NewPreserveSet compiles entries as a PatternSet.
func NewPreserveSet(entries []string) (*PreserveSet, error) {
	set, err := NewPatternSet(entries)
	if err != nil {
		return nil, fmt.Errorf("preserve: %w", err)
	}
	return &PreserveSet{set: set}, nil
}

// IsPreserved reports whether name is exempt from renaming.
func (p *PreserveSet) IsPreserved(name string) bool {
	return p != nil && p.set.Contains(name)
}

// NameSet is a set of candidate names.
type NameSet map[string]struct{}

// NewNameSet builds a set from names, skipping empty strings.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Contains reports membership.
func (s NameSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
