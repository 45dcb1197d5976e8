package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		quotes bool
		want   []string
	}{
		{name: "empty", text: "", want: nil},
		{name: "whitespace only", text: " \n\t ", want: nil},
		{name: "simple", text: "text-3xl font-bold underline", want: []string{"text-3xl", "font-bold", "underline"}},
		{name: "duplicates kept", text: "a b a", want: []string{"a", "b", "a"}},
		{name: "modifiers stay whole", text: "bg-red-500/50 hover:md:p-4", want: []string{"bg-red-500/50", "hover:md:p-4"}},
		{name: "quotes ignored by default", text: `"flex"`, want: []string{`"flex"`}},
		{name: "quotes split when enabled", text: `"flex" 'p-4'`, quotes: true, want: []string{"flex", "p-4"}},
		{name: "glued quotes", text: `a"b'c`, quotes: true, want: []string{"a", "b", "c"}},
		{name: "quotes inside brackets", text: `content-['x'] grid`, quotes: true, want: []string{"content-['x']", "grid"}},
		{name: "nested brackets", text: `w-[calc(100%-[1rem])]'a`, quotes: true, want: []string{"w-[calc(100%-[1rem])]", "a"}},
		{name: "whitespace resets bracket", text: `x-[ "y"`, quotes: true, want: []string{"x-[", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, Options{SplitOnQuotes: tt.quotes}))
		})
	}
}

func TestSpans(t *testing.T) {
	spans := Spans("  ab  c", Options{})
	assert.Equal(t, []Span{{2, 4}, {6, 7}}, spans)
}

func TestReplace(t *testing.T) {
	m := MapLookup{
		"bg-red-500":    "tw-a",
		"bg-red-500/50": "tw-b",
		"flex":          "tw-c",
		"p-4":           "tw-d",
	}

	tests := []struct {
		name   string
		text   string
		policy Policy
		want   string
	}{
		{name: "longer token wins", text: "bg-red-500/50", want: "tw-b"},
		{name: "both lengths", text: "bg-red-500 bg-red-500/50", want: "tw-a tw-b"},
		{name: "separators preserved", text: "  flex\n\tp-4 ", want: "  tw-c\n\ttw-d "},
		{name: "unknown untouched", text: "flexbox flex md:flex", want: "flexbox tw-c md:flex"},
		{name: "quoted without quote splitting", text: `"flex"`, want: `"flex"`},
		{name: "quoted with quote splitting", text: `x = "flex p-4"`, policy: Policy{SplitOnQuotes: true}, want: `x = "tw-c tw-d"`},
		{name: "ignored", text: "flex", policy: Policy{Ignored: true}, want: "flex"},
		{name: "glued end", text: "p-4 flex", policy: Policy{GluedEnd: true}, want: "tw-d flex"},
		{name: "glued start", text: "flex p-4", policy: Policy{GluedStart: true}, want: "flex tw-d"},
		{name: "no match", text: "grid", want: "grid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Replace(tt.text, m, tt.policy))
		})
	}
}

func TestReplaceLengthOrder(t *testing.T) {
	m := MapLookup{"bg-red-500": "tw-a", "bg-red-500/50": "tw-b"}
	assert.Equal(t, `class="tw-b"`, Replace(`class="bg-red-500/50"`, m, Policy{SplitOnQuotes: true}))
}

func TestReplaceIdempotent(t *testing.T) {
	m := MapLookup{"flex": "tw-a", "p-4": "tw-b", "bg-red-500/50": "tw-c"}
	text := `<div class="flex p-4 bg-red-500/50 grid">`
	once := Replace(text, m, Policy{SplitOnQuotes: true})
	assert.Equal(t, once, Replace(once, m, Policy{SplitOnQuotes: true}))
}

func TestReplaceLookupCalledOncePerToken(t *testing.T) {
	calls := map[string]int{}
	lookup := LookupFunc(func(s string) (string, bool) {
		calls[s]++
		return "x", s == "a"
	})
	assert.Equal(t, "x b x", Replace("a b a", lookup, Policy{}))
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, calls)
}

func TestReplaceGluedEdgeSkipsLookup(t *testing.T) {
	var seen []string
	lookup := LookupFunc(func(s string) (string, bool) {
		seen = append(seen, s)
		return "", false
	})
	Replace("bg- flex text-", lookup, Policy{GluedStart: true, GluedEnd: true})
	assert.Equal(t, []string{"flex"}, seen)
}

func TestEdits(t *testing.T) {
	edits := Edits("p-4 flex", MapLookup{"flex": "tw-a", "p-4": "tw-bb"}, Policy{})
	assert.Equal(t, []Edit{
		{Start: 0, End: 3, Original: "p-4", Replacement: "tw-bb"},
		{Start: 4, End: 8, Original: "flex", Replacement: "tw-a"},
	}, edits)
	assert.Equal(t, "tw-bb tw-a", Apply("p-4 flex", edits))
}
