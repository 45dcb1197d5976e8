package twmangle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuild(t *testing.T, opts Options, candidates ...string) *Build {
	t.Helper()
	b, err := NewBuild(opts, candidates)
	require.NoError(t, err)
	return b
}

func TestBuildEndToEnd(t *testing.T) {
	b := newTestBuild(t, Options{}, "text-3xl", "font-bold", "underline")

	res, err := b.Rewrite(KindHTML, "index.html", `<div class="text-3xl font-bold underline">x</div>`)
	require.NoError(t, err)
	assert.Equal(t, `<div class="tw-a tw-b tw-c">x</div>`, res.Code)

	assert.Equal(t, map[string]string{
		"text-3xl":  "tw-a",
		"font-bold": "tw-b",
		"underline": "tw-c",
	}, b.ReplaceMap())
	assert.Equal(t, "tw-", b.Prefix())
	assert.Empty(t, b.Warnings())

	again, err := b.Rewrite(KindHTML, "index.html", res.Code)
	require.NoError(t, err)
	assert.Equal(t, res.Code, again.Code)
}

func TestBuildConsistentAcrossKinds(t *testing.T) {
	b := newTestBuild(t, Options{}, "flex", "p-4")

	css, err := b.Rewrite(KindCSS, "app.css", ".flex{display:flex}.p-4{padding:1rem}")
	require.NoError(t, err)
	js, err := b.Rewrite(KindScript, "app.js", `el.className = "p-4 flex other"`)
	require.NoError(t, err)

	assert.Equal(t, ".tw-a{display:flex}.tw-b{padding:1rem}", css.Code)
	assert.Equal(t, `el.className = "tw-b tw-a other"`, js.Code)

	assert.Equal(t, []ClassRecord{
		{Original: "flex", Name: "tw-a", UsedBy: []string{"app.css", "app.js"}},
		{Original: "p-4", Name: "tw-b", UsedBy: []string{"app.css", "app.js"}},
	}, b.Records())
}

func TestBuildPreserve(t *testing.T) {
	b := newTestBuild(t, Options{Preserve: []string{"dark", "/^js-/"}}, "flex", "dark", "js-toggle")

	res, err := b.Rewrite(KindHTML, "a.html", `<p class="dark flex js-toggle">x</p>`)
	require.NoError(t, err)
	assert.Equal(t, `<p class="dark tw-a js-toggle">x</p>`, res.Code)
	assert.Equal(t, map[string]string{"flex": "tw-a"}, b.ReplaceMap())
	assert.NotContains(t, b.Usage(), "dark")
}

func TestBuildCandidatesAreReserved(t *testing.T) {
	b := newTestBuild(t, Options{}, "tw-a", "flex")

	res, err := b.Rewrite(KindCSS, "a.css", ".flex{}")
	require.NoError(t, err)
	assert.Equal(t, ".tw-b{}", res.Code)
	require.Len(t, b.Warnings(), 1)
	assert.Contains(t, b.Warnings()[0], "skipping name slot")
}

func TestBuildReservedAndPrefix(t *testing.T) {
	empty := ""
	b := newTestBuild(t, Options{Prefix: &empty, Reserved: []string{"a", "/^b$/"}}, "flex")

	res, err := b.Rewrite(KindScript, "a.js", `x("flex")`)
	require.NoError(t, err)
	assert.Equal(t, `x("c")`, res.Code)
	assert.Len(t, b.Warnings(), 2)
}

func TestBuildStrategy(t *testing.T) {
	strategy := StrategyFunc(func(original string, _ NamingContext) (string, bool) {
		if original == "flex" {
			return "fx", true
		}
		return "", false
	})
	b := newTestBuild(t, Options{Strategy: strategy}, "flex", "grid")

	res, err := b.Rewrite(KindCSS, "a.css", ".flex{}.grid{}")
	require.NoError(t, err)
	assert.Equal(t, ".tw-fx{}.tw-b{}", res.Code)
}

func TestBuildChainedStrategies(t *testing.T) {
	fixed := func(from, to string) Strategy {
		return StrategyFunc(func(original string, _ NamingContext) (string, bool) {
			return to, original == from
		})
	}
	b := newTestBuild(t, Options{Strategy: ChainStrategies(fixed("flex", "fx"), fixed("grid", "gd"))},
		"flex", "grid", "hidden")

	res, err := b.Rewrite(KindCSS, "a.css", ".flex{}.grid{}.hidden{}")
	require.NoError(t, err)
	assert.Equal(t, ".tw-fx{}.tw-gd{}.tw-c{}", res.Code)
}

func TestBuildFilters(t *testing.T) {
	b := newTestBuild(t, Options{
		Include: []string{"src/**"},
		Exclude: []string{"**/vendor/**"},
	}, "flex")

	tests := []struct {
		sourceID string
		want     string
	}{
		{sourceID: "src/app.css", want: ".tw-a{}"},
		{sourceID: "src/vendor/lib.css", want: ".flex{}"},
		{sourceID: "other/app.css", want: ".flex{}"},
	}
	for _, tt := range tests {
		t.Run(tt.sourceID, func(t *testing.T) {
			res, err := b.Rewrite(KindCSS, tt.sourceID, ".flex{}")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
		})
	}
	assert.Equal(t, map[string][]string{"flex": {"src/app.css"}}, b.Usage())
}

func TestBuildErrors(t *testing.T) {
	b := newTestBuild(t, Options{}, "flex")

	res, err := b.Rewrite(KindScript, "bad.js", `const = "flex"`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScriptParse))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.js", pe.SourceID)
	assert.Equal(t, `const = "flex"`, res.Code)

	res, err = b.Rewrite(KindUnknown, "notes.txt", "flex")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Equal(t, "flex", res.Code)
}

func TestNewBuildValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "bad reserved pattern", opts: Options{Reserved: []string{"/(/"}}},
		{name: "bad preserve pattern", opts: Options{Preserve: []string{"/[/"}}},
		{name: "bad include glob", opts: Options{Include: []string{"src/[a"}}},
		{name: "bad alphabet", opts: Options{Alphabet: "aa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuild(tt.opts, nil)
			assert.Error(t, err)
		})
	}
}

var batch = []File{
	{SourceID: "a.css", Kind: KindCSS, Source: ".flex{} .p-4{} .grid{}"},
	{SourceID: "b.html", Kind: KindHTML, Source: `<div class="grid underline flex">x</div>`},
	{SourceID: "c.js", Kind: KindScript, Source: `const a = "underline text-sm p-4"`},
	{SourceID: "d.vue", Kind: KindSFC, Source: `<template><p class="flex" :class="{ 'italic': on }"></p></template>`},
	{SourceID: "e.js", Kind: KindScript, Source: `const = "flex"`},
	{SourceID: "f.txt", Kind: KindUnknown, Source: "flex"},
	{SourceID: "vendor/g.css", Kind: KindCSS, Source: ".flex{}"},
}

var batchCandidates = []string{"flex", "p-4", "grid", "underline", "text-sm", "italic"}

func TestRewriteAll(t *testing.T) {
	b := newTestBuild(t, Options{Exclude: []string{"vendor/**"}}, batchCandidates...)

	results, err := b.RewriteAll(context.Background(), batch, 4)
	require.NoError(t, err)
	require.Len(t, results, len(batch))

	want := []string{
		".tw-a{} .tw-b{} .tw-c{}",
		`<div class="tw-c tw-d tw-a">x</div>`,
		`const a = "tw-d tw-e tw-b"`,
		`<template><p class="tw-a" :class="{ 'italic': on }"></p></template>`,
		`const = "flex"`,
		"flex",
		".flex{}",
	}
	for i, r := range results {
		assert.Equal(t, batch[i].SourceID, r.SourceID)
		assert.Equal(t, want[i], r.Result.Code, r.SourceID)
	}

	assert.ErrorIs(t, results[4].Err, ErrScriptParse)
	assert.ErrorIs(t, results[5].Err, ErrUnsupportedKind)
	assert.True(t, results[6].Skipped)
	assert.NoError(t, results[6].Err)

	assert.Equal(t, map[string]string{
		"flex":      "tw-a",
		"p-4":       "tw-b",
		"grid":      "tw-c",
		"underline": "tw-d",
		"text-sm":   "tw-e",
	}, b.ReplaceMap())
	assert.Equal(t, []string{"d.vue"}, b.Usage()["italic"])
	assert.Equal(t, []string{"a.css", "b.html", "d.vue"}, b.Usage()["flex"])
}

func TestRewriteAllMatchesSequentialRewrite(t *testing.T) {
	parallel := newTestBuild(t, Options{}, batchCandidates...)
	results, err := parallel.RewriteAll(context.Background(), batch, 8)
	require.NoError(t, err)

	serial := newTestBuild(t, Options{}, batchCandidates...)
	for i, f := range batch {
		res, err := serial.Rewrite(f.Kind, f.SourceID, f.Source)
		assert.Equal(t, res.Code, results[i].Result.Code, f.SourceID)
		assert.Equal(t, err != nil, results[i].Err != nil, f.SourceID)
	}
	assert.Equal(t, serial.ReplaceMap(), parallel.ReplaceMap())
	assert.Equal(t, serial.Records(), parallel.Records())
}

func TestRewriteAllDeterministic(t *testing.T) {
	var first map[string]string
	var firstCodes []string
	for _, workers := range []int{0, 1, 3, 16} {
		b := newTestBuild(t, Options{}, batchCandidates...)
		results, err := b.RewriteAll(context.Background(), batch, workers)
		require.NoError(t, err)

		codes := make([]string, len(results))
		for i, r := range results {
			codes[i] = r.Result.Code
		}
		if first == nil {
			first, firstCodes = b.ReplaceMap(), codes
			continue
		}
		assert.Equal(t, first, b.ReplaceMap(), "workers=%d", workers)
		assert.Equal(t, firstCodes, codes, "workers=%d", workers)
	}
}

func TestRewriteAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newTestBuild(t, Options{}, batchCandidates...)
	results, err := b.RewriteAll(ctx, batch[:4], 2)
	assert.ErrorIs(t, err, context.Canceled)
	for i, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Equal(t, batch[i].Source, r.Result.Code)
	}
	assert.Empty(t, b.ReplaceMap())
}

func TestKindFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"a/b.css", KindCSS},
		{"index.HTML", KindHTML},
		{"page.htm", KindHTML},
		{"app.js", KindScript},
		{"mod.mjs", KindScript},
		{"cfg.cjs", KindScript},
		{"Comp.vue", KindSFC},
		{"main.go", KindUnknown},
		{"Makefile", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromPath(tt.path))
		})
	}
}
