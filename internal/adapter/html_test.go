package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/twmangle/internal/token"
)

func TestRewriteHTML(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts Options
		want string
	}{
		{
			name: "class attribute",
			src:  `<div class="flex p-4 grid">x</div>`,
			want: `<div class="tw-a tw-b grid">x</div>`,
		},
		{
			name: "separators preserved",
			src:  `<p class=" flex  p-4 ">x</p>`,
			want: `<p class=" tw-a  tw-b ">x</p>`,
		},
		{
			name: "no quote splitting inside the value",
			src:  `<p class="bg-red-500/50 md:p-4">x</p>`,
			want: `<p class="tw-f tw-c">x</p>`,
		},
		{
			name: "other attributes untouched",
			src:  `<a href="flex" title="p-4" class="flex">x</a>`,
			want: `<a href="flex" title="p-4" class="tw-a">x</a>`,
		},
		{
			name: "ignore comment",
			src:  `<!-- twm-ignore --> <span class="flex">a</span><span class="flex">b</span>`,
			want: `<!-- twm-ignore --> <span class="flex">a</span><span class="tw-a">b</span>`,
		},
		{
			name: "inline content untouched by default",
			src:  `<style>.flex{}</style><script>x = "flex"</script>`,
			want: `<style>.flex{}</style><script>x = "flex"</script>`,
		},
		{
			name: "inline content rewritten",
			src:  `<style>.flex{}</style><script>x = "flex"</script><script type="application/json">{"a":"flex"}</script>`,
			opts: Options{RewriteInline: true},
			want: `<style>.tw-a{}</style><script>x = "tw-a"</script><script type="application/json">{"a":"flex"}</script>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _, _ := newEnv(tt.opts)
			res, err := RewriteHTML(tt.src, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
			assert.Nil(t, res.Edits)
		})
	}
}

func TestRewriteHTMLDocument(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "doctype",
			src: "<!DOCTYPE html><html><head><style>.p-4 { padding: 1rem }</style></head>" +
				`<body><main class="flex"><p class="font-bold">hi</p></main></body></html>`,
			want: "<!DOCTYPE html><html><head><style>.tw-b { padding: 1rem }</style></head>" +
				`<body><main class="tw-a"><p class="tw-d">hi</p></main></body></html>`,
		},
		{
			name: "leading comment",
			src: "<!-- build 1 -->\n<!doctype html><html><head><title>x</title></head>" +
				`<body><div class="flex"></div></body></html>`,
			want: "<!-- build 1 --><!DOCTYPE html><html><head><title>x</title></head>" +
				`<body><div class="tw-a"></div></body></html>`,
		},
		{
			name: "byte order mark",
			src:  "\ufeff<!DOCTYPE html><html><head></head><body><p class=\"flex\"></p></body></html>",
			want: "\ufeff<!DOCTYPE html><html><head></head><body><p class=\"tw-a\"></p></body></html>",
		},
		{
			name: "starts with head",
			src:  `<head><title>x</title></head><body><div class="flex"></div></body>`,
			want: `<html><head><title>x</title></head><body><div class="tw-a"></div></body></html>`,
		},
		{
			name: "header element is a fragment",
			src:  `<header class="flex">x</header>`,
			want: `<header class="tw-a">x</header>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _, _ := newEnv(Options{RewriteInline: true})
			res, err := RewriteHTML(tt.src, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
		})
	}
}

func TestRewriteHTMLInlineScriptFailure(t *testing.T) {
	src := `<div class="flex"></div><script>const = "flex"</script>`

	env, _, logs := newEnv(Options{RewriteInline: true})
	res, err := RewriteHTML(src, env)
	require.NoError(t, err)
	assert.Equal(t, `<div class="tw-a"></div><script>const = "flex"</script>`, res.Code)
	require.Len(t, logs.Messages(), 1)
	assert.Contains(t, logs.Messages()[0], "inline script does not parse")
}

func TestRewriteHTMLEndToEnd(t *testing.T) {
	names := &liveNames{}
	env := Env{Names: names, SourceID: "index.html"}

	res, err := RewriteHTML(`<div class="text-3xl font-bold underline">x</div>`, env)
	require.NoError(t, err)

	start := len(`<div class="`)
	end := len(res.Code) - len(`">x</div>`)
	value := res.Code[start:end]

	tokens := token.Split(value, token.Options{})
	require.Len(t, tokens, 3)
	seen := map[string]bool{}
	for _, tok := range tokens {
		assert.Regexp(t, `^tw-`, tok)
		seen[tok] = true
	}
	assert.Len(t, seen, 3)
	assert.ElementsMatch(t, tokens, []string{names.m["text-3xl"], names.m["font-bold"], names.m["underline"]})
}

// liveNames hands out sequential names on first lookup.
type liveNames struct {
	m map[string]string
}

func (l *liveNames) Lookup(s string) (string, bool) {
	if l.m == nil {
		l.m = map[string]string{}
	}
	if r, ok := l.m[s]; ok {
		return r, true
	}
	r := "tw-" + string(rune('a'+len(l.m)))
	l.m[s] = r
	return r, true
}

func (l *liveNames) Observe(string) {}
