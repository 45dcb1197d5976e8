package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteCSS(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts Options
		want string
	}{
		{
			name: "simple rules",
			src:  ".flex{display:flex}\n.p-4 .flex:hover, a.foo > .grid { padding: 1rem }",
			want: ".tw-a{display:flex}\n.tw-b .tw-a:hover, a.tw-g > .grid { padding: 1rem }",
		},
		{
			name: "escaped selector",
			src:  `.md\:p-4{padding:1rem}`,
			want: ".tw-c{padding:1rem}",
		},
		{
			name: "escaped slash",
			src:  `.bg-red-500\/50{opacity:.5}.bg-red-500{}`,
			want: ".tw-f{opacity:.5}.tw-e{}",
		},
		{
			name: "at-rules and nesting",
			src:  "@media (min-width: 640px) { .flex { &.foo { color: red } .p-4 & { margin: 0 } } }",
			want: "@media (min-width: 640px) { .tw-a { &.tw-g { color: red } .tw-b & { margin: 0 } } }",
		},
		{
			name: "declarations untouched",
			src:  ".flex { background: url(flex.png); margin: .5rem; content: \".flex\" }",
			want: ".tw-a { background: url(flex.png); margin: .5rem; content: \".flex\" }",
		},
		{
			name: "attribute values untouched",
			src:  "a[title=x.flex].foo{}",
			want: "a[title=x.flex].tw-g{}",
		},
		{
			name: "pseudo-class arguments",
			src:  ":is(.flex, .p-4):not(.foo){}",
			want: ":is(.tw-a, .tw-b):not(.tw-g){}",
		},
		{
			name: "scoped selector kept when ignoring scoped",
			src:  ".foo[data-v-abc123]{color:red}",
			opts: Options{IgnoreScoped: true},
			want: ".foo[data-v-abc123]{color:red}",
		},
		{
			name: "scoped selector renamed otherwise",
			src:  ".foo[data-v-abc123]{color:red}",
			want: ".tw-g[data-v-abc123]{color:red}",
		},
		{
			name: "only the scoped component is kept",
			src:  ".flex .foo[data-v-abc123]{color:red}",
			opts: Options{IgnoreScoped: true},
			want: ".tw-a .foo[data-v-abc123]{color:red}",
		},
		{
			name: "keyframes",
			src:  "@keyframes spin { from { rotate: 0 } 50.5% { rotate: 1turn } }",
			want: "@keyframes spin { from { rotate: 0 } 50.5% { rotate: 1turn } }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _, logs := newEnv(tt.opts)
			res, err := RewriteCSS(tt.src, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Code)
			assert.Empty(t, logs.Messages())
			assertEditsMatchSource(t, tt.src, res.Edits)
		})
	}
}

func TestRewriteCSSParseFailure(t *testing.T) {
	inputs := []string{
		".flex { color: red",
		".flex { color: red } }",
		".flex { content: \"unterminated\n }",
	}

	for _, src := range inputs {
		t.Run(src, func(t *testing.T) {
			env, _, logs := newEnv(Options{})
			res, err := RewriteCSS(src, env)
			require.NoError(t, err)
			assert.Equal(t, src, res.Code)
			assert.Nil(t, res.Edits)
			require.Len(t, logs.Messages(), 1)
			assert.Contains(t, logs.Messages()[0], "stylesheet does not parse")
		})
	}
}

func TestCSSEscapes(t *testing.T) {
	unescape := []struct{ in, want string }{
		{"flex", "flex"},
		{`md\:p-4`, "md:p-4"},
		{`\31 0`, "10"},
		{`w-1\/2`, "w-1/2"},
		{`a\62 c`, "abc"},
	}
	for _, tt := range unescape {
		assert.Equal(t, tt.want, cssUnescape(tt.in), tt.in)
	}

	escape := []struct{ in, want string }{
		{"tw-a", "tw-a"},
		{"1a", `\31 a`},
		{"-1", `-\31 `},
		{"a:b", `a\:b`},
	}
	for _, tt := range escape {
		assert.Equal(t, tt.want, cssEscape(tt.in), tt.in)
	}
}
