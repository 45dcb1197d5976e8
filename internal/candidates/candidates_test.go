package candidates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCSS(t *testing.T) {
	tests := []struct {
		name string
		css  string
		want []string
	}{
		{
			name: "simple and compound selectors",
			css:  ".btn { color: red }\n.btn.primary:hover, a .card > .card-body { margin: .5rem }",
			want: []string{"btn", "card", "card-body", "primary"},
		},
		{
			name: "escaped utilities",
			css:  `.md\:p-4{padding:1rem} .w-1\/2{width:50%} .\31 0{}`,
			want: []string{"10", "md:p-4", "w-1/2"},
		},
		{
			name: "nesting and at-rules",
			css:  "@media (min-width: 640px) { .sm\\:flex { display: flex } }\n@layer components { .card { &.active {} } }",
			want: []string{"active", "card", "sm:flex"},
		},
		{
			name: "pseudo-class arguments",
			css:  ":is(.a, .b):not(.c) {}",
			want: []string{"a", "b", "c"},
		},
		{
			name: "attribute values and declarations ignored",
			css:  `a[title=x.flex] { content: ".fake"; background: url(x.png); line-height: 1.5 }`,
			want: []string{},
		},
		{
			name: "empty",
			css:  "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromCSS(tt.css)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{
			name: "lines with comments",
			data: "# generated\nflex\n\n  p-4  \nflex\n# trailing\n",
			want: []string{"flex", "p-4"},
		},
		{
			name: "json array",
			data: ` ["p-4", "flex", "", "flex"] `,
			want: []string{"flex", "p-4"},
		},
		{
			name: "empty",
			data: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseList([]byte(`["flex",`))
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.css")
	b := filepath.Join(dir, "b.css")
	list := filepath.Join(dir, "classes.txt")
	require.NoError(t, os.WriteFile(a, []byte(".flex{} .grid{}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(".grid{} .p-4{}"), 0o644))
	require.NoError(t, os.WriteFile(list, []byte("underline\n"), 0o644))

	fromCSS, err := LoadCSS([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"flex", "grid", "p-4"}, fromCSS)

	fromList, err := LoadList(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"flex", "grid", "p-4", "underline"}, Union(fromCSS, fromList))

	_, err = LoadCSS([]string{filepath.Join(dir, "missing.css")})
	assert.Error(t, err)
	_, err = LoadList(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
