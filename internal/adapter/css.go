package adapter

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/twmangle/internal/token"
)

type cssToken struct {
	tt   css.TokenType
	data string
	off  int
}

type cssNodeKind int

const (
	cssSheet cssNodeKind = iota
	cssAtRule
	cssStyleRule
	cssDeclaration
)

// cssNode is one node of the rule tree. Blocks keep their prelude (the
// tokens before '{'); declarations and block-less at-rules keep their tokens
// in prelude too.
type cssNode struct {
	kind     cssNodeKind
	prelude  []cssToken
	children []*cssNode
}

type cssClassRef struct {
	ident  cssToken
	scoped bool
}

// RewriteCSS substitutes class selectors in a stylesheet. A stylesheet that
// does not parse is returned unchanged with a warning.
func RewriteCSS(src string, env Env) (Result, error) {
	return rewriteCSS(src, env.normalized("css")), nil
}

// rewriteCSS never fails: a stylesheet that does not parse is logged and
// passed through unchanged.
func rewriteCSS(src string, env Env) Result {
	root, err := parseCSS(src)
	if err != nil {
		env.Logger.Warn(err, "stylesheet does not parse, leaving it unchanged")
		return Result{Code: src}
	}
	return spliced(src, cssEdits(root, env))
}

func cssEdits(root *cssNode, env Env) []token.Edit {
	var edits []token.Edit
	for ref := range cssClassRefs(root, env.Options.ScopeMarker) {
		if ref.scoped && env.Options.IgnoreScoped {
			env.Logger.Debug("skipping scoped selector", "class", ref.ident.data)
			continue
		}
		name := cssUnescape(ref.ident.data)
		if name == "" || strings.ContainsAny(name, " \t\r\n\f") {
			continue
		}
		for _, e := range token.Edits(name, env.Names, token.Policy{}) {
			edits = append(edits, token.Edit{
				Start:       ref.ident.off,
				End:         ref.ident.off + len(ref.ident.data),
				Original:    ref.ident.data,
				Replacement: cssEscape(e.Replacement),
			})
		}
	}
	return edits
}

func lexCSS(src string) ([]cssToken, error) {
	l := css.NewLexer(parse.NewInputString(src))
	var toks []cssToken
	off := 0
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("lex stylesheet: %w", err)
			}
			return toks, nil
		case css.BadStringToken:
			return nil, fmt.Errorf("unterminated string at offset %d", off)
		case css.BadURLToken:
			return nil, fmt.Errorf("malformed url at offset %d", off)
		}
		toks = append(toks, cssToken{tt: tt, data: string(data), off: off})
		off += len(data)
	}
}

func parseCSS(src string) (*cssNode, error) {
	toks, err := lexCSS(src)
	if err != nil {
		return nil, err
	}

	root := &cssNode{kind: cssSheet}
	stack := []*cssNode{root}
	var prelude []cssToken

	statement := func() {
		if hasContent(prelude) {
			top := stack[len(stack)-1]
			kind := cssDeclaration
			if startsWithAtKeyword(prelude) {
				kind = cssAtRule
			}
			top.children = append(top.children, &cssNode{kind: kind, prelude: prelude})
		}
		prelude = nil
	}

	for _, t := range toks {
		switch t.tt {
		case css.LeftBraceToken:
			kind := cssStyleRule
			if startsWithAtKeyword(prelude) {
				kind = cssAtRule
			}
			n := &cssNode{kind: kind, prelude: prelude}
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
			stack = append(stack, n)
			prelude = nil
		case css.RightBraceToken:
			if len(stack) == 1 {
				return nil, fmt.Errorf("unexpected '}' at offset %d", t.off)
			}
			statement()
			stack = stack[:len(stack)-1]
		case css.SemicolonToken:
			statement()
		default:
			prelude = append(prelude, t)
		}
	}
	if len(stack) > 1 {
		return nil, fmt.Errorf("%d unclosed block(s) at end of stylesheet", len(stack)-1)
	}
	return root, nil
}

// cssClassRefs yields every class selector in style-rule preludes, nested
// rules included, in source order.
func cssClassRefs(root *cssNode, scopeMarker string) iter.Seq[cssClassRef] {
	return func(yield func(cssClassRef) bool) {
		var walk func(n *cssNode) bool
		walk = func(n *cssNode) bool {
			if n.kind == cssStyleRule {
				p := n.prelude
				brackets := 0
				for i := 0; i < len(p); i++ {
					switch p[i].tt {
					case css.LeftBracketToken:
						brackets++
					case css.RightBracketToken:
						if brackets > 0 {
							brackets--
						}
					case css.DelimToken:
						if brackets > 0 || p[i].data != "." || i+1 >= len(p) {
							continue
						}
						next := p[i+1]
						if next.tt != css.IdentToken && next.tt != css.CustomPropertyNameToken {
							continue
						}
						ref := cssClassRef{ident: next, scoped: scopedAttribute(p, i+2, scopeMarker)}
						if !yield(ref) {
							return false
						}
					}
				}
			}
			for _, c := range n.children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(root)
	}
}

// scopedAttribute reports whether p[i:] starts with an attribute selector
// whose name contains marker.
func scopedAttribute(p []cssToken, i int, marker string) bool {
	if marker == "" || i >= len(p) || p[i].tt != css.LeftBracketToken {
		return false
	}
	for i++; i < len(p); i++ {
		switch p[i].tt {
		case css.WhitespaceToken, css.CommentToken:
			continue
		case css.IdentToken:
			return strings.Contains(p[i].data, marker)
		default:
			return false
		}
	}
	return false
}

func startsWithAtKeyword(toks []cssToken) bool {
	for _, t := range toks {
		switch t.tt {
		case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken:
			continue
		case css.AtKeywordToken:
			return true
		default:
			return false
		}
	}
	return false
}

func hasContent(toks []cssToken) bool {
	for _, t := range toks {
		switch t.tt {
		case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken:
		default:
			return true
		}
	}
	return false
}

// UnescapeIdent decodes CSS escapes in an identifier, so `md\:p-4` becomes md:p-4.
func UnescapeIdent(s string) string { return cssUnescape(s) }

func cssUnescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		i++
		j := i
		for j < len(s) && j-i < 6 && isHexDigit(s[j]) {
			j++
		}
		if j > i {
			v, _ := strconv.ParseUint(s[i:j], 16, 32)
			r := rune(v)
			if r == 0 || !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			b.WriteRune(r)
			if j+1 < len(s) && s[j] == '\r' && s[j+1] == '\n' {
				j += 2
			} else if j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r' || s[j] == '\f') {
				j++
			}
			i = j
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// cssEscape writes name as a CSS identifier.
func cssEscape(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= '0' && r <= '9':
			if i == 0 || i == 1 && name[0] == '-' {
				fmt.Fprintf(&b, `\%x `, r)
			} else {
				b.WriteRune(r)
			}
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r >= 0x80:
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
