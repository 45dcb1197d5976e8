package adapter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
	"golang.org/x/net/html"

	"github.com/yacobolo/twmangle/internal/token"
)

var errNoSections = errors.New("no <template>, <script> or <style> section")

// sfcSection is a top-level block of a component file. start and end
// delimit its content, tag is its raw start tag.
type sfcSection struct {
	name  string
	tag   string
	start int
	end   int
}

// tagAttr is one attribute of a raw start tag; the value offsets are
// relative to the tag.
type tagAttr struct {
	name     string
	hasValue bool
	valStart int
	valEnd   int
}

// RewriteSFC rewrites a single-file component. The template, script and
// style sections are rewritten on their own slices and the edits shifted
// back into one buffer. A file that does not split into sections is
// rewritten as a whole by the Script adapter.
func RewriteSFC(src string, env Env) (Result, error) {
	env = env.normalized("sfc")

	sections, err := splitSFC(src)
	if err != nil {
		env.Logger.Warn(err, "component file does not split into sections, rewriting it as a script")
		return rewriteScript(src, env.as("script"), 0)
	}

	sectionEnv := env
	sectionEnv.Options.Emit = EmitSplice

	var edits []token.Edit
	for _, s := range sections {
		body := src[s.start:s.end]
		var part []token.Edit

		switch s.name {
		case "template":
			part = rewriteTemplate(body, sectionEnv)
		case "script":
			if lang, ok := tagAttrValue(s.tag, "lang"); ok && !isJavaScriptLang(lang) {
				env.Logger.Warn(nil, "skipping script section in unsupported language", "lang", lang)
				continue
			}
			res, err := rewriteScript(body, sectionEnv.as("script"), 0)
			if err != nil {
				return Result{Code: src}, err
			}
			part = res.Edits
		case "style":
			part = rewriteCSS(body, sectionEnv.as("css")).Edits
		}
		edits = append(edits, shift(part, s.start)...)
	}
	return spliced(src, edits), nil
}

func isJavaScriptLang(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "js", "javascript", "mjs", "jsx":
		return true
	}
	return false
}

// splitSFC finds the top-level template, script and style sections. Other
// top-level blocks are skipped whole.
func splitSFC(src string) ([]sfcSection, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	var (
		sections []sfcSection
		open     *sfcSection
		block    string
		depth    int
		off      int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("tokenize component: %w", err)
			}
			break
		}
		start := off
		off += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if depth == 0 {
				block, depth = string(name), 1
				if block == "template" || block == "script" || block == "style" {
					open = &sfcSection{name: block, tag: src[start:off], start: off}
				}
				continue
			}
			if string(name) == block {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if depth == 0 || string(name) != block {
				continue
			}
			if depth--; depth == 0 {
				if open != nil {
					open.end = start
					sections = append(sections, *open)
					open = nil
				}
				block = ""
			}
		}
	}

	if depth > 0 {
		return nil, fmt.Errorf("unterminated <%s> section", block)
	}
	if len(sections) == 0 {
		return nil, errNoSections
	}
	return sections, nil
}

// rewriteTemplate rewrites static class attributes in a template slice and
// records usage for string literals in dynamic class bindings.
func rewriteTemplate(tpl string, env Env) []token.Edit {
	env = env.as("sfc-template")
	z := html.NewTokenizer(strings.NewReader(tpl))

	var edits []token.Edit
	off := 0
	ignoreNext := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return edits
		}
		start := off
		off += len(z.Raw())

		switch tt {
		case html.CommentToken:
			if strings.Contains(tpl[start:off], env.Options.IgnoreMarker) {
				ignoreNext = true
			}
		case html.TextToken:
			if strings.TrimSpace(tpl[start:off]) != "" {
				ignoreNext = false
			}
		case html.EndTagToken:
			ignoreNext = false
		case html.StartTagToken, html.SelfClosingTagToken:
			tag := tpl[start:off]
			for _, a := range scanTagAttrs(tag) {
				if !a.hasValue {
					continue
				}
				value := tag[a.valStart:a.valEnd]
				switch strings.ToLower(a.name) {
				case "class":
					policy := token.Policy{Ignored: ignoreNext}
					edits = append(edits, shift(token.Edits(value, env.Names, policy), start+a.valStart)...)
				case ":class", "v-bind:class":
					if !ignoreNext {
						observeBinding(value, env)
					}
				}
			}
			ignoreNext = false
		}
	}
}

// observeBinding records usage for every token inside the string literals of
// a bound class expression. The expression itself is never rewritten.
func observeBinding(expr string, env Env) {
	expr = html.UnescapeString(expr)
	l := js.NewLexer(parse.NewInputString(expr))
	for {
		tt, data := l.Next()
		switch tt {
		case js.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				env.Logger.Warn(err, "unrecognized dynamic class binding", "expr", expr)
			}
			return
		case js.StringToken, js.TemplateToken:
			content := string(data[1 : len(data)-1])
			for _, tok := range token.Split(content, token.Options{SplitOnQuotes: true}) {
				env.Names.Observe(tok)
			}
		}
	}
}

// scanTagAttrs lists the attributes of a raw start tag such as
// `<div class="a" :class='b' hidden>`.
func scanTagAttrs(tag string) []tagAttr {
	var attrs []tagAttr
	i := 1
	for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '>' && tag[i] != '/' {
		i++
	}
	for {
		for i < len(tag) && (isTagSpace(tag[i]) || tag[i] == '/') {
			i++
		}
		if i >= len(tag) || tag[i] == '>' {
			return attrs
		}

		nameStart := i
		for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '=' && tag[i] != '>' && tag[i] != '/' {
			i++
		}
		if i == nameStart {
			i++
			continue
		}
		a := tagAttr{name: tag[nameStart:i]}

		j := i
		for j < len(tag) && isTagSpace(tag[j]) {
			j++
		}
		if j < len(tag) && tag[j] == '=' {
			i = j + 1
			for i < len(tag) && isTagSpace(tag[i]) {
				i++
			}
			a.hasValue = true
			if i < len(tag) && (tag[i] == '"' || tag[i] == '\'') {
				q := tag[i]
				i++
				a.valStart = i
				end := strings.IndexByte(tag[i:], q)
				if end < 0 {
					end = len(tag) - i
				}
				a.valEnd = i + end
				i = a.valEnd + 1
			} else {
				a.valStart = i
				for i < len(tag) && !isTagSpace(tag[i]) && tag[i] != '>' {
					i++
				}
				a.valEnd = i
			}
		}
		attrs = append(attrs, a)
	}
}

func tagAttrValue(tag, name string) (string, bool) {
	for _, a := range scanTagAttrs(tag) {
		if strings.EqualFold(a.name, name) {
			if !a.hasValue {
				return "", true
			}
			return tag[a.valStart:a.valEnd], true
		}
	}
	return "", false
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
