package adapter

import (
	"fmt"
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yacobolo/twmangle/internal/token"
)

// RewriteHTML substitutes tokens in every class attribute and, with
// RewriteInline, inside inline <style> and <script> elements. The document
// is re-rendered, so Result.Edits is nil.
func RewriteHTML(src string, env Env) (Result, error) {
	env = env.normalized("html")

	bom := ""
	if strings.HasPrefix(src, byteOrderMark) {
		bom, src = byteOrderMark, src[len(byteOrderMark):]
	}

	nodes, document, err := parseHTML(src)
	if err != nil {
		return Result{Code: src}, fmt.Errorf("parse %s: %w", env.SourceID, err)
	}

	for _, root := range nodes {
		for el := range htmlElements(root, env.Options.IgnoreMarker) {
			rewriteElement(el.node, el.ignored, env)
		}
	}

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return Result{Code: src}, fmt.Errorf("render %s: %w", env.SourceID, err)
		}
	}
	out := bom + b.String()
	if !document && strings.HasSuffix(src, "\n") && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return Result{Code: out}, nil
}

const byteOrderMark = "\ufeff"

// parseHTML parses src as a whole document when it looks like one and as a
// body fragment otherwise.
func parseHTML(src string) ([]*html.Node, bool, error) {
	if isDocument(src) {
		doc, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, true, err
		}
		return []*html.Node{doc}, true, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	return nodes, false, err
}

// isDocument reports whether src, after leading whitespace and comments,
// starts with a doctype or an html, head or body tag.
func isDocument(src string) bool {
	rest := src
	for {
		rest = strings.TrimLeft(rest, " \t\r\n\f")
		if !strings.HasPrefix(rest, "<!--") {
			break
		}
		end := strings.Index(rest[4:], "-->")
		if end < 0 {
			return false
		}
		rest = rest[4+end+3:]
	}

	lower := strings.ToLower(rest)
	if strings.HasPrefix(lower, "<!doctype") {
		return true
	}
	for _, tag := range []string{"<html", "<head", "<body"} {
		if !strings.HasPrefix(lower, tag) {
			continue
		}
		if len(lower) == len(tag) {
			return true
		}
		switch lower[len(tag)] {
		case ' ', '\t', '\r', '\n', '\f', '>', '/':
			return true
		}
	}
	return false
}

type htmlElement struct {
	node    *html.Node
	ignored bool
}

// htmlElements yields every element under root in document order. An element
// whose nearest preceding sibling (whitespace text skipped) is a comment
// containing ignoreMarker is flagged ignored.
func htmlElements(root *html.Node, ignoreMarker string) iter.Seq[htmlElement] {
	return func(yield func(htmlElement) bool) {
		var walk func(n *html.Node) bool
		walk = func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				if !yield(htmlElement{node: n, ignored: precededByIgnore(n, ignoreMarker)}) {
					return false
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(root)
	}
}

func precededByIgnore(n *html.Node, marker string) bool {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		switch {
		case p.Type == html.TextNode && strings.TrimSpace(p.Data) == "":
			continue
		case p.Type == html.CommentNode:
			return strings.Contains(p.Data, marker)
		default:
			return false
		}
	}
	return false
}

func rewriteElement(n *html.Node, ignored bool, env Env) {
	for i := range n.Attr {
		a := &n.Attr[i]
		if a.Namespace != "" || !strings.EqualFold(a.Key, "class") {
			continue
		}
		a.Val = token.Replace(a.Val, env.Names, token.Policy{Ignored: ignored})
	}

	if !env.Options.RewriteInline || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return
	}
	text := n.FirstChild

	switch n.DataAtom {
	case atom.Style:
		text.Data = rewriteCSS(text.Data, env.as("css")).Code
	case atom.Script:
		if !isClassicOrModuleScript(n) {
			return
		}
		res, err := rewriteScript(text.Data, env.as("script"), 0)
		if err != nil {
			env.Logger.Warn(err, "inline script does not parse, leaving it unchanged")
			return
		}
		text.Data = res.Code
	}
}

func isClassicOrModuleScript(n *html.Node) bool {
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, "type") {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(a.Val)) {
		case "", "module", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
			return true
		default:
			return false
		}
	}
	return true
}
