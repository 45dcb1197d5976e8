package adapter

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"github.com/yacobolo/twmangle/internal/token"
)

// maxEvalDepth bounds eval-inside-eval recursion.
const maxEvalDepth = 16

type scriptLiteralKind int

const (
	litString scriptLiteralKind = iota
	litTemplate
	litEvalArg
)

// scriptLiteral is a rewrite candidate: the content of a string literal or
// template segment, without its delimiters.
type scriptLiteral struct {
	kind   scriptLiteralKind
	start  int
	end    int
	quote  byte
	policy token.Policy
}

// RewriteScript substitutes class tokens in every string literal and
// template text segment of a program. A program that does not parse is
// fatal and returned as a *ParseError.
func RewriteScript(src string, env Env) (Result, error) {
	env = env.normalized("script")
	return rewriteScript(src, env, 0)
}

func rewriteScript(src string, env Env, depth int) (Result, error) {
	if _, err := js.Parse(parse.NewInputString(src), js.Options{}); err != nil {
		return Result{Code: src}, scriptParseError(env.SourceID, err)
	}

	var edits []token.Edit
	for lit, err := range scriptLiterals(src, env.Options) {
		if err != nil {
			env.Logger.Warn(err, "cannot locate literals in a program that parses, leaving it unchanged")
			return Result{Code: src}, nil
		}
		content := src[lit.start:lit.end]

		if lit.kind == litEvalArg && !lit.policy.Ignored {
			program, ok := decodeJSString(content)
			switch {
			case !ok:
				env.Logger.Warn(nil, "eval argument has legacy escapes, treating it as plain text", "offset", lit.start)
			case depth >= maxEvalDepth:
				env.Logger.Warn(nil, "eval nesting too deep, treating argument as plain text", "offset", lit.start)
			default:
				inner, err := rewriteScript(program, env, depth+1)
				if err != nil {
					return Result{Code: src}, fmt.Errorf("eval argument at offset %d: %w", lit.start, err)
				}
				if inner.Code != program {
					edits = append(edits, token.Edit{
						Start:       lit.start,
						End:         lit.end,
						Original:    content,
						Replacement: encodeJSString(inner.Code, lit.quote),
					})
				}
				continue
			}
		}

		edits = append(edits, shift(token.Edits(content, env.Names, lit.policy), lit.start)...)
	}

	res := spliced(src, edits)
	if env.Options.Emit == EmitRegenerate && depth == 0 {
		ast, err := js.Parse(parse.NewInputString(res.Code), js.Options{})
		if err != nil {
			return Result{Code: src}, scriptParseError(env.SourceID, fmt.Errorf("rewritten program: %w", err))
		}
		return Result{Code: ast.JSString()}, nil
	}
	return res, nil
}

func scriptParseError(sourceID string, err error) error {
	pe := &ParseError{SourceID: sourceID, Kind: KindScript, Err: err}
	var perr *parse.Error
	if errors.As(err, &perr) {
		pe.Line, pe.Column = perr.Line, perr.Column
		pe.Err = errors.New(perr.Message)
	}
	return pe
}

// scriptFrame is an open bracket. regexAfter reports whether a '/' right
// after its closing bracket starts a regular expression, as after the head
// of an if/while/for/with or the end of a block.
type scriptFrame struct {
	ignored    bool
	eval       bool
	brace      bool
	regexAfter bool
}

// scriptLiterals walks the token stream of a program that is known to parse
// and yields string literals and template segments in source order.
//
// Ignore directives: a comment containing opts.IgnoreMarker covers the next
// literal, bracketed group or call (identifier and member chains carry it
// forward). A template tagged with opts.IgnoreTag is skipped whole.
//
// A string that is a whole direct argument of a plain eval(...) call is
// yielded as litEvalArg.
func scriptLiterals(src string, opts Options) iter.Seq2[scriptLiteral, error] {
	opts = opts.withDefaults()
	return func(yield func(scriptLiteral, error) bool) {
		l := js.NewLexer(parse.NewInputString(src))
		off := 0

		var (
			prev        js.TokenType
			prev2       js.TokenType
			prevData    string
			hasPrev     bool
			pending     bool // ignore directive waiting for its target
			evalNext    bool // saw eval, expecting '('
			classNext   bool // saw class, its body brace is a block
			closedRegex bool // the last closed bracket allows a regexp after it
			stack       []scriptFrame
			ignoredIn   int // ignored frames on the stack
			held        *scriptLiteral
		)

		push := func(f scriptFrame) {
			stack = append(stack, f)
			if f.ignored {
				ignoredIn++
			}
		}
		pop := func() scriptFrame {
			if len(stack) == 0 {
				return scriptFrame{}
			}
			f := stack[len(stack)-1]
			if f.ignored {
				ignoredIn--
			}
			stack = stack[:len(stack)-1]
			return f
		}
		inEvalCall := func() bool {
			return len(stack) > 0 && stack[len(stack)-1].eval
		}

		for {
			tt, data := l.Next()
			if tt == js.ErrorToken {
				if err := l.Err(); err != nil && err != io.EOF {
					yield(scriptLiteral{}, fmt.Errorf("lex program at offset %d: %w", off, err))
					return
				}
				if held != nil {
					yield(*held, nil)
				}
				return
			}
			if (tt == js.DivToken || tt == js.DivEqToken) && regexpAllowed(prev, hasPrev, closedRegex) {
				if tt, data = l.RegExp(); tt == js.ErrorToken {
					yield(scriptLiteral{}, fmt.Errorf("lex regular expression at offset %d: %w", off, l.Err()))
					return
				}
			}
			start := off
			off += len(data)

			switch tt {
			case js.WhitespaceToken, js.LineTerminatorToken:
				continue
			case js.CommentToken, js.CommentLineTerminatorToken:
				if strings.Contains(string(data), opts.IgnoreMarker) {
					pending = true
				}
				continue
			}

			// A held eval argument is only a whole argument if the call
			// continues with ',' or ')'.
			if held != nil {
				if tt == js.CommaToken || tt == js.CloseParenToken {
					held.kind = litEvalArg
				}
				if !yield(*held, nil) {
					return
				}
				held = nil
			}

			tagged := hasPrev && prev == js.IdentifierToken && prevData == opts.IgnoreTag
			openEval := evalNext && tt == js.OpenParenToken
			evalNext = false

			switch tt {
			case js.StringToken:
				lit := scriptLiteral{
					kind:   litString,
					start:  start + 1,
					end:    start + len(data) - 1,
					quote:  data[0],
					policy: token.Policy{SplitOnQuotes: true, Ignored: pending || ignoredIn > 0},
				}
				pending = false
				if inEvalCall() && (prev == js.OpenParenToken || prev == js.CommaToken) {
					held = &lit
				} else if !yield(lit, nil) {
					return
				}
			case js.TemplateToken:
				lit := scriptLiteral{
					kind:   litTemplate,
					start:  start + 1,
					end:    start + len(data) - 1,
					policy: token.Policy{SplitOnQuotes: true, Ignored: pending || tagged || ignoredIn > 0},
				}
				pending = false
				if !yield(lit, nil) {
					return
				}
			case js.TemplateStartToken:
				push(scriptFrame{ignored: pending || tagged})
				pending = false
				lit := scriptLiteral{
					kind:   litTemplate,
					start:  start + 1,
					end:    start + len(data) - 2,
					policy: token.Policy{SplitOnQuotes: true, Ignored: ignoredIn > 0, GluedEnd: true},
				}
				if !yield(lit, nil) {
					return
				}
			case js.TemplateMiddleToken:
				lit := scriptLiteral{
					kind:   litTemplate,
					start:  start + 1,
					end:    start + len(data) - 2,
					policy: token.Policy{SplitOnQuotes: true, Ignored: ignoredIn > 0, GluedStart: true, GluedEnd: true},
				}
				if !yield(lit, nil) {
					return
				}
			case js.TemplateEndToken:
				lit := scriptLiteral{
					kind:   litTemplate,
					start:  start + 1,
					end:    start + len(data) - 1,
					policy: token.Policy{SplitOnQuotes: true, Ignored: ignoredIn > 0, GluedStart: true},
				}
				pop()
				if !yield(lit, nil) {
					return
				}
			case js.OpenParenToken:
				push(scriptFrame{ignored: pending, eval: openEval, regexAfter: controlHead(prev, prev2, hasPrev)})
				pending = false
			case js.OpenBracketToken:
				push(scriptFrame{ignored: pending})
				pending = false
			case js.OpenBraceToken:
				block := classNext || braceIsBlock(prev, hasPrev, stack)
				push(scriptFrame{ignored: pending, brace: true, regexAfter: block})
				pending, classNext = false, false
			case js.CloseParenToken, js.CloseBracketToken, js.CloseBraceToken:
				closedRegex = pop().regexAfter
				pending = false
			case js.ClassToken:
				classNext = true
				pending = false
			case js.IdentifierToken:
				if string(data) == "eval" && !(hasPrev && (prev == js.DotToken || prev == js.OptChainToken)) {
					evalNext = true
				}
			case js.DotToken, js.OptChainToken, js.PrivateIdentifierToken:
			default:
				pending = false
			}

			prev2 = prev
			prev, prevData, hasPrev = tt, string(data), true
		}
	}
}

// regexpAllowed reports whether a '/' after prev starts a regular expression.
// closedRegex is the regexAfter of the frame prev closed, if it closed one.
func regexpAllowed(prev js.TokenType, hasPrev, closedRegex bool) bool {
	if !hasPrev {
		return true
	}
	switch prev {
	case js.CloseParenToken, js.CloseBraceToken:
		return closedRegex
	case js.CloseBracketToken,
		js.IncrToken, js.DecrToken,
		js.StringToken, js.TemplateToken, js.TemplateEndToken, js.RegExpToken,
		js.PrivateIdentifierToken,
		js.ThisToken, js.SuperToken, js.NullToken, js.TrueToken, js.FalseToken:
		return false
	}
	if js.IsNumeric(prev) || js.IsIdentifier(prev) {
		return false
	}
	return js.IsPunctuator(prev) || js.IsOperator(prev) || js.IsReservedWord(prev)
}

// controlHead reports whether a '(' after prev opens the head of an
// if, while, for or with statement.
func controlHead(prev, prev2 js.TokenType, hasPrev bool) bool {
	if !hasPrev || prev2 == js.DotToken || prev2 == js.OptChainToken {
		return false
	}
	switch prev {
	case js.IfToken, js.WhileToken, js.ForToken, js.WithToken:
		return true
	case js.AwaitToken:
		return prev2 == js.ForToken
	}
	return false
}

// braceIsBlock reports whether a '{' after prev opens a block or body
// rather than an object literal.
func braceIsBlock(prev js.TokenType, hasPrev bool, stack []scriptFrame) bool {
	if !hasPrev {
		return true
	}
	switch prev {
	case js.SemicolonToken, js.OpenBraceToken, js.CloseBraceToken, js.CloseParenToken,
		js.ArrowToken, js.ElseToken, js.DoToken, js.TryToken, js.FinallyToken:
		return true
	case js.ColonToken:
		// labels and case clauses sit directly in a block
		if len(stack) == 0 {
			return true
		}
		top := stack[len(stack)-1]
		return top.brace && top.regexAfter
	}
	return false
}

// decodeJSString decodes the body of a string literal. It reports false for
// legacy octal escapes, which have no single sane decoding.
func decodeJSString(s string) (string, bool) {
	if !strings.Contains(s, `\`) {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(s) {
			return "", false
		}
		e := s[i+1]
		i += 2
		switch e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			if i < len(s) && s[i] >= '0' && s[i] <= '9' {
				return "", false
			}
			b.WriteByte(0)
		case '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return "", false
		case 'x':
			if i+2 > len(s) {
				return "", false
			}
			v, err := strconv.ParseUint(s[i:i+2], 16, 8)
			if err != nil {
				return "", false
			}
			b.WriteRune(rune(v))
			i += 2
		case 'u':
			r, n, ok := decodeUnicodeEscape(s[i:])
			if !ok {
				return "", false
			}
			i += n
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i:], `\u`) {
				if lo, m, ok := decodeUnicodeEscape(s[i+2:]); ok {
					if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
						r = pair
						i += 2 + m
					}
				}
			}
			b.WriteRune(r)
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case '\n':
		default:
			// line continuations over LS/PS, identity escapes
			r, size := utf8.DecodeRuneInString(s[i-1:])
			if r != '\u2028' && r != '\u2029' {
				b.WriteRune(r)
			}
			i += size - 1
		}
	}
	return b.String(), true
}

func decodeUnicodeEscape(s string) (rune, int, bool) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, false
		}
		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return 0, 0, false
		}
		return rune(v), end + 1, true
	}
	if len(s) < 4 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return rune(v), 4, true
}

// encodeJSString escapes s for the body of a literal delimited by quote.
func encodeJSString(s string, quote byte) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r == rune(quote) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
