// Package token splits class strings into candidate tokens and substitutes
// whole tokens from a replacement lookup.
package token

// Options controls where Split breaks text.
type Options struct {
	// SplitOnQuotes also breaks on ", ' and ` outside brackets.
	SplitOnQuotes bool
}

// Span is a half-open byte range [Start, End) of a token in its text.
type Span struct {
	Start int
	End   int
}

// Split returns the tokens of text in appearance order. Duplicates are kept
// and empty tokens dropped. Text is never split on '/' or ':', nor on quotes
// inside a bracketed arbitrary value.
func Split(text string, opts Options) []string {
	spans := Spans(text, opts)
	tokens := make([]string, len(spans))
	for i, s := range spans {
		tokens[i] = text[s.Start:s.End]
	}
	return tokens
}

// Spans is Split returning byte offsets instead of strings.
func Spans(text string, opts Options) []Span {
	var spans []Span
	start := -1
	depth := 0

	flush := func(end int) {
		if start >= 0 && end > start {
			spans = append(spans, Span{Start: start, End: end})
		}
		start = -1
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case isSpace(c):
			flush(i)
			depth = 0
		case opts.SplitOnQuotes && isQuote(c) && depth == 0:
			flush(i)
		default:
			if start < 0 {
				start = i
			}
			switch c {
			case '[':
				depth++
			case ']':
				if depth > 0 {
					depth--
				}
			}
		}
	}
	flush(len(text))
	return spans
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}
