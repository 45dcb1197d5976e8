// Package candidates builds the set of live class names a build may rename.
package candidates

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/twmangle/internal/adapter"
)

// FromCSS returns every class selector name defined in a stylesheet,
// escapes decoded, de-duplicated and sorted.
func FromCSS(content string) ([]string, error) {
	seen := make(map[string]struct{})
	lexer := css.NewLexer(parse.NewInputString(content))
	brackets := 0

	for {
		tt, text := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("lex stylesheet: %w", err)
			}
			break
		}

		switch tt {
		case css.LeftBracketToken:
			brackets++
		case css.RightBracketToken:
			if brackets > 0 {
				brackets--
			}
		case css.DelimToken:
			// Attribute values such as [title=x.y] are not selectors.
			if brackets > 0 || len(text) == 0 || text[0] != '.' {
				continue
			}
			tt2, name := lexer.Next()
			if tt2 == css.IdentToken {
				seen[adapter.UnescapeIdent(string(name))] = struct{}{}
			}
		}
	}

	return sorted(seen), nil
}

// LoadCSS reads stylesheets and merges their class names.
func LoadCSS(paths []string) ([]string, error) {
	var all []string
	for _, path := range paths {
		// #nosec G304 - path comes from trusted configuration
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		names, err := FromCSS(string(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, names...)
	}
	return Union(all), nil
}

// ParseList reads a candidate list: either a JSON array of strings or one
// name per line, with blank lines and # comments ignored.
func ParseList(data []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var names []string
		if err := json.Unmarshal([]byte(trimmed), &names); err != nil {
			return nil, fmt.Errorf("parse candidate list: %w", err)
		}
		return Union(names), nil
	}

	var names []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return Union(names), nil
}

// LoadList reads a candidate list file.
func LoadList(path string) ([]string, error) {
	// #nosec G304 - path comes from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidate list: %w", err)
	}
	return ParseList(data)
}

// Union merges name lists, dropping empties and duplicates, sorted.
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, n := range list {
			if n = strings.TrimSpace(n); n != "" {
				seen[n] = struct{}{}
			}
		}
	}
	return sorted(seen)
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
