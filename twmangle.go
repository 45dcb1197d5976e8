// Package twmangle rewrites utility class names across build artifacts.
//
// Every distinct class token is replaced with a short, collision-free name,
// consistently in stylesheets, markup, program source and component files.
//
// # Rewriting
//
// A Build owns one name allocator and one usage ledger:
//
//	b, err := twmangle.NewBuild(twmangle.Options{}, []string{"flex", "p-4"})
//	if err != nil {
//		return err
//	}
//	res, err := b.Rewrite(twmangle.KindHTML, "index.html", `<div class="flex p-4"></div>`)
//
// Builds are independent; names from one build are never reused by another.
//
// # Batches
//
// RewriteAll processes many files with a fixed worker count and produces the
// same names regardless of scheduling:
//
//	results, err := b.RewriteAll(ctx, files, 8)
//
// # CLI Tool
//
// twmangle also provides a CLI tool. Install with:
//
//	go install github.com/yacobolo/twmangle/cmd/twmangle@latest
package twmangle

import (
	"path/filepath"
	"strings"

	"github.com/yacobolo/twmangle/internal/adapter"
	"github.com/yacobolo/twmangle/internal/naming"
	"github.com/yacobolo/twmangle/internal/token"
)

// Kind identifies an artifact format.
type Kind = adapter.Kind

const (
	KindUnknown = adapter.KindUnknown
	KindCSS     = adapter.KindCSS
	KindHTML    = adapter.KindHTML
	KindScript  = adapter.KindScript
	KindSFC     = adapter.KindSFC
)

// EmitMode selects how script output is produced.
type EmitMode = adapter.EmitMode

const (
	EmitSplice     = adapter.EmitSplice
	EmitRegenerate = adapter.EmitRegenerate
)

type (
	// Result is a rewritten artifact and its edit list.
	Result = adapter.Result
	// Edit is one replaced byte range in input offsets.
	Edit = token.Edit
	// ParseError is a fatal per-file parse failure.
	ParseError = adapter.ParseError
	// Rewriter rewrites one artifact kind.
	Rewriter = adapter.Rewriter
	// Strategy proposes custom names before the default encoder.
	Strategy = naming.Strategy
	// StrategyFunc adapts a function to Strategy.
	StrategyFunc = naming.StrategyFunc
	// NamingContext is the allocator state passed to a Strategy.
	NamingContext = naming.Context
	// Lookup resolves an original token to its replacement.
	Lookup = token.Lookup
)

// ErrScriptParse is matched by errors.Is for every fatal parse failure.
var ErrScriptParse = adapter.ErrScriptParse

// KindFromPath maps a file extension to an artifact kind.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return KindCSS
	case ".html", ".htm":
		return KindHTML
	case ".js", ".mjs", ".cjs":
		return KindScript
	case ".vue":
		return KindSFC
	default:
		return KindUnknown
	}
}

// ParseEmitMode maps "splice" or "regenerate" to an EmitMode.
func ParseEmitMode(s string) (EmitMode, error) { return adapter.ParseEmitMode(s) }

// ChainStrategies tries each strategy in order; the first that handles a
// name wins and the default encoder covers the rest.
func ChainStrategies(strategies ...Strategy) Strategy { return naming.Chain(strategies...) }
