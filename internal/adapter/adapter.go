// Package adapter locates rewritable class-name spans inside each artifact
// kind and re-serializes the artifact with names substituted.
package adapter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yacobolo/twmangle/internal/logging"
	"github.com/yacobolo/twmangle/internal/token"
)

// ErrScriptParse is the sentinel for a program that does not parse.
var ErrScriptParse = errors.New("script does not parse")

// ParseError reports a fatal per-file parse failure.
type ParseError struct {
	SourceID string
	Kind     Kind
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s parse error at %d:%d: %v", e.SourceID, e.Kind, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %s parse error: %v", e.SourceID, e.Kind, e.Err)
}

// Unwrap exposes both ErrScriptParse and the underlying parser error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrScriptParse, e.Err}
}

// Kind identifies an artifact format.
type Kind int

const (
	KindUnknown Kind = iota
	KindCSS
	KindHTML
	KindScript
	KindSFC
)

func (k Kind) String() string {
	switch k {
	case KindCSS:
		return "css"
	case KindHTML:
		return "html"
	case KindScript:
		return "script"
	case KindSFC:
		return "sfc"
	default:
		return "unknown"
	}
}

// EmitMode selects how the Script adapter produces its output.
type EmitMode int

const (
	// EmitSplice applies byte-range edits and keeps every other byte in place.
	EmitSplice EmitMode = iota
	// EmitRegenerate re-parses the spliced program and prints it from the tree.
	EmitRegenerate
)

// ParseEmitMode maps "splice" or "regenerate" to an EmitMode.
func ParseEmitMode(s string) (EmitMode, error) {
	switch s {
	case "", "splice":
		return EmitSplice, nil
	case "regenerate":
		return EmitRegenerate, nil
	}
	return EmitSplice, fmt.Errorf("unknown emit mode %q (want splice or regenerate)", s)
}

// Default directive and marker values.
const (
	DefaultScopeMarker  = "data-v-"
	DefaultIgnoreMarker = "twm-ignore"
	DefaultIgnoreTag    = "twIgnore"
)

// Options tune adapter behaviour.
type Options struct {
	IgnoreScoped  bool
	ScopeMarker   string
	RewriteInline bool
	IgnoreMarker  string
	IgnoreTag     string
	Emit          EmitMode
}

func (o Options) withDefaults() Options {
	if o.ScopeMarker == "" {
		o.ScopeMarker = DefaultScopeMarker
	}
	if o.IgnoreMarker == "" {
		o.IgnoreMarker = DefaultIgnoreMarker
	}
	if o.IgnoreTag == "" {
		o.IgnoreTag = DefaultIgnoreTag
	}
	return o
}

// Names resolves class tokens for one source. Lookup may allocate and record
// usage; Observe only records usage for names that are never rewritten.
type Names interface {
	token.Lookup
	Observe(original string)
}

// Env is everything an adapter needs besides the source text.
type Env struct {
	Names    Names
	SourceID string
	Logger   logging.Logger
	Options  Options
}

func (env Env) normalized(component string) Env {
	if env.Logger == nil {
		env.Logger = logging.Nop()
	}
	env.Logger = env.Logger.WithComponent(component).With("source", env.SourceID)
	env.Options = env.Options.withDefaults()
	return env
}

// as switches the logging component of an already normalized Env.
func (env Env) as(component string) Env {
	env.Logger = env.Logger.WithComponent(component)
	return env
}

// Result is a rewritten artifact. Edits lists every replaced span in input
// offsets, ordered by Start; it is nil when the output was re-serialized
// from a tree rather than spliced.
type Result struct {
	Code  string
	Edits []token.Edit
}

// Rewriter rewrites one artifact kind.
type Rewriter interface {
	Rewrite(src string, env Env) (Result, error)
}

// RewriterFunc adapts a function to the Rewriter interface.
type RewriterFunc func(src string, env Env) (Result, error)

// Rewrite calls f.
func (f RewriterFunc) Rewrite(src string, env Env) (Result, error) { return f(src, env) }

// For returns the rewriter for kind, or nil for KindUnknown.
func For(kind Kind) Rewriter {
	switch kind {
	case KindCSS:
		return RewriterFunc(RewriteCSS)
	case KindHTML:
		return RewriterFunc(RewriteHTML)
	case KindScript:
		return RewriterFunc(RewriteScript)
	case KindSFC:
		return RewriterFunc(RewriteSFC)
	default:
		return nil
	}
}

// shift moves edits computed on a slice to the slice's offset in the parent.
func shift(edits []token.Edit, offset int) []token.Edit {
	for i := range edits {
		edits[i].Start += offset
		edits[i].End += offset
	}
	return edits
}

func sortEdits(edits []token.Edit) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
}

func spliced(src string, edits []token.Edit) Result {
	sortEdits(edits)
	return Result{Code: token.Apply(src, edits), Edits: edits}
}
