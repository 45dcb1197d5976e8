package twmangle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yacobolo/twmangle/internal/adapter"
	"github.com/yacobolo/twmangle/internal/logging"
	"github.com/yacobolo/twmangle/internal/naming"
	"github.com/yacobolo/twmangle/internal/usage"
)

// ErrUnsupportedKind is returned for artifacts no adapter handles.
var ErrUnsupportedKind = errors.New("unsupported artifact kind")

// Logger is the structured logger threaded through a build.
type Logger = logging.Logger

// AdapterOptions tune the format adapters.
type AdapterOptions = adapter.Options

// Options configures a Build.
type Options struct {
	// Prefix defaults to "tw-" when nil. Point at "" to disable it.
	Prefix   *string
	Alphabet string
	// Reserved names are never handed out. Entries written as /expr/ are regexps.
	Reserved []string
	Strategy Strategy
	// Preserve lists originals that are never renamed, exact or /expr/.
	Preserve []string
	// Include and Exclude are doublestar globs matched against source ids.
	// A filtered-out artifact is returned unchanged and not tracked.
	Include []string
	Exclude []string
	Adapter AdapterOptions
	Logger  Logger
}

// ClassRecord is one renamed class and the sources that reference it.
type ClassRecord struct {
	Original string   `json:"original" yaml:"original"`
	Name     string   `json:"mangled" yaml:"mangled"`
	UsedBy   []string `json:"usedBy" yaml:"usedBy"`
}

// Build owns the allocator and usage ledger for one run. Rewrite is safe for
// concurrent use; names are never shared with another Build.
type Build struct {
	alloc       *naming.Allocator
	tracker     *usage.Tracker
	preserve    *usage.PreserveSet
	candidates  usage.NameSet
	include     []string
	exclude     []string
	adapterOpts adapter.Options
	logs        *logging.Collector
	logger      logging.Logger
}

// NewBuild validates opts and prepares a build over the given live class names.
// Candidates double as reserved names so no replacement ever equals a live class.
func NewBuild(opts Options, candidates []string) (*Build, error) {
	reserved, err := usage.NewPatternSet(opts.Reserved)
	if err != nil {
		return nil, fmt.Errorf("reserved: %w", err)
	}
	preserve, err := usage.NewPreserveSet(opts.Preserve)
	if err != nil {
		return nil, err
	}
	for _, pattern := range append(append([]string(nil), opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	logs := logging.NewCollector(opts.Logger)
	cands := usage.NewNameSet(candidates...)

	alloc, err := naming.NewAllocator(naming.Options{
		Prefix:   opts.Prefix,
		Alphabet: opts.Alphabet,
		Reserved: naming.AnyReserved(reserved, cands, naming.ReservedFunc(preserve.IsPreserved)),
		Strategy: opts.Strategy,
		Logger:   logs,
	})
	if err != nil {
		return nil, err
	}

	return &Build{
		alloc:       alloc,
		tracker:     usage.NewTracker(),
		preserve:    preserve,
		candidates:  cands,
		include:     opts.Include,
		exclude:     opts.Exclude,
		adapterOpts: opts.Adapter,
		logs:        logs,
		logger:      logs.WithComponent("build"),
	}, nil
}

// Rewrite rewrites one artifact, allocating names on first sight.
// On error the returned Code is src unchanged.
func (b *Build) Rewrite(kind Kind, sourceID, src string) (Result, error) {
	if !b.accepts(sourceID) {
		b.logger.Debug("source filtered out", "source", sourceID)
		return Result{Code: src}, nil
	}
	rw := adapter.For(kind)
	if rw == nil {
		return Result{Code: src}, fmt.Errorf("%s: %w", sourceID, ErrUnsupportedKind)
	}
	res, err := rw.Rewrite(src, b.env(sourceID, liveNames{b: b, sourceID: sourceID}, b.logs))
	if err != nil {
		return Result{Code: src}, err
	}
	return res, nil
}

// File is one artifact handed to RewriteAll.
type File struct {
	SourceID string
	Kind     Kind
	Source   string
}

// FileResult is the outcome for one File. Result.Code is the original
// source when Err is set or the file was skipped.
type FileResult struct {
	File
	Result  Result
	Skipped bool
	Err     error
}

// RewriteAll rewrites files with the given number of workers. Names are
// allocated in one serial pass between a parallel collect phase and a parallel
// rewrite phase, in file order then token order, so the output does not
// depend on scheduling. A failing file never stops its siblings. The returned
// error is the context's, if it was cancelled.
func (b *Build) RewriteAll(ctx context.Context, files []File, workers int) ([]FileResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(files))
	for i, f := range files {
		results[i] = FileResult{File: f, Result: Result{Code: f.Source}}
		if !b.accepts(f.SourceID) {
			results[i].Skipped = true
			continue
		}
		if adapter.For(f.Kind) == nil {
			results[i].Err = fmt.Errorf("%s: %w", f.SourceID, ErrUnsupportedKind)
		}
	}

	// Collect: adapters run against a recording resolver that never allocates.
	refs := make([][]nameRef, len(files))
	eachFile(ctx, results, workers, func(r *FileResult, i int) {
		c := &collectNames{b: b}
		if _, err := adapter.For(r.Kind).Rewrite(r.Source, b.env(r.SourceID, c, logging.Nop())); err != nil {
			r.Err = err
			return
		}
		refs[i] = c.refs
	})
	if err := ctx.Err(); err != nil {
		return results, err
	}

	// Allocate serially.
	for i := range results {
		if !results[i].pending() {
			continue
		}
		for _, ref := range refs[i] {
			if !ref.observed {
				b.alloc.Generate(ref.original)
			}
			b.tracker.RecordUsage(ref.original, results[i].SourceID)
		}
	}

	// Rewrite against the frozen map.
	eachFile(ctx, results, workers, func(r *FileResult, _ int) {
		res, err := adapter.For(r.Kind).Rewrite(r.Source, b.env(r.SourceID, frozenNames{b: b}, b.logs))
		if err != nil {
			r.Err = err
			return
		}
		r.Result = res
	})

	b.logger.Info("rewrote files", "files", len(files), "classes", b.alloc.Len())
	return results, ctx.Err()
}

func (r *FileResult) pending() bool { return !r.Skipped && r.Err == nil }

// eachFile runs fn for every pending result on a fixed pool of workers.
// Files reached after ctx is done get ctx.Err() instead.
func eachFile(ctx context.Context, results []FileResult, workers int, fn func(r *FileResult, i int)) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := &results[i]
				if !r.pending() {
					continue
				}
				if err := ctx.Err(); err != nil {
					r.Err = err
					continue
				}
				fn(r, i)
			}
		}()
	}
	for i := range results {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// ReplaceMap returns a copy of the original to mangled view.
func (b *Build) ReplaceMap() map[string]string { return b.alloc.ReplaceMap() }

// Records returns every renamed class in allocation order.
func (b *Build) Records() []ClassRecord {
	recs := b.alloc.Records()
	out := make([]ClassRecord, len(recs))
	for i, r := range recs {
		out[i] = ClassRecord{Original: r.Original, Name: r.Name, UsedBy: b.tracker.UsedBy(r.Original)}
	}
	return out
}

// Usage returns a copy of the original to source ids ledger, including
// classes only observed in dynamic bindings.
func (b *Build) Usage() map[string][]string { return b.tracker.Snapshot() }

// Prefix returns the prefix every generated name carries.
func (b *Build) Prefix() string { return b.alloc.Prefix() }

// Warnings returns every warning logged during the build, in order.
func (b *Build) Warnings() []string { return b.logs.Messages() }

func (b *Build) env(sourceID string, names adapter.Names, logger logging.Logger) adapter.Env {
	return adapter.Env{
		Names:    names,
		SourceID: sourceID,
		Logger:   logger,
		Options:  b.adapterOpts,
	}
}

func (b *Build) accepts(sourceID string) bool {
	path := filepath.ToSlash(sourceID)
	if len(b.include) > 0 && !matchAny(b.include, path) {
		return false
	}
	return !matchAny(b.exclude, path)
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// renamable reports whether original is a live class that may be renamed.
func (b *Build) renamable(original string) bool {
	return b.candidates.Contains(original) && !b.preserve.IsPreserved(original)
}
