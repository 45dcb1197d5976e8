package report

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Failure is a file the run could not rewrite.
type Failure struct {
	Path string
	Err  error
}

// Summary is what one rewrite run did.
type Summary struct {
	FilesRewritten int
	FilesUnchanged int
	FilesSkipped   int
	Failures       []Failure
	Classes        int
	Warnings       []string
	MapPath        string
	Drift          *Drift
}

// Reporter prints run summaries for humans.
type Reporter struct {
	w         io.Writer
	useColors bool
	verbose   bool
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, useColors, verbose bool) *Reporter {
	return &Reporter{w: w, useColors: useColors, verbose: verbose}
}

// ShouldUseColors resolves a color setting of "always", "never" or "auto".
func ShouldUseColors(mode string) bool {
	switch strings.ToLower(mode) {
	case "always", "true":
		return true
	case "never", "false":
		return false
	}

	// Check for FORCE_COLOR environment variable (GitHub Actions, etc.)
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// Auto-detect TTY
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		return true
	}

	return false
}

// UseColors returns whether colors are enabled
func (r *Reporter) UseColors() bool {
	return r.useColors
}

// PrintFailures lists every failed file as path: error.
func (r *Reporter) PrintFailures(failures []Failure) {
	for _, f := range failures {
		fmt.Fprintf(r.w, "%s %v\n", RenderStyle(StyleError, f.Path+":", r.useColors), f.Err)
	}
}

// PrintWarnings lists warnings, or only their count unless verbose.
func (r *Reporter) PrintWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	if !r.verbose {
		fmt.Fprintln(r.w, RenderStyle(StyleMuted,
			fmt.Sprintf("%s logged; run with --verbose to list them", pluralizeCount(len(warnings), "warning", "warnings")),
			r.useColors))
		return
	}
	fmt.Fprintln(r.w, RenderStyle(StyleWarning, "Warnings", r.useColors))
	for _, w := range warnings {
		fmt.Fprintf(r.w, "  %s\n", w)
	}
}

// PrintDrift reports how the map differs from the persisted one.
func (r *Reporter) PrintDrift(d Drift) {
	if d.Empty() {
		fmt.Fprintln(r.w, RenderStyle(StyleMuted, "map unchanged", r.useColors))
		return
	}
	fmt.Fprintf(r.w, "%s (%d added, %d removed, %d renamed)\n",
		RenderStyle(StyleWarning, "map drift", r.useColors), len(d.Added), len(d.Removed), len(d.Changed))
	if !r.verbose {
		return
	}
	for _, a := range d.Added {
		fmt.Fprintf(r.w, "  + %s\n", a)
	}
	for _, rm := range d.Removed {
		fmt.Fprintf(r.w, "  - %s\n", rm)
	}
	for _, c := range d.Changed {
		fmt.Fprintf(r.w, "  ~ %s %s %s %s\n", c.Original, c.Was, RenderStyle(StyleMuted, "->", r.useColors), c.Now)
	}
}

// PrintSummary prints the whole run report.
func (r *Reporter) PrintSummary(s Summary) {
	r.PrintFailures(s.Failures)
	r.PrintWarnings(s.Warnings)
	if s.Drift != nil {
		r.PrintDrift(*s.Drift)
	}

	fmt.Fprintln(r.w, "")
	fmt.Fprintf(r.w, "%s, %s unchanged, %s skipped, %s\n",
		pluralizeCount(s.FilesRewritten, "file rewritten", "files rewritten"),
		pluralizeCount(s.FilesUnchanged, "file", "files"),
		pluralizeCount(s.FilesSkipped, "file", "files"),
		pluralizeCount(s.Classes, "class renamed", "classes renamed"))
	if s.MapPath != "" {
		fmt.Fprintf(r.w, "map written to %s\n", RenderStyle(StyleHeader, s.MapPath, r.useColors))
	}

	if n := len(s.Failures); n > 0 {
		fmt.Fprintln(r.w, RenderStyle(StyleError, pluralizeCount(n, "file failed", "files failed"), r.useColors))
		return
	}
	fmt.Fprintln(r.w, RenderStyle(StyleSuccess, "✓ done", r.useColors))
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
