package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yacobolo/twmangle"
	"github.com/yacobolo/twmangle/internal/candidates"
	"github.com/yacobolo/twmangle/internal/discover"
	"github.com/yacobolo/twmangle/internal/logging"
	"github.com/yacobolo/twmangle/internal/report"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [paths...]",
	Short: "Rewrite class names in the given files",
	Long: `Rewrite every class name defined by the candidate stylesheets in all matching
HTML, CSS, JavaScript and .vue files, writing the results under --out-dir.
Paths are doublestar globs; they replace rewrite.paths from the config file.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runRewrite,
}

func init() {
	addRewriteFlags(rewriteCmd)
}

// addRewriteFlags registers the flags shared by rewrite, watch and the root command.
func addRewriteFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("prefix", "tw-", "Prefix of every generated name (empty to disable)")
	f.String("alphabet", "", "Symbols generated names are built from (default a-z0-9-_)")
	f.StringSlice("reserved", nil, "Names never generated; /regexp/ entries allowed")
	f.StringSlice("preserve", nil, "Classes never renamed; /regexp/ entries allowed")
	f.StringSlice("include", nil, "Only rewrite files matching these globs")
	f.StringSlice("exclude", nil, "Never rewrite files matching these globs")
	f.StringSlice("candidates-css", nil, "Stylesheets whose classes may be renamed (default: the input stylesheets)")
	f.String("candidates-file", "", "File listing classes that may be renamed")
	f.StringSlice("paths", nil, "Input file globs")
	f.String("out-dir", "dist", "Output directory (. rewrites in place)")
	f.Int("workers", 0, "Parallel workers (default: number of CPUs)")
	f.Bool("ignore-scoped", false, "Leave selectors scoped with a data-v- attribute alone")
	f.String("emit", "splice", "Script output: splice|regenerate")
	f.Bool("inline", false, "Rewrite inline <style> and <script> in HTML")
	f.String("ignore-marker", "", "Comment text that skips the next unit (default twm-ignore)")
	f.String("ignore-tag", "", "Template tag that is never rewritten (default twIgnore)")
	f.String("scope-marker", "", "Attribute prefix marking scoped selectors (default data-v-)")
	f.String("map-out", "", "Write the rename map to this file (.json or .yaml)")
	f.String("map-in", "", "Compare against a previously written map and report drift")
	f.String("map-format", "", "Map format: json|yaml (default: from --map-out extension)")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	summary, err := execute(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	if err := printSummary(cmd.OutOrStdout(), cfg, summary); err != nil {
		return err
	}

	if n := len(summary.Failures); n > 0 {
		return fmt.Errorf("%d input file(s) could not be rewritten", n)
	}
	return nil
}

// printSummary writes the run summary in the configured output format.
func printSummary(w io.Writer, cfg runConfig, summary report.Summary) error {
	if cfg.Quiet {
		return nil
	}
	if cfg.Output == report.OutputJSON {
		return report.WriteJSON(w, summary)
	}
	report.NewReporter(w, report.ShouldUseColors(cfg.Color), cfg.Verbose).PrintSummary(summary)
	return nil
}

// execute runs one fresh build over the configured inputs and writes the
// outputs. Failed files are reported in the summary and not written.
func execute(ctx context.Context, cfg runConfig, logger logging.Logger) (report.Summary, error) {
	scanner := discover.New(".")
	paths, stats, err := scanner.Expand(cfg.Paths)
	if err != nil {
		return report.Summary{}, fmt.Errorf("expanding input paths: %w", err)
	}
	summary := report.Summary{FilesSkipped: stats.FilesSkipped}

	var inputs []string
	for _, p := range paths {
		if insideDir(p, cfg.OutDir) || twmangle.KindFromPath(p) == twmangle.KindUnknown {
			summary.FilesSkipped++
			continue
		}
		inputs = append(inputs, p)
	}

	names, err := loadCandidates(cfg, inputs)
	if err != nil {
		return summary, err
	}
	logger.Debug("loaded candidates", "count", len(names), "inputs", len(inputs))

	opts := cfg.Build
	opts.Logger = logger
	build, err := twmangle.NewBuild(opts, names)
	if err != nil {
		return summary, fmt.Errorf("configuring build: %w", err)
	}

	files := make([]twmangle.File, 0, len(inputs))
	for _, p := range inputs {
		// #nosec G304 - path comes from the configured globs
		data, err := os.ReadFile(p)
		if err != nil {
			summary.Failures = append(summary.Failures, report.Failure{Path: p, Err: err})
			continue
		}
		files = append(files, twmangle.File{
			SourceID: filepath.ToSlash(p),
			Kind:     twmangle.KindFromPath(p),
			Source:   string(data),
		})
	}

	results, err := build.RewriteAll(ctx, files, cfg.Workers)
	if err != nil {
		return summary, err
	}

	for _, r := range results {
		if r.Err != nil {
			summary.Failures = append(summary.Failures, report.Failure{Path: r.SourceID, Err: r.Err})
			continue
		}
		switch {
		case r.Skipped:
			summary.FilesSkipped++
		case r.Result.Code == r.Source:
			summary.FilesUnchanged++
		default:
			summary.FilesRewritten++
		}
		if err := writeOutput(cfg.OutDir, filepath.FromSlash(r.SourceID), r.Result.Code); err != nil {
			summary.Failures = append(summary.Failures, report.Failure{Path: r.SourceID, Err: err})
		}
	}

	summary.Classes = len(build.Records())
	summary.Warnings = build.Warnings()

	current := mapFile(build)
	if cfg.MapIn != "" {
		previous, err := report.ReadMapFile(cfg.MapIn)
		if err != nil {
			return summary, err
		}
		drift := report.Diff(previous, current)
		summary.Drift = &drift
	}
	if cfg.MapOut != "" {
		if err := report.WriteMapFile(cfg.MapOut, current, cfg.MapFormat); err != nil {
			return summary, err
		}
		summary.MapPath = cfg.MapOut
	}

	return summary, nil
}

// loadCandidates unions the configured candidate sources. Without any, the
// classes defined by the input stylesheets are the candidates.
func loadCandidates(cfg runConfig, inputs []string) ([]string, error) {
	var lists [][]string

	if len(cfg.CandidateCSS) > 0 {
		cssFiles, _, err := discover.New(".").Expand(cfg.CandidateCSS)
		if err != nil {
			return nil, fmt.Errorf("expanding candidate stylesheets: %w", err)
		}
		names, err := candidates.LoadCSS(cssFiles)
		if err != nil {
			return nil, err
		}
		lists = append(lists, names)
	}

	if cfg.CandidateFile != "" {
		names, err := candidates.LoadList(cfg.CandidateFile)
		if err != nil {
			return nil, err
		}
		lists = append(lists, names)
	}

	if len(lists) == 0 {
		var sheets []string
		for _, p := range inputs {
			if twmangle.KindFromPath(p) == twmangle.KindCSS {
				sheets = append(sheets, p)
			}
		}
		names, err := candidates.LoadCSS(sheets)
		if err != nil {
			return nil, err
		}
		lists = append(lists, names)
	}

	return candidates.Union(lists...), nil
}

func mapFile(build *twmangle.Build) *report.MapFile {
	records := build.Records()
	entries := make([]report.Entry, len(records))
	for i, r := range records {
		entries[i] = report.Entry{Original: r.Original, Mangled: r.Name, UsedBy: r.UsedBy}
	}
	return report.NewMapFile(build.Prefix(), entries)
}

// outputPath places src under outDir, keeping its path relative to the
// working directory. Paths outside it keep only their base name.
func outputPath(outDir, src string) string {
	rel := src
	if filepath.IsAbs(src) {
		wd, err := os.Getwd()
		if err == nil {
			if r, err := filepath.Rel(wd, src); err == nil {
				rel = r
			}
		}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		rel = filepath.Base(src)
	}
	return filepath.Join(outDir, rel)
}

func writeOutput(outDir, src, code string) error {
	dst := outputPath(outDir, src)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(dst, []byte(code), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// insideDir reports whether path lies under dir. Nothing lies under "."
// since that means rewriting in place.
func insideDir(path, dir string) bool {
	if dir == "" || filepath.Clean(dir) == "." {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
