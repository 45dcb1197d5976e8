package report

import (
	"encoding/json"
	"io"
	"time"
)

// OutputFormat selects how a run summary is printed.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// DetermineOutputFormat maps the --output flag to a format. Unknown values
// fall back to text.
func DetermineOutputFormat(formatFlag string) OutputFormat {
	switch formatFlag {
	case "json":
		return OutputJSON
	default:
		return OutputText
	}
}

// JSONOutput is the machine-readable run summary.
type JSONOutput struct {
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Summary   JSONSummary   `json:"summary"`
	Failures  []JSONFailure `json:"failures"`
	Warnings  []string      `json:"warnings"`
	MapPath   string        `json:"map_path,omitempty"`
	Drift     *JSONDrift    `json:"drift,omitempty"`
}

// JSONSummary holds the run counters.
type JSONSummary struct {
	FilesRewritten int `json:"files_rewritten"`
	FilesUnchanged int `json:"files_unchanged"`
	FilesSkipped   int `json:"files_skipped"`
	FilesFailed    int `json:"files_failed"`
	Classes        int `json:"classes"`
}

// JSONFailure is one file that could not be rewritten.
type JSONFailure struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// JSONDrift mirrors Drift.
type JSONDrift struct {
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
	Changed []JSONChanged `json:"changed"`
}

// JSONChanged is one class whose mangled name moved.
type JSONChanged struct {
	Original string `json:"original"`
	Was      string `json:"was"`
	Now      string `json:"now"`
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSONOutput(s, time.Now()))
}

func buildJSONOutput(s Summary, now time.Time) JSONOutput {
	out := JSONOutput{
		Version:   MapVersion,
		Timestamp: now.UTC().Format(time.RFC3339),
		Summary: JSONSummary{
			FilesRewritten: s.FilesRewritten,
			FilesUnchanged: s.FilesUnchanged,
			FilesSkipped:   s.FilesSkipped,
			FilesFailed:    len(s.Failures),
			Classes:        s.Classes,
		},
		Failures: make([]JSONFailure, 0, len(s.Failures)),
		Warnings: s.Warnings,
		MapPath:  s.MapPath,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, f := range s.Failures {
		out.Failures = append(out.Failures, JSONFailure{File: f.Path, Message: f.Err.Error()})
	}

	if s.Drift != nil {
		d := &JSONDrift{
			Added:   nonNil(s.Drift.Added),
			Removed: nonNil(s.Drift.Removed),
			Changed: make([]JSONChanged, 0, len(s.Drift.Changed)),
		}
		for _, c := range s.Drift.Changed {
			d.Changed = append(d.Changed, JSONChanged{Original: c.Original, Was: c.Was, Now: c.Now})
		}
		out.Drift = d
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
