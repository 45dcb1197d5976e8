// Package report persists the rename map and prints run summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MapVersion is the schema version written to every map file.
const MapVersion = "1"

// Format is the on-disk encoding of a map file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown map format %q (want json or yaml)", s)
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// MapFile is the persisted rename map and usage ledger.
type MapFile struct {
	Version string  `json:"version" yaml:"version"`
	Prefix  string  `json:"prefix" yaml:"prefix"`
	Classes []Entry `json:"classes" yaml:"classes"`
}

// Entry is one renamed class.
type Entry struct {
	Original string   `json:"original" yaml:"original"`
	Mangled  string   `json:"mangled" yaml:"mangled"`
	UsedBy   []string `json:"usedBy" yaml:"usedBy"`
}

// NewMapFile wraps entries, keeping their order.
func NewMapFile(prefix string, entries []Entry) *MapFile {
	if entries == nil {
		entries = []Entry{}
	}
	return &MapFile{Version: MapVersion, Prefix: prefix, Classes: entries}
}

// ReplaceMap returns the original to mangled view.
func (m *MapFile) ReplaceMap() map[string]string {
	out := make(map[string]string, len(m.Classes))
	for _, c := range m.Classes {
		out[c.Original] = c.Mangled
	}
	return out
}

// WriteMap encodes m as indented JSON or YAML.
func WriteMap(w io.Writer, m *MapFile, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode yaml map: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode json map: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown map format %q", format)
}

// LoadMap decodes a map written by WriteMap.
func LoadMap(r io.Reader, format Format) (*MapFile, error) {
	var m MapFile
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode yaml map: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode json map: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown map format %q", format)
	}
	if m.Version != "" && m.Version != MapVersion {
		return nil, fmt.Errorf("unsupported map version %q", m.Version)
	}
	return &m, nil
}

// WriteMapFile writes m to path. An empty format is taken from the extension.
func WriteMapFile(path string, m *MapFile, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create map directory: %w", err)
		}
	}
	// #nosec G304 - path comes from trusted configuration
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create map file: %w", err)
	}
	if err := WriteMap(f, m, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadMapFile loads a map from path.
func ReadMapFile(path string) (*MapFile, error) {
	// #nosec G304 - path comes from trusted configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map file: %w", err)
	}
	defer f.Close()
	return LoadMap(f, FormatFromPath(path))
}

// Change is a class whose mangled name differs between two maps.
type Change struct {
	Original string
	Was      string
	Now      string
}

// Drift compares a previously persisted map with the current one.
type Drift struct {
	Added   []string
	Removed []string
	Changed []Change
}

// Empty reports whether the maps agree.
func (d Drift) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff lists classes added, removed or renamed in current relative to previous.
func Diff(previous, current *MapFile) Drift {
	was := previous.ReplaceMap()
	now := current.ReplaceMap()

	var d Drift
	for orig, name := range now {
		old, ok := was[orig]
		switch {
		case !ok:
			d.Added = append(d.Added, orig)
		case old != name:
			d.Changed = append(d.Changed, Change{Original: orig, Was: old, Now: name})
		}
	}
	for orig := range was {
		if _, ok := now[orig]; !ok {
			d.Removed = append(d.Removed, orig)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Original < d.Changed[j].Original })
	return d
}
