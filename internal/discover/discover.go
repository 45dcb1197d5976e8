// Package discover expands input globs into the artifact files a build reads.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Stats tracks file discovery statistics
type Stats struct {
	FilesDiscovered int // Total files found by glob patterns
	FilesScanned    int // Files kept after filtering
	FilesSkipped    int // Files skipped as dependencies or gitignored
}

// Scanner expands patterns relative to a project root.
type Scanner struct {
	root string

	gitIgnore     *ignore.GitIgnore
	gitIgnoreOnce sync.Once
}

// New returns a scanner that reads root/.gitignore on first use.
func New(root string) *Scanner {
	if root == "" {
		root = "."
	}
	return &Scanner{root: root}
}

// loadGitIgnore loads the .gitignore file once (thread-safe)
// Gracefully degrades if .gitignore doesn't exist
func (s *Scanner) loadGitIgnore() *ignore.GitIgnore {
	s.gitIgnoreOnce.Do(func() {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(s.root, ".gitignore"))
		if err != nil {
			return
		}
		s.gitIgnore = gi
	})
	return s.gitIgnore
}

// isDependency reports whether path lies inside an installed package tree.
func isDependency(path string) bool {
	slashed := filepath.ToSlash(path)
	return strings.HasPrefix(slashed, "node_modules/") || strings.Contains(slashed, "/node_modules/")
}

// ShouldSkip determines if a file should be excluded from the build.
//
// Two-layer filtering:
// 1. Pattern check (fast): skip anything under node_modules
// 2. Gitignore check: skip gitignored files (only for relative paths)
func (s *Scanner) ShouldSkip(path string) bool {
	if isDependency(path) {
		return true
	}

	// Absolute paths (like /tmp/...) are outside the project gitignore.
	if !filepath.IsAbs(path) {
		gi := s.loadGitIgnore()
		if gi != nil && gi.MatchesPath(path) {
			return true
		}
	}

	return false
}

// Expand expands glob patterns to regular files, de-duplicated in pattern
// order, and reports statistics.
func (s *Scanner) Expand(patterns []string) ([]string, Stats, error) {
	var files []string
	seen := make(map[string]bool)
	stats := Stats{}

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, stats, err
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true

			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			stats.FilesDiscovered++

			if s.ShouldSkip(match) {
				stats.FilesSkipped++
				continue
			}
			files = append(files, match)
			stats.FilesScanned++
		}
	}

	return files, stats, nil
}

// Dirs returns the sorted, unique parent directories of files.
func Dirs(files []string) []string {
	set := make(map[string]struct{})
	for _, f := range files {
		set[filepath.Dir(f)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
