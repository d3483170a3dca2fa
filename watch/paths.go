package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pattern is a glob made absolute, split into its static base directory
// and the full pattern matched against absolute paths.
type pattern struct {
	base string
	glob string
}

// compilePatterns makes each pattern absolute and validates it.
func compilePatterns(patterns []string) ([]pattern, error) {
	out := make([]pattern, 0, len(patterns))
	for _, p := range patterns {
		abs, err := makeAbsolutePattern(p)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", p, err)
		}
		abs = filepath.ToSlash(abs)
		if !doublestar.ValidatePattern(abs) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		base, _ := doublestar.SplitPattern(abs)
		out = append(out, pattern{base: filepath.FromSlash(base), glob: abs})
	}
	return out, nil
}

// match reports whether path matches any pattern.
func match(patterns []pattern, path string) bool {
	slashed := filepath.ToSlash(path)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p.glob, slashed); ok {
			return true
		}
	}
	return false
}

// expand returns the files currently matching the patterns.
func expand(patterns []pattern) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(filepath.FromSlash(p.glob), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob error: %w", err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// makeAbsolutePattern converts a relative pattern to absolute.
// Preserves glob characters in the pattern.
func makeAbsolutePattern(pattern string) (string, error) {
	globIdx := strings.IndexAny(pattern, "*?[{")
	if globIdx == -1 {
		return filepath.Abs(pattern)
	}

	// Split at the last separator before the first glob character
	dir, glob := ".", pattern
	if lastSep := strings.LastIndexAny(pattern[:globIdx], "/"+string(filepath.Separator)); lastSep >= 0 {
		dir, glob = pattern[:lastSep], pattern[lastSep+1:]
		if dir == "" {
			dir = string(filepath.Separator)
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(absDir, string(filepath.Separator)) + string(filepath.Separator) + filepath.FromSlash(glob), nil
}
