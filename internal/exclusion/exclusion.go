// Package exclusion decides whether repository-relative paths are excluded
// from indexing by glob patterns.
package exclusion

import (
	"path"
	"path/filepath"
	"strings"
)

// Excluded reports whether any segment of relPath matches any of the given
// shell-style glob patterns (*, ?, [...]).
//
// Matching is per full path segment, never substring: the pattern
// "node_modules" excludes "node_modules/dep.md" but not
// "my_node_modules_copy/dep.md". An empty pattern list excludes nothing.
// Invalid patterns are treated as non-matching.
func Excluded(relPath string, patterns []string) bool {
	if len(patterns) == 0 || relPath == "" {
		return false
	}

	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for _, pattern := range patterns {
		for _, segment := range segments {
			if segment == "" {
				continue
			}
			if ok, err := path.Match(pattern, segment); err == nil && ok {
				return true
			}
		}
	}
	return false
}
