package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/researchd/internal/exclusion"
)

// Lister walks a repository root on disk. Returned paths are absolute;
// exclusion patterns are applied to the slash-separated path relative to
// the root.
type Lister struct {
	root            string
	fileTypes       map[string]bool
	excludePatterns []string
}

// NewLister creates a Lister for root. fileTypes are extensions without
// the dot, matched case-insensitively.
func NewLister(root string, fileTypes, excludePatterns []string) *Lister {
	types := make(map[string]bool, len(fileTypes))
	for _, t := range fileTypes {
		types[strings.ToLower(strings.TrimPrefix(t, "."))] = true
	}
	return &Lister{
		root:            root,
		fileTypes:       types,
		excludePatterns: excludePatterns,
	}
}

// List returns the matching files under the root, sorted
// lexicographically so index runs are deterministic.
func (l *Lister) List() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		excluded := exclusion.Excluded(filepath.ToSlash(rel), l.excludePatterns)
		if d.IsDir() {
			if excluded {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if l.fileTypes[ext] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", l.root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Checksum returns the hex SHA-256 of the file's contents.
func (l *Lister) Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Exists reports whether the path exists on disk.
func (l *Lister) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
