// Package fingerprint persists per-document content checksums.
//
// The checksum map is the durable record of what has been indexed and with
// what content. Its backing file's modification time doubles as the "last
// successful index run" timestamp.
package fingerprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorrupted is returned when the stored checksum file cannot be parsed.
// A corrupt record is surfaced rather than silently discarded.
var ErrCorrupted = errors.New("checksum store corrupted")

// Store persists a document-path → content-checksum map as a JSON file.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
// The file is created lazily on the first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checksum map from disk.
// An absent file is the normal empty state and yields an empty map.
func (s *Store) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading checksum store: %w", err)
	}

	checksums := map[string]string{}
	if err := json.Unmarshal(data, &checksums); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupted, s.path, err)
	}
	return checksums, nil
}

// Save writes the checksum map to disk, creating parent directories as
// needed. The write goes through a temp file and rename so a crash never
// leaves a half-written store behind.
func (s *Store) Save(checksums map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating checksum store directory: %w", err)
	}

	data, err := json.MarshalIndent(checksums, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checksums: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing checksum store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing checksum store: %w", err)
	}
	return nil
}

// LastModified returns the backing file's modification time.
// The second return is false when the store has never been saved.
func (s *Store) LastModified() (time.Time, bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("stat checksum store: %w", err)
	}
	return info.ModTime(), true, nil
}
