// Package data provides the flat-document persistence adapters and the
// Postgres export sink.
package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// docFile reads and writes one JSON document at a fixed path. Writes go
// through a temp file followed by a rename so a crash mid-write never leaves a
// truncated document behind.
type docFile struct {
	path string
	mu   sync.Mutex
}

func newDocFile(path string) *docFile {
	return &docFile{path: path}
}

// load decodes the document into dst. Returns os.ErrNotExist when the file has
// never been written.
func (f *docFile) load(dst any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked(dst)
}

func (f *docFile) loadLocked(dst any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(f.path), err)
	}
	return nil
}

// save atomically replaces the document with src.
func (f *docFile) save(src any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(src)
}

func (f *docFile) saveLocked(src any) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(f.path), err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(f.path), err)
	}
	return nil
}

// update applies fn to the current document under the file lock. The zero
// value of T is used when the file does not exist yet.
func update[T any](f *docFile, fn func(cur T) (T, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cur T
	if err := f.loadLocked(&cur); err != nil && !os.IsNotExist(err) {
		return err
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}
	return f.saveLocked(next)
}
