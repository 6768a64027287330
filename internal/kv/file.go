package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultFileName is the data file used when only a directory is configured.
	DefaultFileName = "agenda_data.json"
	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp.json"
	FilePermissions = 0644
)

// ErrInvalidJSON is returned by File.Set for values that are not JSON documents.
var ErrInvalidJSON = errors.New("kv: value is not valid JSON")

// File keeps every key in one JSON document on disk. Each Set rewrites the
// document through a temp file and a rename, keeping the previous version as
// a backup next to it.
type File struct {
	mu     sync.Mutex
	path   string
	data   map[string]json.RawMessage
	logger *slog.Logger
	closed bool
}

// OpenFile loads path, or starts empty if it does not exist yet.
func OpenFile(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	f := &File{path: path, data: make(map[string]json.RawMessage), logger: logger}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// Path returns the data file location.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return ErrInvalidJSON
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	next := make(map[string]json.RawMessage, len(f.data)+1)
	for k, v := range f.data {
		next[k] = v
	}
	v := make(json.RawMessage, len(value))
	copy(v, value)
	next[key] = v

	if err := f.writeLocked(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// writeLocked persists data (caller must hold f.mu)
func (f *File) writeLocked(data map[string]json.RawMessage) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmpFile := f.path + TmpSuffix
	if err := os.WriteFile(tmpFile, encoded, FilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", tmpFile, err)
	}

	if _, err := os.Stat(f.path); err == nil {
		if err := copyFile(f.path, f.path+BackupSuffix); err != nil {
			f.logger.Warn("failed to create backup", "path", f.path, "err", err)
		}
	}

	if err := os.Rename(tmpFile, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	_, err := os.Stat(filepath.Dir(f.path))
	return err
}

func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, FilePermissions)
}
