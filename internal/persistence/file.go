package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStore keeps the snapshot in a single human-inspectable JSON file.
// Saves replace the whole file via a temp file and rename.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the snapshot file. A missing or malformed file yields an empty
// snapshot rather than an error.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return EmptySnapshot(), nil
	}
	if err != nil {
		return EmptySnapshot(), fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		s.logger.Warn("snapshot file malformed, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return EmptySnapshot(), nil
	}
	snapshot.normalize()
	return &snapshot, nil
}

// Save rewrites the snapshot file atomically by replacement.
func (s *FileStore) Save(ctx context.Context, snapshot *Snapshot) error {
	raw, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for file storage.
func (s *FileStore) Close() {}
