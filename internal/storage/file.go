package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/tale-engine/pkg/state"
	"github.com/jwebster45206/tale-engine/pkg/storage"
)

// DefaultSnapshotPath is the snapshot file used when none is configured.
const DefaultSnapshotPath = "game_state.json"

// FileStorage keeps the snapshot in a single JSON file.
type FileStorage struct {
	path   string
	logger *slog.Logger
}

// Ensure FileStorage implements Snapshotter interface
var _ storage.Snapshotter = (*FileStorage)(nil)

// NewFileStorage creates a file-backed snapshotter at path.
func NewFileStorage(path string, logger *slog.Logger) *FileStorage {
	if path == "" {
		path = DefaultSnapshotPath
	}
	return &FileStorage{path: path, logger: logger}
}

// Path returns the snapshot file path.
func (f *FileStorage) Path() string { return f.path }

// Ping verifies the snapshot directory is writable.
func (f *FileStorage) Ping(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("snapshot directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot directory %s is not a directory", dir)
	}
	return nil
}

func (f *FileStorage) Close() error { return nil }

// Save writes the snapshot atomically via a temp file in the same directory.
func (f *FileStorage) Save(ctx context.Context, ws *state.WorldState) error {
	if ws == nil {
		return fmt.Errorf("world state is nil")
	}
	if err := writeJSONAtomic(f.path, ws); err != nil {
		f.logger.Error("Failed to save snapshot", "path", f.path, "error", err)
		return err
	}
	f.logger.Debug("Snapshot saved", "path", f.path)
	return nil
}

// Load reads the snapshot. A missing file returns (nil, nil).
func (f *FileStorage) Load(ctx context.Context) (*state.WorldState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.logger.Debug("No snapshot found", "path", f.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var ws state.WorldState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &ws, nil
}

// Delete removes the snapshot. A missing file is not an error.
func (f *FileStorage) Delete(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// SaveCrash writes <snapshot>.crash-<id>.json.
func (f *FileStorage) SaveCrash(ctx context.Context, id uuid.UUID, ws *state.WorldState) (string, error) {
	path := CrashPath(f.path, id)
	if err := writeJSONAtomic(path, ws); err != nil {
		return "", err
	}
	return path, nil
}

// CrashPath returns the forensic snapshot path for a snapshot file.
func CrashPath(snapshot string, id uuid.UUID) string {
	base := strings.TrimSuffix(snapshot, filepath.Ext(snapshot))
	return base + ".crash-" + id.String() + ".json"
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
