package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/storage"
)

// DirScenarios loads scenarios from files in a directory.
type DirScenarios struct {
	dir    string
	logger *slog.Logger
}

// Ensure DirScenarios implements ScenarioLibrary interface
var _ storage.ScenarioLibrary = (*DirScenarios)(nil)

// NewDirScenarios creates a library rooted at dir.
func NewDirScenarios(dir string, logger *slog.Logger) *DirScenarios {
	return &DirScenarios{dir: dir, logger: logger}
}

var scenarioExts = map[string]bool{".yaml": true, ".yml": true, ".json": true, ".txt": true, ".md": true}

// ListScenarios maps scenario names to filenames. A missing directory yields
// an empty list.
func (d *DirScenarios) ListScenarios(ctx context.Context) (map[string]string, error) {
	scenarios := make(map[string]string)

	err := filepath.WalkDir(d.dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == d.dir {
				return fs.SkipAll
			}
			return err
		}
		if e.IsDir() || !scenarioExts[filepath.Ext(path)] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			d.logger.Warn("Failed to read scenario file", "path", path, "error", err)
			return nil
		}
		s, err := scenario.Parse(path, data)
		if err != nil {
			d.logger.Warn("Failed to parse scenario file", "path", path, "error", err)
			return nil
		}
		rel, _ := filepath.Rel(d.dir, path)
		scenarios[s.Name] = rel
		return nil
	})
	if err != nil {
		d.logger.Error("Failed to walk scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return scenarios, nil
}

// GetScenario loads one scenario file relative to the library directory.
func (d *DirScenarios) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	path := filepath.Join(d.dir, filepath.Clean("/"+filename))
	d.logger.Debug("Loading scenario", "filename", filename, "full_path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("scenario not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return scenario.Parse(path, data)
}
