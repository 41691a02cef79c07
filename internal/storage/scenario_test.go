package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirScenarios(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"fox.yaml":   "name: The Golden Acorn\nstory: A fox wakes up in a quiet meadow, objective: find the golden acorn.\n",
		"teapot.txt": "You are a teapot haunted by a polite ghost.",
		"empty.txt":  "",
		"notes.csv":  "ignored",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	lib := NewDirScenarios(dir, testLogger())
	ctx := context.Background()

	list, err := lib.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"The Golden Acorn": "fox.yaml",
		"teapot":           "teapot.txt",
	}, list)

	s, err := lib.GetScenario(ctx, "fox.yaml")
	require.NoError(t, err)
	assert.Equal(t, "The Golden Acorn", s.Name)

	_, err = lib.GetScenario(ctx, "missing.yaml")
	assert.Error(t, err)

	_, err = lib.GetScenario(ctx, "../../etc/passwd")
	assert.Error(t, err, "paths cannot escape the library")
}

func TestDirScenarios_MissingDir(t *testing.T) {
	lib := NewDirScenarios(filepath.Join(t.TempDir(), "nope"), testLogger())
	list, err := lib.ListScenarios(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
