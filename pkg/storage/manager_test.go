package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/recipe"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "recipes"), logger.NewNopLogger())
	require.NoError(t, err)
	return m
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	m := newManager(t)
	info, err := os.Stat(m.OutputDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteAndExists(t *testing.T) {
	m := newManager(t)

	if m.Exists("r1") {
		t.Error("Expected Exists to return false for a missing artifact")
	}

	data := []byte(`{"id":"r1"}`)
	require.NoError(t, m.Write("r1", data))
	assert.True(t, m.Exists("r1"))

	content, err := os.ReadFile(filepath.Join(m.OutputDir(), "r1.json"))
	require.NoError(t, err)
	assert.Equal(t, data, content)

	info, err := os.Stat(m.Path("r1"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestWriteOverwritesAtomically(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Write("r1", []byte("first")))
	require.NoError(t, m.Write("r1", []byte("second")))

	content, err := os.ReadFile(m.Path("r1"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(m.OutputDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "no temp file may survive a successful write")
	}
}

func TestWriteFailureLeavesPreviousArtifact(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Write("r1", []byte("good")))

	// Make the target a directory so the final rename fails
	require.NoError(t, os.Remove(m.Path("r1")))
	require.NoError(t, os.Mkdir(m.Path("r1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(m.Path("r1"), "keep"), []byte("x"), 0644))

	assert.Error(t, m.Write("r1", []byte("new")))

	matches, _ := filepath.Glob(filepath.Join(m.OutputDir(), "*.tmp"))
	assert.Empty(t, matches)
}

func TestMatches(t *testing.T) {
	m := newManager(t)
	assert.False(t, m.Matches("r1", []byte("x")))

	require.NoError(t, m.Write("r1", []byte("same")))
	assert.True(t, m.Matches("r1", []byte("same")))
	assert.False(t, m.Matches("r1", []byte("other")))
}

func TestExistsRejectsEmptyFile(t *testing.T) {
	m := newManager(t)
	require.NoError(t, os.WriteFile(m.Path("r1"), nil, 0644))
	assert.False(t, m.Exists("r1"))
}

func TestReadArtifact(t *testing.T) {
	m := newManager(t)
	r := &recipe.Recipe{ID: "r7", Title: "Bread", Steps: []string{"knead"}}
	data, err := r.Marshal()
	require.NoError(t, err)
	require.NoError(t, m.Write(r.ID, data))

	got, err := m.Read("r7")
	require.NoError(t, err)
	assert.Equal(t, "Bread", got.Title)

	_, err = m.Read("r404")
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	m := newManager(t)
	write := func(r *recipe.Recipe) {
		data, err := r.Marshal()
		require.NoError(t, err)
		require.NoError(t, m.Write(r.ID, data))
	}

	write(&recipe.Recipe{ID: "r2", Ingredients: []string{"egg"}})
	write(&recipe.Recipe{ID: "r1", Steps: []string{"mix"}})
	write(&recipe.Recipe{ID: "r3"})
	require.NoError(t, os.WriteFile(m.Path("r4"), []byte("{broken"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(m.OutputDir(), ".scraper_state.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(m.OutputDir(), "notes.txt"), []byte("hi"), 0644))

	result, err := m.Scan()
	require.NoError(t, err)
	assert.Equal(t, []recipe.ID{"r1", "r2"}, result.Complete)
	assert.Equal(t, []recipe.ID{"r3"}, result.Incomplete)
	assert.Equal(t, []recipe.ID{"r4"}, result.Unreadable)
	assert.Equal(t, 4, result.Total())
}

func TestCleanTemp(t *testing.T) {
	m := newManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(m.OutputDir(), "r1.json.123.tmp"), []byte("partial"), 0644))
	require.NoError(t, m.Write("r2", []byte("ok")))

	removed, err := m.CleanTemp()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, m.Exists("r2"))
}

func TestLockIsExclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recipes")
	first, err := NewManager(dir, nil)
	require.NoError(t, err)
	second, err := NewManager(dir, nil)
	require.NoError(t, err)

	require.NoError(t, first.Lock())

	err = second.Lock()
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}
