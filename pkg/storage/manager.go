package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/recipe"
)

// LockFileName is the advisory lock guarding an output directory
const LockFileName = ".scraper.lock"

const artifactExt = ".json"

// Manager owns the recipe artifacts in one output directory
type Manager struct {
	outputDir string
	lock      *flock.Flock
	logger    logger.Logger
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Manager{
		outputDir: outputDir,
		lock:      flock.New(filepath.Join(outputDir, LockFileName)),
		logger:    log,
	}, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Lock takes the exclusive lock on the output directory without blocking.
// A second process gets a config error.
func (m *Manager) Lock() error {
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire output lock: %w", err)
	}
	if !ok {
		return errs.Config(fmt.Sprintf("output directory %s is in use by another recipescraper process", m.outputDir))
	}
	return nil
}

// Unlock releases the output directory lock
func (m *Manager) Unlock() error {
	if err := m.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release output lock: %w", err)
	}
	return nil
}

// Path returns the artifact location for id
func (m *Manager) Path(id recipe.ID) string {
	return filepath.Join(m.outputDir, string(id)+artifactExt)
}

// Exists reports whether a non-empty artifact exists for id
func (m *Manager) Exists(id recipe.ID) bool {
	info, err := os.Stat(m.Path(id))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Write stores data as the artifact for id. The file is written to a temp
// file in the same directory, synced, then renamed over the target, so a
// reader never sees a partial artifact.
func (m *Manager) Write(id recipe.ID, data []byte) error {
	target := m.Path(id)

	out, err := os.CreateTemp(m.outputDir, string(id)+artifactExt+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(tempFile)
		return fmt.Errorf("failed to write recipe data: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tempFile)
		return fmt.Errorf("failed to sync recipe file: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// CreateTemp uses 0600
	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Matches reports whether the artifact for id holds exactly data
func (m *Manager) Matches(id recipe.ID, data []byte) bool {
	existing, err := os.ReadFile(m.Path(id))
	return err == nil && bytes.Equal(existing, data)
}

// Read loads the artifact for id
func (m *Manager) Read(id recipe.ID) (*recipe.Recipe, error) {
	data, err := os.ReadFile(m.Path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe %s: %w", id, err)
	}
	return recipe.Unmarshal(data)
}

// ScanResult classifies the artifacts found in the output directory
type ScanResult struct {
	Complete   []recipe.ID
	Incomplete []recipe.ID
	Unreadable []recipe.ID
}

// Total returns the number of artifacts found
func (r ScanResult) Total() int {
	return len(r.Complete) + len(r.Incomplete) + len(r.Unreadable)
}

// Scan reads every artifact in the output directory and sorts it by
// completeness. Hidden files and stray temp files are ignored.
func (m *Manager) Scan() (ScanResult, error) {
	var result ScanResult

	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return result, fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != artifactExt {
			continue
		}
		id, err := recipe.NormalizeID(strings.TrimSuffix(name, artifactExt))
		if err != nil {
			continue
		}

		r, err := m.Read(id)
		switch {
		case err != nil:
			result.Unreadable = append(result.Unreadable, id)
		case r.IsComplete():
			result.Complete = append(result.Complete, id)
		default:
			result.Incomplete = append(result.Incomplete, id)
		}
	}

	for _, ids := range [][]recipe.ID{result.Complete, result.Incomplete, result.Unreadable} {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	m.logger.DebugWithFields("Scanned output directory", map[string]interface{}{
		"complete":   len(result.Complete),
		"incomplete": len(result.Incomplete),
		"unreadable": len(result.Unreadable),
	})
	return result, nil
}

// CleanTemp removes temp files left behind by an interrupted write
func (m *Manager) CleanTemp() (int, error) {
	matches, err := filepath.Glob(filepath.Join(m.outputDir, "*"+artifactExt+".*.tmp"))
	if err != nil {
		return 0, fmt.Errorf("failed to list temporary files: %w", err)
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	if removed > 0 {
		m.logger.WithField("count", removed).Info("Removed leftover temporary files")
	}
	return removed, nil
}
