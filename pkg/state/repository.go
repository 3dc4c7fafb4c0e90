package state

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"recipescraper/pkg/logger"
	"recipescraper/pkg/recipe"
)

// Repository persists Scrape State
type Repository interface {
	// Load returns the stored state, or an empty state if none exists
	Load() (*State, error)
	// Save replaces the stored state
	Save(s *State) error
	// Delete removes the stored state
	Delete() error
}

// FileRepository stores state as a single JSON file
type FileRepository struct {
	path   string
	logger logger.Logger
	now    func() time.Time
}

// NewFileRepository creates a repository backed by the file at path
func NewFileRepository(path string, log logger.Logger) *FileRepository {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileRepository{path: path, logger: log, now: time.Now}
}

// Path returns the state file location
func (r *FileRepository) Path() string {
	return r.path
}

// legacyState is the set-based layout written by older releases
type legacyState struct {
	Pending   []string `json:"pending"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// Load reads the state file. A missing file yields an empty state. An
// unreadable file is moved aside to <path>.corrupt and an empty state is
// returned, since artifacts on disk remain the source of truth for skip mode.
func (r *FileRepository) Load() (*State, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	s, err := decode(data, r.now())
	if err != nil {
		backup := r.path + ".corrupt"
		r.logger.WithError(err).WithField("backup", backup).Warn("State file unreadable, starting from empty state")
		if err := r.backup(backup); err != nil {
			return nil, err
		}
		return New(), nil
	}

	counts := s.Counts()
	r.logger.InfoWithFields("State loaded", map[string]interface{}{
		"path":    r.path,
		"fetched": counts[StatusFetched],
		"pending": counts[StatusPending],
		"failed":  counts[StatusFailed],
	})
	return s, nil
}

// decode parses either the current or the legacy layout
func decode(data []byte, now time.Time) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("unsupported state version %d", s.Version)
	}
	if s.Version == CurrentVersion {
		if s.Entries == nil {
			s.Entries = make(map[recipe.ID]Entry)
		}
		return &s, nil
	}

	var legacy legacyState
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to decode legacy state: %w", err)
	}
	migrated := New()
	for _, raw := range legacy.Pending {
		if id, err := recipe.NormalizeID(raw); err == nil {
			migrated.MarkPending(id, now)
		}
	}
	for _, raw := range legacy.Failed {
		if id, err := recipe.NormalizeID(raw); err == nil {
			migrated.MarkFailed(id, now, 0, "failed in an earlier release")
		}
	}
	// Completed wins over pending/failed, matching the old set semantics
	for _, raw := range legacy.Completed {
		if id, err := recipe.NormalizeID(raw); err == nil {
			migrated.MarkFetched(id, now, 0)
		}
	}
	return migrated, nil
}

// backup copies the current state file to dst
func (r *FileRepository) backup(dst string) error {
	src, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open state for backup: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create state backup: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to copy state to backup: %w", err)
	}
	return nil
}

// Save writes the state atomically: temp file, fsync, rename
func (r *FileRepository) Save(s *State) error {
	s.Version = CurrentVersion
	s.UpdatedAt = r.now().UTC()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tempPath := file.Name()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, r.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	r.logger.DebugWithFields("State saved", map[string]interface{}{
		"entries": len(s.Entries),
	})
	return nil
}

// Delete removes the state file
func (r *FileRepository) Delete() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// MemoryRepository keeps state in memory; used in tests
type MemoryRepository struct {
	mu    sync.Mutex
	state *State
	saves int

	// Error injection
	LoadErr error
	SaveErr error
}

// NewMemoryRepository creates a repository seeded with s (may be nil)
func NewMemoryRepository(s *State) *MemoryRepository {
	r := &MemoryRepository{}
	if s != nil {
		r.state = s.Clone()
	}
	return r
}

// Load returns a copy of the stored state
func (r *MemoryRepository) Load() (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.state == nil {
		return New(), nil
	}
	return r.state.Clone(), nil
}

// Save stores a copy of s
func (r *MemoryRepository) Save(s *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.state = s.Clone()
	r.saves++
	return nil
}

// Delete drops the stored state
func (r *MemoryRepository) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = nil
	return nil
}

// Saves returns how many times Save succeeded
func (r *MemoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// Snapshot returns a copy of the stored state, or nil
func (r *MemoryRepository) Snapshot() *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil
	}
	return r.state.Clone()
}
