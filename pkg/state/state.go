package state

import (
	"sort"
	"time"

	"recipescraper/pkg/recipe"
)

// CurrentVersion is the state file format version written by Save
const CurrentVersion = 1

// Status is the lifecycle state of one recipe
type Status string

const (
	StatusPending Status = "pending"
	StatusFetched Status = "fetched"
	StatusFailed  Status = "failed"
)

// Entry records the last known outcome for a recipe
type Entry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Attempts  int       `json:"attempts,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// State maps recipe ids to their entries
type State struct {
	Version   int                 `json:"version"`
	UpdatedAt time.Time           `json:"updated_at"`
	Entries   map[recipe.ID]Entry `json:"entries"`
}

// New returns an empty state
func New() *State {
	return &State{
		Version: CurrentVersion,
		Entries: make(map[recipe.ID]Entry),
	}
}

// Get returns the entry for id
func (s *State) Get(id recipe.ID) (Entry, bool) {
	e, ok := s.Entries[id]
	return e, ok
}

// StatusOf returns the status of id, or "" when unknown
func (s *State) StatusOf(id recipe.ID) Status {
	return s.Entries[id].Status
}

// IsFetched reports whether id has been fetched
func (s *State) IsFetched(id recipe.ID) bool {
	return s.StatusOf(id) == StatusFetched
}

// MarkFetched records a successful fetch
func (s *State) MarkFetched(id recipe.ID, at time.Time, attempts int) {
	s.Entries[id] = Entry{Status: StatusFetched, Timestamp: at.UTC(), Attempts: attempts}
}

// MarkPending records that id still needs fetching
func (s *State) MarkPending(id recipe.ID, at time.Time) {
	s.Entries[id] = Entry{Status: StatusPending, Timestamp: at.UTC()}
}

// MarkFailed records a fetch that failed after every attempt
func (s *State) MarkFailed(id recipe.ID, at time.Time, attempts int, reason string) {
	s.Entries[id] = Entry{Status: StatusFailed, Timestamp: at.UTC(), Attempts: attempts, Error: reason}
}

// Counts returns the number of entries per status
func (s *State) Counts() map[Status]int {
	counts := map[Status]int{StatusPending: 0, StatusFetched: 0, StatusFailed: 0}
	for _, e := range s.Entries {
		counts[e.Status]++
	}
	return counts
}

// IDs returns the ids with the given status in sorted order
func (s *State) IDs(status Status) []recipe.ID {
	var ids []recipe.ID
	for id, e := range s.Entries {
		if e.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResetFailed moves every failed entry back to pending and returns how many moved
func (s *State) ResetFailed(at time.Time) int {
	n := 0
	for id, e := range s.Entries {
		if e.Status == StatusFailed {
			s.MarkPending(id, at)
			n++
		}
	}
	return n
}

// Clone returns a deep copy
func (s *State) Clone() *State {
	c := &State{
		Version:   s.Version,
		UpdatedAt: s.UpdatedAt,
		Entries:   make(map[recipe.ID]Entry, len(s.Entries)),
	}
	for id, e := range s.Entries {
		c.Entries[id] = e
	}
	return c
}
