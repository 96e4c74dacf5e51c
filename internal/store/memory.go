package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/metdata-explorer/internal/weather"
)

var (
	// ErrNotFound is returned when no run matches the query.
	ErrNotFound = errors.New("no stored run")
)

// MemoryStore is a concurrency-safe in-memory history of completed runs,
// ordered by completion time.
type MemoryStore struct {
	mu   sync.RWMutex
	runs []weather.Run

	// retention configuration
	maxHistory int           // max number of runs kept
	maxAge     time.Duration // optional max age for runs

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRun appends a run and enforces retention.
func (s *MemoryStore) SaveRun(run weather.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, run)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.runs) > s.maxHistory {
		over := len(s.runs) - s.maxHistory
		s.runs = append([]weather.Run(nil), s.runs[over:]...)
	}

	// Enforce retention by age. The newest run is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.runs)-1; i++ {
			if !s.runs[i].CompletedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.runs = append([]weather.Run(nil), s.runs[i:]...)
		}
	}
}

// GetLatest returns the most recent run.
func (s *MemoryStore) GetLatest() (weather.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return weather.Run{}, ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// Get returns the run with id.
func (s *MemoryStore) Get(id string) (weather.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return weather.Run{}, ErrNotFound
}

// GetRange returns all runs completed between from and to (inclusive).
// A zero bound is open.
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Run
	for _, run := range s.runs {
		if !from.IsZero() && run.CompletedAt.Before(from) {
			continue
		}
		if !to.IsZero() && run.CompletedAt.After(to) {
			continue
		}
		result = append(result, run)
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
