package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JSONStorage persists backtest runs to a single JSON file, guarded by a
// RWMutex for concurrent access.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *storageData
}

type storageData struct {
	Runs        map[string]*Run `json:"runs"`
	LastUpdated time.Time       `json:"last_updated"`
}

// NewJSONStorage opens or creates a run store at filepath.
func NewJSONStorage(filepath string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: filepath,
		data:     &storageData{Runs: make(map[string]*Run)},
	}

	// Load existing data if file exists
	if _, err := os.Stat(filepath); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}

	return s, nil
}

func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return err
	}
	if s.data.Runs == nil {
		s.data.Runs = make(map[string]*Run)
	}
	return nil
}

func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first, then rename for an atomic replace.
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.filepath)
}

// SaveRun stores a run and persists the store. A run without an ID gets a
// fresh UUID; CreatedAt is stamped when unset.
func (s *JSONStorage) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	s.data.Runs[run.ID] = run
	return s.saveLocked()
}

func (s *JSONStorage) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data.Runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// ListRuns returns run summaries, newest first.
func (s *JSONStorage) ListRuns() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.data.Runs))
	for _, run := range s.data.Runs {
		out = append(out, Summary{
			ID:         run.ID,
			Strategy:   run.Strategy,
			Symbols:    run.Symbols,
			TradeCount: run.TradeCount,
			CreatedAt:  run.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *JSONStorage) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.data.Runs, id)
	return s.saveLocked()
}
