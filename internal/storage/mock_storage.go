package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MockStorage implements Interface for testing
type MockStorage struct {
	saveError     error
	loadError     error
	runs          map[string]*Run
	saveCallCount int
	loadCallCount int
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{runs: make(map[string]*Run)}
}

func (m *MockStorage) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	if m.saveError != nil {
		return m.saveError
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs[run.ID] = run
	m.saveCallCount++
	return nil
}

func (m *MockStorage) GetRun(id string) (*Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

func (m *MockStorage) ListRuns() []Summary {
	out := make([]Summary, 0, len(m.runs))
	for _, run := range m.runs {
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

func (m *MockStorage) DeleteRun(id string) error {
	if _, ok := m.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(m.runs, id)
	return nil
}

// Data persistence methods (mocked)
func (m *MockStorage) Save() error {
	m.saveCallCount++
	return m.saveError
}

func (m *MockStorage) Load() error {
	m.loadCallCount++
	return m.loadError
}

// Mock control methods for testing
func (m *MockStorage) SetSaveError(err error) {
	m.saveError = err
}

func (m *MockStorage) SetLoadError(err error) {
	m.loadError = err
}

func (m *MockStorage) GetSaveCallCount() int {
	return m.saveCallCount
}

func (m *MockStorage) GetLoadCallCount() int {
	return m.loadCallCount
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
