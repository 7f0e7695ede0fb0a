package storage

import (
	"time"

	"github.com/quantfold/optback/internal/backtest"
)

// Run is one persisted backtest evaluation: the strategy, the parameters it
// ran with, and its bucketed results. Raw trade rows are not persisted;
// they are streamed to CSV at run time instead.
type Run struct {
	ID         string               `json:"id"`
	Strategy   string               `json:"strategy"`
	Shape      backtest.Shape       `json:"shape"`
	Symbols    []string             `json:"symbols"`
	Params     backtest.Config      `json:"params"`
	TradeCount int                  `json:"trade_count"`
	Buckets    []backtest.BucketRow `json:"buckets"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Summary is the listing view of a run, without its bucket rows.
type Summary struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	Symbols    []string  `json:"symbols"`
	TradeCount int       `json:"trade_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Interface defines the contract for backtest run persistence.
//
// Implementations must be safe for concurrent use - callers can assume all
// methods are goroutine-safe and can safely call them from multiple
// goroutines.
//
// The provided JSONStorage implementation uses sync.RWMutex to serialize
// access, ensuring all Interface methods are protected for concurrent
// readers and writers.
type Interface interface {
	// Run management
	SaveRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns() []Summary
	DeleteRun(id string) error

	// Data persistence
	Save() error
	Load() error
}

// NewStorage creates a new storage implementation (currently JSON-based).
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)
