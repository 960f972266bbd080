// Package schedule materializes recurring events into bounded sets of
// occurrence records and keeps them synchronized as generators, exclusions
// and user edits change.
package schedule

import (
	"io"
	"log/slog"

	"github.com/eventtools/eventtools/schedule/recurrence"
	"github.com/eventtools/eventtools/schedule/storage"
)

// Scheduler runs the generator/occurrence reconciliation against a storage
// backend. Operations are synchronous; callers provide the execution
// context. A single writer per event is assumed, with the store's
// (event, start) uniqueness constraint as the backstop for races.
type Scheduler struct {
	store  storage.Storage
	engine *recurrence.Engine
	clock  Clock
	cfg    Config
	logger *slog.Logger
}

// New creates a Scheduler on top of a storage backend. Zero fields of cfg
// are filled with defaults.
func New(store storage.Storage, cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Engine == nil {
		cfg.Engine = recurrence.NewEngine()
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = DefaultConfig.DefaultHorizon
	}
	if cfg.RefreshCron == "" {
		cfg.RefreshCron = DefaultConfig.RefreshCron
	}

	return &Scheduler{
		store:  store,
		engine: cfg.Engine,
		clock:  cfg.Clock,
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Store returns the backend the scheduler persists to.
func (s *Scheduler) Store() storage.Storage {
	return s.store
}
