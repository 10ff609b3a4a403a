package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/ai-procurement/internal/application/caselock"
	"github.com/garyjia/ai-procurement/internal/application/orchestrator"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// Advancer runs a case forward. *orchestrator.Orchestrator implements it.
type Advancer interface {
	Advance(ctx context.Context, c *entity.Case, opts ...orchestrator.AdvanceOption) (entity.StageResult, error)
}

// AdvanceWorkerConfig holds configuration for the advance worker
type AdvanceWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	ProcessTimeout time.Duration

	// Statuses are swept in order each tick
	Statuses []entity.CaseStatus
}

// DefaultAdvanceWorkerConfig returns default configuration
func DefaultAdvanceWorkerConfig() AdvanceWorkerConfig {
	return AdvanceWorkerConfig{
		PollInterval:   10 * time.Second,
		BatchSize:      20,
		Concurrency:    4,
		ProcessTimeout: 2 * time.Minute,
		Statuses: []entity.CaseStatus{
			entity.CaseStatusDraft,
			entity.CaseStatusInProgress,
			entity.CaseStatusApproved,
		},
	}
}

// Stats are the worker's running counters
type Stats struct {
	Sweeps    int       `json:"sweeps"`
	Advanced  int       `json:"advanced"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	LastSweep time.Time `json:"last_sweep"`
	LastError string    `json:"last_error,omitempty"`
}

// AdvanceWorker picks up cases that can run without a reviewer and advances
// them until they pause, finish, or are rejected. Cases held by another
// caller are skipped until the next tick.
type AdvanceWorker struct {
	config   AdvanceWorkerConfig
	repo     port.CaseRepository
	advancer Advancer
	locks    *caselock.Locker
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	stats   Stats
}

// NewAdvanceWorker creates a new advance worker
func NewAdvanceWorker(config AdvanceWorkerConfig, repo port.CaseRepository, advancer Advancer, locks *caselock.Locker, logger *zap.Logger) (*AdvanceWorker, error) {
	if repo == nil {
		return nil, fmt.Errorf("case repository is required")
	}
	if advancer == nil {
		return nil, fmt.Errorf("advancer is required")
	}
	defaults := DefaultAdvanceWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = defaults.ProcessTimeout
	}
	if len(config.Statuses) == 0 {
		config.Statuses = defaults.Statuses
	}
	if locks == nil {
		locks = caselock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AdvanceWorker{
		config:   config,
		repo:     repo,
		advancer: advancer,
		locks:    locks,
		logger:   logger,
	}, nil
}

// Name returns the worker name for identification
func (w *AdvanceWorker) Name() string {
	return "AdvanceWorker"
}

// Start begins the polling loop
func (w *AdvanceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("advance worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("AdvanceWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("concurrency", w.config.Concurrency))

	go w.pollLoop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for the current sweep to finish
func (w *AdvanceWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	stats := w.Stats()
	w.logger.Info("AdvanceWorker stopped",
		zap.Int("advanced", stats.Advanced),
		zap.Int("failed", stats.Failed))
	return nil
}

// Stats returns a snapshot of the counters
func (w *AdvanceWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *AdvanceWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("Sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep advances one batch of eligible cases and returns how many were run.
// Per-case failures are counted and logged; only listing errors are returned.
func (w *AdvanceWorker) Sweep(ctx context.Context) (int, error) {
	var ids []string
	for _, status := range w.config.Statuses {
		batch, err := w.repo.ListByStatus(ctx, status, w.config.BatchSize)
		if err != nil {
			w.record(func(s *Stats) { s.LastError = err.Error() })
			return 0, fmt.Errorf("list %s cases: %w", status, err)
		}
		ids = append(ids, batch...)
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		advanced int
	)
	g.SetLimit(w.config.Concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ran, err := w.advanceOne(ctx, id)
			switch {
			case err != nil:
				w.logger.Error("Failed to advance case", zap.String("case_id", id), zap.Error(err))
				w.record(func(s *Stats) {
					s.Failed++
					s.LastError = err.Error()
				})
			case ran:
				mu.Lock()
				advanced++
				mu.Unlock()
				w.record(func(s *Stats) { s.Advanced++ })
			default:
				w.record(func(s *Stats) { s.Skipped++ })
			}
			return nil
		})
	}
	_ = g.Wait()

	w.record(func(s *Stats) {
		s.Sweeps++
		s.LastSweep = time.Now()
	})
	return advanced, nil
}

// advanceOne reports false when the case was busy or no longer eligible
func (w *AdvanceWorker) advanceOne(ctx context.Context, id string) (bool, error) {
	unlock, ok := w.locks.TryLock(id)
	if !ok {
		return false, nil
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, w.config.ProcessTimeout)
	defer cancel()

	c, err := w.repo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrCaseNotFound) {
			return false, nil
		}
		return false, err
	}
	if !w.eligible(c.Status) {
		return false, nil
	}

	result, err := w.advancer.Advance(ctx, c)
	if err != nil {
		return false, err
	}

	w.logger.Info("Case advanced",
		zap.String("case_id", id),
		zap.Int("stage", int(result.Stage)),
		zap.String("status", string(c.Status)),
		zap.Bool("flagged", result.Flagged))
	return true, nil
}

func (w *AdvanceWorker) eligible(status entity.CaseStatus) bool {
	for _, s := range w.config.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (w *AdvanceWorker) record(fn func(*Stats)) {
	w.mu.Lock()
	fn(&w.stats)
	w.mu.Unlock()
}
