package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/caselock"
	"github.com/garyjia/ai-procurement/internal/application/dispatcher"
	"github.com/garyjia/ai-procurement/internal/application/orchestrator"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/config"
	"github.com/garyjia/ai-procurement/internal/infrastructure/payment"
	"github.com/garyjia/ai-procurement/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	store    *StoreBundle
	payments *payment.LoggingGateway

	// Application
	dispatcher   dispatcher.Dispatcher
	orchestrator *orchestrator.Orchestrator
	locks        *caselock.Locker

	// Workers
	workers *worker.Manager

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
		locks:  caselock.New(),
	}, nil
}

// Start initializes all components and begins processing:
// 1. Case store
// 2. Event dispatcher and its subscribers
// 3. Stage executor and orchestrator
// 4. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	store, err := ProvideStore(c.ctx, c.config.Database, c.logger)
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	c.store = store
	c.logger.Info("Case store initialized", zap.String("driver", store.Driver))

	if err := c.initDispatcher(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized")

	if err := c.initPipeline(); err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	c.logger.Info("Pipeline initialized")

	workers, err := ProvideWorkers(c.config.Pipeline, c.store.Repo, c.orchestrator, c.locks, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := workers.StartAll(c.ctx); err != nil {
		c.workers = workers
		c.teardown()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.workers = workers
	c.logger.Info("Workers started", zap.Int("count", workers.Count()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initDispatcher() error {
	c.dispatcher = ProvideDispatcher(c.logger)

	if err := ProvideNotifier(c.config.Lark, c.dispatcher, c.logger); err != nil {
		return fmt.Errorf("lark notifier: %w", err)
	}
	if err := ProvideArchiver(c.config.Report, c.store.Repo, c.dispatcher, c.logger); err != nil {
		return fmt.Errorf("report archiver: %w", err)
	}
	return nil
}

func (c *Container) initPipeline() error {
	decisions, err := ProvideDecisionAdapter(c.config.OpenAI, c.config.Pipeline, c.logger)
	if err != nil {
		return fmt.Errorf("decision source: %w", err)
	}
	if decisions == nil {
		c.logger.Info("Decision source disabled; stages run on checks alone")
	}

	c.payments = payment.NewLoggingGateway(c.logger)

	orch, err := ProvideOrchestrator(PipelineDeps{
		Config:    c.config,
		Decisions: decisions,
		Payments:  c.payments,
		Repo:      c.store.Repo,
		Sink:      c.dispatcher,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.orchestrator = orch
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever Start managed to create. Callers hold mu.
func (c *Container) teardown() []error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
		c.workers = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Error("Failed to close case store", zap.Error(err))
			errs = append(errs, fmt.Errorf("close store: %w", err))
		} else {
			c.logger.Info("Case store closed")
		}
		c.store = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.store == nil:
		set("store", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.store.Ping(ctx); err != nil {
			set("store", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("store", ComponentHealth{Healthy: true, Message: c.store.Driver})
		}
	}

	if c.dispatcher == nil {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	} else {
		set("dispatcher", ComponentHealth{Healthy: true})
	}

	if c.orchestrator == nil {
		set("orchestrator", ComponentHealth{Message: "not initialized"})
	} else {
		set("orchestrator", ComponentHealth{Healthy: true})
	}

	switch {
	case c.workers == nil:
		set("workers", ComponentHealth{Message: "not initialized"})
	case c.workers.Count() == 0:
		set("workers", ComponentHealth{Healthy: true, Message: "disabled"})
	default:
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	}

	return status
}

// Orchestrator returns the case orchestrator
func (c *Container) Orchestrator() *orchestrator.Orchestrator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orchestrator
}

// Repo returns the case store
func (c *Container) Repo() port.CaseRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return nil
	}
	return c.store.Repo
}

// Locks returns the per-case lock shared by the HTTP adapter and the worker
func (c *Container) Locks() *caselock.Locker {
	return c.locks
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

// Workers returns the worker manager
func (c *Container) Workers() *worker.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workers
}
