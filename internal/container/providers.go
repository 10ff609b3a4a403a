// Package container wires the case pipeline together and owns its lifecycle.
package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/caselock"
	"github.com/garyjia/ai-procurement/internal/application/decision"
	"github.com/garyjia/ai-procurement/internal/application/dispatcher"
	"github.com/garyjia/ai-procurement/internal/application/orchestrator"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/application/stage"
	"github.com/garyjia/ai-procurement/internal/config"
	"github.com/garyjia/ai-procurement/internal/domain/evaluator"
	"github.com/garyjia/ai-procurement/internal/domain/event"
	"github.com/garyjia/ai-procurement/internal/infrastructure/export"
	"github.com/garyjia/ai-procurement/internal/infrastructure/external/lark"
	"github.com/garyjia/ai-procurement/internal/infrastructure/external/openai"
	"github.com/garyjia/ai-procurement/internal/infrastructure/persistence/postgres"
	"github.com/garyjia/ai-procurement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ai-procurement/internal/infrastructure/worker"
	"github.com/garyjia/ai-procurement/pkg/database"
	"github.com/garyjia/ai-procurement/pkg/utils"
)

// StoreBundle is the case store plus what the container needs to ping and close it
type StoreBundle struct {
	Repo   port.CaseRepository
	Driver string
	Ping   func(ctx context.Context) error
	Close  func() error
}

// ProvideStore opens the configured case store and brings its schema up to date
func ProvideStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*StoreBundle, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err := database.New(database.Config{
			Path:            cfg.Path,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := database.NewMigrator(db, logger).Run(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &StoreBundle{
			Repo:   sqlite.NewCaseRepository(sqlite.NewDB(db.DB, logger), logger),
			Driver: config.DriverSQLite,
			Ping:   db.PingContext,
			Close:  db.Close,
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &StoreBundle{
			Repo:   postgres.NewCaseRepository(db, logger),
			Driver: config.DriverPostgres,
			Ping:   db.Pool.Ping,
			Close: func() error {
				db.Close()
				return nil
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// ProvideDispatcher creates the event dispatcher with an audit log handler
// on every case event
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewKVLogger(logger).Named("dispatcher")))

	audit := logger.Named("events")
	for _, t := range []event.Type{
		event.TypeCaseCreated,
		event.TypeStageCompleted,
		event.TypeCaseFlagged,
		event.TypeCaseResolved,
		event.TypeCaseApproved,
		event.TypeCaseRejected,
		event.TypeCaseCompleted,
		event.TypePaymentExecuted,
		event.TypeStatusChanged,
	} {
		d.SubscribeNamed(t, "audit-log", func(_ context.Context, evt *event.Event) error {
			audit.Info("Case event",
				zap.String("event_type", evt.Type.String()),
				zap.String("case_id", evt.CaseID),
				zap.Int("stage", int(evt.Stage)),
				zap.String("correlation_id", evt.CorrelationID),
				zap.Any("payload", evt.Payload))
			return nil
		})
	}
	return d
}

// ProvideDecisionAdapter returns nil when the external source is disabled
func ProvideDecisionAdapter(cfg config.OpenAIConfig, pipeline config.PipelineConfig, logger *zap.Logger) (*decision.Adapter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}
	source, err := openai.NewDecisionSource(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, prompts, logger)
	if err != nil {
		return nil, err
	}

	dc := decision.DefaultConfig()
	if pipeline.DecisionTimeout > 0 {
		dc.Timeout = pipeline.DecisionTimeout
	}
	dc.MaxRetries = pipeline.DecisionMaxRetries
	if pipeline.DecisionInitialBackoff > 0 {
		dc.InitialBackoff = pipeline.DecisionInitialBackoff
	}
	return decision.NewAdapter(source, dc, decision.WithLogger(utils.NewKVLogger(logger).Named("decision"))), nil
}

// PipelineDeps are the collaborators of the stage executor and orchestrator
type PipelineDeps struct {
	Config    *config.Config
	Decisions *decision.Adapter
	Payments  port.PaymentGateway
	Repo      port.CaseRepository
	Sink      port.NotificationSink
	Logger    *zap.Logger
}

// ProvideOrchestrator builds the evaluator, stage executor and orchestrator
func ProvideOrchestrator(deps PipelineDeps) (*orchestrator.Orchestrator, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	kv := utils.NewKVLogger(deps.Logger)

	ev, err := evaluator.New(deps.Config.Thresholds, evaluator.WithWorkers(deps.Config.Pipeline.CheckWorkers))
	if err != nil {
		return nil, err
	}

	opts := []stage.Option{stage.WithLogger(kv.Named("stage"))}
	if deps.Decisions != nil {
		opts = append(opts, stage.WithDecisionAdapter(deps.Decisions))
	}
	if deps.Payments != nil {
		opts = append(opts, stage.WithPaymentGateway(deps.Payments))
	}
	executor, err := stage.NewExecutor(ev, opts...)
	if err != nil {
		return nil, err
	}

	oopts := []orchestrator.Option{
		orchestrator.WithLogger(kv.Named("orchestrator")),
		orchestrator.WithSaveRetries(deps.Config.Pipeline.SaveRetries),
	}
	if deps.Repo != nil {
		oopts = append(oopts, orchestrator.WithRepository(deps.Repo))
	}
	if deps.Sink != nil {
		oopts = append(oopts, orchestrator.WithNotificationSink(deps.Sink))
	}
	return orchestrator.New(executor, oopts...)
}

// ProvideNotifier subscribes the Lark reviewer notifier when enabled
func ProvideNotifier(cfg config.LarkConfig, d dispatcher.Dispatcher, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	client, err := lark.NewSDKClient(lark.Config{
		AppID:          cfg.AppID,
		AppSecret:      cfg.AppSecret,
		ReviewerChatID: cfg.ReviewerChatID,
		BaseURL:        cfg.BaseURL,
	}, logger)
	if err != nil {
		return err
	}
	messenger, err := lark.NewMessenger(client, cfg.ReviewerChatID)
	if err != nil {
		return err
	}
	lark.NewNotifier(messenger, logger).Register(d)
	return nil
}

// ProvideArchiver subscribes the xlsx report archiver when an output dir is set
func ProvideArchiver(cfg config.ReportConfig, repo port.CaseRepository, d dispatcher.Dispatcher, logger *zap.Logger) error {
	if cfg.OutputDir == "" {
		return nil
	}
	a, err := export.NewArchiver(repo, cfg.OutputDir, logger)
	if err != nil {
		return err
	}
	a.Register(d)
	return nil
}

// ProvideWorkers creates the worker manager with the advance worker registered
func ProvideWorkers(cfg config.PipelineConfig, repo port.CaseRepository, orch *orchestrator.Orchestrator, locks *caselock.Locker, logger *zap.Logger) (*worker.Manager, error) {
	m := worker.NewManager(logger)
	if !cfg.WorkerEnabled {
		return m, nil
	}

	w, err := worker.NewAdvanceWorker(worker.AdvanceWorkerConfig{
		PollInterval:   cfg.WorkerPollInterval,
		BatchSize:      cfg.WorkerBatchSize,
		Concurrency:    cfg.WorkerConcurrency,
		ProcessTimeout: 2 * time.Minute,
	}, repo, orch, locks, logger)
	if err != nil {
		return nil, err
	}
	m.Register(w)
	return m, nil
}
