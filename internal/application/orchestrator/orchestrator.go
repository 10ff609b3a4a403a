// Package orchestrator drives a case through the nine stages. It owns every
// case mutation: appending stage results, moving the current stage, changing
// status through the lifecycle state machine and recording resolutions.
//
// A case must be advanced by one caller at a time; the orchestrator keeps no
// per-case state of its own.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/event"
	"github.com/garyjia/ai-procurement/internal/domain/workflow"
)

var (
	// ErrCaseTerminal is returned when a completed or rejected case is resolved
	ErrCaseTerminal = errors.New("case is in a terminal state")

	// ErrNotUnderReview is returned when resolving a case that is not paused
	ErrNotUnderReview = errors.New("case is not under review")

	// ErrInvalidAction is returned for a resolution other than approve, reject or hold
	ErrInvalidAction = errors.New("invalid resolution action")

	// ErrFinalApprovalMissing is returned when payment would run without an
	// explicit approval at the final approval gate
	ErrFinalApprovalMissing = errors.New("payment requires approval at the final approval gate")
)

// SystemActor flags cases paused by the pipeline itself
const SystemActor = "system"

// StageRunner executes one stage; satisfied by *stage.Executor
type StageRunner interface {
	Run(ctx context.Context, stage entity.Stage, c *entity.Case) (entity.StageResult, error)
}

// Logger is the minimal key/value logger the orchestrator needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Orchestrator sequences stage executions for a case
type Orchestrator struct {
	runner      StageRunner
	repo        port.CaseRepository
	sink        port.NotificationSink
	clock       func() time.Time
	logger      Logger
	saveRetries int
}

// Option configures the orchestrator
type Option func(*Orchestrator)

// WithRepository persists the case after every mutation
func WithRepository(repo port.CaseRepository) Option {
	return func(o *Orchestrator) {
		o.repo = repo
	}
}

// WithNotificationSink sets where case events are emitted
func WithNotificationSink(sink port.NotificationSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithSaveRetries sets how many times a failed Save is retried
func WithSaveRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.saveRetries = n
		}
	}
}

// New creates an orchestrator
func New(runner StageRunner, opts ...Option) (*Orchestrator, error) {
	if runner == nil {
		return nil, fmt.Errorf("stage runner is required")
	}
	o := &Orchestrator{
		runner:      runner,
		clock:       time.Now,
		saveRetries: 2,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit creates a draft case, persists it and announces it
func (o *Orchestrator) Submit(ctx context.Context, id string, facts map[string]any) (*entity.Case, error) {
	c, err := entity.NewCase(id, facts, o.clock())
	if err != nil {
		return nil, err
	}
	if err := o.save(ctx, c); err != nil {
		return nil, err
	}
	o.emit(ctx, event.TypeCaseCreated, c, nil)
	o.logInfo("Case submitted", "case_id", c.ID)
	return c, nil
}

// fire moves the case status through the lifecycle machine
func (o *Orchestrator) fire(ctx context.Context, c *entity.Case, trigger workflow.Trigger) error {
	machine := workflow.NewCaseMachine(c.Status)
	previous := machine.State()
	if err := machine.Fire(workflow.WithStage(ctx, c.CurrentStage), trigger); err != nil {
		return fmt.Errorf("case %s stage %d: %w", c.ID, int(c.CurrentStage), err)
	}
	c.Status = machine.State().Status()
	c.UpdatedAt = o.clock()

	if previous != machine.State() {
		o.emit(ctx, event.TypeStatusChanged, c, map[string]any{
			"previous_status": previous.String(),
			"new_status":      machine.State().String(),
			"trigger":         trigger.String(),
		})
	}
	return nil
}

// save persists the case with a short retry for transient store errors
func (o *Orchestrator) save(ctx context.Context, c *entity.Case) error {
	if o.repo == nil {
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := o.repo.Save(ctx, c); err != nil {
			if ctx.Err() != nil || errors.Is(err, entity.ErrMissingCaseID) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(o.saveRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			o.logError("Save case failed, retrying", "case_id", c.ID, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, t event.Type, c *entity.Case, payload map[string]any) {
	if o.sink == nil {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["status"] = string(c.Status)
	o.sink.Emit(ctx, event.NewEventWithCorrelation(t, c.ID, c.CurrentStage, payload, c.ID))
}

func (o *Orchestrator) logInfo(msg string, kv ...interface{}) {
	if o.logger != nil {
		o.logger.Info(msg, kv...)
	}
}

func (o *Orchestrator) logError(msg string, kv ...interface{}) {
	if o.logger != nil {
		o.logger.Error(msg, kv...)
	}
}
