// Package stage runs a single pipeline stage against a case and produces its
// StageResult. The executor never mutates the case; the orchestrator appends
// the result it returns.
package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/ai-procurement/internal/application/decision"
	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/evaluator"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
	"github.com/garyjia/ai-procurement/internal/domain/verdict"
)

// ErrNoPaymentGateway is the execution error of stage 9 without a gateway
var ErrNoPaymentGateway = errors.New("no payment gateway configured")

// paymentNamespace scopes payment idempotency keys
var paymentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:ai-procurement:payment"))

// Derived keys written by payment execution
const (
	KeyPaymentExecutedAt = "payment_executed_at"
	KeyIdempotencyKey    = "payment_idempotency_key"
)

// Logger is the minimal key/value logger the executor needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Executor runs stages
type Executor struct {
	evaluator *evaluator.Evaluator
	decisions *decision.Adapter
	payments  port.PaymentGateway
	clock     func() time.Time
	logger    Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithDecisionAdapter enables the optional narrative source
func WithDecisionAdapter(a *decision.Adapter) Option {
	return func(x *Executor) {
		x.decisions = a
	}
}

// WithPaymentGateway sets the gateway used by payment execution
func WithPaymentGateway(g port.PaymentGateway) Option {
	return func(x *Executor) {
		x.payments = g
	}
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(x *Executor) {
		x.clock = clock
	}
}

// WithLogger sets the executor logger
func WithLogger(l Logger) Option {
	return func(x *Executor) {
		x.logger = l
	}
}

// NewExecutor creates an executor over a configured evaluator
func NewExecutor(ev *evaluator.Evaluator, opts ...Option) (*Executor, error) {
	if ev == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	x := &Executor{evaluator: ev, clock: time.Now}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// PaymentKey returns the idempotency key for a case's payment. The key only
// depends on the case id, so a retried stage 9 cannot pay twice.
func PaymentKey(caseID string) string {
	return uuid.NewSHA1(paymentNamespace, []byte(caseID)).String()
}

// Run executes stage against c. Only a missing case id or an invalid stage
// returns an error; every other failure is reported as a degraded, flagged
// result whose reason starts with "execution error: ".
func (x *Executor) Run(ctx context.Context, stage entity.Stage, c *entity.Case) (entity.StageResult, error) {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return entity.StageResult{}, entity.ErrMissingCaseID
	}
	if err := stage.Validate(); err != nil {
		return entity.StageResult{}, err
	}

	start := x.clock()
	result, err := x.execute(ctx, stage, c)
	if err != nil {
		x.logError("Stage execution failed", "case_id", c.ID, "stage", int(stage), "error", err)
		result = degrade(stage, result, err)
	}
	result.CompletedAt = x.clock()
	result.ExecutionTime = result.CompletedAt.Sub(start)

	x.logInfo("Stage completed",
		"case_id", c.ID,
		"stage", int(stage),
		"verdict", string(result.Verdict.Value),
		"flagged", result.Flagged,
		"pass", result.ChecksSummary.Pass,
		"attention", result.ChecksSummary.Attention,
		"fail", result.ChecksSummary.Fail,
	)
	return result, nil
}

func (x *Executor) execute(ctx context.Context, stage entity.Stage, c *entity.Case) (result entity.StageResult, err error) {
	result = entity.StageResult{Stage: stage, Checks: []entity.CheckResult{}, Notes: []string{}}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	f := facts.Build(c, x.clock())

	var decisionNote string
	if x.decisions != nil {
		d, derr := x.decisions.Decide(ctx, stage, c)
		if derr == nil {
			result.Narrative = d.Narrative
			decisionNote = d.Note
		} else if !errors.Is(derr, decision.ErrNoSource) {
			decisionNote = "decision source skipped: " + derr.Error()
		}
	}

	checks, err := x.evaluator.Evaluate(ctx, stage, f)
	if err != nil {
		return result, err
	}
	result.Checks = checks
	result.ChecksSummary = entity.Summarize(checks)

	v, err := verdict.Aggregate(checks, f.Urgent())
	if err != nil {
		return result, err
	}
	result.Verdict = v
	result.Derived = x.evaluator.Derive(stage, f, checks)

	switch {
	case stage == entity.StageFinalApproval:
		result.Flagged = true
		result.FlagReason = "final approval required: " + v.Reason
	case stage == entity.StageValidation:
		// a failed validation rejects, it never pauses
	case v.IsFlag() && stage == entity.StagePaymentExecution:
		result.Flagged = true
		result.FlagReason = "payment withheld: " + v.Reason
	case v.IsFlag():
		result.Flagged = true
		result.FlagReason = v.Reason
	}

	if stage == entity.StagePaymentExecution && !result.Flagged {
		derived, err := x.pay(ctx, f)
		if err != nil {
			result.Notes = notes(checks, v, decisionNote)
			return result, err
		}
		result.Derived = derived
	}

	result.Notes = notes(checks, v, decisionNote)
	return result, nil
}

// pay issues the payment for an approved case
func (x *Executor) pay(ctx context.Context, f facts.Facts) (map[string]any, error) {
	if x.payments == nil {
		return nil, ErrNoPaymentGateway
	}
	key := PaymentKey(f.CaseID)
	instruction := entity.PaymentInstruction{
		CaseID:         f.CaseID,
		IdempotencyKey: key,
		SupplierID:     f.SupplierID,
		Amount:         f.Payment.Amount,
		Currency:       f.Payment.Currency,
		Method:         f.Payment.Method,
		BankAccount:    f.Payment.BankAccount,
	}
	receipt, err := x.payments.Execute(ctx, instruction)
	if err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	if receipt.Reference == "" {
		return nil, fmt.Errorf("payment: gateway returned no reference")
	}
	x.logInfo("Payment executed", "case_id", f.CaseID, "reference", receipt.Reference, "amount", instruction.Amount)
	return map[string]any{
		facts.KeyPaymentReference: receipt.Reference,
		KeyPaymentExecutedAt:      receipt.ExecutedAt.UTC().Format(time.RFC3339),
		KeyIdempotencyKey:         key,
	}, nil
}

// degrade turns a failed execution into a flagged review item, keeping any
// checks evaluated before the failure
func degrade(stage entity.Stage, partial entity.StageResult, err error) entity.StageResult {
	reason := entity.ExecutionErrorPrefix + err.Error()
	checks := partial.Checks
	if checks == nil {
		checks = []entity.CheckResult{}
	}
	notes := append([]string{}, partial.Notes...)
	notes = append(notes, reason)
	return entity.StageResult{
		Stage:         stage,
		Checks:        checks,
		Verdict:       entity.Verdict{Value: entity.VerdictHITLFlag, Reason: reason},
		Notes:         notes,
		Flagged:       true,
		FlagReason:    reason,
		ChecksSummary: entity.Summarize(checks),
		Narrative:     partial.Narrative,
		Degraded:      true,
	}
}

// notes is one line per check followed by the verdict line
func notes(checks []entity.CheckResult, v entity.Verdict, extra string) []string {
	lines := make([]string, 0, len(checks)+2)
	for _, c := range checks {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(c.Status)), c.Name, c.Detail))
	}
	lines = append(lines, fmt.Sprintf("verdict %s: %s", v.Value, v.Reason))
	if extra != "" {
		lines = append(lines, extra)
	}
	return lines
}

func (x *Executor) logInfo(msg string, kv ...interface{}) {
	if x.logger != nil {
		x.logger.Info(msg, kv...)
	}
}

func (x *Executor) logError(msg string, kv ...interface{}) {
	if x.logger != nil {
		x.logger.Error(msg, kv...)
	}
}
