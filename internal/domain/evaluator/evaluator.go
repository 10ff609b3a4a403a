// Package evaluator turns case facts into the fixed, ordered check list of a
// stage. Evaluation is pure: the same facts and thresholds always produce the
// same checks.
package evaluator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
	"github.com/garyjia/ai-procurement/internal/domain/scoring"
)

type outcome struct {
	status   entity.CheckStatus
	detail   string
	evidence []string
}

func pass(detail string, evidence ...string) outcome {
	return outcome{status: entity.CheckPass, detail: detail, evidence: evidence}
}

func attention(detail string, evidence ...string) outcome {
	return outcome{status: entity.CheckAttention, detail: detail, evidence: evidence}
}

func fail(detail string, evidence ...string) outcome {
	return outcome{status: entity.CheckFail, detail: detail, evidence: evidence}
}

type check struct {
	id   string
	name string
	run  func(f facts.Facts) outcome
}

// Evaluator evaluates the check table of one stage
type Evaluator struct {
	thresholds Thresholds
	tiers      *scoring.TierResolver
	fraud      *scoring.FraudDetector
	compliance *scoring.ComplianceEvaluator
	workers    int
	stages     map[entity.Stage][]check
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithWorkers bounds how many checks run concurrently; values below 1 run serially
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// New validates the thresholds and builds the per-stage check table
func New(t Thresholds, opts ...Option) (*Evaluator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	tiers, err := scoring.NewTierResolver(t.Tiers, t.Overlays)
	if err != nil {
		return nil, err
	}

	e := &Evaluator{
		thresholds: t,
		tiers:      tiers,
		fraud:      scoring.NewFraudDetector(t.Fraud),
		compliance: scoring.NewComplianceEvaluator(t.Compliance),
		workers:    entity.ChecksPerStage,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stages = e.buildTable()

	for _, stage := range entity.AllStages() {
		if n := len(e.stages[stage]); n != entity.ChecksPerStage {
			return nil, fmt.Errorf("stage %s defines %d checks, want %d", stage, n, entity.ChecksPerStage)
		}
	}
	return e, nil
}

// Thresholds returns the table the evaluator was built with
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Tiers returns the approval-tier resolver
func (e *Evaluator) Tiers() *scoring.TierResolver {
	return e.tiers
}

// CheckIDs returns the fixed check order of a stage
func (e *Evaluator) CheckIDs(stage entity.Stage) []string {
	ids := make([]string, 0, entity.ChecksPerStage)
	for _, c := range e.stages[stage] {
		ids = append(ids, c.id)
	}
	return ids
}

// Evaluate runs the checks of stage against facts. Checks run concurrently up to
// the worker bound; the result keeps the table order. Only a missing case id or
// an unknown stage is an error, apart from a check that panics.
func (e *Evaluator) Evaluate(ctx context.Context, stage entity.Stage, f facts.Facts) ([]entity.CheckResult, error) {
	if strings.TrimSpace(f.CaseID) == "" {
		return nil, entity.ErrMissingCaseID
	}
	if err := stage.Validate(); err != nil {
		return nil, err
	}

	table := e.stages[stage]
	results := make([]entity.CheckResult, len(table))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range table {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("check %s panicked: %v", c.id, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			out := c.run(f)
			evidence := out.evidence
			if evidence == nil {
				evidence = []string{}
			}
			results[i] = entity.CheckResult{
				ID:       c.id,
				Name:     c.name,
				Status:   out.status,
				Detail:   out.detail,
				Evidence: evidence,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate stage %s: %w", stage, err)
	}
	return results, nil
}

func (e *Evaluator) buildTable() map[entity.Stage][]check {
	return map[entity.Stage][]check{
		entity.StageValidation:          e.validationChecks(),
		entity.StageApprovalRouting:     e.approvalChecks(),
		entity.StagePOGeneration:        e.purchaseOrderChecks(),
		entity.StageReceiptVerification: e.receiptChecks(),
		entity.StageInvoiceMatching:     e.invoiceChecks(),
		entity.StageFraudScreening:      e.fraudChecks(),
		entity.StageComplianceScreening: e.complianceChecks(),
		entity.StageFinalApproval:       e.finalApprovalChecks(),
		entity.StagePaymentExecution:    e.paymentChecks(),
	}
}

// tierFor prefers the tier derived at approval routing
func (e *Evaluator) tierFor(f facts.Facts) int {
	if f.ApprovalTier > 0 {
		return f.ApprovalTier
	}
	return e.tiers.Resolve(f.Amount).Tier
}

// variance is |actual-expected| / expected; a zero expectation only matches zero
func variance(actual, expected float64) float64 {
	if expected == 0 {
		if actual == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(actual-expected) / math.Abs(expected)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func percent(v float64) string {
	if math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

func evidence(key string, v any) string {
	return fmt.Sprintf("%s=%v", key, v)
}
