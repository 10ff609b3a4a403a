package orchestrator

import (
	"context"
	"fmt"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/event"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
	"github.com/garyjia/ai-procurement/internal/domain/workflow"
)

type advanceConfig struct {
	singleStep bool
}

// AdvanceOption configures one Advance call
type AdvanceOption func(*advanceConfig)

// SingleStep runs exactly one stage and returns even if it did not flag
func SingleStep() AdvanceOption {
	return func(c *advanceConfig) {
		c.singleStep = true
	}
}

// Advance runs stages from the current stage until one flags, the case
// reaches a terminal state, or, in single-step mode, after one stage. It
// returns the last stage result.
//
// A paused or terminal case is not re-executed: Advance returns the result
// already recorded, so stage 9 never pays twice.
func (o *Orchestrator) Advance(ctx context.Context, c *entity.Case, opts ...AdvanceOption) (entity.StageResult, error) {
	var cfg advanceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := c.Validate(); err != nil {
		return entity.StageResult{}, err
	}

	if cached, ok := cachedResult(c); ok {
		return cached, nil
	}
	if c.Status.IsTerminal() {
		return entity.StageResult{}, ErrCaseTerminal
	}
	if c.Status == entity.CaseStatusUnderReview {
		return entity.StageResult{}, fmt.Errorf("%w: no result recorded for stage %d", workflow.ErrInvalidTransition, int(c.CurrentStage))
	}

	if err := ctx.Err(); err != nil {
		return entity.StageResult{}, err
	}
	if c.Status == entity.CaseStatusDraft {
		if err := o.fire(ctx, c, workflow.TriggerStart); err != nil {
			return entity.StageResult{}, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return entity.StageResult{}, err
		}

		current := c.CurrentStage
		if current == entity.StagePaymentExecution && !finalApproved(c) {
			return entity.StageResult{}, ErrFinalApprovalMissing
		}

		result, err := o.runner.Run(ctx, current, c)
		if err != nil {
			return entity.StageResult{}, err
		}
		c.AppendResult(result)
		c.UpdatedAt = o.clock()
		o.emit(ctx, event.TypeStageCompleted, c, map[string]any{
			"verdict": string(result.Verdict.Value),
			"flagged": result.Flagged,
			"reason":  result.Verdict.Reason,
		})
		o.logInfo("Stage recorded",
			"case_id", c.ID,
			"stage", int(current),
			"verdict", string(result.Verdict.Value),
			"flagged", result.Flagged,
		)

		done, err := o.afterStage(ctx, c, result)
		if err != nil {
			return result, err
		}
		if err := o.save(ctx, c); err != nil {
			return result, err
		}
		if done || cfg.singleStep {
			return result, nil
		}
	}
}

// afterStage applies the transition a stage result calls for and reports
// whether the run must stop.
func (o *Orchestrator) afterStage(ctx context.Context, c *entity.Case, r entity.StageResult) (bool, error) {
	stage := c.CurrentStage
	switch {
	case stage == entity.StageValidation && (r.ChecksSummary.Fail > 0 || r.Degraded):
		reason := r.Verdict.Reason
		if r.Degraded {
			reason = r.FlagReason
		}
		if err := o.fire(ctx, c, workflow.TriggerReject); err != nil {
			return true, err
		}
		c.RejectionReason = reason
		c.ClearFlag()
		o.emit(ctx, event.TypeCaseRejected, c, map[string]any{"reason": reason, "actor": SystemActor})
		o.logInfo("Case rejected at validation", "case_id", c.ID, "reason", reason)
		return true, nil

	case r.Flagged:
		if err := o.fire(ctx, c, workflow.TriggerFlag); err != nil {
			return true, err
		}
		c.SetFlag(SystemActor, r.FlagReason)
		o.emit(ctx, event.TypeCaseFlagged, c, map[string]any{"reason": r.FlagReason, "degraded": r.Degraded})
		o.logInfo("Case paused for review", "case_id", c.ID, "stage", int(stage), "reason", r.FlagReason)
		return true, nil

	case stage == entity.StagePaymentExecution:
		if err := o.fire(ctx, c, workflow.TriggerComplete); err != nil {
			return true, err
		}
		reference, _ := r.Derived[facts.KeyPaymentReference].(string)
		o.emit(ctx, event.TypePaymentExecuted, c, map[string]any{"reference": reference})
		o.emit(ctx, event.TypeCaseCompleted, c, nil)
		o.logInfo("Case completed", "case_id", c.ID, "payment_reference", reference)
		return true, nil

	default:
		if err := o.fire(ctx, c, workflow.TriggerAdvance); err != nil {
			return true, err
		}
		next, _ := stage.Next()
		c.CurrentStage = next
		return false, nil
	}
}

// cachedResult returns the recorded result of a paused or finished case
func cachedResult(c *entity.Case) (entity.StageResult, bool) {
	switch {
	case c.Status.IsTerminal():
		if last := c.LatestResult(); last != nil {
			return *last, true
		}
	case c.Status == entity.CaseStatusUnderReview:
		if r := c.ResultFor(c.CurrentStage); r != nil {
			return *r, true
		}
	}
	return entity.StageResult{}, false
}

func finalApproved(c *entity.Case) bool {
	res := c.LatestResolution(entity.StageFinalApproval)
	return res != nil && res.Action == entity.ActionApprove
}
