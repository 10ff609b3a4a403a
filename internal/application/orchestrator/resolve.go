package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/event"
	"github.com/garyjia/ai-procurement/internal/domain/workflow"
)

// Resolve applies a reviewer's decision to a paused case.
//
//   - approve clears the flag and moves to the next stage; approving stage 8
//     releases payment; approving stage 9 is a manual settlement that
//     completes the case without calling the payment gateway
//   - reject ends the case, keeping the current stage
//   - hold keeps the case paused at the current stage
//
// Resolve never runs a stage; call Advance afterwards to resume.
func (o *Orchestrator) Resolve(ctx context.Context, c *entity.Case, action entity.ResolutionAction, actor, reason string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	parsed, ok := entity.ParseResolutionAction(string(action))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	action = parsed
	if c.Status.IsTerminal() {
		return ErrCaseTerminal
	}
	if c.Status != entity.CaseStatusUnderReview {
		return fmt.Errorf("%w: status is %s", ErrNotUnderReview, c.Status)
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = "reviewer"
	}

	stage := c.CurrentStage
	resolution := entity.Resolution{
		Stage:    stage,
		Action:   action,
		Actor:    actor,
		Reason:   reason,
		Resolved: o.clock(),
	}

	switch action {
	case entity.ActionApprove:
		if err := o.approve(ctx, c, actor); err != nil {
			return err
		}
	case entity.ActionReject:
		if err := o.fire(ctx, c, workflow.TriggerReject); err != nil {
			return err
		}
		if strings.TrimSpace(reason) == "" {
			reason = fmt.Sprintf("rejected by %s at %s", actor, stage.Name())
		}
		c.RejectionReason = reason
		c.ClearFlag()
		o.emit(ctx, event.TypeCaseRejected, c, map[string]any{"reason": reason, "actor": actor})
	case entity.ActionHold:
		if err := o.fire(ctx, c, workflow.TriggerHold); err != nil {
			return err
		}
	}
	c.Resolutions = append(c.Resolutions, resolution)

	o.emit(ctx, event.TypeCaseResolved, c, map[string]any{
		"action":         string(action),
		"actor":          actor,
		"reason":         reason,
		"resolved_stage": int(stage),
	})
	o.logInfo("Case resolved", "case_id", c.ID, "stage", int(stage), "action", string(action), "actor", actor)
	return o.save(ctx, c)
}

// approve at payment execution records a manual settlement: the case
// completes and no payment is executed.
func (o *Orchestrator) approve(ctx context.Context, c *entity.Case, actor string) error {
	stage := c.CurrentStage
	if err := o.fire(ctx, c, workflow.TriggerApprove); err != nil {
		return err
	}
	c.ClearFlag()

	switch stage {
	case entity.StagePaymentExecution:
		o.emit(ctx, event.TypeCaseCompleted, c, map[string]any{"actor": actor, "manual_settlement": true})
	case entity.StageFinalApproval:
		c.CurrentStage = entity.StagePaymentExecution
		o.emit(ctx, event.TypeCaseApproved, c, map[string]any{"actor": actor})
	default:
		next, _ := stage.Next()
		c.CurrentStage = next
	}
	return nil
}
