package workflow

import (
	"context"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

type stageKey struct{}

// WithStage attaches the stage a trigger is fired for
func WithStage(ctx context.Context, stage entity.Stage) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage attached by WithStage
func StageFrom(ctx context.Context) (entity.Stage, bool) {
	stage, ok := ctx.Value(stageKey{}).(entity.Stage)
	return stage, ok
}

func stageIs(stages ...entity.Stage) GuardFunc {
	return func(ctx context.Context) bool {
		current, ok := StageFrom(ctx)
		if !ok {
			return false
		}
		for _, s := range stages {
			if current == s {
				return true
			}
		}
		return false
	}
}

func stageBefore(limit entity.Stage) GuardFunc {
	return func(ctx context.Context) bool {
		current, ok := StageFrom(ctx)
		return ok && current < limit
	}
}

func stageFlaggable(ctx context.Context) bool {
	current, ok := StageFrom(ctx)
	return ok && (current.Flaggable() || current == entity.StagePaymentExecution)
}

var caseBuilder = newCaseBuilder()

// newCaseBuilder declares the case lifecycle:
//
//	draft -> in_progress -> under_review <-> in_progress
//	under_review(8) -> approved -> completed
//	stage 1 rejects from in_progress, a reviewer rejects from under_review
func newCaseBuilder() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerStart, StateInProgress)

	b.Configure(StateInProgress).
		Permit(TriggerAdvance, StateInProgress).
		PermitIf(TriggerFlag, StateUnderReview, stageFlaggable).
		PermitIf(TriggerReject, StateRejected, stageIs(entity.StageValidation)).
		PermitIf(TriggerComplete, StateCompleted, stageIs(entity.StagePaymentExecution))

	b.Configure(StateUnderReview).
		PermitIf(TriggerApprove, StateInProgress, stageBefore(entity.StageFinalApproval)).
		PermitIf(TriggerApprove, StateApproved, stageIs(entity.StageFinalApproval)).
		PermitIf(TriggerApprove, StateCompleted, stageIs(entity.StagePaymentExecution)).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerHold, StateUnderReview)

	b.Configure(StateApproved).
		PermitIf(TriggerFlag, StateUnderReview, stageIs(entity.StagePaymentExecution)).
		PermitIf(TriggerComplete, StateCompleted, stageIs(entity.StagePaymentExecution))

	return b
}

// NewCaseMachine returns a lifecycle machine positioned at the case status
func NewCaseMachine(status entity.CaseStatus) StateMachine {
	return caseBuilder.Build(FromStatus(status))
}
