package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StateInProgress, false},
		{StateUnderReview, false},
		{StateApproved, false},
		{StateRejected, true},
		{StateCompleted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	for _, s := range []State{StateDraft, StateInProgress, StateUnderReview, StateApproved, StateRejected, StateCompleted} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []State{"archived", ""} {
		if s.IsValid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

// The case machine is built during package init; it must see every state.
func TestCaseMachine_BuiltAtInit(t *testing.T) {
	if caseBuilder == nil {
		t.Fatal("case builder not initialized")
	}
	m := caseBuilder.Build(StateDraft)
	if !m.CanFire(context.Background(), TriggerStart) {
		t.Fatalf("draft should permit %s, got %v", TriggerStart, m.PermittedTriggers())
	}
}

func TestState_StatusRoundTrip(t *testing.T) {
	for _, s := range []entity.CaseStatus{
		entity.CaseStatusDraft, entity.CaseStatusInProgress, entity.CaseStatusUnderReview,
		entity.CaseStatusApproved, entity.CaseStatusRejected, entity.CaseStatusCompleted,
	} {
		state := FromStatus(s)
		if !state.IsValid() {
			t.Errorf("FromStatus(%s) is not valid", s)
		}
		if state.Status() != s {
			t.Errorf("Status() = %s, want %s", state.Status(), s)
		}
	}
	if State("paused").IsValid() {
		t.Error("unknown state should not be valid")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()
	NewBuilder().Configure(State("INVALID"))
}

func TestBuilder_MachinesAreIndependent(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).Permit(TriggerStart, StateInProgress)

	m1 := b.Build(StateDraft)
	m2 := b.Build(StateDraft)
	if err := m1.Fire(context.Background(), TriggerStart); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m2.State() != StateDraft {
		t.Errorf("m2 state = %v, want %v", m2.State(), StateDraft)
	}
}

func TestStateMachine_GuardsTriedInOrder(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateUnderReview).
		PermitIf(TriggerApprove, StateInProgress, func(ctx context.Context) bool { return false }).
		PermitIf(TriggerApprove, StateApproved, func(ctx context.Context) bool { return true })

	m := b.Build(StateUnderReview)
	if err := m.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m.State() != StateApproved {
		t.Errorf("state = %v, want %v", m.State(), StateApproved)
	}
}

func TestStateMachine_Errors(t *testing.T) {
	b := NewBuilder()
	b.Configure(StateDraft).
		PermitIf(TriggerStart, StateInProgress, func(ctx context.Context) bool { return false })
	m := b.Build(StateDraft)

	if err := m.Fire(context.Background(), TriggerStart); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if err := m.Fire(context.Background(), TriggerApprove); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if m.State() != StateDraft {
		t.Errorf("state changed after failed Fire(): %v", m.State())
	}
	if m.CanFire(context.Background(), TriggerStart) {
		t.Error("CanFire() should evaluate guards")
	}
}

func TestCaseMachine_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewCaseMachine(entity.CaseStatusDraft)

	steps := []struct {
		stage    entity.Stage
		trigger  Trigger
		expected State
	}{
		{entity.StageValidation, TriggerStart, StateInProgress},
		{entity.StageValidation, TriggerAdvance, StateInProgress},
		{entity.StageInvoiceMatching, TriggerFlag, StateUnderReview},
		{entity.StageInvoiceMatching, TriggerHold, StateUnderReview},
		{entity.StageInvoiceMatching, TriggerApprove, StateInProgress},
		{entity.StageFinalApproval, TriggerFlag, StateUnderReview},
		{entity.StageFinalApproval, TriggerApprove, StateApproved},
		{entity.StagePaymentExecution, TriggerComplete, StateCompleted},
	}

	for i, step := range steps {
		if err := m.Fire(WithStage(ctx, step.stage), step.trigger); err != nil {
			t.Fatalf("step %d: Fire(%s) failed: %v", i, step.trigger, err)
		}
		if m.State() != step.expected {
			t.Fatalf("step %d: state = %v, want %v", i, m.State(), step.expected)
		}
	}
	if !m.State().IsTerminal() {
		t.Error("completed case should be terminal")
	}
}

func TestCaseMachine_StageGuards(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  entity.CaseStatus
		stage   entity.Stage
		trigger Trigger
		allowed bool
	}{
		{"validation cannot pause", entity.CaseStatusInProgress, entity.StageValidation, TriggerFlag, false},
		{"validation may reject", entity.CaseStatusInProgress, entity.StageValidation, TriggerReject, true},
		{"later stages do not self-reject", entity.CaseStatusInProgress, entity.StageFraudScreening, TriggerReject, false},
		{"only payment completes", entity.CaseStatusInProgress, entity.StageComplianceScreening, TriggerComplete, false},
		{"reviewer rejects any stage", entity.CaseStatusUnderReview, entity.StageInvoiceMatching, TriggerReject, true},
		{"payment error pauses", entity.CaseStatusApproved, entity.StagePaymentExecution, TriggerFlag, true},
		{"terminal is final", entity.CaseStatusRejected, entity.StageInvoiceMatching, TriggerAdvance, false},
		{"no stage attached", entity.CaseStatusInProgress, 0, TriggerFlag, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewCaseMachine(tt.status)
			fctx := ctx
			if tt.stage != 0 {
				fctx = WithStage(ctx, tt.stage)
			}
			if got := m.CanFire(fctx, tt.trigger); got != tt.allowed {
				t.Errorf("CanFire(%s at %d) = %v, want %v", tt.trigger, tt.stage, got, tt.allowed)
			}
		})
	}
}

func TestCaseMachine_ApproveAtPaymentCompletes(t *testing.T) {
	m := NewCaseMachine(entity.CaseStatusUnderReview)
	if err := m.Fire(WithStage(context.Background(), entity.StagePaymentExecution), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m.State() != StateCompleted {
		t.Errorf("state = %v, want %v", m.State(), StateCompleted)
	}
}
