package event

import (
	"testing"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"case flagged", TypeCaseFlagged, true},
		{"case completed", TypeCaseCompleted, true},
		{"payment executed", TypePaymentExecuted, true},
		{"unknown", Type("unknown.type"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeCaseFlagged, "case-1", entity.StageFraudScreening, map[string]any{"reason": "fraud"})

	if evt.ID == "" || evt.CorrelationID == "" {
		t.Fatal("expected generated ID and correlation ID")
	}
	if evt.ID == evt.CorrelationID {
		t.Error("ID and correlation ID should differ")
	}
	if evt.CaseID != "case-1" || evt.Stage != entity.StageFraudScreening {
		t.Errorf("unexpected case/stage: %s/%d", evt.CaseID, evt.Stage)
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeCaseResolved, "case-1", entity.StageFinalApproval, nil, "corr-1")
	if evt.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %s, want corr-1", evt.CorrelationID)
	}
	if evt.Payload == nil {
		t.Error("payload should never be nil")
	}
}

func TestEvent_WithPayloadIsImmutable(t *testing.T) {
	original := NewEvent(TypeCaseCreated, "case-1", entity.StageValidation, map[string]any{"a": 1})
	updated := original.WithPayload("b", true)

	if _, ok := original.Payload["b"]; ok {
		t.Error("original payload was modified")
	}
	if !updated.GetPayloadBool("b") {
		t.Error("updated payload missing key")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload should keep the event ID")
	}
}

func TestEvent_PayloadGetters(t *testing.T) {
	evt := NewEvent(TypeStageCompleted, "case-1", entity.StageApprovalRouting, map[string]any{
		"verdict": "AUTO_APPROVE",
		"int":     3,
		"float":   4.9,
		"flag":    true,
	})

	if got := evt.GetPayloadString("verdict"); got != "AUTO_APPROVE" {
		t.Errorf("GetPayloadString() = %v", got)
	}
	if got := evt.GetPayloadString("int"); got != "" {
		t.Errorf("GetPayloadString() on int = %v, want empty", got)
	}
	if got := evt.GetPayloadInt("int"); got != 3 {
		t.Errorf("GetPayloadInt() = %v, want 3", got)
	}
	if got := evt.GetPayloadInt("float"); got != 4 {
		t.Errorf("GetPayloadInt() on float = %v, want 4", got)
	}
	if !evt.GetPayloadBool("flag") || evt.GetPayloadBool("missing") {
		t.Error("GetPayloadBool() mismatch")
	}
}
