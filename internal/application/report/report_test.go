package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func result(stage entity.Stage, v entity.VerdictValue, flagged bool, checks ...entity.CheckResult) entity.StageResult {
	return entity.StageResult{
		Stage:         stage,
		Checks:        checks,
		Verdict:       entity.Verdict{Value: v, Reason: "reason " + stage.Name()},
		Flagged:       flagged,
		ChecksSummary: entity.Summarize(checks),
	}
}

func sampleCase(t *testing.T) *entity.Case {
	t.Helper()
	c, err := entity.NewCase("case-r", map[string]any{"amount": 1200.0, "department": "it", "supplier_id": "SUP-9"}, now)
	require.NoError(t, err)
	ok := entity.CheckResult{ID: "a", Name: "Alpha", Status: entity.CheckPass, Detail: "fine"}
	bad := entity.CheckResult{ID: "b", Name: "Beta", Status: entity.CheckFail, Detail: "broken"}

	c.AppendResult(result(entity.StageValidation, entity.VerdictAutoApprove, false, ok))
	c.AppendResult(result(entity.StageApprovalRouting, entity.VerdictHITLFlag, true, ok, bad))
	c.Resolutions = append(c.Resolutions, entity.Resolution{Stage: entity.StageApprovalRouting, Action: entity.ActionApprove, Actor: "erin", Reason: "ok"})
	second := result(entity.StageApprovalRouting, entity.VerdictAutoApprove, false, ok, ok)
	c.AppendResult(second)
	c.CurrentStage = entity.StagePOGeneration
	c.Status = entity.CaseStatusInProgress
	return c
}

func TestBuild(t *testing.T) {
	r := Build(sampleCase(t), now)

	assert.Equal(t, "case-r", r.CaseID)
	assert.Equal(t, 1200.0, r.Amount)
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, "SUP-9", r.Supplier)
	require.Len(t, r.Stages, 2)

	routing, ok := r.Section(entity.StageApprovalRouting)
	require.True(t, ok)
	assert.Equal(t, 2, routing.Runs)
	assert.Equal(t, entity.VerdictAutoApprove, routing.Verdict)
	require.NotNil(t, routing.Resolution)
	assert.Equal(t, "erin", routing.Resolution.Actor)

	assert.Equal(t, entity.ChecksSummary{Pass: 3}, r.Totals)

	_, ok = r.Section(entity.StageFraudScreening)
	assert.False(t, ok)
}

func TestRenderText(t *testing.T) {
	c := sampleCase(t)
	c.SetFlag("system", "needs a look")
	c.Flagged = true

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(c, now)))
	out := buf.String()

	assert.Contains(t, out, "case-r")
	assert.Contains(t, out, "1. Validation")
	assert.Contains(t, out, "2. Approval Routing")
	assert.Contains(t, out, "[PASS]")
	assert.Contains(t, out, "approve by erin: ok")
	assert.Contains(t, out, "needs a look")
}
