package verdict

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

func checksWith(statuses ...entity.CheckStatus) []entity.CheckResult {
	out := make([]entity.CheckResult, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, entity.CheckResult{
			ID:     fmt.Sprintf("check_%d", i+1),
			Name:   fmt.Sprintf("Check %d", i+1),
			Status: s,
		})
	}
	return out
}

const (
	p = entity.CheckPass
	a = entity.CheckAttention
	f = entity.CheckFail
)

func TestAggregate_Rules(t *testing.T) {
	tests := []struct {
		name     string
		checks   []entity.CheckResult
		urgent   bool
		expected entity.VerdictValue
		reason   string
	}{
		{"all pass", checksWith(p, p, p, p, p, p), false, entity.VerdictAutoApprove, "all checks passed"},
		{"one fail", checksWith(p, p, f, p, p, p), false, entity.VerdictHITLFlag, "Check 3"},
		{"fail wins over attention", checksWith(a, a, a, f, p, p), false, entity.VerdictHITLFlag, "failed checks: Check 4"},
		{"three attention", checksWith(a, a, a, p, p, p), false, entity.VerdictHITLFlag, "multiple items require attention"},
		{"two attention not urgent", checksWith(a, a, p, p, p, p), false, entity.VerdictAutoApprove, "Check 1, Check 2"},
		{"two attention urgent", checksWith(a, a, p, p, p, p), true, entity.VerdictHITLFlag, "urgent"},
		{"one attention urgent", checksWith(a, p, p, p, p, p), true, entity.VerdictAutoApprove, "non-blocking"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Aggregate(tt.checks, tt.urgent)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.Value)
			assert.Contains(t, v.Reason, tt.reason)
		})
	}
}

func TestAggregate_FailReasonListsAllFailures(t *testing.T) {
	v, err := Aggregate(checksWith(f, p, f, p, p, p), false)
	require.NoError(t, err)
	assert.Equal(t, "failed checks: Check 1, Check 3", v.Reason)
}

func TestAggregate_TooFewChecks(t *testing.T) {
	_, err := Aggregate(checksWith(p, p, p), false)
	assert.ErrorIs(t, err, ErrCheckCount)

	_, err = Aggregate(nil, false)
	assert.ErrorIs(t, err, ErrCheckCount)
}

func TestAggregate_AddingFailFlipsApproval(t *testing.T) {
	lists := [][]entity.CheckResult{
		checksWith(p, p, p, p, p, p),
		checksWith(a, p, p, p, p, p),
		checksWith(a, a, p, p, p, p),
	}
	for i, checks := range lists {
		before, err := Aggregate(checks, false)
		require.NoError(t, err)
		require.Equal(t, entity.VerdictAutoApprove, before.Value, "list %d", i)

		after, err := Aggregate(append(checks, checksWith(f)...), false)
		require.NoError(t, err)
		assert.Equal(t, entity.VerdictHITLFlag, after.Value, "list %d", i)
	}
}

func TestAggregate_CleanListNeverFlags(t *testing.T) {
	for n := entity.ChecksPerStage; n <= 12; n++ {
		statuses := make([]entity.CheckStatus, n)
		for i := range statuses {
			statuses[i] = p
		}
		for _, urgent := range []bool{false, true} {
			v, err := Aggregate(checksWith(statuses...), urgent)
			require.NoError(t, err)
			assert.Equal(t, entity.VerdictAutoApprove, v.Value)
		}
	}
}
