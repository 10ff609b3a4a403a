package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

func TestComplianceEvaluator_Conflicts(t *testing.T) {
	e := NewComplianceEvaluator(DefaultComplianceRules())

	tests := []struct {
		name     string
		facts    map[string]any
		expected int
	}{
		{"no actors", map[string]any{}, 0},
		{"distinct actors", map[string]any{
			facts.KeyRequesterID: "alice",
			facts.KeyApproverID:  "bob",
			facts.KeyReceiverID:  "carol",
			facts.KeyPayerID:     "dave",
		}, 0},
		{"creator approves own request", map[string]any{
			facts.KeyCreatorID:  "alice",
			facts.KeyApproverID: "ALICE",
		}, 1},
		{"receiver pays", map[string]any{
			facts.KeyReceiverID: "carol",
			facts.KeyPayerID:    "carol",
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Conflicts(facts.FromMap(tt.facts))
			assert.Len(t, got, tt.expected)
		})
	}
}

func TestComplianceEvaluator_RequesterDefaultsToCreator(t *testing.T) {
	e := NewComplianceEvaluator(DefaultComplianceRules())
	got := e.Conflicts(facts.FromMap(map[string]any{
		facts.KeyRequesterID: "alice",
		facts.KeyApproverID:  "alice",
	}))

	require.Len(t, got, 2)
	assert.Equal(t, "alice is both creator and approver", got[0].String())
}

func TestComplianceEvaluator_RequiredDocumentsAreSupersets(t *testing.T) {
	e := NewComplianceEvaluator(DefaultComplianceRules())

	prev := e.RequiredDocuments(1)
	for tier := 2; tier <= 5; tier++ {
		cur := e.RequiredDocuments(tier)
		assert.Greater(t, len(cur), len(prev), "tier %d", tier)
		for _, d := range prev {
			assert.Contains(t, cur, d)
		}
		prev = cur
	}
}

func TestComplianceEvaluator_DocumentStatus(t *testing.T) {
	e := NewComplianceEvaluator(DefaultComplianceRules())

	status, missing := e.DocumentStatus(2, []string{"Invoice", "purchase_order"})
	assert.Equal(t, entity.CheckPass, status)
	assert.Empty(t, missing)

	status, missing = e.DocumentStatus(2, []string{"invoice"})
	assert.Equal(t, entity.CheckAttention, status)
	assert.Equal(t, []string{"purchase_order"}, missing)

	status, missing = e.DocumentStatus(3, []string{"invoice"})
	assert.Equal(t, entity.CheckFail, status)
	assert.Len(t, missing, 3)
}

func TestComplianceEvaluator_ContractStatus(t *testing.T) {
	e := NewComplianceEvaluator(DefaultComplianceRules())
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expiry   time.Time
		expected entity.CheckStatus
	}{
		{"none on record", time.Time{}, entity.CheckPass},
		{"expired", asOf.AddDate(0, 0, -1), entity.CheckFail},
		{"expiring soon", asOf.AddDate(0, 0, 10), entity.CheckAttention},
		{"valid", asOf.AddDate(1, 0, 0), entity.CheckPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := e.ContractStatus(tt.expiry, asOf)
			assert.Equal(t, tt.expected, status)
			assert.NotEmpty(t, detail)
		})
	}
}

func TestComplianceRules_Validate(t *testing.T) {
	require.NoError(t, DefaultComplianceRules().Validate())

	rules := DefaultComplianceRules()
	rules.RequiredDocuments = append(rules.RequiredDocuments, DocumentRequirement{Tier: 6})
	assert.Error(t, rules.Validate())

	rules = DefaultComplianceRules()
	rules.ConflictPairs = []ConflictPair{{A: RolePayer, B: RolePayer}}
	assert.Error(t, rules.Validate())
}
