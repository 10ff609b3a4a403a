package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

func flags(contributions ...int) []entity.FraudFlag {
	out := make([]entity.FraudFlag, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, entity.FraudFlag{ScoreContribution: c})
	}
	return out
}

func TestScore_NoFlags(t *testing.T) {
	score, level := Score(nil)
	assert.Equal(t, 0, score)
	assert.Equal(t, entity.RiskLow, level)
}

func TestScore_WorstIndicatorDominates(t *testing.T) {
	score, level := Score(flags(95, 20))
	assert.Equal(t, 97, score)
	assert.Equal(t, entity.RiskCritical, level)
}

func TestScore_Values(t *testing.T) {
	tests := []struct {
		name          string
		contributions []int
		score         int
		level         entity.RiskLevel
	}{
		{"single weak", []int{20}, 20, entity.RiskLow},
		{"two weak", []int{20, 25}, 31, entity.RiskMedium},
		{"bank change", []int{70}, 70, entity.RiskHigh},
		{"collusion", []int{90}, 90, entity.RiskCritical},
		{"over range clamped", []int{150, 150}, 100, entity.RiskCritical},
		{"negative ignored", []int{-10}, 0, entity.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := Score(flags(tt.contributions...))
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	for a := 0; a <= 100; a += 5 {
		for b := 0; b <= 100; b += 5 {
			score, _ := Score(flags(a, b, 100-a))
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestLevel_Bands(t *testing.T) {
	assert.Equal(t, entity.RiskLow, Level(30))
	assert.Equal(t, entity.RiskMedium, Level(31))
	assert.Equal(t, entity.RiskMedium, Level(60))
	assert.Equal(t, entity.RiskHigh, Level(61))
	assert.Equal(t, entity.RiskHigh, Level(85))
	assert.Equal(t, entity.RiskCritical, Level(86))
}

func TestFraudDetector_Detect(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	d := NewFraudDetector(DefaultFraudRules())

	f := facts.FromMap(map[string]any{
		facts.KeyAmount:                      10000.0,
		facts.KeyAsOf:                        asOf,
		facts.KeyDuplicateInvoice:            true,
		facts.KeyRequesterVendorRelationship: "family",
		facts.KeyBankChangedDate:             "2026-05-20",
		facts.KeySimilarTransactionsCount:    3,
		facts.KeySupplierOnboarded:           "2026-05-01",
	})

	got := d.Detect(f)
	rules := make([]string, 0, len(got))
	for _, fl := range got {
		rules = append(rules, fl.RuleID)
	}
	assert.Equal(t, []string{
		RuleDuplicate, RuleVendorCollusion, RuleBankAccountChange,
		RuleSplitTransaction, RuleNewVendor, RuleRoundDollar,
	}, rules)
	assert.Equal(t, entity.SeverityCritical, got[0].Severity)
	assert.Equal(t, entity.SeverityLow, got[5].Severity)
}

func TestFraudDetector_CleanCase(t *testing.T) {
	d := NewFraudDetector(DefaultFraudRules())
	f := facts.FromMap(map[string]any{
		facts.KeyAmount: 1234.56,
		facts.KeyAsOf:   "2026-06-01",
	})
	assert.Empty(t, d.Detect(f))
}

func TestFraudDetector_OldBankChangeIgnored(t *testing.T) {
	d := NewFraudDetector(DefaultFraudRules())
	f := facts.FromMap(map[string]any{
		facts.KeyAsOf:            "2026-06-01",
		facts.KeyBankChangedDate: "2026-01-01",
	})
	_, recent := d.RecentBankChange(f)
	assert.False(t, recent)
}

func TestFraudRules_Validate(t *testing.T) {
	require.NoError(t, DefaultFraudRules().Validate())

	rules := DefaultFraudRules()
	rules.CollusionContribution = 120
	assert.Error(t, rules.Validate())
}
