package facts

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

func TestFromMap_EmptyUsesDefaults(t *testing.T) {
	f := FromMap(map[string]any{})

	assert.Equal(t, 0.0, f.Amount)
	assert.Equal(t, DefaultCurrency, f.Currency)
	assert.Equal(t, DefaultUrgency, f.Urgency)
	assert.True(t, f.ContractOnFile, "contract_on_file defaults to true")
	assert.True(t, f.QualityPassed)
	assert.True(t, f.DeliveryNoteOnFile)
	assert.False(t, f.FinalApprovalRecorded)
	assert.Equal(t, DefaultSupplierRiskScore, f.SupplierRiskScore)
	assert.Equal(t, DefaultRelationship, f.RequesterVendorRelationship)
	assert.Equal(t, DefaultPaymentTerms, f.PaymentTerms)
	assert.True(t, f.AsOf.IsZero())
	assert.NotNil(t, f.Upstream)
}

func TestFromMap_ChainedDefaults(t *testing.T) {
	f := FromMap(map[string]any{
		KeyAmount:          "1,250.50",
		KeyQuantityOrdered: 10,
	})

	assert.Equal(t, 1250.50, f.Amount)
	assert.Equal(t, f.Amount, f.POTotal)
	assert.Equal(t, f.POTotal, f.InvoiceAmount)
	assert.Equal(t, 10.0, f.QuantityReceived)
	assert.Equal(t, 10.0, f.InvoiceQuantity)
	assert.Equal(t, f.InvoiceAmount, f.Payment.Amount)
}

func TestFromMap_ParsesTypes(t *testing.T) {
	f := FromMap(map[string]any{
		KeyAmount:            75000.0,
		KeyUrgency:           "URGENT",
		KeyContractOnFile:    "no",
		KeyContractExpiry:    "2026-03-01",
		KeyDocuments:         []any{"quote", " invoice ", ""},
		KeySupplierRiskScore: 55,
		KeyPayment: map[string]any{
			"amount": 74000.0,
			"method": "WIRE",
		},
	})

	assert.Equal(t, "urgent", f.Urgency)
	assert.True(t, f.Urgent())
	assert.False(t, f.ContractOnFile)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), f.ContractExpiry)
	assert.Equal(t, []string{"quote", "invoice"}, f.Documents)
	assert.Equal(t, 55.0, f.SupplierRiskScore)
	assert.Equal(t, 74000.0, f.Payment.Amount)
	assert.Equal(t, "wire", f.Payment.Method)
	assert.True(t, f.Has(KeyAmount))
	assert.False(t, f.Has(KeyPONumber))
}

func TestFacts_Urgent(t *testing.T) {
	tests := []struct {
		urgency  string
		expected bool
	}{
		{"", false},
		{"normal", false},
		{"low", false},
		{"high", true},
		{"urgent", true},
		{"Critical", true},
	}

	for _, tt := range tests {
		t.Run(tt.urgency, func(t *testing.T) {
			f := FromMap(map[string]any{KeyUrgency: tt.urgency})
			assert.Equal(t, tt.expected, f.Urgent())
		})
	}
}

func TestBuild_IncludesHistory(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c, err := entity.NewCase("case-1", map[string]any{KeyAmount: 500.0}, now)
	require.NoError(t, err)

	c.AppendResult(entity.StageResult{
		Stage:         entity.StageApprovalRouting,
		Verdict:       entity.Verdict{Value: entity.VerdictAutoApprove},
		ChecksSummary: entity.ChecksSummary{Pass: 6},
		Derived:       map[string]any{KeyApprovalTier: 1},
	})
	c.Resolutions = append(c.Resolutions, entity.Resolution{
		Stage:  entity.StageFinalApproval,
		Action: entity.ActionApprove,
		Actor:  "reviewer",
	})

	f := Build(c, now)

	assert.Equal(t, "case-1", f.CaseID)
	assert.Equal(t, now, f.AsOf)
	assert.Equal(t, 1, f.ApprovalTier)
	assert.True(t, f.FinalApprovalRecorded)

	up, ok := f.Upstream[entity.StageApprovalRouting]
	require.True(t, ok)
	assert.True(t, up.Present)
	assert.Equal(t, 6, up.Summary.Pass)
	_, ok = f.Upstream[entity.StagePOGeneration]
	assert.False(t, ok)
}

func TestBuild_RejectedFinalApprovalDoesNotCount(t *testing.T) {
	c, err := entity.NewCase("case-2", nil, time.Now())
	require.NoError(t, err)
	c.Resolutions = append(c.Resolutions, entity.Resolution{
		Stage:  entity.StageFinalApproval,
		Action: entity.ActionHold,
	})

	f := Build(c, time.Now())
	assert.False(t, f.FinalApprovalRecorded)
}

func TestFromMap_NonFiniteNumbersAreAbsent(t *testing.T) {
	for _, raw := range []any{"NaN", "Inf", "-Infinity", math.NaN(), math.Inf(1)} {
		t.Run(fmt.Sprint(raw), func(t *testing.T) {
			f := FromMap(map[string]any{
				KeyAmount:            raw,
				KeySupplierRiskScore: raw,
			})
			assert.Equal(t, 0.0, f.Amount)
			assert.Equal(t, DefaultSupplierRiskScore, f.SupplierRiskScore)
		})
	}
}

func TestConvert_LenientScalars(t *testing.T) {
	f, ok := toFloat("$1,250.50")
	assert.True(t, ok)
	assert.Equal(t, 1250.5, f)

	_, ok = toFloat(true)
	assert.False(t, ok, "booleans are not amounts")
	_, ok = toFloat("twelve")
	assert.False(t, ok)

	for raw, want := range map[string]bool{"yes": true, "Y": true, "no": false, "true": true, "0": false} {
		b, ok := toBool(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, b, raw)
	}
	_, ok = toBool("maybe")
	assert.False(t, ok)

	assert.Equal(t, "42.5", toString(42.5))
	assert.Equal(t, "abc", toString("  abc "))
	assert.Equal(t, "", toString(nil))

	ts, ok := toTime("2026-05-01T10:30:00")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC), ts)
	_, ok = toTime(1767225600)
	assert.False(t, ok, "numbers are not dates")
	_, ok = toTime("someday")
	assert.False(t, ok)
}
