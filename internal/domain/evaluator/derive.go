package evaluator

import (
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
	"github.com/garyjia/ai-procurement/internal/domain/scoring"
)

// Match statuses derived at invoice matching
const (
	MatchMatched  = "matched"
	MatchVariance = "variance"
	MatchMismatch = "mismatch"
)

// Derive returns the outputs a stage contributes to the facts of later
// stages. Stages without outputs return nil.
func (e *Evaluator) Derive(stage entity.Stage, f facts.Facts, checks []entity.CheckResult) map[string]any {
	switch stage {
	case entity.StageApprovalRouting:
		tier := e.tiers.Resolve(f.Amount)
		return map[string]any{
			facts.KeyApprovalTier:  tier.Tier,
			facts.KeyApproverRole:  tier.ApproverRole,
			facts.KeyApprovalChain: e.tiers.Chain(f.Amount, f.Department, f.Category),
		}
	case entity.StagePOGeneration:
		po := f.PONumber
		if po == "" {
			po = purchaseOrderNumber(f.CaseID)
		}
		return map[string]any{
			facts.KeyPONumber: po,
			facts.KeyPOTotal:  f.POTotal,
		}
	case entity.StageInvoiceMatching:
		return map[string]any{facts.KeyMatchStatus: matchStatus(checks)}
	case entity.StageFraudScreening:
		score, level := scoring.Score(e.fraud.Detect(f))
		return map[string]any{
			facts.KeyFraudScore: score,
			facts.KeyFraudLevel: string(level),
		}
	default:
		return nil
	}
}

// matchStatus rolls the three-way match checks into one label
func matchStatus(checks []entity.CheckResult) string {
	status := MatchMatched
	for _, c := range checks {
		switch c.ID {
		case "price_variance", "quantity_match", "duplicate_invoice":
		default:
			continue
		}
		switch c.Status {
		case entity.CheckFail:
			return MatchMismatch
		case entity.CheckAttention:
			status = MatchVariance
		}
	}
	return status
}

func purchaseOrderNumber(caseID string) string {
	id := strings.ToUpper(strings.ReplaceAll(caseID, "-", ""))
	if len(id) > 12 {
		id = id[:12]
	}
	return "PO-" + id
}
