package evaluator

import (
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
	"github.com/garyjia/ai-procurement/internal/domain/scoring"
)

// fraudStatus maps an indicator severity onto a check status
func fraudStatus(s entity.Severity) entity.CheckStatus {
	switch s {
	case entity.SeverityCritical, entity.SeverityHigh:
		return entity.CheckFail
	default:
		return entity.CheckAttention
	}
}

func findFlag(flags []entity.FraudFlag, rule string) (entity.FraudFlag, bool) {
	for _, fl := range flags {
		if fl.RuleID == rule {
			return fl, true
		}
	}
	return entity.FraudFlag{}, false
}

// indicatorCheck reports one fraud rule as its own check
func (e *Evaluator) indicatorCheck(id, name, clean string) check {
	return check{id: id, name: name, run: func(f facts.Facts) outcome {
		fl, ok := findFlag(e.fraud.Detect(f), id)
		if !ok {
			return pass(clean)
		}
		return outcome{
			status:   fraudStatus(fl.Severity),
			detail:   fl.Description,
			evidence: []string{fmt.Sprintf("contribution=%d", fl.ScoreContribution), fmt.Sprintf("severity=%s", fl.Severity)},
		}
	}}
}

func (e *Evaluator) fraudChecks() []check {
	return []check{
		{id: "fraud_risk_score", name: "Fraud Risk Score", run: func(f facts.Facts) outcome {
			flags := e.fraud.Detect(f)
			score, level := scoring.Score(flags)
			ev := make([]string, 0, len(flags)+1)
			ev = append(ev, evidence(facts.KeyFraudScore, score))
			for _, fl := range flags {
				ev = append(ev, fmt.Sprintf("%s:%d", fl.RuleID, fl.ScoreContribution))
			}
			detail := fmt.Sprintf("fraud risk score %d (%s)", score, level)
			switch level {
			case entity.RiskLow:
				return outcome{status: entity.CheckPass, detail: detail, evidence: ev}
			case entity.RiskMedium:
				return outcome{status: entity.CheckAttention, detail: detail, evidence: ev}
			default:
				return outcome{status: entity.CheckFail, detail: detail, evidence: ev}
			}
		}},
		e.indicatorCheck(scoring.RuleDuplicate, "Duplicate Detection", "no duplicate invoice or request"),
		{id: scoring.RuleSplitTransaction, name: "Split Transaction", run: func(f facts.Facts) outcome {
			if e.fraud.SplitTransaction(f) {
				fl, _ := findFlag(e.fraud.Detect(f), scoring.RuleSplitTransaction)
				return outcome{
					status:   fraudStatus(fl.Severity),
					detail:   fl.Description,
					evidence: []string{evidence(facts.KeySimilarTransactionsCount, f.SimilarTransactionsCount)},
				}
			}
			if f.SimilarTransactionsCount > 0 {
				return pass(fmt.Sprintf("%d similar transaction below split threshold", f.SimilarTransactionsCount),
					evidence(facts.KeySimilarTransactionsCount, f.SimilarTransactionsCount))
			}
			return pass("no similar transactions")
		}},
		e.indicatorCheck(scoring.RuleRoundDollar, "Round Dollar", "amount is not a round figure"),
		e.indicatorCheck(scoring.RuleVendorCollusion, "Vendor Collusion", "no requester/vendor relationship declared"),
		e.indicatorCheck(scoring.RuleBankAccountChange, "Bank Account Change", "no recent supplier bank account change"),
	}
}

func (e *Evaluator) complianceChecks() []check {
	return []check{
		{id: "segregation_of_duties", name: "Segregation Of Duties", run: func(f facts.Facts) outcome {
			conflicts := e.compliance.Conflicts(f)
			if len(conflicts) == 0 {
				return pass("no conflicting roles")
			}
			ev := make([]string, 0, len(conflicts))
			for _, c := range conflicts {
				ev = append(ev, c.String())
			}
			return fail("segregation of duties violated: "+strings.Join(ev, "; "), ev...)
		}},
		{id: "document_completeness", name: "Document Completeness", run: func(f facts.Facts) outcome {
			tier := e.tierFor(f)
			status, missing := e.compliance.DocumentStatus(tier, f.Documents)
			if status == entity.CheckPass {
				return pass(fmt.Sprintf("all tier %d documents present", tier))
			}
			return outcome{
				status:   status,
				detail:   fmt.Sprintf("missing tier %d documents: %s", tier, strings.Join(missing, ", ")),
				evidence: missing,
			}
		}},
		{id: "contract_validity", name: "Contract Validity", run: func(f facts.Facts) outcome {
			if !f.ContractOnFile {
				return attention("no contract on file to validate", evidence(facts.KeyContractOnFile, false))
			}
			status, detail := e.compliance.ContractStatus(f.ContractExpiry, f.AsOf)
			return outcome{status: status, detail: detail}
		}},
		{id: "sanctions_screening", name: "Sanctions Screening", run: func(f facts.Facts) outcome {
			if f.SupplierSanctioned {
				return fail("supplier appears on a sanctions list", evidence(facts.KeySupplierID, f.SupplierID))
			}
			return pass("supplier not sanctioned")
		}},
		{id: "category_restriction", name: "Category Restriction", run: func(f facts.Facts) outcome {
			if e.compliance.Restricted(f.Category) {
				return fail(fmt.Sprintf("category %q is restricted", f.Category), evidence(facts.KeyCategory, f.Category))
			}
			return pass("category unrestricted")
		}},
		{id: "audit_trail", name: "Audit Trail", run: func(f facts.Facts) outcome {
			var gaps []string
			for stage := entity.FirstStage; stage < entity.StageComplianceScreening; stage++ {
				up, ok := f.Upstream[stage]
				switch {
				case !ok || !up.Present:
					gaps = append(gaps, fmt.Sprintf("stage %d missing", int(stage)))
				case up.Degraded:
					gaps = append(gaps, fmt.Sprintf("stage %d degraded", int(stage)))
				}
			}
			if len(gaps) > 0 {
				return attention("audit trail incomplete: "+strings.Join(gaps, ", "), gaps...)
			}
			return pass("stages 1-6 recorded")
		}},
	}
}
