package evaluator

import (
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

func (e *Evaluator) validationChecks() []check {
	t := e.thresholds
	return []check{
		{id: "required_fields", name: "Required Fields", run: func(f facts.Facts) outcome {
			var missing []string
			if !f.Has(facts.KeyAmount) {
				missing = append(missing, facts.KeyAmount)
			}
			if f.Department == "" {
				missing = append(missing, facts.KeyDepartment)
			}
			if f.RequesterID == "" {
				missing = append(missing, facts.KeyRequesterID)
			}
			if len(missing) > 0 {
				return fail("missing required fields: "+strings.Join(missing, ", "), missing...)
			}
			return pass("all required fields present")
		}},
		{id: "amount_valid", name: "Amount Valid", run: func(f facts.Facts) outcome {
			ev := evidence(facts.KeyAmount, money(f.Amount))
			switch {
			case f.Amount <= 0:
				return fail("amount must be positive", ev)
			case f.Amount > t.MaxSingleAmount:
				return attention(fmt.Sprintf("amount exceeds single-request limit of %s", money(t.MaxSingleAmount)), ev)
			default:
				return pass("amount within limits", ev)
			}
		}},
		{id: "department_valid", name: "Department Valid", run: func(f facts.Facts) outcome {
			ev := evidence(facts.KeyDepartment, f.Department)
			switch {
			case f.Department == "":
				return fail("no department on request", ev)
			case len(t.Departments) > 0 && !contains(t.Departments, f.Department):
				return attention(fmt.Sprintf("department %q is not on the approved list", f.Department), ev)
			default:
				return pass("department recognised", ev)
			}
		}},
		{id: "category_valid", name: "Category Valid", run: func(f facts.Facts) outcome {
			ev := evidence(facts.KeyCategory, f.Category)
			switch {
			case f.Category == "":
				return attention("no category on request", ev)
			case e.compliance.Restricted(f.Category):
				return fail(fmt.Sprintf("category %q is restricted", f.Category), ev)
			case len(t.Categories) > 0 && !contains(t.Categories, f.Category):
				return attention(fmt.Sprintf("category %q is not on the approved list", f.Category), ev)
			default:
				return pass("category recognised", ev)
			}
		}},
		{id: "date_consistency", name: "Date Consistency", run: func(f facts.Facts) outcome {
			if f.RequestDate.IsZero() || f.NeedByDate.IsZero() {
				return pass("no date range to verify")
			}
			ev := []string{
				evidence(facts.KeyRequestDate, f.RequestDate.Format("2006-01-02")),
				evidence(facts.KeyNeedByDate, f.NeedByDate.Format("2006-01-02")),
			}
			switch {
			case f.NeedByDate.Before(f.RequestDate):
				return fail("need-by date precedes request date", ev...)
			case !f.AsOf.IsZero() && f.NeedByDate.Before(f.AsOf):
				return attention("need-by date has already passed", ev...)
			default:
				return pass("dates consistent", ev...)
			}
		}},
		{id: "duplicate_request", name: "Duplicate Request", run: func(f facts.Facts) outcome {
			if f.DuplicateRequest {
				return fail("request duplicates an existing request", evidence(facts.KeyDuplicateRequest, true))
			}
			return pass("no duplicate request on record")
		}},
	}
}

func (e *Evaluator) approvalChecks() []check {
	t := e.thresholds
	autoTier := e.tiers.Tiers()[0].Tier
	return []check{
		{id: "approval_tier", name: "Approval Tier", run: func(f facts.Facts) outcome {
			tier := e.tiers.Resolve(f.Amount)
			ev := []string{evidence(facts.KeyApprovalTier, tier.Tier), evidence(facts.KeyApproverRole, tier.ApproverRole)}
			detail := fmt.Sprintf("tier %d (%s) approver %s", tier.Tier, tier.Name, tier.ApproverRole)
			if t.ExecutiveTier > 0 && tier.Tier >= t.ExecutiveTier {
				return attention(detail+" requires executive approval", ev...)
			}
			return pass(detail, ev...)
		}},
		{id: "budget_impact", name: "Budget Impact", run: func(f facts.Facts) outcome {
			budget := t.BudgetFor(f.Department, f.DepartmentBudget)
			if budget <= 0 {
				return pass("no budget limit on record", evidence(facts.KeyDepartment, f.Department))
			}
			share := f.Amount / budget
			ev := []string{evidence(facts.KeyAmount, money(f.Amount)), evidence(facts.KeyDepartmentBudget, money(budget))}
			detail := fmt.Sprintf("%s of department budget", percent(share))
			switch {
			case share <= t.Budget.Pass:
				return pass(detail, ev...)
			case share <= t.Budget.Attention:
				return attention(detail, ev...)
			case share <= t.Budget.Policy:
				return attention(detail+", budget policy review required", append(ev, "policy_flag=true")...)
			default:
				return fail(detail+", exceeds department budget", ev...)
			}
		}},
		{id: "approver_assigned", name: "Approver Assigned", run: func(f facts.Facts) outcome {
			tier := e.tiers.Resolve(f.Amount)
			if tier.Tier == autoTier && f.ApproverID == "" {
				return pass("system approval within auto tier")
			}
			if f.ApproverID == "" {
				return attention(fmt.Sprintf("no %s assigned", tier.ApproverRole))
			}
			return pass("approver assigned", evidence(facts.KeyApproverID, f.ApproverID))
		}},
		{id: "department_overlay", name: "Department Overlay", run: func(f facts.Facts) outcome {
			extra := e.tiers.Overlays(f.Amount, f.Department, f.Category)
			if len(extra) == 0 {
				return pass("no additional approvals required")
			}
			roles := make([]string, 0, len(extra))
			for _, o := range extra {
				roles = append(roles, o.Role)
			}
			return attention("additional approvals required: "+strings.Join(roles, ", "), roles...)
		}},
		{id: "urgency_justification", name: "Urgency Justification", run: func(f facts.Facts) outcome {
			if !f.Urgent() {
				return pass("standard urgency")
			}
			if f.UrgencyNote == "" {
				return attention(fmt.Sprintf("%s urgency without justification", f.Urgency), evidence(facts.KeyUrgency, f.Urgency))
			}
			return pass("urgency justified", evidence(facts.KeyUrgency, f.Urgency))
		}},
		{id: "requester_not_approver", name: "Requester Not Approver", run: func(f facts.Facts) outcome {
			if f.ApproverID != "" && strings.EqualFold(f.ApproverID, f.RequesterID) {
				return fail("requester cannot approve their own request", evidence(facts.KeyApproverID, f.ApproverID))
			}
			return pass("requester and approver differ")
		}},
	}
}

func (e *Evaluator) purchaseOrderChecks() []check {
	t := e.thresholds
	return []check{
		{id: "supplier_status", name: "Supplier Status", run: func(f facts.Facts) outcome {
			ev := evidence(facts.KeySupplierStatus, f.SupplierStatus)
			switch f.SupplierStatus {
			case "active", "approved", "preferred":
				return pass("supplier active", ev)
			case "suspended", "blocked", "inactive", "terminated", "blacklisted":
				return fail(fmt.Sprintf("supplier is %s", f.SupplierStatus), ev)
			default:
				return attention(fmt.Sprintf("supplier status %q needs review", f.SupplierStatus), ev)
			}
		}},
		{id: "contract_on_file", name: "Contract On File", run: func(f facts.Facts) outcome {
			if f.ContractOnFile {
				return pass("contract on file")
			}
			if f.POTotal > t.ContractRequiredAbove {
				return fail(fmt.Sprintf("no contract on file for spend above %s", money(t.ContractRequiredAbove)),
					evidence(facts.KeyContractOnFile, false))
			}
			return attention("no contract on file", evidence(facts.KeyContractOnFile, false))
		}},
		{id: "contract_expiry", name: "Contract Expiry", run: func(f facts.Facts) outcome {
			status, detail := e.compliance.ContractStatus(f.ContractExpiry, f.AsOf)
			return outcome{status: status, detail: detail}
		}},
		{id: "po_amount_match", name: "PO Amount Match", run: func(f facts.Facts) outcome {
			v := variance(f.POTotal, f.Amount)
			ev := []string{evidence(facts.KeyPOTotal, money(f.POTotal)), evidence(facts.KeyAmount, money(f.Amount))}
			return outcome{
				status:   t.POVariance.Classify(v),
				detail:   fmt.Sprintf("PO total differs from request by %s", percent(v)),
				evidence: ev,
			}
		}},
		{id: "payment_terms", name: "Payment Terms", run: func(f facts.Facts) outcome {
			ev := evidence(facts.KeyPaymentTerms, f.PaymentTerms)
			if len(t.PaymentTerms) == 0 || contains(t.PaymentTerms, f.PaymentTerms) {
				return pass("standard payment terms", ev)
			}
			return attention(fmt.Sprintf("non-standard payment terms %q", f.PaymentTerms), ev)
		}},
		{id: "supplier_risk", name: "Supplier Risk", run: func(f facts.Facts) outcome {
			return outcome{
				status:   t.SupplierRisk.Classify(f.SupplierRiskScore),
				detail:   fmt.Sprintf("supplier risk score %.0f", f.SupplierRiskScore),
				evidence: []string{evidence(facts.KeySupplierRiskScore, f.SupplierRiskScore)},
			}
		}},
	}
}
