package evaluator

import (
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

// reviewCheck summarizes one upstream stage for the final approval gate
func reviewCheck(stage entity.Stage) check {
	return check{
		id:   fmt.Sprintf("stage_%d_review", int(stage)),
		name: fmt.Sprintf("%s Review", stage.Name()),
		run: func(f facts.Facts) outcome {
			up, ok := f.Upstream[stage]
			if !ok || !up.Present {
				return attention("no result recorded")
			}
			ev := []string{
				fmt.Sprintf("verdict=%s", up.Verdict),
				fmt.Sprintf("pass=%d attention=%d fail=%d", up.Summary.Pass, up.Summary.Attention, up.Summary.Fail),
			}
			switch {
			case up.Degraded:
				return attention("stage completed with an execution error", append(ev, up.FlagReason)...)
			case up.Flagged && up.Resolution == entity.ActionApprove:
				return attention("flagged and approved by reviewer", append(ev, up.FlagReason)...)
			case up.Verdict == entity.VerdictHITLFlag:
				return attention("flagged: "+up.FlagReason, ev...)
			case up.Summary.Attention > 0:
				return attention(fmt.Sprintf("auto-approved with %d attention items", up.Summary.Attention), ev...)
			default:
				return pass("auto-approved, all checks passed", ev...)
			}
		},
	}
}

func (e *Evaluator) finalApprovalChecks() []check {
	checks := make([]check, 0, entity.ChecksPerStage)
	for stage := entity.StageApprovalRouting; stage <= entity.StageComplianceScreening; stage++ {
		checks = append(checks, reviewCheck(stage))
	}
	return checks
}

func (e *Evaluator) paymentChecks() []check {
	t := e.thresholds
	return []check{
		{id: "final_approval_recorded", name: "Final Approval Recorded", run: func(f facts.Facts) outcome {
			if !f.FinalApprovalRecorded {
				return fail("no explicit approval recorded at the final approval gate")
			}
			return pass("final approval recorded")
		}},
		{id: "payment_amount_match", name: "Payment Amount Match", run: func(f facts.Facts) outcome {
			v := variance(f.Payment.Amount, f.InvoiceAmount)
			return outcome{
				status: t.PaymentVariance.Classify(v),
				detail: fmt.Sprintf("payment differs from invoice by %s", percent(v)),
				evidence: []string{
					fmt.Sprintf("payment_amount=%s", money(f.Payment.Amount)),
					evidence(facts.KeyInvoiceAmount, money(f.InvoiceAmount)),
				},
			}
		}},
		{id: "bank_details_verified", name: "Bank Details Verified", run: func(f facts.Facts) outcome {
			switch {
			case f.Payment.BankAccount == "" && f.SupplierBankAccount == "":
				return pass("no bank details on record, payment by supplier master")
			case f.Payment.BankAccount == "":
				return pass("paying supplier master account", evidence(facts.KeySupplierBankAccount, mask(f.SupplierBankAccount)))
			case f.SupplierBankAccount == "":
				return attention("payment account cannot be verified against supplier master",
					fmt.Sprintf("bank_account=%s", mask(f.Payment.BankAccount)))
			case f.Payment.BankAccount != f.SupplierBankAccount:
				return fail("payment account differs from supplier master",
					fmt.Sprintf("bank_account=%s", mask(f.Payment.BankAccount)))
			default:
				return pass("payment account matches supplier master")
			}
		}},
		{id: "payment_method", name: "Payment Method", run: func(f facts.Facts) outcome {
			ev := fmt.Sprintf("method=%s", f.Payment.Method)
			if len(t.PaymentMethods) == 0 || contains(t.PaymentMethods, f.Payment.Method) {
				return pass("approved payment method", ev)
			}
			return attention(fmt.Sprintf("payment method %q is not standard", f.Payment.Method), ev)
		}},
		{id: "payer_independence", name: "Payer Independence", run: func(f facts.Facts) outcome {
			payer := f.Payment.PayerID
			if payer == "" {
				return pass("no payer recorded, system payment run")
			}
			var roles []string
			for _, r := range []struct{ role, id string }{
				{"requester", f.RequesterID},
				{"approver", f.ApproverID},
				{"receiver", f.ReceiverID},
			} {
				if r.id != "" && strings.EqualFold(r.id, payer) {
					roles = append(roles, r.role)
				}
			}
			if len(roles) > 0 {
				return fail(fmt.Sprintf("payer %s is also %s", payer, strings.Join(roles, " and ")), roles...)
			}
			return pass("payer independent", evidence(facts.KeyPayerID, payer))
		}},
		{id: "duplicate_payment", name: "Duplicate Payment", run: func(f facts.Facts) outcome {
			if f.PaymentAlreadyIssued {
				return fail("payment already issued for this case")
			}
			return pass("no prior payment")
		}},
	}
}
