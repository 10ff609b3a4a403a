package evaluator

import (
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

func (e *Evaluator) receiptChecks() []check {
	t := e.thresholds
	return []check{
		{id: "quantity_received", name: "Quantity Received", run: func(f facts.Facts) outcome {
			if f.QuantityOrdered <= 0 {
				return pass("no ordered quantity on record")
			}
			ev := []string{
				evidence(facts.KeyQuantityOrdered, f.QuantityOrdered),
				evidence(facts.KeyQuantityReceived, f.QuantityReceived),
			}
			if f.QuantityReceived > f.QuantityOrdered {
				return attention("more received than ordered", ev...)
			}
			v := variance(f.QuantityReceived, f.QuantityOrdered)
			return outcome{
				status:   t.QuantityVariance.Classify(v),
				detail:   fmt.Sprintf("received quantity short by %s", percent(v)),
				evidence: ev,
			}
		}},
		{id: "delivery_timeliness", name: "Delivery Timeliness", run: func(f facts.Facts) outcome {
			if f.ExpectedDelivery.IsZero() || f.DeliveredDate.IsZero() {
				return pass("no delivery dates to compare")
			}
			late := f.DeliveredDate.Sub(f.ExpectedDelivery).Hours() / 24
			if late < 0 {
				late = 0
			}
			return outcome{
				status: t.LateDeliveryDays.Classify(late),
				detail: fmt.Sprintf("delivered %.0f days late", late),
				evidence: []string{
					evidence(facts.KeyExpectedDelivery, f.ExpectedDelivery.Format("2006-01-02")),
					evidence(facts.KeyDeliveredDate, f.DeliveredDate.Format("2006-01-02")),
				},
			}
		}},
		{id: "quality_inspection", name: "Quality Inspection", run: func(f facts.Facts) outcome {
			if !f.QualityPassed {
				return fail("quality inspection failed", evidence(facts.KeyQualityPassed, false))
			}
			return pass("quality inspection passed")
		}},
		{id: "damaged_items", name: "Damaged Items", run: func(f facts.Facts) outcome {
			if f.DamagedItems <= 0 {
				return pass("no damaged items reported")
			}
			ev := evidence(facts.KeyDamagedItems, f.DamagedItems)
			if f.QuantityReceived <= 0 {
				return attention("damaged items reported without a received quantity", ev)
			}
			ratio := f.DamagedItems / f.QuantityReceived
			status := t.DamagedRatio.Classify(ratio)
			if status == entity.CheckPass {
				status = entity.CheckAttention
			}
			return outcome{
				status:   status,
				detail:   fmt.Sprintf("%s of received items damaged", percent(ratio)),
				evidence: []string{ev},
			}
		}},
		{id: "receiver_independence", name: "Receiver Independence", run: func(f facts.Facts) outcome {
			if f.ReceiverID == "" {
				return pass("no receiver recorded")
			}
			ev := evidence(facts.KeyReceiverID, f.ReceiverID)
			switch {
			case strings.EqualFold(f.ReceiverID, f.ApproverID):
				return fail("approver also received the goods", ev)
			case strings.EqualFold(f.ReceiverID, f.RequesterID):
				return attention("requester received their own goods", ev)
			default:
				return pass("receiver independent of requester and approver", ev)
			}
		}},
		{id: "delivery_documentation", name: "Delivery Documentation", run: func(f facts.Facts) outcome {
			if !f.DeliveryNoteOnFile {
				return attention("no delivery note on file", evidence(facts.KeyDeliveryNoteOnFile, false))
			}
			return pass("delivery note on file")
		}},
	}
}

func (e *Evaluator) invoiceChecks() []check {
	t := e.thresholds
	return []check{
		{id: "price_variance", name: "Price Variance", run: func(f facts.Facts) outcome {
			v := variance(f.InvoiceAmount, f.POTotal)
			return outcome{
				status: t.PriceVariance.Classify(v),
				detail: fmt.Sprintf("invoice differs from PO by %s", percent(v)),
				evidence: []string{
					evidence(facts.KeyInvoiceAmount, money(f.InvoiceAmount)),
					evidence(facts.KeyPOTotal, money(f.POTotal)),
				},
			}
		}},
		{id: "quantity_match", name: "Quantity Match", run: func(f facts.Facts) outcome {
			if f.QuantityReceived <= 0 && f.InvoiceQuantity <= 0 {
				return pass("no quantities to match")
			}
			v := variance(f.InvoiceQuantity, f.QuantityReceived)
			return outcome{
				status: t.InvoiceQuantity.Classify(v),
				detail: fmt.Sprintf("invoiced quantity differs from received by %s", percent(v)),
				evidence: []string{
					evidence(facts.KeyInvoiceQuantity, f.InvoiceQuantity),
					evidence(facts.KeyQuantityReceived, f.QuantityReceived),
				},
			}
		}},
		{id: "duplicate_invoice", name: "Duplicate Invoice", run: func(f facts.Facts) outcome {
			if f.DuplicateInvoice {
				return fail("invoice already processed", evidence(facts.KeyInvoiceNumber, f.InvoiceNumber))
			}
			return pass("no duplicate invoice on record")
		}},
		{id: "tax_calculation", name: "Tax Calculation", run: func(f facts.Facts) outcome {
			if !f.HasInvoiceTax {
				return pass("no tax on invoice")
			}
			if f.InvoiceTaxAmount < 0 {
				return fail("negative tax amount", evidence(facts.KeyInvoiceTaxAmount, money(f.InvoiceTaxAmount)))
			}
			if f.InvoiceAmount <= 0 {
				return attention("tax charged without an invoice amount", evidence(facts.KeyInvoiceTaxAmount, money(f.InvoiceTaxAmount)))
			}
			rate := f.InvoiceTaxAmount / f.InvoiceAmount
			return outcome{
				status:   t.TaxRate.Classify(rate),
				detail:   fmt.Sprintf("effective tax rate %s", percent(rate)),
				evidence: []string{evidence(facts.KeyInvoiceTaxAmount, money(f.InvoiceTaxAmount))},
			}
		}},
		{id: "invoice_date", name: "Invoice Date", run: func(f facts.Facts) outcome {
			if f.InvoiceDate.IsZero() || f.AsOf.IsZero() {
				return pass("no invoice date to verify")
			}
			ev := evidence(facts.KeyInvoiceDate, f.InvoiceDate.Format("2006-01-02"))
			age := int(f.AsOf.Sub(f.InvoiceDate).Hours() / 24)
			switch {
			case f.InvoiceDate.After(f.AsOf):
				return fail("invoice is dated in the future", ev)
			case t.InvoiceMaxAgeDays > 0 && age > t.InvoiceMaxAgeDays:
				return attention(fmt.Sprintf("invoice is %d days old", age), ev)
			default:
				return pass("invoice date valid", ev)
			}
		}},
		{id: "bank_account_match", name: "Bank Account Match", run: func(f facts.Facts) outcome {
			switch {
			case f.InvoiceBankAccount == "":
				return pass("invoice carries no bank details")
			case f.SupplierBankAccount == "":
				return attention("supplier master has no bank account to compare",
					evidence(facts.KeyInvoiceBankAccount, mask(f.InvoiceBankAccount)))
			case f.InvoiceBankAccount != f.SupplierBankAccount:
				return fail("invoice bank account differs from supplier master",
					evidence(facts.KeyInvoiceBankAccount, mask(f.InvoiceBankAccount)),
					evidence(facts.KeySupplierBankAccount, mask(f.SupplierBankAccount)))
			default:
				return pass("bank account matches supplier master")
			}
		}},
	}
}

// mask keeps the last four characters of an account number
func mask(account string) string {
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}
