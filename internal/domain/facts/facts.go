// Package facts turns a case's loosely typed key/value data into a typed
// value object. Every optional field has a documented default so checks never
// need get-or-default logic of their own.
package facts

import (
	"strings"
	"time"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// Documented defaults for missing optional facts
const (
	DefaultCurrency          = "USD"
	DefaultUrgency           = "normal"
	DefaultSupplierStatus    = "active"
	DefaultSupplierRiskScore = 20.0
	DefaultPaymentTerms      = "net30"
	DefaultRelationship      = "none"
	DefaultPaymentMethod     = "ach"
)

var elevatedUrgency = map[string]bool{
	"high":     true,
	"urgent":   true,
	"critical": true,
	"rush":     true,
}

// Upstream summarizes an earlier stage for the final approval gate
type Upstream struct {
	Stage      entity.Stage
	Present    bool
	Verdict    entity.VerdictValue
	Summary    entity.ChecksSummary
	Flagged    bool
	Degraded   bool
	Resolution entity.ResolutionAction
	FlagReason string
}

// PaymentFacts is the payment sub-record read by stage 9
type PaymentFacts struct {
	Amount      float64
	Currency    string
	Method      string
	BankAccount string
	PayerID     string
	Reference   string
}

// Facts is the flattened, defaulted view of a case used by the evaluator
type Facts struct {
	CaseID      string
	Amount      float64
	Currency    string
	Department  string
	Category    string
	Description string
	Urgency     string
	UrgencyNote string

	RequesterID string
	CreatorID   string
	ApproverID  string
	ReceiverID  string
	PayerID     string

	AsOf             time.Time
	RequestDate      time.Time
	NeedByDate       time.Time
	DepartmentBudget float64
	DuplicateRequest bool

	SupplierID          string
	SupplierName        string
	SupplierStatus      string
	SupplierRiskScore   float64
	SupplierSanctioned  bool
	SupplierOnboarded   time.Time
	SupplierBankAccount string
	BankChangedDate     time.Time
	ContractOnFile      bool
	ContractExpiry      time.Time
	PaymentTerms        string

	PONumber string
	POTotal  float64

	QuantityOrdered    float64
	QuantityReceived   float64
	ExpectedDelivery   time.Time
	DeliveredDate      time.Time
	QualityPassed      bool
	DamagedItems       float64
	DeliveryNoteOnFile bool

	InvoiceNumber      string
	InvoiceAmount      float64
	InvoiceQuantity    float64
	InvoiceDate        time.Time
	InvoiceTaxAmount   float64
	HasInvoiceTax      bool
	InvoiceBankAccount string
	DuplicateInvoice   bool

	RequesterVendorRelationship string
	SimilarTransactionsCount    int

	Documents []string

	Payment               PaymentFacts
	PaymentAlreadyIssued  bool
	FinalApprovalRecorded bool

	ApprovalTier int
	FraudScore   int

	Upstream map[entity.Stage]Upstream

	present map[string]bool
}

// FromMap builds Facts from a raw key/value map, substituting the documented
// defaults for anything missing. It never fails.
func FromMap(m map[string]any) Facts {
	f := Facts{present: make(map[string]bool, len(m))}
	for k, v := range m {
		if v != nil {
			f.present[k] = true
		}
	}

	f.CaseID = toString(m[KeyCaseID])
	f.Amount = number(m, KeyAmount)
	f.Currency = stringOr(m, KeyCurrency, DefaultCurrency)
	f.Department = toString(m[KeyDepartment])
	f.Category = toString(m[KeyCategory])
	f.Description = toString(m[KeyDescription])
	f.Urgency = strings.ToLower(stringOr(m, KeyUrgency, DefaultUrgency))
	f.UrgencyNote = toString(m[KeyUrgencyNote])

	f.RequesterID = toString(m[KeyRequesterID])
	f.CreatorID = stringOr(m, KeyCreatorID, f.RequesterID)
	f.ApproverID = toString(m[KeyApproverID])
	f.ReceiverID = toString(m[KeyReceiverID])
	f.PayerID = toString(m[KeyPayerID])

	f.AsOf = date(m, KeyAsOf)
	f.RequestDate = date(m, KeyRequestDate)
	f.NeedByDate = date(m, KeyNeedByDate)
	f.DepartmentBudget = number(m, KeyDepartmentBudget)
	f.DuplicateRequest = boolOr(m, KeyDuplicateRequest, false)

	f.SupplierID = toString(m[KeySupplierID])
	f.SupplierName = toString(m[KeySupplierName])
	f.SupplierStatus = strings.ToLower(stringOr(m, KeySupplierStatus, DefaultSupplierStatus))
	f.SupplierRiskScore = numberOr(m, KeySupplierRiskScore, DefaultSupplierRiskScore)
	f.SupplierSanctioned = boolOr(m, KeySupplierSanctioned, false)
	f.SupplierOnboarded = date(m, KeySupplierOnboarded)
	f.SupplierBankAccount = toString(m[KeySupplierBankAccount])
	f.BankChangedDate = date(m, KeyBankChangedDate)
	f.ContractOnFile = boolOr(m, KeyContractOnFile, true)
	f.ContractExpiry = date(m, KeyContractExpiry)
	f.PaymentTerms = strings.ToLower(stringOr(m, KeyPaymentTerms, DefaultPaymentTerms))

	f.PONumber = toString(m[KeyPONumber])
	f.POTotal = numberOr(m, KeyPOTotal, f.Amount)

	f.QuantityOrdered = number(m, KeyQuantityOrdered)
	f.QuantityReceived = numberOr(m, KeyQuantityReceived, f.QuantityOrdered)
	f.ExpectedDelivery = date(m, KeyExpectedDelivery)
	f.DeliveredDate = date(m, KeyDeliveredDate)
	f.QualityPassed = boolOr(m, KeyQualityPassed, true)
	f.DamagedItems = number(m, KeyDamagedItems)
	f.DeliveryNoteOnFile = boolOr(m, KeyDeliveryNoteOnFile, true)

	f.InvoiceNumber = toString(m[KeyInvoiceNumber])
	f.InvoiceAmount = numberOr(m, KeyInvoiceAmount, f.POTotal)
	f.InvoiceQuantity = numberOr(m, KeyInvoiceQuantity, f.QuantityReceived)
	f.InvoiceDate = date(m, KeyInvoiceDate)
	f.InvoiceTaxAmount, f.HasInvoiceTax = toFloat(m[KeyInvoiceTaxAmount])
	f.InvoiceBankAccount = toString(m[KeyInvoiceBankAccount])
	f.DuplicateInvoice = boolOr(m, KeyDuplicateInvoice, false)

	f.RequesterVendorRelationship = strings.ToLower(stringOr(m, KeyRequesterVendorRelationship, DefaultRelationship))
	f.SimilarTransactionsCount = int(number(m, KeySimilarTransactionsCount))

	f.Documents = toStrings(m[KeyDocuments])

	f.Payment = paymentFrom(toMap(m[KeyPayment]), f)
	f.PaymentAlreadyIssued = boolOr(m, KeyPaymentAlreadyIssued, false) || toString(m[KeyPaymentReference]) != ""
	f.FinalApprovalRecorded = boolOr(m, KeyFinalApprovalRecorded, false)

	f.ApprovalTier = int(number(m, KeyApprovalTier))
	f.FraudScore = int(number(m, KeyFraudScore))

	f.Upstream = map[entity.Stage]Upstream{}
	return f
}

// Build assembles the facts for one stage execution from the case facts,
// every derived output recorded so far and the case's own history.
func Build(c *entity.Case, asOf time.Time) Facts {
	raw := c.DerivedFacts()
	raw[KeyCaseID] = c.ID
	if _, ok := raw[KeyAsOf]; !ok && !asOf.IsZero() {
		raw[KeyAsOf] = asOf
	}
	if res := c.LatestResolution(entity.StageFinalApproval); res != nil && res.Action == entity.ActionApprove {
		raw[KeyFinalApprovalRecorded] = true
	}

	f := FromMap(raw)
	for _, stage := range entity.AllStages() {
		r := c.ResultFor(stage)
		if r == nil {
			continue
		}
		up := Upstream{
			Stage:      stage,
			Present:    true,
			Verdict:    r.Verdict.Value,
			Summary:    r.ChecksSummary,
			Flagged:    r.Flagged,
			Degraded:   r.Degraded,
			FlagReason: r.FlagReason,
		}
		if res := c.LatestResolution(stage); res != nil {
			up.Resolution = res.Action
		}
		f.Upstream[stage] = up
	}
	return f
}

// Has reports whether the raw map carried a non-nil value for key
func (f Facts) Has(key string) bool {
	return f.present[key]
}

// Urgent reports whether the case urgency is elevated
func (f Facts) Urgent() bool {
	return elevatedUrgency[f.Urgency]
}

func paymentFrom(m map[string]any, f Facts) PaymentFacts {
	p := PaymentFacts{
		Amount:      numberOr(m, "amount", f.InvoiceAmount),
		Currency:    stringOr(m, "currency", f.Currency),
		Method:      strings.ToLower(stringOr(m, "method", DefaultPaymentMethod)),
		BankAccount: stringOr(m, "bank_account", f.InvoiceBankAccount),
		PayerID:     stringOr(m, "payer_id", f.PayerID),
		Reference:   toString(m["reference"]),
	}
	return p
}

func number(m map[string]any, key string) float64 {
	v, _ := toFloat(m[key])
	return v
}

func numberOr(m map[string]any, key string, def float64) float64 {
	if v, ok := toFloat(m[key]); ok {
		return v
	}
	return def
}

func stringOr(m map[string]any, key, def string) string {
	if s := toString(m[key]); s != "" {
		return s
	}
	return def
}

func boolOr(m map[string]any, key string, def bool) bool {
	if b, ok := toBool(m[key]); ok {
		return b
	}
	return def
}

func date(m map[string]any, key string) time.Time {
	t, _ := toTime(m[key])
	return t
}
