package facts

// Fact keys accepted in a case's key/value facts map. JSON is the reference
// encoding, so numbers usually arrive as float64 and dates as strings.
const (
	KeyCaseID      = "case_id"
	KeyAmount      = "amount"
	KeyCurrency    = "currency"
	KeyDepartment  = "department"
	KeyCategory    = "category"
	KeyDescription = "description"
	KeyUrgency     = "urgency"
	KeyUrgencyNote = "urgency_justification"

	KeyRequesterID = "requester_id"
	KeyCreatorID   = "creator_id"
	KeyApproverID  = "approver_id"
	KeyReceiverID  = "receiver_id"
	KeyPayerID     = "payer_id"

	KeyRequestDate      = "request_date"
	KeyNeedByDate       = "need_by_date"
	KeyAsOf             = "as_of"
	KeyDepartmentBudget = "department_budget"
	KeyDuplicateRequest = "duplicate_request"

	KeySupplierID          = "supplier_id"
	KeySupplierName        = "supplier_name"
	KeySupplierStatus      = "supplier_status"
	KeySupplierRiskScore   = "supplier_risk_score"
	KeySupplierSanctioned  = "supplier_sanctioned"
	KeySupplierOnboarded   = "supplier_onboarded_date"
	KeySupplierBankAccount = "supplier_bank_account"
	KeyBankChangedDate     = "supplier_bank_account_changed_date"
	KeyContractOnFile      = "contract_on_file"
	KeyContractExpiry      = "contract_expiry_date"
	KeyPaymentTerms        = "payment_terms"

	KeyPONumber = "po_number"
	KeyPOTotal  = "po_total"

	KeyQuantityOrdered    = "quantity_ordered"
	KeyQuantityReceived   = "quantity_received"
	KeyExpectedDelivery   = "expected_delivery_date"
	KeyDeliveredDate      = "delivered_date"
	KeyQualityPassed      = "quality_inspection_passed"
	KeyDamagedItems       = "damaged_items"
	KeyDeliveryNoteOnFile = "delivery_note_on_file"

	KeyInvoiceNumber      = "invoice_number"
	KeyInvoiceAmount      = "invoice_amount"
	KeyInvoiceQuantity    = "invoice_quantity"
	KeyInvoiceDate        = "invoice_date"
	KeyInvoiceTaxAmount   = "invoice_tax_amount"
	KeyInvoiceBankAccount = "invoice_bank_account"
	KeyDuplicateInvoice   = "duplicate_invoice"

	KeyRequesterVendorRelationship = "requester_vendor_relationship"
	KeySimilarTransactionsCount    = "similar_transactions_count"

	KeyDocuments = "documents"

	KeyPayment               = "payment"
	KeyPaymentReference      = "payment_reference"
	KeyPaymentAlreadyIssued  = "payment_already_issued"
	KeyFinalApprovalRecorded = "final_approval_recorded"

	KeyApprovalTier  = "approval_tier"
	KeyApproverRole  = "approver_role"
	KeyApprovalChain = "approval_chain"
	KeyMatchStatus   = "match_status"
	KeyFraudScore    = "fraud_score"
	KeyFraudLevel    = "fraud_level"
)
