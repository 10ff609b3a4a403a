package entity

import "time"

// Payment is the sub-record consumed by the payment execution stage
type Payment struct {
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method"`
	BankAccount   string    `json:"bank_account"`
	PayerID       string    `json:"payer_id"`
	ScheduledDate time.Time `json:"scheduled_date,omitempty"`
	Reference     string    `json:"reference,omitempty"`
}

// PaymentInstruction is what the gateway receives
type PaymentInstruction struct {
	CaseID         string  `json:"case_id"`
	IdempotencyKey string  `json:"idempotency_key"`
	SupplierID     string  `json:"supplier_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Method         string  `json:"method"`
	BankAccount    string  `json:"bank_account"`
}

// PaymentReceipt is the gateway's confirmation
type PaymentReceipt struct {
	Reference  string    `json:"reference"`
	ExecutedAt time.Time `json:"executed_at"`
}
