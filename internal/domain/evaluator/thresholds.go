package evaluator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/scoring"
)

// ThresholdsVersion identifies the reference threshold table
const ThresholdsVersion = "2026.1"

// ErrInvalidThresholds wraps every threshold validation failure
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Band is a three-band threshold: value <= Pass passes, value <= Attention
// needs attention, anything larger fails.
type Band struct {
	Pass      float64 `json:"pass" mapstructure:"pass" yaml:"pass"`
	Attention float64 `json:"attention" mapstructure:"attention" yaml:"attention"`
}

// Classify places value into its band
func (b Band) Classify(value float64) entity.CheckStatus {
	switch {
	case value <= b.Pass:
		return entity.CheckPass
	case value <= b.Attention:
		return entity.CheckAttention
	default:
		return entity.CheckFail
	}
}

func (b Band) validate(name string) error {
	if b.Pass < 0 || b.Attention < b.Pass {
		return fmt.Errorf("%w: %s band requires 0 <= pass <= attention (pass: %.4f, attention: %.4f)",
			ErrInvalidThresholds, name, b.Pass, b.Attention)
	}
	return nil
}

// BudgetBands classify spend as a share of the department budget.
// Above Attention but within Policy is attention with a policy flag.
type BudgetBands struct {
	Pass      float64 `json:"pass" mapstructure:"pass" yaml:"pass"`
	Attention float64 `json:"attention" mapstructure:"attention" yaml:"attention"`
	Policy    float64 `json:"policy" mapstructure:"policy" yaml:"policy"`
}

// Thresholds is the versioned business threshold table injected into the
// evaluator and its scorers.
type Thresholds struct {
	Version string `json:"version" mapstructure:"version" yaml:"version"`

	Tiers      []entity.Tier           `json:"tiers" mapstructure:"tiers" yaml:"tiers"`
	Overlays   []scoring.Overlay       `json:"overlays" mapstructure:"overlays" yaml:"overlays"`
	Fraud      scoring.FraudRules      `json:"fraud" mapstructure:"fraud" yaml:"fraud"`
	Compliance scoring.ComplianceRules `json:"compliance" mapstructure:"compliance" yaml:"compliance"`

	MaxSingleAmount   float64            `json:"max_single_amount" mapstructure:"max_single_amount" yaml:"max_single_amount"`
	Departments       []string           `json:"departments" mapstructure:"departments" yaml:"departments"`
	Categories        []string           `json:"categories" mapstructure:"categories" yaml:"categories"`
	DepartmentBudgets map[string]float64 `json:"department_budgets" mapstructure:"department_budgets" yaml:"department_budgets"`
	Budget            BudgetBands        `json:"budget" mapstructure:"budget" yaml:"budget"`
	ExecutiveTier     int                `json:"executive_tier" mapstructure:"executive_tier" yaml:"executive_tier"`

	ContractRequiredAbove float64  `json:"contract_required_above" mapstructure:"contract_required_above" yaml:"contract_required_above"`
	PaymentTerms          []string `json:"payment_terms" mapstructure:"payment_terms" yaml:"payment_terms"`
	SupplierRisk          Band     `json:"supplier_risk" mapstructure:"supplier_risk" yaml:"supplier_risk"`
	POVariance            Band     `json:"po_variance" mapstructure:"po_variance" yaml:"po_variance"`

	QuantityVariance Band `json:"quantity_variance" mapstructure:"quantity_variance" yaml:"quantity_variance"`
	LateDeliveryDays Band `json:"late_delivery_days" mapstructure:"late_delivery_days" yaml:"late_delivery_days"`
	DamagedRatio     Band `json:"damaged_ratio" mapstructure:"damaged_ratio" yaml:"damaged_ratio"`

	PriceVariance     Band `json:"price_variance" mapstructure:"price_variance" yaml:"price_variance"`
	InvoiceQuantity   Band `json:"invoice_quantity" mapstructure:"invoice_quantity" yaml:"invoice_quantity"`
	TaxRate           Band `json:"tax_rate" mapstructure:"tax_rate" yaml:"tax_rate"`
	InvoiceMaxAgeDays int  `json:"invoice_max_age_days" mapstructure:"invoice_max_age_days" yaml:"invoice_max_age_days"`

	PaymentVariance Band     `json:"payment_variance" mapstructure:"payment_variance" yaml:"payment_variance"`
	PaymentMethods  []string `json:"payment_methods" mapstructure:"payment_methods" yaml:"payment_methods"`
}

// DefaultThresholds returns the reference table
func DefaultThresholds() Thresholds {
	return Thresholds{
		Version:    ThresholdsVersion,
		Tiers:      scoring.DefaultTiers(),
		Overlays:   scoring.DefaultOverlays(),
		Fraud:      scoring.DefaultFraudRules(),
		Compliance: scoring.DefaultComplianceRules(),

		MaxSingleAmount: 1_000_000,
		Departments: []string{
			"operations", "it", "finance", "legal", "marketing", "hr", "facilities", "engineering", "sales",
		},
		Categories: []string{
			"office_supplies", "hardware", "software", "services", "consulting",
			"travel", "marketing", "facilities", "equipment", "legal_services",
		},
		DepartmentBudgets: map[string]float64{
			"operations":  250000,
			"it":          500000,
			"finance":     100000,
			"legal":       150000,
			"marketing":   300000,
			"hr":          80000,
			"facilities":  200000,
			"engineering": 600000,
			"sales":       200000,
		},
		Budget:        BudgetBands{Pass: 0.25, Attention: 0.50, Policy: 1.00},
		ExecutiveTier: 5,

		ContractRequiredAbove: 10000,
		PaymentTerms:          []string{"net15", "net30", "net45", "net60", "due_on_receipt"},
		SupplierRisk:          Band{Pass: 40, Attention: 70},
		POVariance:            Band{Pass: 0.01, Attention: 0.05},

		QuantityVariance: Band{Pass: 0, Attention: 0.10},
		LateDeliveryDays: Band{Pass: 0, Attention: 14},
		DamagedRatio:     Band{Pass: 0, Attention: 0.05},

		PriceVariance:     Band{Pass: 0.02, Attention: 0.10},
		InvoiceQuantity:   Band{Pass: 0, Attention: 0.05},
		TaxRate:           Band{Pass: 0.15, Attention: 0.25},
		InvoiceMaxAgeDays: 90,

		PaymentVariance: Band{Pass: 0.001, Attention: 0.01},
		PaymentMethods:  []string{"ach", "wire", "check", "virtual_card"},
	}
}

// Validate checks internal consistency of the table
func (t Thresholds) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidThresholds)
	}
	if _, err := scoring.NewTierResolver(t.Tiers, t.Overlays); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	if err := t.Fraud.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	if err := t.Compliance.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	if t.MaxSingleAmount <= 0 {
		return fmt.Errorf("%w: max_single_amount must be positive, got %.2f", ErrInvalidThresholds, t.MaxSingleAmount)
	}
	b := t.Budget
	if b.Pass < 0 || b.Attention < b.Pass || b.Policy < b.Attention {
		return fmt.Errorf("%w: budget bands require 0 <= pass <= attention <= policy", ErrInvalidThresholds)
	}
	bands := map[string]Band{
		"supplier_risk":      t.SupplierRisk,
		"po_variance":        t.POVariance,
		"quantity_variance":  t.QuantityVariance,
		"late_delivery_days": t.LateDeliveryDays,
		"damaged_ratio":      t.DamagedRatio,
		"price_variance":     t.PriceVariance,
		"invoice_quantity":   t.InvoiceQuantity,
		"tax_rate":           t.TaxRate,
		"payment_variance":   t.PaymentVariance,
	}
	for name, band := range bands {
		if err := band.validate(name); err != nil {
			return err
		}
	}
	return nil
}

// BudgetFor returns the explicit budget or the table entry for the department
func (t Thresholds) BudgetFor(department string, explicit float64) float64 {
	if explicit > 0 {
		return explicit
	}
	return t.DepartmentBudgets[strings.ToLower(department)]
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
