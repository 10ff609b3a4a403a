package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

// Fraud rule identifiers
const (
	RuleDuplicate         = "duplicate_detection"
	RuleVendorCollusion   = "vendor_collusion"
	RuleBankAccountChange = "bank_account_change"
	RuleSplitTransaction  = "split_transaction"
	RuleNewVendor         = "new_vendor"
	RuleRoundDollar       = "round_dollar"
)

// Risk-level lower bounds
const (
	mediumRiskFloor   = 31
	highRiskFloor     = 61
	criticalRiskFloor = 86
)

// FraudRules holds the per-detector contributions and trigger thresholds
type FraudRules struct {
	DuplicateContribution   int     `json:"duplicate_contribution" mapstructure:"duplicate_contribution" yaml:"duplicate_contribution"`
	CollusionContribution   int     `json:"collusion_contribution" mapstructure:"collusion_contribution" yaml:"collusion_contribution"`
	BankChangeContribution  int     `json:"bank_change_contribution" mapstructure:"bank_change_contribution" yaml:"bank_change_contribution"`
	BankChangeWindowDays    int     `json:"bank_change_window_days" mapstructure:"bank_change_window_days" yaml:"bank_change_window_days"`
	SplitContribution       int     `json:"split_contribution" mapstructure:"split_contribution" yaml:"split_contribution"`
	SplitMinTransactions    int     `json:"split_min_transactions" mapstructure:"split_min_transactions" yaml:"split_min_transactions"`
	NewVendorContribution   int     `json:"new_vendor_contribution" mapstructure:"new_vendor_contribution" yaml:"new_vendor_contribution"`
	NewVendorDays           int     `json:"new_vendor_days" mapstructure:"new_vendor_days" yaml:"new_vendor_days"`
	RoundDollarContribution int     `json:"round_dollar_contribution" mapstructure:"round_dollar_contribution" yaml:"round_dollar_contribution"`
	RoundDollarMultiple     float64 `json:"round_dollar_multiple" mapstructure:"round_dollar_multiple" yaml:"round_dollar_multiple"`
	RoundDollarMinAmount    float64 `json:"round_dollar_min_amount" mapstructure:"round_dollar_min_amount" yaml:"round_dollar_min_amount"`
}

// DefaultFraudRules is the reference fraud rule table
func DefaultFraudRules() FraudRules {
	return FraudRules{
		DuplicateContribution:   95,
		CollusionContribution:   90,
		BankChangeContribution:  70,
		BankChangeWindowDays:    30,
		SplitContribution:       60,
		SplitMinTransactions:    2,
		NewVendorContribution:   25,
		NewVendorDays:           90,
		RoundDollarContribution: 20,
		RoundDollarMultiple:     1000,
		RoundDollarMinAmount:    5000,
	}
}

// Validate checks contributions stay within 0..100
func (r FraudRules) Validate() error {
	contributions := map[string]int{
		RuleDuplicate:         r.DuplicateContribution,
		RuleVendorCollusion:   r.CollusionContribution,
		RuleBankAccountChange: r.BankChangeContribution,
		RuleSplitTransaction:  r.SplitContribution,
		RuleNewVendor:         r.NewVendorContribution,
		RuleRoundDollar:       r.RoundDollarContribution,
	}
	for rule, c := range contributions {
		if c < 0 || c > 100 {
			return fmt.Errorf("fraud rule %s contribution must be between 0 and 100, got %d", rule, c)
		}
	}
	if r.RoundDollarMultiple <= 0 {
		return fmt.Errorf("round dollar multiple must be positive, got %.2f", r.RoundDollarMultiple)
	}
	return nil
}

// Score combines fraud flags: the worst indicator dominates, the sum rewards
// several independent weak signals. No flags scores 0 / low.
func Score(flags []entity.FraudFlag) (int, entity.RiskLevel) {
	if len(flags) == 0 {
		return 0, entity.RiskLow
	}

	maxContribution, sum := 0, 0
	for _, f := range flags {
		c := clampScore(f.ScoreContribution)
		if c > maxContribution {
			maxContribution = c
		}
		sum += c
	}
	if sum > 100 {
		sum = 100
	}

	// round(0.7*max + 0.3*sum) in integer tenths, half rounds up
	score := clampScore((7*maxContribution + 3*sum + 5) / 10)
	return score, Level(score)
}

// Level bands a score: <31 low, 31-60 medium, 61-85 high, >=86 critical
func Level(score int) entity.RiskLevel {
	switch {
	case score >= criticalRiskFloor:
		return entity.RiskCritical
	case score >= highRiskFloor:
		return entity.RiskHigh
	case score >= mediumRiskFloor:
		return entity.RiskMedium
	default:
		return entity.RiskLow
	}
}

func severityFor(contribution int) entity.Severity {
	switch Level(contribution) {
	case entity.RiskCritical:
		return entity.SeverityCritical
	case entity.RiskHigh:
		return entity.SeverityHigh
	case entity.RiskMedium:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// FraudDetector runs the independent fraud rules against one case
type FraudDetector struct {
	rules FraudRules
}

// NewFraudDetector creates a detector for the given rule table
func NewFraudDetector(rules FraudRules) *FraudDetector {
	return &FraudDetector{rules: rules}
}

// Detect returns every fraud indicator raised by the facts, in rule order
func (d *FraudDetector) Detect(f facts.Facts) []entity.FraudFlag {
	var flags []entity.FraudFlag
	add := func(rule string, contribution int, description string) {
		flags = append(flags, entity.FraudFlag{
			RuleID:            rule,
			Description:       description,
			Severity:          severityFor(contribution),
			ScoreContribution: contribution,
		})
	}

	if f.DuplicateInvoice || f.DuplicateRequest {
		add(RuleDuplicate, d.rules.DuplicateContribution, "duplicate invoice or request on record")
	}
	if d.Collusion(f) {
		add(RuleVendorCollusion, d.rules.CollusionContribution,
			fmt.Sprintf("requester has a %q relationship with the vendor", f.RequesterVendorRelationship))
	}
	if days, ok := d.RecentBankChange(f); ok {
		add(RuleBankAccountChange, d.rules.BankChangeContribution,
			fmt.Sprintf("supplier bank account changed %d days ago", days))
	}
	if d.SplitTransaction(f) {
		add(RuleSplitTransaction, d.rules.SplitContribution,
			fmt.Sprintf("%d similar transactions suggest a split purchase", f.SimilarTransactionsCount))
	}
	if days, ok := d.NewVendor(f); ok {
		add(RuleNewVendor, d.rules.NewVendorContribution,
			fmt.Sprintf("vendor onboarded %d days ago", days))
	}
	if d.RoundDollar(f.Amount) {
		add(RuleRoundDollar, d.rules.RoundDollarContribution,
			fmt.Sprintf("round amount %.2f", f.Amount))
	}
	return flags
}

// Collusion reports a declared requester/vendor relationship
func (d *FraudDetector) Collusion(f facts.Facts) bool {
	rel := f.RequesterVendorRelationship
	return rel != "" && rel != facts.DefaultRelationship
}

// RecentBankChange reports a bank account change inside the window.
// Without a reference date nothing is recent.
func (d *FraudDetector) RecentBankChange(f facts.Facts) (int, bool) {
	days, ok := daysBetween(f.BankChangedDate, f.AsOf)
	if !ok || days < 0 {
		return 0, false
	}
	return days, days <= d.rules.BankChangeWindowDays
}

// SplitTransaction reports enough similar transactions to suspect splitting
func (d *FraudDetector) SplitTransaction(f facts.Facts) bool {
	return d.rules.SplitMinTransactions > 0 && f.SimilarTransactionsCount >= d.rules.SplitMinTransactions
}

// NewVendor reports a supplier onboarded inside the new-vendor window
func (d *FraudDetector) NewVendor(f facts.Facts) (int, bool) {
	days, ok := daysBetween(f.SupplierOnboarded, f.AsOf)
	if !ok || days < 0 {
		return 0, false
	}
	return days, days <= d.rules.NewVendorDays
}

// RoundDollar reports a suspiciously round amount
func (d *FraudDetector) RoundDollar(amount float64) bool {
	if amount < d.rules.RoundDollarMinAmount || d.rules.RoundDollarMultiple <= 0 {
		return false
	}
	return math.Mod(amount, d.rules.RoundDollarMultiple) == 0
}

// Rules returns the detector rule table
func (d *FraudDetector) Rules() FraudRules {
	return d.rules
}

func daysBetween(from, to time.Time) (int, bool) {
	if from.IsZero() || to.IsZero() {
		return 0, false
	}
	return int(to.Sub(from).Hours() / 24), true
}
