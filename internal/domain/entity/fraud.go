package entity

// Severity of a fraud indicator
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel is the banded fraud risk outcome
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// FraudFlag is one indicator raised by an independent fraud rule
type FraudFlag struct {
	RuleID            string   `json:"rule_id"`
	Description       string   `json:"description"`
	Severity          Severity `json:"severity"`
	ScoreContribution int      `json:"score_contribution"`
}
