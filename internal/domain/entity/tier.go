package entity

import "math"

// Tier is one approval-authority band
type Tier struct {
	Tier         int     `json:"tier" mapstructure:"tier" yaml:"tier"`
	Name         string  `json:"name" mapstructure:"name" yaml:"name"`
	MaxAmount    float64 `json:"max_amount" mapstructure:"max_amount" yaml:"max_amount"`
	ApproverRole string  `json:"approver_role" mapstructure:"approver_role" yaml:"approver_role"`
	Description  string  `json:"description" mapstructure:"description" yaml:"description"`
}

// Unbounded reports whether the tier has an open upper bound
func (t Tier) Unbounded() bool {
	return math.IsInf(t.MaxAmount, 1) || t.MaxAmount <= 0
}

// Covers returns true if amount falls within the band ceiling
func (t Tier) Covers(amount float64) bool {
	return t.Unbounded() || amount <= t.MaxAmount
}

// ApprovalEntry is one line of an approval chain
type ApprovalEntry struct {
	Role   string `json:"role"`
	Reason string `json:"reason"`
	Source string `json:"source"` // "tier" or "overlay"
}
