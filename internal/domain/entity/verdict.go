package entity

// VerdictValue is the binary stage-level outcome
type VerdictValue string

const (
	VerdictAutoApprove VerdictValue = "AUTO_APPROVE"
	VerdictHITLFlag    VerdictValue = "HITL_FLAG"
)

// Verdict is derived from a check list and never stored apart from it
type Verdict struct {
	Value  VerdictValue `json:"value"`
	Reason string       `json:"reason"`
}

// IsFlag returns true when the verdict requires human review
func (v Verdict) IsFlag() bool {
	return v.Value == VerdictHITLFlag
}
