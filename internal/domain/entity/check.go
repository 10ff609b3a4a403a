package entity

// CheckStatus is the three-band outcome of a single check
type CheckStatus string

const (
	CheckPass      CheckStatus = "pass"
	CheckAttention CheckStatus = "attention"
	CheckFail      CheckStatus = "fail"
)

// ChecksPerStage is the fixed number of checks every stage produces
const ChecksPerStage = 6

// CheckResult is one independently evaluated test within a stage
type CheckResult struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Detail   string      `json:"detail"`
	Evidence []string    `json:"evidence"`
}

// IsValid returns true for one of the three known statuses
func (s CheckStatus) IsValid() bool {
	switch s {
	case CheckPass, CheckAttention, CheckFail:
		return true
	default:
		return false
	}
}

// ChecksSummary counts checks by status
type ChecksSummary struct {
	Pass      int `json:"pass"`
	Attention int `json:"attention"`
	Fail      int `json:"fail"`
}

// Summarize counts the statuses of a check list
func Summarize(checks []CheckResult) ChecksSummary {
	var s ChecksSummary
	for _, c := range checks {
		switch c.Status {
		case CheckPass:
			s.Pass++
		case CheckAttention:
			s.Attention++
		case CheckFail:
			s.Fail++
		}
	}
	return s
}

// Total returns the number of counted checks
func (s ChecksSummary) Total() int {
	return s.Pass + s.Attention + s.Fail
}
