package entity

import "time"

// StageResult is the immutable record of one stage execution.
// Field names are part of the persisted history and must not be repurposed.
type StageResult struct {
	Stage         Stage          `json:"stage"`
	Checks        []CheckResult  `json:"checks"`
	Verdict       Verdict        `json:"verdict"`
	Notes         []string       `json:"notes"`
	Flagged       bool           `json:"flagged"`
	FlagReason    string         `json:"flag_reason,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	ChecksSummary ChecksSummary  `json:"checks_summary"`
	Narrative     string         `json:"narrative,omitempty"`
	Derived       map[string]any `json:"derived,omitempty"`
	Degraded      bool           `json:"degraded,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// ExecutionErrorPrefix starts the flag reason of a degraded result
const ExecutionErrorPrefix = "execution error: "

// ExecutionError is true when the result was produced by a failed execution
func (r *StageResult) ExecutionError() bool {
	return r.Degraded
}
