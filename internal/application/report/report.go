// Package report builds the reviewer-facing summary of a case
package report

import (
	"time"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

// CheckLine is one check as shown to a reviewer
type CheckLine struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Status   entity.CheckStatus `json:"status"`
	Detail   string             `json:"detail"`
	Evidence []string           `json:"evidence,omitempty"`
}

// StageSection summarizes the latest result of one stage
type StageSection struct {
	Stage      entity.Stage         `json:"stage"`
	Name       string               `json:"name"`
	Verdict    entity.VerdictValue  `json:"verdict"`
	Reason     string               `json:"reason"`
	Summary    entity.ChecksSummary `json:"checks_summary"`
	Flagged    bool                 `json:"flagged"`
	FlagReason string               `json:"flag_reason,omitempty"`
	Degraded   bool                 `json:"degraded,omitempty"`
	Narrative  string               `json:"narrative,omitempty"`
	Checks     []CheckLine          `json:"checks"`
	Runs       int                  `json:"runs"`
	Resolution *entity.Resolution   `json:"resolution,omitempty"`
	Duration   time.Duration        `json:"execution_time"`
}

// Report is the full case report
type Report struct {
	CaseID           string               `json:"case_id"`
	Status           entity.CaseStatus    `json:"status"`
	CurrentStage     entity.Stage         `json:"current_stage"`
	Amount           float64              `json:"amount"`
	Currency         string               `json:"currency"`
	Department       string               `json:"department"`
	Supplier         string               `json:"supplier,omitempty"`
	Flagged          bool                 `json:"flagged"`
	FlagReason       string               `json:"flag_reason,omitempty"`
	RejectionReason  string               `json:"rejection_reason,omitempty"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	Totals           entity.ChecksSummary `json:"totals"`
	Stages           []StageSection       `json:"stages"`
	Resolutions      []entity.Resolution  `json:"resolutions"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// Build assembles the report from the case history. Stages that were never
// run are omitted; a stage that ran more than once shows its latest result.
func Build(c *entity.Case, now time.Time) Report {
	f := facts.FromMap(c.DerivedFacts())
	r := Report{
		CaseID:          c.ID,
		Status:          c.Status,
		CurrentStage:    c.CurrentStage,
		Amount:          f.Amount,
		Currency:        f.Currency,
		Department:      f.Department,
		Supplier:        firstNonEmpty(f.SupplierName, f.SupplierID),
		Flagged:         c.Flagged,
		RejectionReason: c.RejectionReason,
		Stages:          []StageSection{},
		Resolutions:     append([]entity.Resolution{}, c.Resolutions...),
		GeneratedAt:     now,
	}
	if c.FlagReason != nil {
		r.FlagReason = *c.FlagReason
	}
	if ref, ok := c.DerivedFacts()[facts.KeyPaymentReference].(string); ok {
		r.PaymentReference = ref
	}

	runs := map[entity.Stage]int{}
	for _, res := range c.Results {
		runs[res.Stage]++
	}

	for _, stage := range entity.AllStages() {
		res := c.ResultFor(stage)
		if res == nil {
			continue
		}
		section := StageSection{
			Stage:      stage,
			Name:       stage.Name(),
			Verdict:    res.Verdict.Value,
			Reason:     res.Verdict.Reason,
			Summary:    res.ChecksSummary,
			Flagged:    res.Flagged,
			FlagReason: res.FlagReason,
			Degraded:   res.Degraded,
			Narrative:  res.Narrative,
			Checks:     make([]CheckLine, 0, len(res.Checks)),
			Runs:       runs[stage],
			Resolution: c.LatestResolution(stage),
			Duration:   res.ExecutionTime,
		}
		for _, check := range res.Checks {
			section.Checks = append(section.Checks, CheckLine{
				ID:       check.ID,
				Name:     check.Name,
				Status:   check.Status,
				Detail:   check.Detail,
				Evidence: check.Evidence,
			})
		}
		r.Totals.Pass += res.ChecksSummary.Pass
		r.Totals.Attention += res.ChecksSummary.Attention
		r.Totals.Fail += res.ChecksSummary.Fail
		r.Stages = append(r.Stages, section)
	}
	return r
}

// Section returns the section for a stage
func (r Report) Section(stage entity.Stage) (StageSection, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageSection{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
