package entity

import (
	"fmt"
	"strings"
	"time"
)

// CaseStatus is the lifecycle status of a case
type CaseStatus string

const (
	CaseStatusDraft       CaseStatus = "draft"
	CaseStatusInProgress  CaseStatus = "in_progress"
	CaseStatusUnderReview CaseStatus = "under_review"
	CaseStatusApproved    CaseStatus = "approved"
	CaseStatusRejected    CaseStatus = "rejected"
	CaseStatusCompleted   CaseStatus = "completed"
)

// IsTerminal returns true for rejected and completed cases
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusRejected || s == CaseStatusCompleted
}

// IsValid returns true for a known status
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusDraft, CaseStatusInProgress, CaseStatusUnderReview,
		CaseStatusApproved, CaseStatusRejected, CaseStatusCompleted:
		return true
	default:
		return false
	}
}

// ResolutionAction is a human decision on a flagged stage
type ResolutionAction string

const (
	ActionApprove ResolutionAction = "approve"
	ActionReject  ResolutionAction = "reject"
	ActionHold    ResolutionAction = "hold"
)

// ParseResolutionAction normalizes a free-form action string
func ParseResolutionAction(s string) (ResolutionAction, bool) {
	switch a := ResolutionAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionReject, ActionHold:
		return a, true
	default:
		return "", false
	}
}

// Resolution records one human action on the case
type Resolution struct {
	Stage    Stage            `json:"stage"`
	Action   ResolutionAction `json:"action"`
	Actor    string           `json:"actor"`
	Reason   string           `json:"reason,omitempty"`
	Resolved time.Time        `json:"resolved_at"`
}

// Case is one procurement document moving through the pipeline.
// Only the orchestrator mutates a case; results and resolutions are append-only.
type Case struct {
	ID              string         `json:"id"`
	Facts           map[string]any `json:"facts"`
	CurrentStage    Stage          `json:"current_stage"`
	Status          CaseStatus     `json:"status"`
	Results         []StageResult  `json:"results"`
	Resolutions     []Resolution   `json:"resolutions"`
	Flagged         bool           `json:"flagged"`
	FlaggedBy       *string        `json:"flagged_by"`
	FlagReason      *string        `json:"flag_reason"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewCase creates a draft case positioned at the first stage
func NewCase(id string, facts map[string]any, now time.Time) (*Case, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingCaseID
	}
	if facts == nil {
		facts = map[string]any{}
	}
	return &Case{
		ID:           id,
		Facts:        facts,
		CurrentStage: FirstStage,
		Status:       CaseStatusDraft,
		Results:      []StageResult{},
		Resolutions:  []Resolution{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Validate checks the mandatory identifiers
func (c *Case) Validate() error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return ErrMissingCaseID
	}
	if err := c.CurrentStage.Validate(); err != nil {
		return fmt.Errorf("case %s: %w", c.ID, err)
	}
	return nil
}

// LatestResult returns the most recent result, or nil
func (c *Case) LatestResult() *StageResult {
	if len(c.Results) == 0 {
		return nil
	}
	return &c.Results[len(c.Results)-1]
}

// ResultFor returns the most recent result recorded for a stage
func (c *Case) ResultFor(stage Stage) *StageResult {
	for i := len(c.Results) - 1; i >= 0; i-- {
		if c.Results[i].Stage == stage {
			return &c.Results[i]
		}
	}
	return nil
}

// LatestResolution returns the most recent human action for a stage
func (c *Case) LatestResolution(stage Stage) *Resolution {
	for i := len(c.Resolutions) - 1; i >= 0; i-- {
		if c.Resolutions[i].Stage == stage {
			return &c.Resolutions[i]
		}
	}
	return nil
}

// AppendResult records a completed stage result
func (c *Case) AppendResult(r StageResult) {
	c.Results = append(c.Results, r)
}

// SetFlag marks the case for review
func (c *Case) SetFlag(by, reason string) {
	c.Flagged = true
	c.FlaggedBy = &by
	c.FlagReason = &reason
}

// ClearFlag removes any review flag
func (c *Case) ClearFlag() {
	c.Flagged = false
	c.FlaggedBy = nil
	c.FlagReason = nil
}

// DerivedFacts merges the facts with every derived output recorded so far.
// Later stages win over earlier ones; original facts are never overwritten
// by a missing derived key.
func (c *Case) DerivedFacts() map[string]any {
	merged := make(map[string]any, len(c.Facts)+8)
	for k, v := range c.Facts {
		merged[k] = v
	}
	for _, r := range c.Results {
		for k, v := range r.Derived {
			merged[k] = v
		}
	}
	return merged
}
