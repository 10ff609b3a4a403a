package workflow

import "github.com/garyjia/ai-procurement/internal/domain/entity"

// State is a case lifecycle state as seen by the state machine
type State string

const (
	StateDraft       State = State(entity.CaseStatusDraft)
	StateInProgress  State = State(entity.CaseStatusInProgress)
	StateUnderReview State = State(entity.CaseStatusUnderReview)
	StateApproved    State = State(entity.CaseStatusApproved)
	StateRejected    State = State(entity.CaseStatusRejected)
	StateCompleted   State = State(entity.CaseStatusCompleted)
)

// FromStatus converts a case status into a machine state
func FromStatus(s entity.CaseStatus) State {
	return State(s)
}

// Status converts the state back into a case status
func (s State) Status() entity.CaseStatus {
	return entity.CaseStatus(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return s == StateRejected || s == StateCompleted
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known case state
func (s State) IsValid() bool {
	switch s {
	case StateDraft, StateInProgress, StateUnderReview, StateApproved, StateRejected, StateCompleted:
		return true
	}
	return false
}
