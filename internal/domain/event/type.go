package event

// Type identifies the type of domain event
type Type string

const (
	TypeCaseCreated     Type = "case.created"
	TypeStageCompleted  Type = "case.stage_completed"
	TypeCaseFlagged     Type = "case.flagged"
	TypeCaseResolved    Type = "case.resolved"
	TypeCaseApproved    Type = "case.approved"
	TypeCaseRejected    Type = "case.rejected"
	TypeCaseCompleted   Type = "case.completed"
	TypePaymentExecuted Type = "payment.executed"
	TypeStatusChanged   Type = "case.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeCaseCreated,
		TypeStageCompleted,
		TypeCaseFlagged,
		TypeCaseResolved,
		TypeCaseApproved,
		TypeCaseRejected,
		TypeCaseCompleted,
		TypePaymentExecuted,
		TypeStatusChanged:
		return true
	default:
		return false
	}
}
