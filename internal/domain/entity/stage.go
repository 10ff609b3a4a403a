package entity

import (
	"errors"
	"fmt"
)

// Stage identifies one of the nine fixed pipeline steps
type Stage int

const (
	StageValidation          Stage = 1
	StageApprovalRouting     Stage = 2
	StagePOGeneration        Stage = 3
	StageReceiptVerification Stage = 4
	StageInvoiceMatching     Stage = 5
	StageFraudScreening      Stage = 6
	StageComplianceScreening Stage = 7
	StageFinalApproval       Stage = 8
	StagePaymentExecution    Stage = 9
)

// FirstStage and LastStage bound the pipeline
const (
	FirstStage = StageValidation
	LastStage  = StagePaymentExecution
)

var (
	// ErrInvalidStage is returned for a stage identifier outside 1..9
	ErrInvalidStage = errors.New("invalid stage")

	// ErrMissingCaseID is returned when a case has no identifier
	ErrMissingCaseID = errors.New("missing case id")
)

var stageNames = map[Stage]string{
	StageValidation:          "Validation",
	StageApprovalRouting:     "Approval Routing",
	StagePOGeneration:        "PO Generation",
	StageReceiptVerification: "Receipt Verification",
	StageInvoiceMatching:     "Invoice Matching",
	StageFraudScreening:      "Fraud Screening",
	StageComplianceScreening: "Compliance Screening",
	StageFinalApproval:       "Final Approval Gate",
	StagePaymentExecution:    "Payment Execution",
}

// AllStages returns the stages in pipeline order
func AllStages() []Stage {
	return []Stage{
		StageValidation,
		StageApprovalRouting,
		StagePOGeneration,
		StageReceiptVerification,
		StageInvoiceMatching,
		StageFraudScreening,
		StageComplianceScreening,
		StageFinalApproval,
		StagePaymentExecution,
	}
}

// IsValid returns true if the stage is within 1..9
func (s Stage) IsValid() bool {
	return s >= FirstStage && s <= LastStage
}

// Validate returns ErrInvalidStage for out-of-range stages
func (s Stage) Validate() error {
	if !s.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidStage, int(s))
	}
	return nil
}

// Name returns the human-readable stage name
func (s Stage) Name() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage %d", int(s))
}

// String returns "<n> <name>"
func (s Stage) String() string {
	return fmt.Sprintf("%d %s", int(s), s.Name())
}

// Flaggable reports whether a HITL pause is permitted at this stage.
// Only stages 2 through 8 may pause the pipeline.
func (s Stage) Flaggable() bool {
	return s >= StageApprovalRouting && s <= StageFinalApproval
}

// Next returns the following stage; ok is false after the last stage
func (s Stage) Next() (Stage, bool) {
	if s >= LastStage {
		return s, false
	}
	return s + 1, true
}
