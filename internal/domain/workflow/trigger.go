package workflow

// Trigger is an event that can move a case between states
type Trigger string

const (
	TriggerStart    Trigger = "START"
	TriggerAdvance  Trigger = "ADVANCE"
	TriggerFlag     Trigger = "FLAG"
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerHold     Trigger = "HOLD"
	TriggerComplete Trigger = "COMPLETE"
)

func (t Trigger) String() string {
	return string(t)
}
