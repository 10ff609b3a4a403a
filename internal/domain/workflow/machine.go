package workflow

import "context"

// StateMachine tracks the current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether trigger would succeed, guards included
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire takes the first permitted transition for trigger
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers lists the triggers configured for the current state
	PermittedTriggers() []Trigger
}
