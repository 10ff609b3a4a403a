package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects transitions and builds machines from them
type StateMachineBuilder interface {
	// Configure returns the configuration for a state, creating it on first use
	Configure(state State) StateConfiguration

	// Build creates an independent machine starting at initialState
	Build(initialState State) StateMachine
}

// StateConfiguration declares the transitions leaving one state
type StateConfiguration interface {
	// Permit allows trigger to move to toState unconditionally
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows trigger to move to toState when guard passes.
	// Guards are tried in declaration order.
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates an empty builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{configurations: make(map[State]*stateConfig)}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	config, ok := b.configurations[state]
	if !ok {
		config = &stateConfig{transitions: make(map[Trigger][]transition)}
		b.configurations[state] = config
	}
	return config
}

func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// machines never share transition slices with the builder
	configs := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		copied := make(map[Trigger][]transition, len(config.transitions))
		for trigger, ts := range config.transitions {
			copied[trigger] = append([]transition(nil), ts...)
		}
		configs[state] = &stateConfig{transitions: copied}
	}

	return &stateMachine{currentState: initialState, configurations: configs}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{toState: toState, guard: guard})
	return c
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) CanFire(ctx context.Context, trigger Trigger) bool {
	_, ok := m.resolve(ctx, trigger)
	return ok
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	config, ok := m.configurations[m.currentState]
	if !ok || len(config.transitions[trigger]) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.currentState)
	}
	next, ok := m.resolve(ctx, trigger)
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.currentState)
	}
	m.currentState = next
	return nil
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	config, ok := m.configurations[m.currentState]
	if !ok {
		return []Trigger{}
	}
	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// resolve returns the target of the first transition whose guard passes
func (m *stateMachine) resolve(ctx context.Context, trigger Trigger) (State, bool) {
	config, ok := m.configurations[m.currentState]
	if !ok {
		return "", false
	}
	for _, t := range config.transitions[trigger] {
		if t.guard == nil || t.guard(ctx) {
			return t.toState, true
		}
	}
	return "", false
}
