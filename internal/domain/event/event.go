package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// Event is a domain event emitted while a case moves through the pipeline
type Event struct {
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	CaseID        string         `json:"case_id"`
	Stage         entity.Stage   `json:"stage"`
	Payload       map[string]any `json:"payload"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
}

// NewEvent creates an event with a generated ID and its own correlation chain
func NewEvent(eventType Type, caseID string, stage entity.Stage, payload map[string]any) *Event {
	return NewEventWithCorrelation(eventType, caseID, stage, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, caseID string, stage entity.Stage, payload map[string]any, correlationID string) *Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		CaseID:        caseID,
		Stage:         stage,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with key set in its payload
func (e *Event) WithPayload(key string, value any) *Event {
	payload := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	cp := *e
	cp.Payload = payload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	b, _ := e.Payload[key].(bool)
	return b
}
