package port

import (
	"context"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/event"
)

// DecisionSource is an optional external narrative source, typically an LLM.
// Implementations must tolerate being unreachable; callers treat every
// response as advisory text.
type DecisionSource interface {
	Decide(ctx context.Context, stage entity.Stage, factsJSON []byte) (string, error)
}

// NotificationSink receives case events. Emit is fire-and-forget.
type NotificationSink interface {
	Emit(ctx context.Context, evt *event.Event)
}

// PaymentGateway issues a payment. Implementations must treat a repeated
// idempotency key as the same payment.
type PaymentGateway interface {
	Execute(ctx context.Context, instruction entity.PaymentInstruction) (entity.PaymentReceipt, error)
}
