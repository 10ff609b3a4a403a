package dispatcher

import (
	"context"

	"github.com/garyjia/ai-procurement/internal/domain/event"
)

// Handler processes one domain event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
