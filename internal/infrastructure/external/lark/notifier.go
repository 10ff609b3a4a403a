// Package lark posts reviewer notifications to a Lark (Feishu) chat.
package lark

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/dispatcher"
	"github.com/garyjia/ai-procurement/internal/domain/event"
)

// TextSender delivers a text message. Messenger implements it.
type TextSender interface {
	SendText(ctx context.Context, text string) (string, error)
}

// NotifiedEvents are the event types posted to reviewers
var NotifiedEvents = []event.Type{
	event.TypeCaseFlagged,
	event.TypeCaseRejected,
	event.TypeCaseCompleted,
	event.TypePaymentExecuted,
}

// Notifier turns case events into reviewer chat messages
type Notifier struct {
	sender TextSender
	logger *zap.Logger
}

// NewNotifier creates a notifier
func NewNotifier(sender TextSender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, logger: logger}
}

// Register subscribes the notifier to every event in NotifiedEvents
func (n *Notifier) Register(d dispatcher.Dispatcher) {
	for _, t := range NotifiedEvents {
		d.SubscribeNamed(t, "lark-notifier", n.Handle)
	}
}

// Handle sends the message for evt. Events without a message are ignored.
func (n *Notifier) Handle(ctx context.Context, evt *event.Event) error {
	text, ok := FormatEvent(evt)
	if !ok {
		return nil
	}

	messageID, err := n.sender.SendText(ctx, text)
	if err != nil {
		n.logger.Error("Failed to notify reviewers",
			zap.String("case_id", evt.CaseID),
			zap.String("event_type", evt.Type.String()),
			zap.Error(err))
		return fmt.Errorf("notify %s: %w", evt.Type, err)
	}

	n.logger.Info("Reviewer notified",
		zap.String("case_id", evt.CaseID),
		zap.String("event_type", evt.Type.String()),
		zap.String("message_id", messageID))
	return nil
}

// FormatEvent renders the reviewer message for evt
func FormatEvent(evt *event.Event) (string, bool) {
	if evt == nil {
		return "", false
	}

	var b strings.Builder
	switch evt.Type {
	case event.TypeCaseFlagged:
		fmt.Fprintf(&b, "Case %s needs review at stage %s", evt.CaseID, evt.Stage)
		if reason := evt.GetPayloadString("reason"); reason != "" {
			fmt.Fprintf(&b, "\nReason: %s", reason)
		}
		if evt.GetPayloadBool("degraded") {
			b.WriteString("\nThe stage did not complete normally.")
		}
	case event.TypeCaseRejected:
		fmt.Fprintf(&b, "Case %s was rejected at stage %s", evt.CaseID, evt.Stage)
		if reason := evt.GetPayloadString("reason"); reason != "" {
			fmt.Fprintf(&b, "\nReason: %s", reason)
		}
		if actor := evt.GetPayloadString("actor"); actor != "" {
			fmt.Fprintf(&b, "\nBy: %s", actor)
		}
	case event.TypeCaseCompleted:
		fmt.Fprintf(&b, "Case %s completed", evt.CaseID)
		if evt.GetPayloadBool("manual_settlement") {
			b.WriteString(" (manual settlement)")
		}
	case event.TypePaymentExecuted:
		fmt.Fprintf(&b, "Payment issued for case %s", evt.CaseID)
		if ref := evt.GetPayloadString("reference"); ref != "" {
			fmt.Fprintf(&b, "\nReference: %s", ref)
		}
	default:
		return "", false
	}
	return b.String(), true
}
