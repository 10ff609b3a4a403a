package lark

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessageAPI sends raw im/v1 messages. SDKClient implements it.
type MessageAPI interface {
	SendMessage(ctx context.Context, chatID, msgType, content string) (string, error)
}

// Messenger sends plain text messages to one reviewer chat
type Messenger struct {
	api    MessageAPI
	chatID string
}

// NewMessenger creates a messenger bound to chatID
func NewMessenger(api MessageAPI, chatID string) (*Messenger, error) {
	if api == nil {
		return nil, fmt.Errorf("message api is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("reviewer chat id cannot be empty")
	}
	return &Messenger{api: api, chatID: chatID}, nil
}

// SendText posts text to the reviewer chat
func (m *Messenger) SendText(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("content cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to build message content: %w", err)
	}
	return m.api.SendMessage(ctx, m.chatID, "text", string(content))
}
