// Package openai implements the narrative decision source on the OpenAI chat
// completions API. It only produces text; classification stays with the
// rules engine.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/ai-procurement/internal/application/port"
	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// maxFactsInPrompt bounds the facts document sent to the model
const maxFactsInPrompt = 12000

var errEmptyCompletion = errors.New("no response from OpenAI")

// Config holds client settings
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// DecisionSource implements port.DecisionSource using OpenAI
type DecisionSource struct {
	client  *openai.Client
	cfg     Config
	prompts *PromptConfig
	logger  *zap.Logger
}

// NewDecisionSource creates a decision source. A nil prompt config uses the
// built-in prompts.
func NewDecisionSource(cfg Config, prompts *PromptConfig, logger *zap.Logger) (*DecisionSource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if prompts == nil {
		var err error
		if prompts, err = LoadPrompts(""); err != nil {
			return nil, err
		}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &DecisionSource{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		prompts: prompts,
		logger:  logger,
	}, nil
}

// Decide asks the model for a reviewer narrative on one stage
func (s *DecisionSource) Decide(ctx context.Context, stage entity.Stage, factsJSON []byte) (string, error) {
	p := s.prompts.StageNarrative
	facts := string(factsJSON)
	if len(facts) > maxFactsInPrompt {
		facts = facts[:maxFactsInPrompt]
	}
	user, err := renderTemplate(p.UserTemplate, PromptData{
		Stage:     int(stage),
		StageName: stage.Name(),
		Hint:      s.prompts.StageHints[int(stage)],
		Facts:     facts,
	})
	if err != nil {
		return "", err
	}

	temperature := p.Temperature
	if s.cfg.Temperature > 0 {
		temperature = s.cfg.Temperature
	}
	maxTokens := p.MaxTokens
	if s.cfg.MaxTokens > 0 {
		maxTokens = s.cfg.MaxTokens
	}

	s.logger.Debug("Requesting stage narrative", zap.Int("stage", int(stage)), zap.String("model", s.cfg.Model))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Error("OpenAI API call failed", zap.Int("stage", int(stage)), zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyCompletion
	}
	s.logger.Debug("Stage narrative received",
		zap.Int("stage", int(stage)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return content, nil
}

var _ port.DecisionSource = (*DecisionSource)(nil)
