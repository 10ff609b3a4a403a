package openai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt is one system/user prompt pair with its model parameters
type Prompt struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds the prompts used by the decision source
type PromptConfig struct {
	StageNarrative Prompt `yaml:"stage_narrative"`

	// StageHints adds stage-specific guidance keyed by stage number
	StageHints map[int]string `yaml:"stage_hints"`
}

// PromptData is what the user template is rendered with
type PromptData struct {
	Stage     int
	StageName string
	Hint      string
	Facts     string
}

// LoadPrompts loads prompt configuration from a YAML file. An empty path
// returns the prompts compiled into the binary.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data := defaultPrompts
	if promptsPath != "" {
		var err error
		data, err = os.ReadFile(promptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompts file: %w", err)
		}
	}

	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if prompts.StageNarrative.UserTemplate == "" {
		return nil, fmt.Errorf("prompts: stage_narrative.user_template is required")
	}
	if _, err := template.New("prompt").Parse(prompts.StageNarrative.UserTemplate); err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	return &prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
