package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/ragask/internal/models"
	"github.com/xhad/ragask/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model       string
	Temperature float64 // 0 leaves the provider default
	MaxTokens   int     // 0 leaves the provider default
}

// ChatEngine is a chat client backed by a langchaingo model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

var _ types.ChatClient = (*ChatEngine)(nil)

// NewChatEngine wraps an already constructed langchaingo model.
func NewChatEngine(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("chat engine requires a model")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// Complete sends the conversation and returns the first choice's content.
func (ce *ChatEngine) Complete(ctx context.Context, messages []models.Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	var options []llms.CallOption
	if ce.config.Model != "" {
		options = append(options, llms.WithModel(ce.config.Model))
	}
	if ce.config.Temperature > 0 {
		options = append(options, llms.WithTemperature(ce.config.Temperature))
	}
	if ce.config.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(ce.config.MaxTokens))
	}

	response, err := ce.llm.GenerateContent(ctx, content, options...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrNoChoices
	}

	return response.Choices[0].Content, nil
}

func messageType(role models.Role) llms.ChatMessageType {
	switch role {
	case models.RoleUser:
		return llms.ChatMessageTypeHuman
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeSystem
	}
}
