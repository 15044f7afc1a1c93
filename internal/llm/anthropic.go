package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/deptforge/agent-departments/internal/config"
)

// AnthropicBackend calls the Anthropic messages API. It returns a single
// candidate whose content is the concatenated text blocks.
type AnthropicBackend struct {
	client *anthropic.Client
}

// NewAnthropicBackend creates a backend for cfg.
func NewAnthropicBackend(cfg config.LLMConfig, extra ...option.RequestOption) *AnthropicBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	client := anthropic.NewClient(opts...)
	return &AnthropicBackend{client: &client}
}

// Name returns the provider identifier.
func (b *AnthropicBackend) Name() string {
	return config.ProviderAnthropic
}

// Complete performs one messages request. The format hint is ignored; the
// API only produces text here.
func (b *AnthropicBackend) Complete(ctx context.Context, req *Request) (*Completion, error) {
	system, rest := splitSystem(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    convertAnthropicMessages(rest),
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return &Completion{Candidates: []Candidate{{Content: text.String()}}}, nil
}

func convertAnthropicMessages(messages []Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return result
}
