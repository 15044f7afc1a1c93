package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/deptforge/agent-departments/internal/config"
)

// OpenAIBackend calls the OpenAI chat completions API.
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend creates a backend for cfg. Extra request options are
// appended after the configured ones.
func NewOpenAIBackend(cfg config.LLMConfig, extra ...option.RequestOption) *OpenAIBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	client := openai.NewClient(opts...)
	return &OpenAIBackend{client: &client}
}

// Name returns the provider identifier.
func (b *OpenAIBackend) Name() string {
	return config.ProviderOpenAI
}

// Complete performs one chat completion request.
func (b *OpenAIBackend) Complete(ctx context.Context, req *Request) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    convertOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}
	if req.Format == FormatText {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfText: &shared.ResponseFormatTextParam{},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	out := &Completion{Candidates: make([]Candidate, 0, len(resp.Choices))}
	for _, choice := range resp.Choices {
		out.Candidates = append(out.Candidates, Candidate{Content: choice.Message.Content})
	}
	return out, nil
}

func convertOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(m.Content))
		case RoleUser:
			msg := openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(m.Content)},
			}
			if m.Name != "" {
				msg.Name = openai.String(m.Name)
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfUser: &msg})
		case RoleAssistant:
			msg := openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)},
			}
			if m.Name != "" {
				msg.Name = openai.String(m.Name)
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		}
	}
	return result
}
