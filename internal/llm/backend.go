// Package llm adapts hosted language-model APIs to a single request shape.
package llm

import (
	"context"
	"fmt"

	"github.com/deptforge/agent-departments/internal/config"
)

// Role tags a message in a model request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Format hints the shape of the completion.
type Format string

const FormatText Format = "text"

// Message is one entry of the ordered prompt.
type Message struct {
	Role    Role
	Content string
	Name    string
}

// Request is a single, non-streaming completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Format      Format
}

// Candidate is one completion returned by the backend.
type Candidate struct {
	Content string
}

// Completion is the backend's answer to a Request.
type Completion struct {
	Candidates []Candidate
}

// Backend issues completion requests. Implementations hold their own
// credentials and must not retry.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Completion, error)
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIBackend(cfg), nil
	case config.ProviderAnthropic:
		return NewAnthropicBackend(cfg), nil
	case config.ProviderGemini:
		return NewGeminiBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// splitSystem separates leading system instructions from the conversation,
// for APIs that take the system prompt out of band.
func splitSystem(messages []Message) (system string, rest []Message) {
	rest = make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
