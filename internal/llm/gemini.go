package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/deptforge/agent-departments/internal/config"
)

// GeminiBackend calls the Gemini generateContent API.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend creates a backend for cfg.
func NewGeminiBackend(ctx context.Context, cfg config.LLMConfig) (*GeminiBackend, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

// Name returns the provider identifier.
func (b *GeminiBackend) Name() string {
	return config.ProviderGemini
}

// Complete performs one generateContent request.
func (b *GeminiBackend) Complete(ctx context.Context, req *Request) (*Completion, error) {
	system, rest := splitSystem(req.Messages)

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.Format == FormatText {
		genCfg.ResponseMIMEType = "text/plain"
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, req.Model, convertGeminiContents(rest), genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	out := &Completion{Candidates: make([]Candidate, 0, len(resp.Candidates))}
	for _, cand := range resp.Candidates {
		var text strings.Builder
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part != nil {
					text.WriteString(part.Text)
				}
			}
		}
		out.Candidates = append(out.Candidates, Candidate{Content: text.String()})
	}
	return out, nil
}

func convertGeminiContents(messages []Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			result = append(result, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			result = append(result, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	return result
}
