// Package conversation dispatches a user message to one department agent.
//
// GenerateResponse never returns an error. A failed backend call is logged
// with the department and agent it belonged to and comes back as NoReply, so
// one agent going down cannot take a multi-department view with it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/config"
	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/llm"
	"github.com/deptforge/agent-departments/internal/observability"
	"github.com/deptforge/agent-departments/internal/prompt"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// Reply is the outcome of one GenerateResponse call. Received is false only
// for NoReply; a received reply may still have empty Content.
type Reply struct {
	Content  string
	Received bool
}

// NoReply is returned when the backend could not produce a completion.
var NoReply = Reply{}

var errNoCandidates = errors.New("completion has no candidates")

// Settings are the fixed generation parameters sent with every request.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// SettingsFromConfig derives generation settings from the backend config.
func SettingsFromConfig(cfg config.LLMConfig) Settings {
	return Settings{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout(),
	}
}

// Orchestrator turns (message, persona, department, history) into one model
// call.
type Orchestrator struct {
	backend  llm.Backend
	settings Settings
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewOrchestrator builds an orchestrator around an authenticated backend.
// metrics may be nil.
func NewOrchestrator(backend llm.Backend, settings Settings, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		backend:  backend,
		settings: settings,
		logger:   logger.Named("orchestrator"),
		metrics:  metrics,
	}
}

// BuildRequest assembles the model request: the synthesized system prompt,
// then history in stored order, then message. History is not truncated.
func (o *Orchestrator) BuildRequest(message string, persona domain.AgentPersonality, department domain.DepartmentInstance, history domain.ConversationHistory) *llm.Request {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompt.Synthesize(persona, department)})
	for _, turn := range history {
		messages = append(messages, llm.Message{
			Role:    llm.Role(turn.Role),
			Content: turn.Content,
			Name:    turn.Name,
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	return &llm.Request{
		Model:       o.settings.Model,
		Messages:    messages,
		Temperature: o.settings.Temperature,
		MaxTokens:   o.settings.MaxTokens,
		Format:      llm.FormatText,
	}
}

// GenerateResponse asks the department's agent to answer message. The system
// prompt is synthesized on every call.
func (o *Orchestrator) GenerateResponse(ctx context.Context, message string, persona domain.AgentPersonality, department domain.DepartmentInstance, history domain.ConversationHistory) (reply Reply) {
	log := o.logger.With(
		zap.String("department", string(department.Category)),
		zap.String("department_id", department.ID),
		zap.String("agent", persona.Name),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.fail(log, fmt.Errorf("backend panic: %v", r), start)
			reply = NoReply
		}
	}()

	req := o.BuildRequest(message, persona, department, history)

	if o.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.settings.Timeout)
		defer cancel()
	}

	log.Debug("generating response",
		zap.Int("message_length", len(message)),
		zap.Int("history_length", len(history)),
	)

	completion, err := o.backend.Complete(ctx, req)
	if err == nil && (completion == nil || len(completion.Candidates) == 0) {
		err = errNoCandidates
	}
	if err != nil {
		o.fail(log, err, start)
		return NoReply
	}

	content := completion.Candidates[0].Content
	outcome := "ok"
	if content == "" {
		outcome = "empty"
	}
	o.metrics.RecordBackendCall(o.backend.Name(), outcome, time.Since(start))
	log.Debug("generated response", zap.Int("response_length", len(content)))

	return Reply{Content: content, Received: true}
}

func (o *Orchestrator) fail(log *zap.Logger, err error, start time.Time) {
	o.metrics.RecordBackendCall(o.backend.Name(), "error", time.Since(start))
	log.Error("model backend failed", zap.Error(apperrors.NewBackendError(o.backend.Name(), err)))
}
