package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deptforge/agent-departments/internal/conversation"
	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/events"
	"github.com/deptforge/agent-departments/internal/repository"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

const (
	defaultBroadcastLimit = 4
	messagePreviewLength  = 80
)

// Responder produces one agent reply. conversation.Orchestrator implements it.
type Responder interface {
	GenerateResponse(ctx context.Context, message string, persona domain.AgentPersonality, department domain.DepartmentInstance, history domain.ConversationHistory) conversation.Reply
}

// ChatResult is the outcome of messaging one department. Delivered is false
// when the agent could not answer; the user turn is still recorded.
type ChatResult struct {
	Department domain.DepartmentInstance
	AgentName  string
	Content    string
	Delivered  bool
	Err        error
}

// ChatService routes user messages to department agents and keeps each
// agent's history.
type ChatService struct {
	departments    *DepartmentService
	agents         *AgentService
	conversations  repository.ConversationRepository
	responder      Responder
	locker         Locker
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	broadcastLimit int
	now            func() time.Time
}

// ChatDependencies bundles what the chat service needs.
type ChatDependencies struct {
	Departments      *DepartmentService
	Agents           *AgentService
	ConversationRepo repository.ConversationRepository
	Responder        Responder
	Locker           Locker
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	BroadcastLimit   int
}

// NewChatService constructs the service. A nil Locker falls back to an
// in-process one.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	limit := deps.BroadcastLimit
	if limit <= 0 {
		limit = defaultBroadcastLimit
	}
	return &ChatService{
		departments:    deps.Departments,
		agents:         deps.Agents,
		conversations:  deps.ConversationRepo,
		responder:      deps.Responder,
		locker:         locker,
		dispatcher:     deps.Dispatcher,
		logger:         logger.Named("chat"),
		broadcastLimit: limit,
		now:            time.Now,
	}
}

// SendMessage asks one department's agent to answer message. Turns for the
// same department are serialized so history stays in order.
func (s *ChatService) SendMessage(ctx context.Context, ownerID, departmentID, message, author string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"message": "required"})
	}
	dept, err := s.departments.Get(ctx, ownerID, departmentID)
	if err != nil {
		return nil, err
	}
	persona, err := s.agents.persona(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, ownerID, dept, *persona, message, author)
}

func (s *ChatService) send(ctx context.Context, ownerID string, dept domain.DepartmentInstance, persona domain.AgentPersonality, message, author string) (*ChatResult, error) {
	release, err := s.locker.Lock(ctx, "chat:"+dept.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := s.conversations.List(ctx, dept.ID)
	if err != nil {
		return nil, err
	}

	reply := s.responder.GenerateResponse(ctx, message, persona, dept, history)

	turns := []domain.ConversationTurn{{
		Role:      domain.TurnRoleUser,
		Content:   message,
		Name:      participantName(author),
		CreatedAt: s.now().UTC(),
	}}
	if reply.Received {
		turns = append(turns, domain.ConversationTurn{
			Role:      domain.TurnRoleAssistant,
			Content:   reply.Content,
			CreatedAt: s.now().UTC(),
		})
	}
	if err := s.conversations.Append(ctx, dept.ID, turns...); err != nil {
		return nil, err
	}

	eventType := events.EventAgentReplied
	if !reply.Received {
		eventType = events.EventAgentUnavailable
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:         eventType,
		OwnerID:      ownerID,
		DepartmentID: dept.ID,
		Payload: events.AgentReplyPayload{
			Category:       dept.Category,
			AgentName:      persona.Name,
			MessagePreview: preview(message, messagePreviewLength),
			ReplyLength:    len(reply.Content),
		},
	})

	return &ChatResult{
		Department: dept,
		AgentName:  persona.Name,
		Content:    reply.Content,
		Delivered:  reply.Received,
	}, nil
}

// Broadcast sends message to several departments at once. An empty
// departmentIDs targets every live department. Each result stands alone: one
// department failing does not affect the others.
func (s *ChatService) Broadcast(ctx context.Context, ownerID, message string, departmentIDs []string, author string) ([]ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"message": "required"})
	}

	targets, err := s.broadcastTargets(ctx, ownerID, departmentIDs)
	if err != nil {
		return nil, err
	}

	results := make([]ChatResult, len(targets))
	var g errgroup.Group
	g.SetLimit(s.broadcastLimit)
	for i, dept := range targets {
		g.Go(func() error {
			results[i] = s.broadcastOne(ctx, ownerID, dept, message, author)
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, r := range results {
		if r.Delivered {
			delivered++
		}
	}
	s.logger.Info("broadcast finished",
		zap.String("owner_id", ownerID),
		zap.Int("departments", len(results)),
		zap.Int("delivered", delivered))
	return results, nil
}

func (s *ChatService) broadcastOne(ctx context.Context, ownerID string, dept domain.DepartmentInstance, message, author string) ChatResult {
	persona, err := s.agents.persona(ctx, dept.ID)
	if err != nil {
		return ChatResult{Department: dept, Err: err}
	}
	result, err := s.send(ctx, ownerID, dept, *persona, message, author)
	if err != nil {
		return ChatResult{Department: dept, AgentName: persona.Name, Err: err}
	}
	return *result
}

func (s *ChatService) broadcastTargets(ctx context.Context, ownerID string, departmentIDs []string) ([]domain.DepartmentInstance, error) {
	if len(departmentIDs) == 0 {
		return s.departments.List(ctx, ownerID)
	}
	targets := make([]domain.DepartmentInstance, 0, len(departmentIDs))
	seen := make(map[string]struct{}, len(departmentIDs))
	for _, id := range departmentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		dept, err := s.departments.Get(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, dept)
	}
	return targets, nil
}

// History returns one department agent's turns, oldest first.
func (s *ChatService) History(ctx context.Context, ownerID, departmentID string) (domain.ConversationHistory, error) {
	if _, err := s.departments.Get(ctx, ownerID, departmentID); err != nil {
		return nil, err
	}
	return s.conversations.List(ctx, departmentID)
}

// participantName reduces a display name to the characters model providers
// accept in a message name.
func participantName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
		if b.Len() >= 64 {
			break
		}
	}
	return b.String()
}

func preview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-3]) + "..."
}
