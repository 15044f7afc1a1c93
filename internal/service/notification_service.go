package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/config"
	"github.com/deptforge/agent-departments/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger: logger.Named("notifications"),
		cfg:    cfg,
	}
}

// EventTypes lists the events this service reacts to.
func (n *NotificationService) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventDepartmentsCreated,
		events.EventDepartmentRemoved,
		events.EventAgentAssigned,
		events.EventAgentReplied,
		events.EventAgentUnavailable,
	}
}

// Handle processes one event.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("owner_id", event.OwnerID),
		zap.String("department_id", event.DepartmentID),
		zap.Any("payload", event.Payload),
	}
	switch event.Type {
	case events.EventAgentUnavailable:
		n.logger.Warn("AgentUnavailable", fields...)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventDepartmentsCreated:
		n.logger.Info("DepartmentsCreated", fields...)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventDepartmentRemoved:
		n.logger.Info("DepartmentRemoved", fields...)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventAgentAssigned:
		n.logger.Info("AgentAssigned", fields...)
	case events.EventAgentReplied:
		n.logger.Debug("AgentReplied", fields...)
	}
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("department_id", event.DepartmentID),
		zap.String("event_type", string(event.Type)))
}
