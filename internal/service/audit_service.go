package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/securehire-auth/internal/events"
	"github.com/spec-kit/securehire-auth/internal/observability"
)

// AuditService records auth events as structured log lines and login metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventSessionRotated, a.handleSessionRotated)
	a.dispatcher.Subscribe(events.EventLoggedOut, a.handleLoggedOut)
	a.dispatcher.Subscribe(events.EventRegistered, a.handleRegistered)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.metrics.RecordLogin("success")
	a.logger.Info("LoginSucceeded", actorFields(event)...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	kind := "unknown"
	if p, ok := event.Payload.(events.LoginFailedPayload); ok {
		kind = p.Kind
	}
	a.metrics.RecordLogin(kind)
	a.logger.Warn("LoginFailed", append(actorFields(event), zap.String("kind", kind))...)
	return nil
}

func (a *AuditService) handleSessionRotated(_ context.Context, event events.Event) error {
	retried := false
	if p, ok := event.Payload.(events.SessionRotatedPayload); ok {
		retried = p.Retried
	}
	a.logger.Info("SessionRotated", append(actorFields(event), zap.Bool("retried", retried))...)
	return nil
}

func (a *AuditService) handleLoggedOut(_ context.Context, event events.Event) error {
	a.logger.Info("LoggedOut", actorFields(event)...)
	return nil
}

func (a *AuditService) handleRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("Registered", actorFields(event)...)
	return nil
}

func actorFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("email", event.Actor.Email),
		zap.String("role", event.Actor.Role.String()),
		zap.Time("at", event.Timestamp),
	}
}
