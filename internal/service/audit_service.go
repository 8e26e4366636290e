package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/gateway"
)

// AuditService mirrors lifecycle events to the configured log channel.
type AuditService struct {
	dispatcher   events.Dispatcher
	gw           gateway.Gateway
	logger       *zap.Logger
	logChannelID string
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, gw gateway.Gateway, logger *zap.Logger, logChannelID string) *AuditService {
	return &AuditService{
		dispatcher:   dispatcher,
		gw:           gw,
		logger:       logger,
		logChannelID: logChannelID,
	}
}

// RegisterHandlers subscribes to all lifecycle events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClaimed,
		events.EventTicketClosed,
		events.EventTicketLocked,
		events.EventTicketDeleted,
		events.EventMemberAdded,
		events.EventMemberRemoved,
	} {
		a.dispatcher.Subscribe(eventType, a.relay)
	}
}

func (a *AuditService) relay(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))

	if a.logChannelID == "" {
		return nil
	}
	if err := a.gw.SendMessage(ctx, a.logChannelID, a.format(event)); err != nil {
		a.logger.Warn("audit message failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return nil
}

func (a *AuditService) format(event events.Event) string {
	channel := mentionChannel(event.ChannelID)
	actor := mentionUser(event.ActorID)
	switch event.Type {
	case events.EventTicketCreated:
		if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
			return fmt.Sprintf("🎟️ Ticket created: %s by %s for %s.", channel, mentionUser(payload.CreatorID), payload.Label)
		}
		return fmt.Sprintf("🎟️ Ticket created: %s by %s.", channel, actor)
	case events.EventTicketClaimed:
		return fmt.Sprintf("🎉 Ticket claimed: %s by %s.", channel, actor)
	case events.EventTicketClosed:
		return fmt.Sprintf("🔒 Ticket closed: %s by %s.", channel, actor)
	case events.EventTicketLocked:
		return fmt.Sprintf("🔐 Ticket locked: %s by %s.", channel, actor)
	case events.EventTicketDeleted:
		return fmt.Sprintf("🗑️ Ticket deleted: %s by %s.", channel, actor)
	case events.EventMemberAdded:
		if payload, ok := event.Payload.(events.MemberPayload); ok {
			return fmt.Sprintf("👤 User added to ticket %s: %s.", channel, mentionUser(payload.TargetID))
		}
	case events.EventMemberRemoved:
		if payload, ok := event.Payload.(events.MemberPayload); ok {
			return fmt.Sprintf("👤 User removed from ticket %s: %s.", channel, mentionUser(payload.TargetID))
		}
	}
	return fmt.Sprintf("%s: %s by %s.", event.Type, channel, actor)
}

func mentionChannel(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

func mentionUser(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
