package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/rating"
	"github.com/spec-kit/ticket-bot/internal/registry"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// TicketService orchestrates the ticket lifecycle: it owns the registry and
// ledger handles, mirrors every mutation to the snapshot store, and emits
// lifecycle events.
type TicketService struct {
	registry   *registry.Registry
	ratings    *rating.Ledger
	store      persistence.Store
	gw         gateway.Gateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.TicketConfig
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Registry   *registry.Registry
	Ratings    *rating.Ledger
	Store      persistence.Store
	Gateway    gateway.Gateway
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.TicketConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		registry:   deps.Registry,
		ratings:    deps.Ratings,
		store:      deps.Store,
		gw:         deps.Gateway,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
	}
}

// OpenTicket provisions a private channel for the actor's issue and creates
// the registry entry keyed by the new channel id.
func (s *TicketService) OpenTicket(ctx context.Context, actorID, actorName, categoryKey string) (*domain.TicketRecord, domain.CategoryDefinition, error) {
	def, recognized := domain.CategoryByKey(categoryKey)
	if !recognized {
		return nil, domain.CategoryDefinition{}, util.NewUnknownCategory(categoryKey)
	}

	overwrites := []gateway.Overwrite{
		{Subject: gateway.SubjectEveryone, Permission: gateway.Permission{Read: gateway.Bool(false)}},
		{Subject: gateway.SubjectMember, SubjectID: actorID, Permission: gateway.Permission{Read: gateway.Bool(true), Write: gateway.Bool(true)}},
		{Subject: gateway.SubjectRole, SubjectID: s.cfg.StaffRoleID, Permission: gateway.Permission{Read: gateway.Bool(true), Write: gateway.Bool(true)}},
	}
	channelID, err := s.gw.CreateChannel(ctx, ticketChannelName(actorName, def.Key), overwrites, s.cfg.ParentChannelID)
	if err != nil {
		return nil, def, util.NewInternalError(err)
	}

	record, err := s.registry.Create(channelID, actorID, def.Key)
	if err != nil {
		return nil, def, err
	}
	s.persist(ctx)
	s.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		ChannelID: channelID,
		ActorID:   actorID,
		Payload: events.TicketCreatedPayload{
			CreatorID: actorID,
			Category:  def.Key,
			Label:     def.DisplayLabel,
		},
	})
	return record, def, nil
}

// ClaimTicket assigns the ticket to the staff actor and bumps their rating.
// The second of two racing claims always fails and the counter moves by
// exactly one, because only the winning claim reaches the increment.
func (s *TicketService) ClaimTicket(ctx context.Context, actorID, channelID string) (*domain.TicketRecord, int, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, 0, err
	}
	record, err := s.registry.Claim(channelID, actorID)
	if err != nil {
		return nil, 0, err
	}
	newRating := s.ratings.Increment(actorID)
	s.persist(ctx)
	s.publish(ctx, events.Event{
		Type:      events.EventTicketClaimed,
		ChannelID: channelID,
		ActorID:   actorID,
		Payload:   events.TicketClaimedPayload{StaffID: actorID, Rating: newRating},
	})
	return record, newRating, nil
}

// CloseTicket closes the ticket and hides the channel from everyone.
func (s *TicketService) CloseTicket(ctx context.Context, actorID, channelID string) error {
	record, err := s.registry.Close(channelID)
	if err != nil {
		return err
	}
	if err := s.gw.SetPermission(ctx, channelID, gateway.EveryoneID, gateway.Permission{Read: gateway.Bool(false)}); err != nil {
		s.logger.Warn("close overwrite failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	s.persist(ctx)
	s.publish(ctx, events.Event{
		Type:      events.EventTicketClosed,
		ChannelID: channelID,
		ActorID:   actorID,
		Payload:   events.TicketStatusPayload{Status: record.Status},
	})
	return nil
}

// LockTicket locks the ticket and revokes write access for everyone.
func (s *TicketService) LockTicket(ctx context.Context, actorID, channelID string) error {
	record, err := s.registry.Lock(channelID)
	if err != nil {
		return err
	}
	if err := s.gw.SetPermission(ctx, channelID, gateway.EveryoneID, gateway.Permission{Write: gateway.Bool(false)}); err != nil {
		s.logger.Warn("lock overwrite failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	s.persist(ctx)
	s.publish(ctx, events.Event{
		Type:      events.EventTicketLocked,
		ChannelID: channelID,
		ActorID:   actorID,
		Payload:   events.TicketStatusPayload{Status: record.Status},
	})
	return nil
}

// DeleteTicket removes the registry entry and the channel resource. Closing
// first is not required.
func (s *TicketService) DeleteTicket(ctx context.Context, actorID, channelID string) error {
	s.registry.Delete(channelID)
	s.persist(ctx)
	if err := s.gw.DeleteChannel(ctx, channelID); err != nil {
		return util.NewInternalError(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventTicketDeleted,
		ChannelID: channelID,
		ActorID:   actorID,
	})
	return nil
}

// AddMember waits for the actor to mention a user in the ticket channel and
// grants that user access. No registry state changes.
func (s *TicketService) AddMember(ctx context.Context, actorID, channelID string) (string, error) {
	targetID, err := s.awaitMention(ctx, actorID, channelID)
	if err != nil {
		return "", err
	}
	perm := gateway.Permission{Read: gateway.Bool(true), Write: gateway.Bool(true)}
	if err := s.gw.SetPermission(ctx, channelID, targetID, perm); err != nil {
		return "", util.NewInternalError(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventMemberAdded,
		ChannelID: channelID,
		ActorID:   actorID,
		Payload:   events.MemberPayload{TargetID: targetID},
	})
	return targetID, nil
}

// RemoveMember waits for a mention and revokes the target's access.
func (s *TicketService) RemoveMember(ctx context.Context, actorID, channelID string) (string, error) {
	targetID, err := s.awaitMention(ctx, actorID, channelID)
	if err != nil {
		return "", err
	}
	if err := s.gw.SetPermission(ctx, channelID, targetID, gateway.Permission{Read: gateway.Bool(false)}); err != nil {
		return "", util.NewInternalError(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventMemberRemoved,
		ChannelID: channelID,
		ActorID:   actorID,
		Payload:   events.MemberPayload{TargetID: targetID},
	})
	return targetID, nil
}

// Ticket returns the lifecycle record for a channel.
func (s *TicketService) Ticket(channelID string) (*domain.TicketRecord, error) {
	return s.registry.Get(channelID)
}

func (s *TicketService) awaitMention(ctx context.Context, actorID, channelID string) (string, error) {
	msg, err := s.gw.AwaitNextMessage(ctx, channelID, func(m gateway.Message) bool {
		return m.AuthorID == actorID
	}, s.cfg.MemberPromptTimeout())
	if err != nil {
		return "", err
	}
	if len(msg.Mentions) == 0 {
		return "", util.NewValidationError("no user mentioned", nil)
	}
	return msg.Mentions[0], nil
}

func (s *TicketService) requireStaff(ctx context.Context, actorID string) error {
	isStaff, err := s.gw.HasRole(ctx, actorID, s.cfg.StaffRoleID)
	if err != nil {
		return util.NewInternalError(err)
	}
	if !isStaff {
		return util.NewForbidden("staff role required")
	}
	return nil
}

// persist mirrors the in-memory state to the snapshot store. A failed save
// is log-only: memory stays authoritative until the next successful save.
func (s *TicketService) persist(ctx context.Context) {
	snapshot := &persistence.Snapshot{
		Tickets:      s.registry.Export(),
		StaffRatings: s.ratings.Export(),
	}
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Error("snapshot save failed", zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func ticketChannelName(actorName string, category domain.CategoryKey) string {
	name := strings.ToLower(strings.TrimSpace(actorName))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		name = "user"
	}
	return fmt.Sprintf("ticket-%s-%s", name, category)
}
