package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// Component custom ids. The dispatch table is resolved once at Register.
const (
	ComponentCategorySelect = "ticket_category"
	ComponentClaimTicket    = "claim_ticket"
	ComponentCloseTicket    = "close_ticket"
	ComponentAddUser        = "add_user"
	ComponentRemoveUser     = "remove_user"
	ComponentLockTicket     = "lock_ticket"
	ComponentDeleteTicket   = "delete_ticket"
)

// Bot wires gateway interactions to the ticket and rating services.
type Bot struct {
	gw      gateway.Gateway
	tickets *service.TicketService
	ratings *service.RatingService
	logger  *zap.Logger
	cfg     config.TicketConfig
	botUser string
}

// New constructs the bot front end.
func New(gw gateway.Gateway, tickets *service.TicketService, ratings *service.RatingService, logger *zap.Logger, cfg config.TicketConfig, botUserID string) *Bot {
	return &Bot{
		gw:      gw,
		tickets: tickets,
		ratings: ratings,
		logger:  logger,
		cfg:     cfg,
		botUser: botUserID,
	}
}

// Register installs the command and component dispatch table.
func (b *Bot) Register() {
	b.gw.RegisterCommand("rating", "Check your ticket rating as a staff member.", b.handleRating)
	b.gw.RegisterCommand("topratings", "Display the top staff members based on ticket ratings.", b.handleTopRatings)

	b.gw.RegisterComponentHandler(ComponentCategorySelect, b.handleCategorySelect)
	b.gw.RegisterComponentHandler(ComponentClaimTicket, b.handleClaim)
	b.gw.RegisterComponentHandler(ComponentCloseTicket, b.handleClose)
	b.gw.RegisterComponentHandler(ComponentAddUser, b.handleAddUser)
	b.gw.RegisterComponentHandler(ComponentRemoveUser, b.handleRemoveUser)
	b.gw.RegisterComponentHandler(ComponentLockTicket, b.handleLock)
	b.gw.RegisterComponentHandler(ComponentDeleteTicket, b.handleDelete)
}

func (b *Bot) handleCategorySelect(ctx context.Context, in *gateway.Interaction) error {
	if len(in.Values) == 0 {
		return b.notify(ctx, in, util.NewValidationError("no category selected", nil))
	}
	categoryKey := in.Values[0]

	record, def, err := b.tickets.OpenTicket(ctx, in.ActorID, in.ActorName, categoryKey)
	if err != nil {
		return b.notify(ctx, in, err)
	}
	_ = b.gw.Reply(ctx, in, fmt.Sprintf("Creating a %s ticket...", def.DisplayLabel), true)

	welcome := fmt.Sprintf("<@%s>, welcome to your %s ticket!\n"+
		"Please describe your issue, and a staff member will assist you shortly.",
		record.CreatorID, def.DisplayLabel)
	if err := b.gw.SendMessage(ctx, record.ChannelID, welcome, ticketButtons()...); err != nil {
		b.logger.Warn("welcome message failed", zap.String("channel_id", record.ChannelID), zap.Error(err))
	}
	return nil
}

func (b *Bot) handleClaim(ctx context.Context, in *gateway.Interaction) error {
	_, newRating, err := b.tickets.ClaimTicket(ctx, in.ActorID, in.ChannelID)
	if err != nil {
		return b.notify(ctx, in, err)
	}
	_ = b.gw.Reply(ctx, in, fmt.Sprintf("🎉 <@%s> has claimed this ticket!", in.ActorID), false)
	return b.gw.SendMessage(ctx, in.ChannelID, fmt.Sprintf("⭐ <@%s>'s rating is now %d.", in.ActorID, newRating))
}

func (b *Bot) handleClose(ctx context.Context, in *gateway.Interaction) error {
	if err := b.tickets.CloseTicket(ctx, in.ActorID, in.ChannelID); err != nil {
		return b.notify(ctx, in, err)
	}
	_ = b.gw.Reply(ctx, in, "This ticket has been closed.", false)
	return b.gw.SendMessage(ctx, in.ChannelID, "Would you like to delete this ticket?", deleteButton())
}

func (b *Bot) handleLock(ctx context.Context, in *gateway.Interaction) error {
	if err := b.tickets.LockTicket(ctx, in.ActorID, in.ChannelID); err != nil {
		return b.notify(ctx, in, err)
	}
	return b.gw.Reply(ctx, in, "This ticket has been locked.", false)
}

func (b *Bot) handleDelete(ctx context.Context, in *gateway.Interaction) error {
	if err := b.tickets.DeleteTicket(ctx, in.ActorID, in.ChannelID); err != nil {
		return b.notify(ctx, in, err)
	}
	return nil
}

func (b *Bot) handleAddUser(ctx context.Context, in *gateway.Interaction) error {
	_ = b.gw.Reply(ctx, in, "Please mention the user you want to add.", true)

	targetID, err := b.tickets.AddMember(ctx, in.ActorID, in.ChannelID)
	if err != nil {
		return b.memberPromptFailed(ctx, in, err)
	}
	return b.gw.SendMessage(ctx, in.ChannelID, fmt.Sprintf("<@%s> has been added to the ticket.", targetID))
}

func (b *Bot) handleRemoveUser(ctx context.Context, in *gateway.Interaction) error {
	_ = b.gw.Reply(ctx, in, "Please mention the user you want to remove.", true)

	targetID, err := b.tickets.RemoveMember(ctx, in.ActorID, in.ChannelID)
	if err != nil {
		return b.memberPromptFailed(ctx, in, err)
	}
	return b.gw.SendMessage(ctx, in.ChannelID, fmt.Sprintf("<@%s> has been removed from the ticket.", targetID))
}

func (b *Bot) handleRating(ctx context.Context, in *gateway.Interaction) error {
	count, err := b.ratings.Rating(ctx, in.ActorID)
	if err != nil {
		return b.notify(ctx, in, err)
	}
	return b.gw.Reply(ctx, in, fmt.Sprintf("⭐ Your ticket rating is: %d", count), true)
}

func (b *Bot) handleTopRatings(ctx context.Context, in *gateway.Interaction) error {
	entries, err := b.ratings.TopRatings(ctx, in.ActorID, 10)
	if err != nil {
		return b.notify(ctx, in, err)
	}
	content := "🏆 Top Staff Ratings\n"
	if len(entries) == 0 {
		content += "No claims recorded yet.\n"
	}
	for i, entry := range entries {
		content += fmt.Sprintf("%d. <@%s> — ⭐ Rating: %d\n", i+1, entry.StaffID, entry.Count)
	}
	return b.gw.Reply(ctx, in, content, false)
}

// memberPromptFailed reports timeout and validation outcomes of the
// bounded mention wait into the ticket channel.
func (b *Bot) memberPromptFailed(ctx context.Context, in *gateway.Interaction, err error) error {
	domainErr := util.ToDomainError(err)
	switch domainErr.Code {
	case "TIMED_OUT":
		return b.gw.SendMessage(ctx, in.ChannelID, "Timed out waiting for a user mention.")
	case "VALIDATION_FAILED":
		return b.gw.SendMessage(ctx, in.ChannelID, "That message did not mention anyone.")
	default:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return b.notify(ctx, in, err)
	}
}

// notify turns a validation failure into an ephemeral notice to the actor
// only. Unexpected errors are logged and acknowledged generically.
func (b *Bot) notify(ctx context.Context, in *gateway.Interaction, err error) error {
	domainErr := util.ToDomainError(err)
	if domainErr.HTTPStatus >= 500 {
		b.logger.Error("interaction failed",
			zap.String("actor_id", in.ActorID),
			zap.String("channel_id", in.ChannelID),
			zap.Error(domainErr))
		return b.gw.Reply(ctx, in, "Something went wrong, please try again later.", true)
	}
	return b.gw.Reply(ctx, in, b.noticeText(domainErr), true)
}

func (b *Bot) noticeText(err *util.DomainError) string {
	switch err.Code {
	case "FORBIDDEN":
		return "You do not have permission to do that."
	case "ALREADY_CLAIMED":
		return "This ticket is already claimed."
	case "ALREADY_CLOSED":
		return "This ticket is already closed."
	case "ALREADY_LOCKED":
		return "This ticket is already locked."
	case "NOT_FOUND":
		return "No ticket is tracked for this channel."
	default:
		return err.Message
	}
}
