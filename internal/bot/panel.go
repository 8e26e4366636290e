package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/gateway"
)

const panelTitle = "📩 Support Ticket Panel"

// PublishPanel posts the ticket panel to the configured channel unless a
// recent history scan already shows it.
func (b *Bot) PublishPanel(ctx context.Context) error {
	if b.cfg.PanelChannelID == "" {
		b.logger.Warn("no panel channel configured, skipping panel")
		return nil
	}

	history, err := b.gw.ChannelHistory(ctx, b.cfg.PanelChannelID, 10)
	if err != nil {
		b.logger.Warn("panel history scan failed", zap.Error(err))
	}
	for _, msg := range history {
		if b.botUser != "" && msg.AuthorID != b.botUser {
			continue
		}
		if strings.Contains(msg.Content, panelTitle) {
			b.logger.Info("ticket panel already exists in the channel")
			return nil
		}
	}

	iconURL, err := b.gw.GuildIconURL(ctx)
	if err != nil {
		b.logger.Warn("guild icon lookup failed", zap.Error(err))
	}

	if err := b.gw.SendMessage(ctx, b.cfg.PanelChannelID, panelContent(iconURL), categorySelect()); err != nil {
		return err
	}
	b.logger.Info("ticket panel sent", zap.String("channel_id", b.cfg.PanelChannelID))
	return nil
}

func panelContent(iconURL string) string {
	var sb strings.Builder
	sb.WriteString(panelTitle + "\n")
	sb.WriteString("Welcome to the support ticket system! Please select a category below to create a ticket.\n\n")
	sb.WriteString("Rules\n")
	sb.WriteString("1. Be respectful.\n2. Provide as much detail as possible.\n3. Do not spam tickets.\n\n")
	sb.WriteString("Categories\n")
	for _, def := range domain.Categories() {
		sb.WriteString(fmt.Sprintf("🔹 **%s**: %s\n", def.DisplayLabel, def.Description))
	}
	if iconURL != "" {
		sb.WriteString("\n" + iconURL + "\n")
	}
	sb.WriteString("\nClick the dropdown below to create a ticket.")
	return sb.String()
}

func categorySelect() gateway.Component {
	options := make([]gateway.SelectOption, 0, 3)
	for _, def := range domain.Categories() {
		options = append(options, gateway.SelectOption{
			Label:       def.DisplayLabel,
			Value:       string(def.Key),
			Description: def.Description,
		})
	}
	return gateway.Component{
		Type:        gateway.ComponentSelect,
		CustomID:    ComponentCategorySelect,
		Placeholder: "Select a ticket category...",
		Options:     options,
	}
}

func ticketButtons() []gateway.Component {
	return []gateway.Component{
		{Type: gateway.ComponentButton, CustomID: ComponentClaimTicket, Label: "Claim Ticket", Style: "green"},
		{Type: gateway.ComponentButton, CustomID: ComponentCloseTicket, Label: "Close Ticket", Style: "red"},
		{Type: gateway.ComponentButton, CustomID: ComponentAddUser, Label: "Add User", Style: "green"},
		{Type: gateway.ComponentButton, CustomID: ComponentRemoveUser, Label: "Remove User", Style: "gray"},
		{Type: gateway.ComponentButton, CustomID: ComponentLockTicket, Label: "Lock Ticket", Style: "blurple"},
	}
}

func deleteButton() gateway.Component {
	return gateway.Component{
		Type:     gateway.ComponentButton,
		CustomID: ComponentDeleteTicket,
		Label:    "Delete Ticket",
		Style:    "red",
	}
}
