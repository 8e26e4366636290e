package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/gateway/mocks"
)

func TestAuditRelay(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors events into the log channel", func(t *testing.T) {
		gw := &mocks.MockGateway{}
		dispatcher := events.NewInMemoryDispatcher()
		NewAuditService(dispatcher, gw, zap.NewNop(), "log-1").RegisterHandlers()

		require.NoError(t, dispatcher.Publish(ctx, events.Event{
			Type:      events.EventTicketCreated,
			ChannelID: "chan-1",
			ActorID:   "user-1",
			Payload:   events.TicketCreatedPayload{CreatorID: "user-1", Category: "billing", Label: "Billing Support"},
		}))
		require.NoError(t, dispatcher.Publish(ctx, events.Event{
			Type:      events.EventMemberAdded,
			ChannelID: "chan-1",
			ActorID:   "staff-1",
			Payload:   events.MemberPayload{TargetID: "user-9"},
		}))

		require.Len(t, gw.SentMessages, 2)
		assert.Equal(t, "log-1", gw.SentMessages[0].ChannelID)
		assert.Equal(t, "🎟️ Ticket created: <#chan-1> by <@user-1> for Billing Support.", gw.SentMessages[0].Content)
		assert.Equal(t, "👤 User added to ticket <#chan-1>: <@user-9>.", gw.SentMessages[1].Content)
	})

	t.Run("no log channel means log-only", func(t *testing.T) {
		gw := &mocks.MockGateway{}
		dispatcher := events.NewInMemoryDispatcher()
		NewAuditService(dispatcher, gw, zap.NewNop(), "").RegisterHandlers()

		require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketClosed, ChannelID: "chan-1"}))
		assert.Empty(t, gw.SentMessages)
	})

	t.Run("send failure never fails the publish", func(t *testing.T) {
		gw := &mocks.MockGateway{
			SendMessageFunc: func(ctx context.Context, channelID, content string, components ...gateway.Component) error {
				return assert.AnError
			},
		}
		dispatcher := events.NewInMemoryDispatcher()
		NewAuditService(dispatcher, gw, zap.NewNop(), "log-1").RegisterHandlers()

		require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketLocked, ChannelID: "chan-1"}))
	})
}
