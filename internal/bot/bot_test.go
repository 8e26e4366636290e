package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/gateway/mocks"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/rating"
	"github.com/spec-kit/ticket-bot/internal/registry"
	"github.com/spec-kit/ticket-bot/internal/service"
)

type nullStore struct{}

func (nullStore) Load(ctx context.Context) (*persistence.Snapshot, error) {
	return persistence.EmptySnapshot(), nil
}
func (nullStore) Save(ctx context.Context, snapshot *persistence.Snapshot) error { return nil }
func (nullStore) Close()                                                         {}

func newBot(gw *mocks.MockGateway) *Bot {
	cfg := config.TicketConfig{
		PanelChannelID:      "panel-1",
		StaffRoleID:         "role-staff",
		MemberPromptSeconds: 1,
	}
	ledger := rating.NewLedger(nil)
	tickets := service.NewTicketService(service.TicketDependencies{
		Registry:   registry.New(nil),
		Ratings:    ledger,
		Store:      nullStore{},
		Gateway:    gw,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
		Config:     cfg,
	})
	ratings := service.NewRatingService(ledger, gw, cfg)
	return New(gw, tickets, ratings, zap.NewNop(), cfg, "bot-user")
}

func staffOnly(staffID string) func(ctx context.Context, userID, roleID string) (bool, error) {
	return func(ctx context.Context, userID, roleID string) (bool, error) {
		return userID == staffID, nil
	}
}

func TestRegister(t *testing.T) {
	gw := &mocks.MockGateway{}
	newBot(gw).Register()

	assert.Contains(t, gw.Commands, "rating")
	assert.Contains(t, gw.Commands, "topratings")
	for _, customID := range []string{
		ComponentCategorySelect, ComponentClaimTicket, ComponentCloseTicket,
		ComponentAddUser, ComponentRemoveUser, ComponentLockTicket, ComponentDeleteTicket,
	} {
		assert.Contains(t, gw.Components, customID)
	}
}

func TestHandleCategorySelect(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a ticket and posts the welcome message", func(t *testing.T) {
		gw := &mocks.MockGateway{}
		b := newBot(gw)

		in := &gateway.Interaction{ActorID: "user-1", ActorName: "alice", Values: []string{"technical"}}
		require.NoError(t, b.handleCategorySelect(ctx, in))

		require.Len(t, gw.Replies, 1)
		assert.True(t, gw.Replies[0].Ephemeral)
		assert.Contains(t, gw.Replies[0].Content, "Technical Support")

		require.Len(t, gw.SentMessages, 1)
		welcome := gw.SentMessages[0]
		assert.Contains(t, welcome.Content, "<@user-1>")
		require.Len(t, welcome.Components, 5)
		assert.Equal(t, ComponentClaimTicket, welcome.Components[0].CustomID)
	})

	t.Run("unknown category is an ephemeral notice", func(t *testing.T) {
		gw := &mocks.MockGateway{}
		b := newBot(gw)

		in := &gateway.Interaction{ActorID: "user-1", ActorName: "alice", Values: []string{"nonsense"}}
		require.NoError(t, b.handleCategorySelect(ctx, in))

		require.Len(t, gw.Replies, 1)
		assert.True(t, gw.Replies[0].Ephemeral)
		assert.Empty(t, gw.CreatedChannels)
	})

	t.Run("no selection", func(t *testing.T) {
		gw := &mocks.MockGateway{}
		b := newBot(gw)

		require.NoError(t, b.handleCategorySelect(ctx, &gateway.Interaction{ActorID: "user-1"}))
		require.Len(t, gw.Replies, 1)
		assert.True(t, gw.Replies[0].Ephemeral)
	})
}

func TestHandleClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("announces claim and new rating", func(t *testing.T) {
		gw := &mocks.MockGateway{HasRoleFunc: staffOnly("staff-1")}
		b := newBot(gw)
		in := &gateway.Interaction{ActorID: "user-1", ActorName: "alice", Values: []string{"general"}}
		require.NoError(t, b.handleCategorySelect(ctx, in))
		channelID := gw.CreatedChannels[0]

		require.NoError(t, b.handleClaim(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: channelID}))

		require.Len(t, gw.Replies, 2)
		assert.False(t, gw.Replies[1].Ephemeral)
		assert.Contains(t, gw.Replies[1].Content, "claimed this ticket")

		last := gw.SentMessages[len(gw.SentMessages)-1]
		assert.Contains(t, last.Content, "rating is now 1")
	})

	t.Run("non-staff gets a permission notice", func(t *testing.T) {
		gw := &mocks.MockGateway{HasRoleFunc: staffOnly("staff-1")}
		b := newBot(gw)

		require.NoError(t, b.handleClaim(ctx, &gateway.Interaction{ActorID: "intruder", ChannelID: "chan-1"}))

		require.Len(t, gw.Replies, 1)
		assert.True(t, gw.Replies[0].Ephemeral)
		assert.Equal(t, "You do not have permission to do that.", gw.Replies[0].Content)
	})
}

func TestHandleClose(t *testing.T) {
	ctx := context.Background()
	gw := &mocks.MockGateway{HasRoleFunc: staffOnly("staff-1")}
	b := newBot(gw)
	in := &gateway.Interaction{ActorID: "user-1", ActorName: "alice", Values: []string{"billing"}}
	require.NoError(t, b.handleCategorySelect(ctx, in))
	channelID := gw.CreatedChannels[0]

	require.NoError(t, b.handleClose(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: channelID}))

	last := gw.SentMessages[len(gw.SentMessages)-1]
	assert.Equal(t, "Would you like to delete this ticket?", last.Content)
	require.Len(t, last.Components, 1)
	assert.Equal(t, ComponentDeleteTicket, last.Components[0].CustomID)

	// a second close is reported back, not swallowed
	require.NoError(t, b.handleClose(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: channelID}))
	assert.Equal(t, "This ticket is already closed.", gw.Replies[len(gw.Replies)-1].Content)
}

func TestHandleAddUserPromptOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("timeout is posted to the channel", func(t *testing.T) {
		gw := &mocks.MockGateway{}
		b := newBot(gw)

		require.NoError(t, b.handleAddUser(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: "chan-1"}))

		last := gw.SentMessages[len(gw.SentMessages)-1]
		assert.Equal(t, "Timed out waiting for a user mention.", last.Content)
	})

	t.Run("mention grants access", func(t *testing.T) {
		gw := &mocks.MockGateway{
			AwaitNextMessageFunc: func(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error) {
				return &gateway.Message{ChannelID: channelID, AuthorID: "staff-1", Mentions: []string{"user-9"}}, nil
			},
		}
		b := newBot(gw)

		require.NoError(t, b.handleAddUser(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: "chan-1"}))

		last := gw.SentMessages[len(gw.SentMessages)-1]
		assert.Contains(t, last.Content, "<@user-9> has been added")
	})
}

func TestHandleRatingCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("rating is ephemeral and staff gated", func(t *testing.T) {
		gw := &mocks.MockGateway{HasRoleFunc: staffOnly("staff-1")}
		b := newBot(gw)

		require.NoError(t, b.handleRating(ctx, &gateway.Interaction{ActorID: "staff-1"}))
		require.Len(t, gw.Replies, 1)
		assert.True(t, gw.Replies[0].Ephemeral)
		assert.Contains(t, gw.Replies[0].Content, "Your ticket rating is: 0")

		require.NoError(t, b.handleRating(ctx, &gateway.Interaction{ActorID: "intruder"}))
		assert.Equal(t, "You do not have permission to do that.", gw.Replies[1].Content)
	})

	t.Run("topratings with no claims yet", func(t *testing.T) {
		gw := &mocks.MockGateway{HasRoleFunc: staffOnly("staff-1")}
		b := newBot(gw)

		require.NoError(t, b.handleTopRatings(ctx, &gateway.Interaction{ActorID: "staff-1"}))
		require.Len(t, gw.Replies, 1)
		assert.Equal(t, "🏆 Top Staff Ratings\nNo claims recorded yet.\n", gw.Replies[0].Content)
	})

	t.Run("topratings lists ranked staff", func(t *testing.T) {
		gw := &mocks.MockGateway{HasRoleFunc: func(ctx context.Context, userID, roleID string) (bool, error) {
			return true, nil
		}}
		b := newBot(gw)
		open := func(actorID, actorName string) string {
			require.NoError(t, b.handleCategorySelect(ctx, &gateway.Interaction{ActorID: actorID, ActorName: actorName, Values: []string{"general"}}))
			return gw.CreatedChannels[len(gw.CreatedChannels)-1]
		}
		require.NoError(t, b.handleClaim(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: open("user-1", "alice")}))
		require.NoError(t, b.handleClaim(ctx, &gateway.Interaction{ActorID: "staff-1", ChannelID: open("user-2", "bob")}))
		require.NoError(t, b.handleClaim(ctx, &gateway.Interaction{ActorID: "staff-2", ChannelID: open("user-3", "carol")}))

		require.NoError(t, b.handleTopRatings(ctx, &gateway.Interaction{ActorID: "staff-1"}))

		content := gw.Replies[len(gw.Replies)-1].Content
		lines := strings.Split(strings.TrimSpace(content), "\n")
		require.GreaterOrEqual(t, len(lines), 3)
		assert.Contains(t, lines[1], "<@staff-1>")
		assert.Contains(t, lines[1], "Rating: 2")
		assert.Contains(t, lines[2], "<@staff-2>")
	})
}
