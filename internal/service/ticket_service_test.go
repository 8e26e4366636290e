package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/internal/gateway/mocks"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/rating"
	"github.com/spec-kit/ticket-bot/internal/registry"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// memStore records saves in memory for assertions.
type memStore struct {
	saved   []*persistence.Snapshot
	saveErr error
}

func (s *memStore) Load(ctx context.Context) (*persistence.Snapshot, error) {
	return persistence.EmptySnapshot(), nil
}

func (s *memStore) Save(ctx context.Context, snapshot *persistence.Snapshot) error {
	s.saved = append(s.saved, snapshot)
	return s.saveErr
}

func (s *memStore) Close() {}

type fixture struct {
	service    *TicketService
	registry   *registry.Registry
	ratings    *rating.Ledger
	store      *memStore
	gw         *mocks.MockGateway
	dispatcher events.Dispatcher
	published  *[]events.Event
}

func newFixture(gw *mocks.MockGateway) *fixture {
	reg := registry.New(nil)
	ledger := rating.NewLedger(nil)
	store := &memStore{}
	dispatcher := events.NewInMemoryDispatcher()

	published := &[]events.Event{}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated, events.EventTicketClaimed, events.EventTicketClosed,
		events.EventTicketLocked, events.EventTicketDeleted,
		events.EventMemberAdded, events.EventMemberRemoved,
	} {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			*published = append(*published, event)
			return nil
		})
	}

	svc := NewTicketService(TicketDependencies{
		Registry:   reg,
		Ratings:    ledger,
		Store:      store,
		Gateway:    gw,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Config: config.TicketConfig{
			StaffRoleID:         "role-staff",
			ParentChannelID:     "parent-1",
			LogChannelID:        "log-1",
			MemberPromptSeconds: 1,
		},
	})
	return &fixture{
		service:    svc,
		registry:   reg,
		ratings:    ledger,
		store:      store,
		gw:         gw,
		dispatcher: dispatcher,
		published:  published,
	}
}

func staffGateway() *mocks.MockGateway {
	return &mocks.MockGateway{
		HasRoleFunc: func(ctx context.Context, userID, roleID string) (bool, error) {
			return userID == "staff-1" && roleID == "role-staff", nil
		},
	}
}

func TestOpenTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("creates channel, record and event", func(t *testing.T) {
		f := newFixture(staffGateway())

		record, def, err := f.service.OpenTicket(ctx, "user-1", "Alice Smith", "technical")
		require.NoError(t, err)
		assert.Equal(t, "Technical Support", def.DisplayLabel)
		assert.Equal(t, "channel-ticket-alice-smith-technical", record.ChannelID)

		stored, err := f.service.Ticket(record.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, "user-1", stored.CreatorID)
		assert.Equal(t, domain.CategoryTechnical, stored.Category)
		assert.Equal(t, domain.TicketStatusOpen, stored.Status)
		assert.False(t, stored.Claimed())

		require.Len(t, f.store.saved, 1)
		require.Len(t, *f.published, 1)
		assert.Equal(t, events.EventTicketCreated, (*f.published)[0].Type)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newFixture(staffGateway())

		_, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "nonsense")
		assert.Equal(t, "UNKNOWN_CATEGORY", util.Code(err))
		assert.Empty(t, f.gw.CreatedChannels)
		assert.Equal(t, 0, f.registry.Len())
	})

	t.Run("channel provisioning failure", func(t *testing.T) {
		gw := staffGateway()
		gw.CreateChannelFunc = func(ctx context.Context, name string, overwrites []gateway.Overwrite, parentID string) (string, error) {
			return "", errors.New("gateway down")
		}
		f := newFixture(gw)

		_, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "billing")
		assert.Equal(t, "INTERNAL_ERROR", util.Code(err))
		assert.Equal(t, 0, f.registry.Len())
	})

	t.Run("scopes channel to creator, staff role and nobody else", func(t *testing.T) {
		var seen []gateway.Overwrite
		gw := staffGateway()
		gw.CreateChannelFunc = func(ctx context.Context, name string, overwrites []gateway.Overwrite, parentID string) (string, error) {
			seen = overwrites
			assert.Equal(t, "parent-1", parentID)
			return "chan-1", nil
		}
		f := newFixture(gw)

		_, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		require.Len(t, seen, 3)
		assert.Equal(t, gateway.SubjectEveryone, seen[0].Subject)
		assert.False(t, *seen[0].Permission.Read)
		assert.Equal(t, "user-1", seen[1].SubjectID)
		assert.True(t, *seen[1].Permission.Read)
		assert.True(t, *seen[1].Permission.Write)
		assert.Equal(t, "role-staff", seen[2].SubjectID)
	})
}

func TestClaimTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("staff claim bumps the rating by one", func(t *testing.T) {
		f := newFixture(staffGateway())
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "technical")
		require.NoError(t, err)

		prior := f.ratings.Get("staff-1")
		claimed, newRating, err := f.service.ClaimTicket(ctx, "staff-1", record.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, "staff-1", claimed.ClaimedBy)
		assert.Equal(t, prior+1, newRating)
		assert.Equal(t, prior+1, f.ratings.Get("staff-1"))
	})

	t.Run("non-staff is forbidden with no state change", func(t *testing.T) {
		f := newFixture(staffGateway())
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		_, _, err = f.service.ClaimTicket(ctx, "intruder", record.ChannelID)
		assert.Equal(t, "FORBIDDEN", util.Code(err))

		stored, err := f.service.Ticket(record.ChannelID)
		require.NoError(t, err)
		assert.False(t, stored.Claimed())
		assert.Equal(t, 0, f.ratings.Get("intruder"))
	})

	t.Run("second claim fails and the counter moved exactly once", func(t *testing.T) {
		gw := &mocks.MockGateway{
			HasRoleFunc: func(ctx context.Context, userID, roleID string) (bool, error) {
				return true, nil
			},
		}
		f := newFixture(gw)
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "billing")
		require.NoError(t, err)

		_, _, err = f.service.ClaimTicket(ctx, "staff-1", record.ChannelID)
		require.NoError(t, err)
		_, _, err = f.service.ClaimTicket(ctx, "staff-2", record.ChannelID)
		assert.Equal(t, "ALREADY_CLAIMED", util.Code(err))

		assert.Equal(t, 1, f.ratings.Get("staff-1"))
		assert.Equal(t, 0, f.ratings.Get("staff-2"))
	})

	t.Run("unknown channel", func(t *testing.T) {
		f := newFixture(staffGateway())
		_, _, err := f.service.ClaimTicket(ctx, "staff-1", "missing")
		assert.Equal(t, "NOT_FOUND", util.Code(err))
	})
}

func TestCloseAndLockTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("close hides the channel and emits an event", func(t *testing.T) {
		f := newFixture(staffGateway())
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		require.NoError(t, f.service.CloseTicket(ctx, "staff-1", record.ChannelID))

		stored, err := f.service.Ticket(record.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, stored.Status)

		var everyone *mocks.PermissionCall
		for i := range f.gw.Permissions {
			if f.gw.Permissions[i].SubjectID == gateway.EveryoneID {
				everyone = &f.gw.Permissions[i]
			}
		}
		require.NotNil(t, everyone)
		assert.False(t, *everyone.Permission.Read)

		err = f.service.CloseTicket(ctx, "staff-1", record.ChannelID)
		assert.Equal(t, "ALREADY_CLOSED", util.Code(err))
	})

	t.Run("lock revokes write access", func(t *testing.T) {
		f := newFixture(staffGateway())
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		require.NoError(t, f.service.LockTicket(ctx, "staff-1", record.ChannelID))
		stored, err := f.service.Ticket(record.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusLocked, stored.Status)

		err = f.service.LockTicket(ctx, "staff-1", record.ChannelID)
		assert.Equal(t, "ALREADY_LOCKED", util.Code(err))
	})

	t.Run("permission failure does not block the close", func(t *testing.T) {
		gw := staffGateway()
		gw.SetPermissionFunc = func(ctx context.Context, channelID, subjectID string, perm gateway.Permission) error {
			return errors.New("gateway down")
		}
		f := newFixture(gw)
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		require.NoError(t, f.service.CloseTicket(ctx, "staff-1", record.ChannelID))
	})
}

func TestDeleteTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record and channel without requiring close", func(t *testing.T) {
		f := newFixture(staffGateway())
		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteTicket(ctx, "staff-1", record.ChannelID))
		assert.Equal(t, 0, f.registry.Len())
		assert.Equal(t, []string{record.ChannelID}, f.gw.DeletedChannels)
	})
}

func TestMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("add grants access to the first mention", func(t *testing.T) {
		gw := staffGateway()
		gw.AwaitNextMessageFunc = func(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error) {
			msg := gateway.Message{ChannelID: channelID, AuthorID: "staff-1", Content: "add them", Mentions: []string{"user-9"}}
			require.True(t, match(msg))
			return &msg, nil
		}
		f := newFixture(gw)

		targetID, err := f.service.AddMember(ctx, "staff-1", "chan-1")
		require.NoError(t, err)
		assert.Equal(t, "user-9", targetID)

		require.Len(t, f.gw.Permissions, 1)
		assert.Equal(t, "user-9", f.gw.Permissions[0].SubjectID)
		assert.True(t, *f.gw.Permissions[0].Permission.Read)
		assert.True(t, *f.gw.Permissions[0].Permission.Write)

		require.Len(t, *f.published, 1)
		assert.Equal(t, events.EventMemberAdded, (*f.published)[0].Type)
	})

	t.Run("remove revokes read access", func(t *testing.T) {
		gw := staffGateway()
		gw.AwaitNextMessageFunc = func(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error) {
			return &gateway.Message{ChannelID: channelID, AuthorID: "staff-1", Mentions: []string{"user-9"}}, nil
		}
		f := newFixture(gw)

		_, err := f.service.RemoveMember(ctx, "staff-1", "chan-1")
		require.NoError(t, err)
		require.Len(t, f.gw.Permissions, 1)
		assert.False(t, *f.gw.Permissions[0].Permission.Read)
	})

	t.Run("wait expiry reports a timeout", func(t *testing.T) {
		gw := staffGateway()
		gw.AwaitNextMessageFunc = func(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error) {
			return nil, util.NewTimedOut("timed out waiting for a message")
		}
		f := newFixture(gw)

		_, err := f.service.AddMember(ctx, "staff-1", "chan-1")
		assert.Equal(t, "TIMED_OUT", util.Code(err))
		assert.Empty(t, f.gw.Permissions)
		assert.Empty(t, *f.published)
	})

	t.Run("message without mentions is rejected", func(t *testing.T) {
		gw := staffGateway()
		gw.AwaitNextMessageFunc = func(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error) {
			return &gateway.Message{ChannelID: channelID, AuthorID: "staff-1", Content: "nobody"}, nil
		}
		f := newFixture(gw)

		_, err := f.service.AddMember(ctx, "staff-1", "chan-1")
		assert.Equal(t, "VALIDATION_FAILED", util.Code(err))
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("every mutation rewrites the snapshot", func(t *testing.T) {
		f := newFixture(staffGateway())

		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)
		_, _, err = f.service.ClaimTicket(ctx, "staff-1", record.ChannelID)
		require.NoError(t, err)
		require.NoError(t, f.service.CloseTicket(ctx, "staff-1", record.ChannelID))

		require.Len(t, f.store.saved, 3)
		last := f.store.saved[2]
		assert.Equal(t, domain.TicketStatusClosed, last.Tickets[record.ChannelID].Status)
		assert.Equal(t, "staff-1", last.Tickets[record.ChannelID].ClaimedBy)
		assert.Equal(t, 1, last.StaffRatings["staff-1"])
	})

	t.Run("save failure never surfaces to the actor", func(t *testing.T) {
		f := newFixture(staffGateway())
		f.store.saveErr = errors.New("disk full")

		record, _, err := f.service.OpenTicket(ctx, "user-1", "alice", "general")
		require.NoError(t, err)

		// in-memory state remains authoritative
		stored, err := f.service.Ticket(record.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	})
}
