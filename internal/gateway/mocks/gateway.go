package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/gateway"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// MockGateway is a hand-written test double for gateway.Gateway. Behavior
// is supplied through the Func fields; unset fields succeed with zero
// values. Sent messages and permission calls are recorded for assertions.
type MockGateway struct {
	mu sync.Mutex

	CreateChannelFunc    func(ctx context.Context, name string, overwrites []gateway.Overwrite, parentID string) (string, error)
	SetPermissionFunc    func(ctx context.Context, channelID, subjectID string, perm gateway.Permission) error
	DeleteChannelFunc    func(ctx context.Context, channelID string) error
	SendMessageFunc      func(ctx context.Context, channelID, content string, components ...gateway.Component) error
	ReplyFunc            func(ctx context.Context, interaction *gateway.Interaction, content string, ephemeral bool) error
	AwaitNextMessageFunc func(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error)
	ChannelHistoryFunc   func(ctx context.Context, channelID string, limit int) ([]gateway.Message, error)
	HasRoleFunc          func(ctx context.Context, userID, roleID string) (bool, error)
	GuildIconURLFunc     func(ctx context.Context) (string, error)

	CreatedChannels []string
	SentMessages    []SentMessage
	Replies         []Reply
	Permissions     []PermissionCall
	DeletedChannels []string
	Commands        map[string]gateway.CommandHandler
	Components      map[string]gateway.ComponentHandler
}

// SentMessage records one SendMessage call.
type SentMessage struct {
	ChannelID  string
	Content    string
	Components []gateway.Component
}

// Reply records one Reply call.
type Reply struct {
	Content   string
	Ephemeral bool
}

// PermissionCall records one SetPermission call.
type PermissionCall struct {
	ChannelID  string
	SubjectID  string
	Permission gateway.Permission
}

func (m *MockGateway) CreateChannel(ctx context.Context, name string, overwrites []gateway.Overwrite, parentID string) (string, error) {
	if m.CreateChannelFunc != nil {
		id, err := m.CreateChannelFunc(ctx, name, overwrites, parentID)
		if err == nil {
			m.record(func() { m.CreatedChannels = append(m.CreatedChannels, id) })
		}
		return id, err
	}
	id := "channel-" + name
	m.record(func() { m.CreatedChannels = append(m.CreatedChannels, id) })
	return id, nil
}

func (m *MockGateway) SetPermission(ctx context.Context, channelID, subjectID string, perm gateway.Permission) error {
	m.record(func() {
		m.Permissions = append(m.Permissions, PermissionCall{ChannelID: channelID, SubjectID: subjectID, Permission: perm})
	})
	if m.SetPermissionFunc != nil {
		return m.SetPermissionFunc(ctx, channelID, subjectID, perm)
	}
	return nil
}

func (m *MockGateway) DeleteChannel(ctx context.Context, channelID string) error {
	m.record(func() { m.DeletedChannels = append(m.DeletedChannels, channelID) })
	if m.DeleteChannelFunc != nil {
		return m.DeleteChannelFunc(ctx, channelID)
	}
	return nil
}

func (m *MockGateway) SendMessage(ctx context.Context, channelID, content string, components ...gateway.Component) error {
	m.record(func() {
		m.SentMessages = append(m.SentMessages, SentMessage{ChannelID: channelID, Content: content, Components: components})
	})
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, channelID, content, components...)
	}
	return nil
}

func (m *MockGateway) Reply(ctx context.Context, interaction *gateway.Interaction, content string, ephemeral bool) error {
	m.record(func() { m.Replies = append(m.Replies, Reply{Content: content, Ephemeral: ephemeral}) })
	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, interaction, content, ephemeral)
	}
	return nil
}

func (m *MockGateway) AwaitNextMessage(ctx context.Context, channelID string, match func(gateway.Message) bool, timeout time.Duration) (*gateway.Message, error) {
	if m.AwaitNextMessageFunc != nil {
		return m.AwaitNextMessageFunc(ctx, channelID, match, timeout)
	}
	return nil, util.NewTimedOut("timed out waiting for a message")
}

func (m *MockGateway) ChannelHistory(ctx context.Context, channelID string, limit int) ([]gateway.Message, error) {
	if m.ChannelHistoryFunc != nil {
		return m.ChannelHistoryFunc(ctx, channelID, limit)
	}
	return nil, nil
}

func (m *MockGateway) RegisterCommand(name, description string, handler gateway.CommandHandler) {
	m.record(func() {
		if m.Commands == nil {
			m.Commands = make(map[string]gateway.CommandHandler)
		}
		m.Commands[name] = handler
	})
}

func (m *MockGateway) RegisterComponentHandler(customID string, handler gateway.ComponentHandler) {
	m.record(func() {
		if m.Components == nil {
			m.Components = make(map[string]gateway.ComponentHandler)
		}
		m.Components[customID] = handler
	})
}

func (m *MockGateway) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	if m.HasRoleFunc != nil {
		return m.HasRoleFunc(ctx, userID, roleID)
	}
	return false, nil
}

func (m *MockGateway) GuildIconURL(ctx context.Context) (string, error) {
	if m.GuildIconURLFunc != nil {
		return m.GuildIconURLFunc(ctx)
	}
	return "", nil
}

func (m *MockGateway) record(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}
