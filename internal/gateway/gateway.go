package gateway

import (
	"context"
	"time"
)

// OverwriteSubject identifies what kind of principal a permission overwrite
// targets.
type OverwriteSubject string

const (
	SubjectEveryone OverwriteSubject = "everyone"
	SubjectMember   OverwriteSubject = "member"
	SubjectRole     OverwriteSubject = "role"
)

// EveryoneID is the reserved subject id addressing the guild-wide role in
// SetPermission calls.
const EveryoneID = "everyone"

// Permission is a tri-state read/write overwrite; nil leaves the platform
// default untouched.
type Permission struct {
	Read  *bool `json:"read,omitempty"`
	Write *bool `json:"write,omitempty"`
}

// Bool returns a pointer for overwrite literals.
func Bool(v bool) *bool {
	return &v
}

// Overwrite grants or denies channel access for one subject.
type Overwrite struct {
	Subject    OverwriteSubject `json:"subject"`
	SubjectID  string           `json:"subject_id,omitempty"`
	Permission Permission       `json:"permission"`
}

// Message is a channel message received from or fetched through the
// platform.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Mentions  []string  `json:"mentions,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Interaction is a slash-command invocation or component press.
type Interaction struct {
	ID        string   `json:"id"`
	ActorID   string   `json:"actor_id"`
	ActorName string   `json:"actor_name"`
	ChannelID string   `json:"channel_id"`
	Values    []string `json:"values,omitempty"`
}

// ComponentType enumerates interactive component kinds.
type ComponentType string

const (
	ComponentButton ComponentType = "button"
	ComponentSelect ComponentType = "select"
)

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Component describes an interactive component attached to a message.
type Component struct {
	Type        ComponentType  `json:"type"`
	CustomID    string         `json:"custom_id"`
	Label       string         `json:"label,omitempty"`
	Style       string         `json:"style,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
}

// CommandHandler handles a slash-command interaction.
type CommandHandler func(context.Context, *Interaction) error

// ComponentHandler handles a component interaction.
type ComponentHandler func(context.Context, *Interaction) error

// Gateway is the chat-platform capability surface the core consumes. The
// bot never talks to the platform except through this boundary.
type Gateway interface {
	CreateChannel(ctx context.Context, name string, overwrites []Overwrite, parentID string) (string, error)
	SetPermission(ctx context.Context, channelID, subjectID string, perm Permission) error
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID, content string, components ...Component) error
	Reply(ctx context.Context, interaction *Interaction, content string, ephemeral bool) error
	AwaitNextMessage(ctx context.Context, channelID string, match func(Message) bool, timeout time.Duration) (*Message, error)
	ChannelHistory(ctx context.Context, channelID string, limit int) ([]Message, error)
	RegisterCommand(name, description string, handler CommandHandler)
	RegisterComponentHandler(customID string, handler ComponentHandler)
	HasRole(ctx context.Context, userID, roleID string) (bool, error)
	GuildIconURL(ctx context.Context) (string, error)
}
