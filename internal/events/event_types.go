package events

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketClaimed EventType = "ticket_claimed"
	EventTicketClosed  EventType = "ticket_closed"
	EventTicketLocked  EventType = "ticket_locked"
	EventTicketDeleted EventType = "ticket_deleted"
	EventMemberAdded   EventType = "member_added"
	EventMemberRemoved EventType = "member_removed"
)

// Event represents a lifecycle event emitted by the orchestrator.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ChannelID string      `json:"channel_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatorID string             `json:"creator_id"`
	Category  domain.CategoryKey `json:"category"`
	Label     string             `json:"label"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	StaffID string `json:"staff_id"`
	Rating  int    `json:"rating"`
}

// TicketStatusPayload payload for close/lock events.
type TicketStatusPayload struct {
	Status domain.TicketStatus `json:"status"`
}

// MemberPayload payload for membership audit events.
type MemberPayload struct {
	TargetID string `json:"target_id"`
}
