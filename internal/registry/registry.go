package registry

import (
	"sync"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// Registry is the authoritative in-memory map of ticket records keyed by
// channel id. It enforces the ticket state machine. All checks and mutations
// happen under a single mutex, so precondition checks (an unclaimed ticket,
// a not-yet-closed status) and the corresponding write are one atomic step.
type Registry struct {
	mu      sync.Mutex
	tickets map[string]*domain.TicketRecord
}

// New creates a registry seeded from a persisted snapshot. A nil seed starts
// empty.
func New(seed map[string]domain.TicketRecord) *Registry {
	tickets := make(map[string]*domain.TicketRecord, len(seed))
	for channelID, record := range seed {
		copied := record
		copied.ChannelID = channelID
		tickets[channelID] = &copied
	}
	return &Registry{tickets: tickets}
}

// Create registers a new open, unclaimed ticket for the channel.
func (r *Registry) Create(channelID, creatorID string, category domain.CategoryKey) (*domain.TicketRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[channelID]; exists {
		return nil, util.NewDuplicateTicket(channelID)
	}
	record := &domain.TicketRecord{
		ChannelID: channelID,
		CreatorID: creatorID,
		Category:  category,
		Status:    domain.TicketStatusOpen,
	}
	r.tickets[channelID] = record
	copied := *record
	return &copied, nil
}

// Claim assigns the ticket to staffID. There is deliberately no status
// precondition: an unclaimed closed or locked ticket can still be claimed.
// Once claimed, a ticket never becomes unclaimed again.
func (r *Registry) Claim(channelID, staffID string) (*domain.TicketRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.tickets[channelID]
	if !exists {
		return nil, util.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	if record.Claimed() {
		return nil, util.NewAlreadyClaimed(record.ClaimedBy)
	}
	record.ClaimedBy = staffID
	copied := *record
	return &copied, nil
}

// Close moves the ticket to closed. Valid from open and locked.
func (r *Registry) Close(channelID string) (*domain.TicketRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.tickets[channelID]
	if !exists {
		return nil, util.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	if record.Status == domain.TicketStatusClosed {
		return nil, util.NewAlreadyClosed()
	}
	record.Status = domain.TicketStatusClosed
	copied := *record
	return &copied, nil
}

// Lock moves the ticket to locked. Valid from open and closed.
func (r *Registry) Lock(channelID string) (*domain.TicketRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.tickets[channelID]
	if !exists {
		return nil, util.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	if record.Status == domain.TicketStatusLocked {
		return nil, util.NewAlreadyLocked()
	}
	record.Status = domain.TicketStatusLocked
	copied := *record
	return &copied, nil
}

// Delete removes the record entirely. Irreversible, no status precondition.
func (r *Registry) Delete(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, channelID)
}

// Get returns a copy of the record for the channel.
func (r *Registry) Get(channelID string) (*domain.TicketRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.tickets[channelID]
	if !exists {
		return nil, util.NewNotFound("ticket", map[string]any{"channel_id": channelID})
	}
	copied := *record
	return &copied, nil
}

// Len returns the number of tracked tickets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

// Export returns a deep copy of all records for persistence.
func (r *Registry) Export() map[string]domain.TicketRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]domain.TicketRecord, len(r.tickets))
	for channelID, record := range r.tickets {
		out[channelID] = *record
	}
	return out
}
