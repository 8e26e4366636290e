package domain

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
	TicketStatusLocked TicketStatus = "locked"
)

// TicketRecord is the lifecycle record attached to a ticket channel.
// ChannelID, CreatorID and Category are immutable once created; ClaimedBy
// is monotonic: once set it is never cleared again.
type TicketRecord struct {
	ChannelID string       `json:"-"`
	CreatorID string       `json:"creator"`
	Category  CategoryKey  `json:"category"`
	Status    TicketStatus `json:"status"`
	ClaimedBy string       `json:"claimed_by,omitempty"`
}

// Claimed reports whether a staff member has taken ownership.
func (t TicketRecord) Claimed() bool {
	return t.ClaimedBy != ""
}
