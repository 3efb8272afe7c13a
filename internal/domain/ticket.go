package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusProcessing TicketStatus = "processing"
	TicketStatusClosed     TicketStatus = "closed"
)

// Ticket is a support request raised by a customer.
type Ticket struct {
	ID            string
	CreatorID     string
	Title         string
	Description   string
	Status        TicketStatus
	ProcessedByID *string
	ProcessedAt   *time.Time
	ClosedByID    *string
	ClosedAt      *time.Time
	Comments      []Comment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t *Ticket) IsOpen() bool       { return t.Status == TicketStatusOpen }
func (t *Ticket) IsProcessing() bool { return t.Status == TicketStatusProcessing }
func (t *Ticket) IsClosed() bool     { return t.Status == TicketStatusClosed }

// HasComments reports whether anyone has spoken on the thread yet.
func (t *Ticket) HasComments() bool {
	return len(t.Comments) > 0
}
