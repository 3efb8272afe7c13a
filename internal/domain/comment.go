package domain

import "time"

// Comment is an immutable entry in a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
