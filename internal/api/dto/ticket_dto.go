package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketResponse provides full ticket info. Referenced users are embedded
// when they can be resolved and null otherwise.
type TicketResponse struct {
	Object      string              `json:"object"`
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Creator     *UserResponse       `json:"creator"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	ProcessedBy *UserResponse       `json:"processedBy"`
	ProcessedAt *time.Time          `json:"processedAt"`
	ClosedBy    *UserResponse       `json:"closedBy"`
	ClosedAt    *time.Time          `json:"closedAt"`
	Comments    []CommentResponse   `json:"comments"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	Object    string    `json:"object"`
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Ticket    string    `json:"ticket"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTicketResponse serializes a ticket using users to embed its creator,
// processor and closer.
func NewTicketResponse(ticket *domain.Ticket, users map[string]*domain.User) TicketResponse {
	creatorID := ticket.CreatorID
	return TicketResponse{
		Object:      "ticket",
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Creator:     embedUser(users, &creatorID),
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		ProcessedBy: embedUser(users, ticket.ProcessedByID),
		ProcessedAt: ticket.ProcessedAt,
		ClosedBy:    embedUser(users, ticket.ClosedByID),
		ClosedAt:    ticket.ClosedAt,
		Comments:    NewCommentList(ticket.Comments),
	}
}

// NewTicketList serializes tickets, never returning a nil slice.
func NewTicketList(tickets []domain.Ticket, users map[string]*domain.User) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, NewTicketResponse(&tickets[i], users))
	}
	return result
}

// NewCommentResponse serializes a comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		Object:    "comment",
		ID:        comment.ID,
		Body:      comment.Body,
		Ticket:    comment.TicketID,
		CreatedBy: comment.AuthorID,
		CreatedAt: comment.CreatedAt,
	}
}

// NewCommentList serializes comments in thread order.
func NewCommentList(comments []domain.Comment) []CommentResponse {
	result := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		result = append(result, NewCommentResponse(&comments[i]))
	}
	return result
}

func embedUser(users map[string]*domain.User, id *string) *UserResponse {
	if id == nil {
		return nil
	}
	user, ok := users[*id]
	if !ok || user == nil {
		return nil
	}
	resp := NewUserResponse(user)
	return &resp
}
