package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/validation"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket and comment endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req validation.TicketInput
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor(c), req)
	if err != nil {
		return err
	}
	return h.respondTicket(c, http.StatusCreated, ticket)
}

// ListTickets GET /tickets returns the caller's own tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListOwnTickets(c.UserContext(), actor(c))
	if err != nil {
		return err
	}
	users, err := h.service.ResolveUsers(c.UserContext(), tickets...)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketList(tickets, users))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respondTicket(c, http.StatusOK, ticket)
}

// ProcessTicket PATCH /tickets/:id/process.
func (h *TicketsHandler) ProcessTicket(c *fiber.Ctx) error {
	ticket, err := h.service.ProcessTicket(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respondTicket(c, http.StatusOK, ticket)
}

// CloseTicket PATCH /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	ticket, err := h.service.CloseTicket(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respondTicket(c, http.StatusOK, ticket)
}

// ResetTicket PATCH /tickets/:id/reset.
func (h *TicketsHandler) ResetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.ResetTicket(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respondTicket(c, http.StatusOK, ticket)
}

// DeleteTicket DELETE /tickets/:id returns the removed ticket.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	ticket, err := h.service.DeleteTicket(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respondTicket(c, http.StatusOK, ticket)
}

// CreateComment POST /tickets/:id/comments.
func (h *TicketsHandler) CreateComment(c *fiber.Ctx) error {
	var req validation.CommentInput
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewCommentResponse(comment))
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.service.ListComments(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCommentList(comments))
}

func (h *TicketsHandler) respondTicket(c *fiber.Ctx, status int, ticket *domain.Ticket) error {
	users, err := h.service.ResolveUsers(c.UserContext(), *ticket)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(dto.NewTicketResponse(ticket, users))
}

// actor returns the authenticated user, or nil so the service reports the
// caller as unauthenticated.
func actor(c *fiber.Ctx) *domain.User {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return nil
	}
	return user
}
