package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReportHandler serves the closed-ticket report.
type ReportHandler struct {
	service *service.TicketService
}

// NewReportHandler constructs handler.
func NewReportHandler(ticketService *service.TicketService) *ReportHandler {
	return &ReportHandler{service: ticketService}
}

// Report GET /report.
func (h *ReportHandler) Report(c *fiber.Ctx) error {
	result, err := h.service.Report(c.UserContext(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketList(result.Tickets, result.Users))
}

// Download GET /report/download sends the report as a CSV attachment.
func (h *ReportHandler) Download(c *fiber.Ctx) error {
	filename, data, err := h.service.DownloadReport(c.UserContext(), actor(c))
	if err != nil {
		return err
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, report.ContentType)
	return c.Send(data)
}
