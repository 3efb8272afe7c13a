package workflow

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DefaultReportWindow is the trailing window for report eligibility.
const DefaultReportWindow = 30 * 24 * time.Hour

var ErrNoReportData = apperrors.NewEmptyResult("no ticket data to download")

// ReportCutoff returns the oldest closing time still inside the window.
func ReportCutoff(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultReportWindow
	}
	return now.Add(-window)
}

// InReport reports whether a ticket belongs in the report generated at now.
func InReport(ticket *domain.Ticket, now time.Time, window time.Duration) bool {
	if ticket.Status != domain.TicketStatusClosed || ticket.ClosedAt == nil {
		return false
	}
	return !ticket.ClosedAt.Before(ReportCutoff(now, window))
}

// SelectReportTickets keeps closed tickets within the trailing window, preserving order.
func SelectReportTickets(tickets []domain.Ticket, now time.Time, window time.Duration) []domain.Ticket {
	selected := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if InReport(&tickets[i], now, window) {
			selected = append(selected, tickets[i])
		}
	}
	return selected
}
