package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ContentType is the media type of a rendered report.
const ContentType = "text/csv"

var (
	baseHeader  = []string{"Date", "Title", "Description", "Creator", "Status", "Comments"}
	adminHeader = []string{"Processed By", "Processed At", "Closed By", "Closed At"}
)

// Filename names a report generated at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("Report-%d.csv", now.UnixMilli())
}

// WriteCSV renders tickets as CSV. Users resolves the ids referenced by the
// tickets to accounts so rows can show emails; unknown ids render empty.
// The processing and closing columns are only written when extended is set.
func WriteCSV(tickets []domain.Ticket, users map[string]*domain.User, extended bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{}, baseHeader...)
	if extended {
		header = append(header, adminHeader...)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range tickets {
		t := &tickets[i]
		row := []string{
			formatTime(&t.CreatedAt),
			t.Title,
			t.Description,
			email(users, &t.CreatorID),
			string(t.Status),
			strconv.Itoa(len(t.Comments)),
		}
		if extended {
			row = append(row,
				email(users, t.ProcessedByID),
				formatTime(t.ProcessedAt),
				email(users, t.ClosedByID),
				formatTime(t.ClosedAt),
			)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func email(users map[string]*domain.User, id *string) string {
	if id == nil {
		return ""
	}
	if user, ok := users[*id]; ok && user != nil {
		return user.Email
	}
	return ""
}

func formatTime(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
