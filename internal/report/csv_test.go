package report

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func fixture() ([]domain.Ticket, map[string]*domain.User) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	processed := created.Add(time.Hour)
	closed := created.Add(2 * time.Hour)
	tickets := []domain.Ticket{{
		ID:            "t1",
		CreatorID:     "c1",
		Title:         "Printer, again",
		Description:   "It \"jams\"",
		Status:        domain.TicketStatusClosed,
		ProcessedByID: strPtr("a1"),
		ProcessedAt:   &processed,
		ClosedByID:    strPtr("a1"),
		ClosedAt:      &closed,
		Comments:      []domain.Comment{{ID: "m1"}, {ID: "m2"}},
		CreatedAt:     created,
	}}
	users := map[string]*domain.User{
		"c1": {ID: "c1", Email: "customer@example.com"},
		"a1": {ID: "a1", Email: "agent@example.com"},
	}
	return tickets, users
}

func parse(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSVBaseColumns(t *testing.T) {
	tickets, users := fixture()
	data, err := WriteCSV(tickets, users, false)
	require.NoError(t, err)

	records := parse(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Date", "Title", "Description", "Creator", "Status", "Comments"}, records[0])
	assert.Equal(t, []string{"2024-03-01T09:00:00Z", "Printer, again", "It \"jams\"", "customer@example.com", "closed", "2"}, records[1])
}

func TestWriteCSVExtendedColumns(t *testing.T) {
	tickets, users := fixture()
	data, err := WriteCSV(tickets, users, true)
	require.NoError(t, err)

	records := parse(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Processed By", "Processed At", "Closed By", "Closed At"}, records[0][6:])
	assert.Equal(t, []string{"agent@example.com", "2024-03-01T10:00:00Z", "agent@example.com", "2024-03-01T11:00:00Z"}, records[1][6:])
}

func TestWriteCSVUnknownUsersRenderEmpty(t *testing.T) {
	tickets, _ := fixture()
	tickets[0].ProcessedByID = nil
	tickets[0].ProcessedAt = nil
	data, err := WriteCSV(tickets, map[string]*domain.User{}, true)
	require.NoError(t, err)

	row := parse(t, data)[1]
	assert.Equal(t, "", row[3])
	assert.Equal(t, "", row[6])
	assert.Equal(t, "", row[7])
}

func TestFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "Report-1700000000123.csv", Filename(now))
}
