package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStaleTicket means the ticket status changed between read and write.
	ErrStaleTicket = errors.New("ticket status changed concurrently")
	// ErrDuplicate means a unique column already holds the value.
	ErrDuplicate = errors.New("duplicate value")
)

const uniqueViolation = "23505"

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// validID reports whether id can name a row. Ids that are not UUIDs would
// make postgres reject the query, so lookups treat them as absent.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
