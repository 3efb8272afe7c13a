package domain

import "time"

// Token describes an issued access token.
type Token struct {
	Value     string
	UserID    string
	ExpiresAt time.Time
}
