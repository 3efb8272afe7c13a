package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserResponse is the public shape of an account. The password hash is never
// serialized.
type UserResponse struct {
	Object       string    `json:"object"`
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registeredAt"`
	IsAdmin      bool      `json:"isAdmin"`
	IsAgent      bool      `json:"isAgent"`
}

// AuthResponse standard response for signup and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NewUserResponse serializes a user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		Object:       "user",
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		RegisteredAt: user.CreatedAt,
		IsAdmin:      user.IsAdmin,
		IsAgent:      user.IsAgent,
	}
}

// NewUserList serializes users, never returning a nil slice.
func NewUserList(users []domain.User) []UserResponse {
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, NewUserResponse(&users[i]))
	}
	return result
}

// NewAuthResponse serializes a signed-in user and their token.
func NewAuthResponse(user *domain.User, token domain.Token) AuthResponse {
	return AuthResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      NewUserResponse(user),
	}
}
