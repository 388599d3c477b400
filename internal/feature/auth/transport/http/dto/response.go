package dto

import "time"

// ErrorRes is the body of every error response. Code is a domain.Kind.
type ErrorRes struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MessageRes is a plain acknowledgement.
type MessageRes struct {
	Message string `json:"message"`
}

// UserRes represents the authenticated user.
type UserRes struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Avatar    *string   `json:"avatar"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}
