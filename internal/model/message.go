package model

import "time"

// Message represents a message between two users in the database.
type Message struct {
	ID           int64
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       time.Time
	ReadAt       *time.Time

	// Joined sender/recipient details, populated on detail reads.
	FromUser *UserSummary
	ToUser   *UserSummary
}

// SendMessageRequest represents a request to send a message. The sender is
// taken from the authenticated caller, never from the body.
type SendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID       int64        `json:"id"`
	Body     string       `json:"body"`
	SentAt   time.Time    `json:"sent_at"`
	ReadAt   *time.Time   `json:"read_at,omitempty"`
	FromUser *UserSummary `json:"from_user,omitempty"`
	ToUser   *UserSummary `json:"to_user,omitempty"`
}
