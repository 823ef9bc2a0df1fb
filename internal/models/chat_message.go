package models

import "time"

// SenderRole identifies which side of a request wrote a chat message.
type SenderRole string

const (
	SenderRequester SenderRole = "REQUESTER"
	SenderResponder SenderRole = "RESPONDER"
)

// Valid reports whether r is a known role.
func (r SenderRole) Valid() bool {
	return r == SenderRequester || r == SenderResponder
}

// ChatMessage is one entry of a request's chat log. Once stored it is never
// modified; the log only grows.
type ChatMessage struct {
	// ID is a UUIDv7, so ids sort in creation order.
	ID string `gorm:"primaryKey" json:"id"`
	// RequestID is the request this message belongs to.
	RequestID  string     `gorm:"index:idx_request_msg;not null" json:"-"`
	SenderRole SenderRole `gorm:"not null" json:"sender_role"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	Timestamp  time.Time  `gorm:"index:idx_request_msg;not null" json:"timestamp"`
}
