package model

import "time"

// Sender vocabulary for audit messages.
const (
	SenderBroker = "Broker"
	SenderDriver = "Driver"
	SenderSystem = "System"
)

// Message is an immutable audit-log entry tied to a negotiation.
type Message struct {
	ID            string    `json:"id"` // ULID
	NegotiationID int64     `json:"negotiation_id"`
	Sender        string    `json:"sender"`
	Body          string    `json:"body"`
	IsRead        bool      `json:"is_read"`
	Timestamp     time.Time `json:"timestamp"`
}
