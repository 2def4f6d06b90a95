package model

import "time"

// Negotiation statuses this core reads or writes. Ingestion owns the rest
// of the lifecycle; the routing core never reopens a closed negotiation.
const (
	StatusActive             = "ACTIVE"
	StatusClosingStance      = "CLOSING_STANCE"
	StatusManual             = "Manual"
	StatusManualReview       = "MANUAL_REVIEW"
	StatusClosed             = "CLOSED"
	StatusClosedPendingEmail = "CLOSED_PENDING_EMAIL"
	StatusRateConReceived    = "RATE_CON_RECEIVED"
	StatusRateConSigned      = "RATE_CON_SIGNED"
)

type Negotiation struct {
	ID                   int64     `json:"id"`
	LoadID               int64     `json:"load_id"`
	DriverID             int64     `json:"driver_id"`
	BrokerMCNumber       string    `json:"broker_mc_number"`
	BrokerEmail          *string   `json:"broker_email,omitempty"` // Nullable; direct address wins over lookup
	Status               string    `json:"status"`
	CurrentOffer         *float64  `json:"current_offer,omitempty"`
	DistanceMiles        float64   `json:"distance_miles"`
	RateConPath          *string   `json:"rate_con_path,omitempty"`
	PendingReviewSubject *string   `json:"pending_review_subject,omitempty"`
	PendingReviewBody    *string   `json:"pending_review_body,omitempty"`
	PendingReviewAction  *string   `json:"pending_review_action,omitempty"`
	PendingReviewPrice   *float64  `json:"pending_review_price,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
