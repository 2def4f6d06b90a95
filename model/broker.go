package model

import "strconv"

// BrokerEmail is one ranked contact address for a carrier MC number.
type BrokerEmail struct {
	ID         int64    `json:"id"`
	MCNumber   string   `json:"mc_number"`
	Email      string   `json:"email"`
	Source     *string  `json:"source,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
