package model

// Driver carries the pricing settings the negotiation core reads. Profile,
// billing and onboarding fields live with the CRUD collaborator.
type Driver struct {
	ID               int64    `json:"id"`
	Email            string   `json:"email"`
	DisplayName      string   `json:"display_name"`
	DispatchHandle   *string  `json:"dispatch_handle,omitempty"`
	MinCPM           *float64 `json:"min_cpm,omitempty"`
	MinFlatRate      *float64 `json:"min_flat_rate,omitempty"`
	AutoNegotiate    bool     `json:"auto_negotiate"`
	ReviewBeforeSend bool     `json:"review_before_send"`
	NotifyOnDecline  bool     `json:"notify_on_decline"`
}

// MinCPMValue returns the configured rate-per-mile floor, 0 when unset.
func (d *Driver) MinCPMValue() float64 {
	if d == nil || d.MinCPM == nil {
		return 0
	}
	return *d.MinCPM
}

// MinFlatRateValue returns the configured flat floor, 0 when unset.
func (d *Driver) MinFlatRateValue() float64 {
	if d == nil || d.MinFlatRate == nil {
		return 0
	}
	return *d.MinFlatRate
}
