package model

// Load is read-only to this core.
type Load struct {
	ID             int64   `json:"id"`
	RefID          string  `json:"ref_id"` // Human-readable reference, e.g. TS-123
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	MCNumber       *string `json:"mc_number,omitempty"`
	SourcePlatform *string `json:"source_platform,omitempty"`
	Price          *string `json:"price,omitempty"` // Informational only, stored raw ("$2,400")
}

// Ref returns the reference id, falling back to the numeric id.
func (l *Load) Ref() string {
	if l == nil {
		return ""
	}
	if l.RefID != "" {
		return l.RefID
	}
	return itoa(l.ID)
}
