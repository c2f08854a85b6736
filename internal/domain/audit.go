package domain

// AuditLocation identifies the polling booth an audit record refers to.
type AuditLocation struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Assembly    string `json:"assembly"`
	BoothNumber string `json:"boothNumber"`
}

// AuditRecord is a voter-roll discrepancy report collected by the chatbot.
type AuditRecord struct {
	ImageURLs   []string      `json:"imageUrls"`
	Description string        `json:"description"`
	Location    AuditLocation `json:"location"`
}

// AuditUser is the voter-audit participant profile returned by the upstream API.
type AuditUser struct {
	ID          string `json:"_id,omitempty"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	State       string `json:"state"`
	District    string `json:"district"`
	Assembly    string `json:"assembly"`
	BoothNumber string `json:"boothNumber"`
}
