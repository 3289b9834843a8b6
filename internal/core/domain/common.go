package domain

import "time"

// AuditFields is embedded by every persisted entity. CreatedBy and
// LastUpdatedBy hold user IDs, or "system" for rows the application creates
// on its own, such as lazily initialized document counters.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}
