package domain

import "time"

// APIToken is a machine credential for the x-api-key header, used by the
// QuickBooks sync collaborator. Only the SHA256 of the opaque token is
// stored; the plaintext is shown once at creation.
type APIToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"-"` // Soft delete; revoked tokens stay auditable
}

// IsExpired reports whether the token is past its expiry. Tokens without an
// expiry never expire.
func (t *APIToken) IsExpired() bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(time.Now())
}

// UpdateLastUsed stamps the token with the current time.
func (t *APIToken) UpdateLastUsed() {
	now := time.Now()
	t.LastUsedAt = &now
}
