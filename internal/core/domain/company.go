package domain

import "time"

// Company represents a tenant: one QuickBooks-connected business whose
// documents are mirrored and submitted to the tax authority.
type Company struct {
	CompanyID           string  `json:"companyID"`           // Primary Key (e.g., UUID)
	Name                string  `json:"name"`                // Display name of the business
	KraPin              string  `json:"kraPin"`              // KRA taxpayer PIN used on submissions
	BranchID            string  `json:"branchID"`            // eTIMS branch office id (e.g., "00")
	TradeName           string  `json:"tradeName"`           // Registered trading name printed on receipts
	Address             string  `json:"address"`             // Physical address printed on receipts
	DeviceKey           string  `json:"-"`                   // eTIMS communication key, never exposed in JSON
	ReceiptHeaderMsg    string  `json:"receiptHeaderMsg"`    // Fixed header message for receipts
	ReceiptFooterMsg    string  `json:"receiptFooterMsg"`    // Fixed footer message for receipts
	QuickBooksRealmID   *string `json:"quickBooksRealmID"`   // QuickBooks company (realm) id, set once connected
	DefaultCurrencyCode *string `json:"defaultCurrencyCode"` // Default currency code for this company (e.g., "KES")
	IsActive            bool    `json:"isActive"`            // Indicates whether the company is active or disabled
	Version             int64   `json:"version"`             // Optimistic locking version
	AuditFields                 // Embed common audit fields
}

// AuthorityCredentials are the header credentials the tax authority expects
// on every transport call.
type AuthorityCredentials struct {
	Pin       string // taxpayer PIN (tin header)
	BranchID  string // branch office id (bhfId header)
	DeviceKey string // communication key (cmcKey header)
}

// Credentials returns the authority header credentials for this company.
func (c *Company) Credentials() AuthorityCredentials {
	return AuthorityCredentials{
		Pin:       c.KraPin,
		BranchID:  c.BranchID,
		DeviceKey: c.DeviceKey,
	}
}

// UserCompanyRole defines the possible roles a user can have within a company.
type UserCompanyRole string

const (
	RoleAdmin    UserCompanyRole = "ADMIN"
	RoleMember   UserCompanyRole = "MEMBER"
	RoleReadOnly UserCompanyRole = "READONLY" // Users with read-only access to company data
	RoleRemoved  UserCompanyRole = "REMOVED"  // For users who have been removed from the company
)

// UserCompany represents the membership of a User in a Company.
type UserCompany struct {
	UserID    string          `json:"userID"`    // FK -> users.user_id
	UserName  string          `json:"userName"`  // Name of the user
	CompanyID string          `json:"companyID"` // FK -> companies.company_id
	Role      UserCompanyRole `json:"role"`      // Role of the user in this specific company
	JoinedAt  time.Time       `json:"joinedAt"`  // Timestamp when the user joined the company
}
