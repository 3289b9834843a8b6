package models

import "time"

// Company represents a tenant row with its tax authority identity.
type Company struct {
	CompanyID           string  `db:"company_id"`
	Name                string  `db:"name"`
	KraPin              string  `db:"kra_pin"`
	BranchID            string  `db:"branch_id"`
	TradeName           string  `db:"trade_name"`
	Address             string  `db:"address"`
	DeviceKey           string  `db:"device_key"`
	ReceiptHeaderMsg    string  `db:"receipt_header_msg"`
	ReceiptFooterMsg    string  `db:"receipt_footer_msg"`
	QuickBooksRealmID   *string `db:"quickbooks_realm_id"` // Nullable until QuickBooks is connected
	DefaultCurrencyCode *string `db:"default_currency_code"`
	IsActive            bool    `db:"is_active"`
	Version             int64   `db:"version"`
	AuditFields
}

// UserCompany represents a user's membership row in a company.
type UserCompany struct {
	UserID    string    `db:"user_id"`
	CompanyID string    `db:"company_id"`
	Role      string    `db:"role"`
	JoinedAt  time.Time `db:"joined_at"`
}
