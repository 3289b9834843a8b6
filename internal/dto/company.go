package dto

import (
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
)

// --- Company DTOs ---

// CreateCompanyRequest defines data for registering a new company.
type CreateCompanyRequest struct {
	Name                string  `json:"name" binding:"required"`
	KraPin              string  `json:"kraPin" binding:"required,kra_pin"`
	BranchID            string  `json:"branchID"` // Defaults to "00" (head office) when omitted
	TradeName           string  `json:"tradeName"`
	Address             string  `json:"address"`
	DeviceKey           string  `json:"deviceKey"`
	ReceiptHeaderMsg    string  `json:"receiptHeaderMsg"`
	ReceiptFooterMsg    string  `json:"receiptFooterMsg"`
	QuickBooksRealmID   *string `json:"quickBooksRealmID"`
	DefaultCurrencyCode *string `json:"defaultCurrencyCode" binding:"omitempty,iso4217"`
}

// UpdateCompanyRequest defines the data allowed for updating a company.
// Using pointers to differentiate between omitted fields and zero-value fields.
type UpdateCompanyRequest struct {
	Name              *string `json:"name"`
	TradeName         *string `json:"tradeName"`
	Address           *string `json:"address"`
	DeviceKey         *string `json:"deviceKey"`
	ReceiptHeaderMsg  *string `json:"receiptHeaderMsg"`
	ReceiptFooterMsg  *string `json:"receiptFooterMsg"`
	QuickBooksRealmID *string `json:"quickBooksRealmID"`
}

// CompanyResponse defines data returned for a company. The device key is
// write-only and never included.
type CompanyResponse struct {
	CompanyID           string    `json:"companyID"`
	Name                string    `json:"name"`
	KraPin              string    `json:"kraPin"`
	BranchID            string    `json:"branchID"`
	TradeName           string    `json:"tradeName"`
	Address             string    `json:"address"`
	ReceiptHeaderMsg    string    `json:"receiptHeaderMsg"`
	ReceiptFooterMsg    string    `json:"receiptFooterMsg"`
	QuickBooksRealmID   *string   `json:"quickBooksRealmID,omitempty"`
	DefaultCurrencyCode *string   `json:"defaultCurrencyCode,omitempty"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	CreatedBy           string    `json:"createdBy"` // UserID
	LastUpdatedAt       time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy       string    `json:"lastUpdatedBy"` // UserID
}

// ToCompanyResponse converts domain.Company to DTO.
func ToCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		CompanyID:           c.CompanyID,
		Name:                c.Name,
		KraPin:              c.KraPin,
		BranchID:            c.BranchID,
		TradeName:           c.TradeName,
		Address:             c.Address,
		ReceiptHeaderMsg:    c.ReceiptHeaderMsg,
		ReceiptFooterMsg:    c.ReceiptFooterMsg,
		QuickBooksRealmID:   c.QuickBooksRealmID,
		DefaultCurrencyCode: c.DefaultCurrencyCode,
		IsActive:            c.IsActive,
		CreatedAt:           c.CreatedAt,
		CreatedBy:           c.CreatedBy,
		LastUpdatedAt:       c.LastUpdatedAt,
		LastUpdatedBy:       c.LastUpdatedBy,
	}
}

// ListCompaniesResponse wraps a list of companies.
type ListCompaniesResponse struct {
	Companies []CompanyResponse `json:"companies"`
}

// ToListCompaniesResponse converts a slice of domain.Company to DTO.
func ToListCompaniesResponse(cs []domain.Company) ListCompaniesResponse {
	list := make([]CompanyResponse, len(cs))
	for i, c := range cs {
		list[i] = ToCompanyResponse(&c)
	}
	return ListCompaniesResponse{Companies: list}
}

// --- User Company Membership DTOs ---

// AddUserToCompanyRequest defines data for adding a user to a company.
type AddUserToCompanyRequest struct {
	UserID string                 `json:"userID" binding:"required"`
	Role   domain.UserCompanyRole `json:"role" binding:"required,oneof=ADMIN MEMBER READONLY"`
}

// UpdateUserCompanyRoleRequest defines data for changing a member's role.
type UpdateUserCompanyRoleRequest struct {
	Role domain.UserCompanyRole `json:"role" binding:"required,oneof=ADMIN MEMBER READONLY"`
}

// UserCompanyResponse defines data returned about a user's membership.
type UserCompanyResponse struct {
	UserID    string                 `json:"userID"`
	UserName  string                 `json:"userName,omitempty"`
	CompanyID string                 `json:"companyID"`
	Role      domain.UserCompanyRole `json:"role"`
	JoinedAt  time.Time              `json:"joinedAt"`
}

// ToUserCompanyResponse converts domain.UserCompany to DTO.
func ToUserCompanyResponse(uc *domain.UserCompany) UserCompanyResponse {
	return UserCompanyResponse{
		UserID:    uc.UserID,
		UserName:  uc.UserName,
		CompanyID: uc.CompanyID,
		Role:      uc.Role,
		JoinedAt:  uc.JoinedAt,
	}
}

// ListCompanyUsersResponse wraps the members of a company.
type ListCompanyUsersResponse struct {
	Users []UserCompanyResponse `json:"users"`
}

// ToListCompanyUsersResponse converts a slice of domain.UserCompany to DTO.
func ToListCompanyUsersResponse(ucs []domain.UserCompany) ListCompanyUsersResponse {
	list := make([]UserCompanyResponse, len(ucs))
	for i, uc := range ucs {
		list[i] = ToUserCompanyResponse(&uc)
	}
	return ListCompanyUsersResponse{Users: list}
}
