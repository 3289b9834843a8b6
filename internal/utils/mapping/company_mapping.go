package mapping

import (
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
)

// ToModelCompany converts a domain Company to a model Company
func ToModelCompany(d domain.Company) models.Company {
	return models.Company{
		CompanyID:           d.CompanyID,
		Name:                d.Name,
		KraPin:              d.KraPin,
		BranchID:            d.BranchID,
		TradeName:           d.TradeName,
		Address:             d.Address,
		DeviceKey:           d.DeviceKey,
		ReceiptHeaderMsg:    d.ReceiptHeaderMsg,
		ReceiptFooterMsg:    d.ReceiptFooterMsg,
		QuickBooksRealmID:   d.QuickBooksRealmID,
		DefaultCurrencyCode: d.DefaultCurrencyCode,
		IsActive:            d.IsActive,
		Version:             d.Version,
		AuditFields:         ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCompany converts a model Company to a domain Company
func ToDomainCompany(m models.Company) domain.Company {
	return domain.Company{
		CompanyID:           m.CompanyID,
		Name:                m.Name,
		KraPin:              m.KraPin,
		BranchID:            m.BranchID,
		TradeName:           m.TradeName,
		Address:             m.Address,
		DeviceKey:           m.DeviceKey,
		ReceiptHeaderMsg:    m.ReceiptHeaderMsg,
		ReceiptFooterMsg:    m.ReceiptFooterMsg,
		QuickBooksRealmID:   m.QuickBooksRealmID,
		DefaultCurrencyCode: m.DefaultCurrencyCode,
		IsActive:            m.IsActive,
		Version:             m.Version,
		AuditFields:         ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainUserCompany converts a model UserCompany to a domain UserCompany
func ToDomainUserCompany(m models.UserCompany) domain.UserCompany {
	return domain.UserCompany{
		UserID:    m.UserID,
		CompanyID: m.CompanyID,
		Role:      domain.UserCompanyRole(m.Role),
		JoinedAt:  m.JoinedAt,
	}
}
