package mapping

import (
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
)

// ToModelInvoice converts a domain Invoice to a model Invoice
func ToModelInvoice(d domain.Invoice) models.Invoice {
	return models.Invoice{
		InvoiceID:       d.InvoiceID,
		CompanyID:       d.CompanyID,
		QuickBooksID:    d.QuickBooksID,
		DocumentNumber:  d.DocumentNumber,
		TransactionDate: d.TransactionDate,
		TotalAmt:        d.TotalAmt,
		Balance:         d.Balance,
		Subtotal:        d.Subtotal,
		TaxTotal:        d.TaxTotal,
		TaxRateRef:      d.TaxRateRef,
		TaxPercent:      d.TaxPercent,
		CurrencyCode:    d.CurrencyCode,
		ExchangeRate:    d.ExchangeRate,
		CustomerName:    d.CustomerName,
		CustomerPin:     d.CustomerPin,
		Validated:       d.Validated,
		Version:         d.Version,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainInvoice converts a model Invoice to a domain Invoice
func ToDomainInvoice(m models.Invoice) domain.Invoice {
	return domain.Invoice{
		InvoiceID:       m.InvoiceID,
		CompanyID:       m.CompanyID,
		QuickBooksID:    m.QuickBooksID,
		DocumentNumber:  m.DocumentNumber,
		TransactionDate: m.TransactionDate,
		TotalAmt:        m.TotalAmt,
		Balance:         m.Balance,
		Subtotal:        m.Subtotal,
		TaxTotal:        m.TaxTotal,
		TaxRateRef:      m.TaxRateRef,
		TaxPercent:      m.TaxPercent,
		CurrencyCode:    m.CurrencyCode,
		ExchangeRate:    m.ExchangeRate,
		CustomerName:    m.CustomerName,
		CustomerPin:     m.CustomerPin,
		Validated:       m.Validated,
		Version:         m.Version,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelInvoiceLine converts a domain LineItem to a model InvoiceLine
func ToModelInvoiceLine(invoiceID string, d domain.LineItem) models.InvoiceLine {
	return models.InvoiceLine{
		LineID:      d.LineID,
		InvoiceID:   invoiceID,
		LineNumber:  d.LineNumber,
		ItemCode:    d.ItemCode,
		ItemName:    d.ItemName,
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		Amount:      d.Amount,
		TaxCode:     d.TaxCode,
		TaxRate:     d.TaxRate,
		TaxAmount:   d.TaxAmount,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLineItemFromInvoiceLine converts a model InvoiceLine to a domain LineItem
func ToDomainLineItemFromInvoiceLine(m models.InvoiceLine) domain.LineItem {
	return domain.LineItem{
		LineID:      m.LineID,
		LineNumber:  m.LineNumber,
		ItemCode:    m.ItemCode,
		ItemName:    m.ItemName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
		TaxCode:     m.TaxCode,
		TaxRate:     m.TaxRate,
		TaxAmount:   m.TaxAmount,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}
