package mapping

import (
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
)

// ToModelCreditNote converts a domain CreditNote to a model CreditNote
func ToModelCreditNote(d domain.CreditNote) models.CreditNote {
	return models.CreditNote{
		CreditNoteID:     d.CreditNoteID,
		CompanyID:        d.CompanyID,
		QuickBooksID:     d.QuickBooksID,
		DocumentNumber:   d.DocumentNumber,
		TransactionDate:  d.TransactionDate,
		TotalAmt:         d.TotalAmt,
		Balance:          d.Balance,
		Subtotal:         d.Subtotal,
		TaxTotal:         d.TaxTotal,
		TaxPercent:       d.TaxPercent,
		RelatedInvoiceID: d.RelatedInvoiceID,
		CurrencyCode:     d.CurrencyCode,
		ExchangeRate:     d.ExchangeRate,
		CustomerName:     d.CustomerName,
		CustomerPin:      d.CustomerPin,
		Validated:        d.Validated,
		Version:          d.Version,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCreditNote converts a model CreditNote to a domain CreditNote
func ToDomainCreditNote(m models.CreditNote) domain.CreditNote {
	return domain.CreditNote{
		CreditNoteID:     m.CreditNoteID,
		CompanyID:        m.CompanyID,
		QuickBooksID:     m.QuickBooksID,
		DocumentNumber:   m.DocumentNumber,
		TransactionDate:  m.TransactionDate,
		TotalAmt:         m.TotalAmt,
		Balance:          m.Balance,
		Subtotal:         m.Subtotal,
		TaxTotal:         m.TaxTotal,
		TaxPercent:       m.TaxPercent,
		RelatedInvoiceID: m.RelatedInvoiceID,
		CurrencyCode:     m.CurrencyCode,
		ExchangeRate:     m.ExchangeRate,
		CustomerName:     m.CustomerName,
		CustomerPin:      m.CustomerPin,
		Validated:        m.Validated,
		Version:          m.Version,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelCreditNoteLine converts a domain LineItem to a model CreditNoteLine
func ToModelCreditNoteLine(creditNoteID string, d domain.LineItem) models.CreditNoteLine {
	return models.CreditNoteLine{
		LineID:       d.LineID,
		CreditNoteID: creditNoteID,
		LineNumber:   d.LineNumber,
		ItemCode:     d.ItemCode,
		ItemName:     d.ItemName,
		Quantity:     d.Quantity,
		UnitPrice:    d.UnitPrice,
		Amount:       d.Amount,
		TaxCode:      d.TaxCode,
		TaxRate:      d.TaxRate,
		TaxAmount:    d.TaxAmount,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLineItemFromCreditNoteLine converts a model CreditNoteLine to a domain LineItem
func ToDomainLineItemFromCreditNoteLine(m models.CreditNoteLine) domain.LineItem {
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
