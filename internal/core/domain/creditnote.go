package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote is a QuickBooks credit note mirrored for one company. It may be
// linked to at most one invoice; the link is mutated exclusively through the
// reconciliation engine so that linked credits never exceed the invoice
// balance under concurrent writers.
type CreditNote struct {
	CreditNoteID     string          `json:"creditNoteID"`     // Primary Key (e.g., UUID)
	CompanyID        string          `json:"companyID"`        // FK -> companies.company_id
	QuickBooksID     string          `json:"quickBooksID"`     // External QuickBooks id, unique per company
	DocumentNumber   string          `json:"documentNumber"`   // QuickBooks DocNumber
	TransactionDate  time.Time       `json:"transactionDate"`  // Date the credit note was issued
	TotalAmt         decimal.Decimal `json:"totalAmt"`         // Gross total credited
	Balance          decimal.Decimal `json:"balance"`          // Remaining credit as reported by QuickBooks
	Subtotal         decimal.Decimal `json:"subtotal"`         // Net total before tax
	TaxTotal         decimal.Decimal `json:"taxTotal"`         // Total tax as reported by QuickBooks
	TaxPercent       decimal.Decimal `json:"taxPercent"`       // Document-level tax percentage
	RelatedInvoiceID *string         `json:"relatedInvoiceID"` // FK -> invoices.invoice_id when linked
	CurrencyCode     string          `json:"currencyCode"`     // ISO currency code
	ExchangeRate     decimal.Decimal `json:"exchangeRate"`     // Rate to home currency, 1.0 when already home
	CustomerName     string          `json:"customerName"`     // Denormalized from the sync payload
	CustomerPin      *string         `json:"customerPin"`      // Customer KRA PIN, when known
	Validated        bool            `json:"validated"`        // Authority-confirmed; set only on submission success
	Version          int64           `json:"version"`          // Optimistic locking version
	AuditFields
}

// IsLinked reports whether this credit note currently points at an invoice.
func (c *CreditNote) IsLinked() bool {
	return c.RelatedInvoiceID != nil && *c.RelatedInvoiceID != ""
}

// TaxDocument projects the credit note into the neutral shape the payload builder consumes.
func (c *CreditNote) TaxDocument() TaxDocument {
	return TaxDocument{
		DocumentType:    DocumentTypeCreditNote,
		DocumentID:      c.CreditNoteID,
		DocumentNumber:  c.DocumentNumber,
		TransactionDate: c.TransactionDate,
		TotalAmt:        c.TotalAmt,
		CustomerName:    c.CustomerName,
		CustomerPin:     c.CustomerPin,
		CurrencyCode:    c.CurrencyCode,
	}
}
