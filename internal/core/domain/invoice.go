package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a QuickBooks invoice mirrored for one company. Balance-derived
// values (available balance, fully-credited) are computed on read from the
// linked credit notes and are intentionally not stored on the struct.
type Invoice struct {
	InvoiceID       string          `json:"invoiceID"`       // Primary Key (e.g., UUID)
	CompanyID       string          `json:"companyID"`       // FK -> companies.company_id
	QuickBooksID    string          `json:"quickBooksID"`    // External QuickBooks id, unique per company
	DocumentNumber  string          `json:"documentNumber"`  // QuickBooks DocNumber, used as trader reference
	TransactionDate time.Time       `json:"transactionDate"` // Date the invoice was issued
	TotalAmt        decimal.Decimal `json:"totalAmt"`        // Gross total
	Balance         decimal.Decimal `json:"balance"`         // Open balance as reported by QuickBooks
	Subtotal        decimal.Decimal `json:"subtotal"`        // Net total before tax
	TaxTotal        decimal.Decimal `json:"taxTotal"`        // Total tax as reported by QuickBooks
	TaxRateRef      *string         `json:"taxRateRef"`      // QuickBooks tax rate reference, if any
	TaxPercent      decimal.Decimal `json:"taxPercent"`      // Document-level tax percentage
	CurrencyCode    string          `json:"currencyCode"`    // ISO currency code
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`    // Rate to home currency, 1.0 when already home
	CustomerName    string          `json:"customerName"`    // Denormalized from the sync payload
	CustomerPin     *string         `json:"customerPin"`     // Customer KRA PIN, when known
	Validated       bool            `json:"validated"`       // Authority-confirmed; set only on submission success
	Version         int64           `json:"version"`         // Optimistic locking version
	AuditFields
}

// DocumentType distinguishes the two submittable document kinds.
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "INVOICE"
	DocumentTypeCreditNote DocumentType = "CREDIT_NOTE"
)

// TaxDocument projects the invoice into the neutral shape the payload builder consumes.
func (i *Invoice) TaxDocument() TaxDocument {
	return TaxDocument{
		DocumentType:    DocumentTypeInvoice,
		DocumentID:      i.InvoiceID,
		DocumentNumber:  i.DocumentNumber,
		TransactionDate: i.TransactionDate,
		TotalAmt:        i.TotalAmt,
		CustomerName:    i.CustomerName,
		CustomerPin:     i.CustomerPin,
		CurrencyCode:    i.CurrencyCode,
	}
}

// LineItem is a single line of an invoice or a credit note.
type LineItem struct {
	LineID     string           `json:"lineID"`     // Primary Key (e.g., UUID)
	LineNumber int              `json:"lineNumber"` // 1-based sequence within the document
	ItemCode   string           `json:"itemCode"`   // Item/SKU code
	ItemName   string           `json:"itemName"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unitPrice"`
	Amount     decimal.Decimal  `json:"amount"`    // Line gross amount
	TaxCode    string           `json:"taxCode"`   // Source tax code (e.g., "EXEMPT", "TAX")
	TaxRate    *decimal.Decimal `json:"taxRate"`   // Fractional rate (0.16 for 16%), nil when unknown
	TaxAmount  decimal.Decimal  `json:"taxAmount"` // Tax portion of Amount as reported
	AuditFields
}
