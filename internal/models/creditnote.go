package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote is the persisted shape of a mirrored QuickBooks credit note.
// related_invoice_id is only ever written by the reconciliation engine.
type CreditNote struct {
	CreditNoteID     string          `db:"credit_note_id"`
	CompanyID        string          `db:"company_id"`
	QuickBooksID     string          `db:"quickbooks_id"`
	DocumentNumber   string          `db:"document_number"`
	TransactionDate  time.Time       `db:"transaction_date"`
	TotalAmt         decimal.Decimal `db:"total_amt"`
	Balance          decimal.Decimal `db:"balance"`
	Subtotal         decimal.Decimal `db:"subtotal"`
	TaxTotal         decimal.Decimal `db:"tax_total"`
	TaxPercent       decimal.Decimal `db:"tax_percent"`
	RelatedInvoiceID *string         `db:"related_invoice_id"`
	CurrencyCode     string          `db:"currency_code"`
	ExchangeRate     decimal.Decimal `db:"exchange_rate"`
	CustomerName     string          `db:"customer_name"`
	CustomerPin      *string         `db:"customer_pin"`
	Validated        bool            `db:"validated"`
	Version          int64           `db:"version"`
	AuditFields
}

// CreditNoteLine is one persisted line of a credit note.
type CreditNoteLine struct {
	LineID       string           `db:"line_id"`
	CreditNoteID string           `db:"credit_note_id"`
	LineNumber   int              `db:"line_number"`
	ItemCode     string           `db:"item_code"`
	ItemName     string           `db:"item_name"`
	Quantity     decimal.Decimal  `db:"quantity"`
	UnitPrice    decimal.Decimal  `db:"unit_price"`
	Amount       decimal.Decimal  `db:"amount"`
	TaxCode      string           `db:"tax_code"`
	TaxRate      *decimal.Decimal `db:"tax_rate"`
	TaxAmount    decimal.Decimal  `db:"tax_amount"`
	AuditFields
}
