package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the persisted shape of a mirrored QuickBooks invoice. Balance
// derivations are computed on read and have no columns here.
type Invoice struct {
	InvoiceID       string          `db:"invoice_id"`
	CompanyID       string          `db:"company_id"`
	QuickBooksID    string          `db:"quickbooks_id"`
	DocumentNumber  string          `db:"document_number"`
	TransactionDate time.Time       `db:"transaction_date"`
	TotalAmt        decimal.Decimal `db:"total_amt"`
	Balance         decimal.Decimal `db:"balance"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	TaxTotal        decimal.Decimal `db:"tax_total"`
	TaxRateRef      *string         `db:"tax_rate_ref"`
	TaxPercent      decimal.Decimal `db:"tax_percent"`
	CurrencyCode    string          `db:"currency_code"`
	ExchangeRate    decimal.Decimal `db:"exchange_rate"`
	CustomerName    string          `db:"customer_name"`
	CustomerPin     *string         `db:"customer_pin"`
	Validated       bool            `db:"validated"`
	Version         int64           `db:"version"`
	AuditFields
}

// InvoiceLine is one persisted line of an invoice.
type InvoiceLine struct {
	LineID     string           `db:"line_id"`
	InvoiceID  string           `db:"invoice_id"`
	LineNumber int              `db:"line_number"`
	ItemCode   string           `db:"item_code"`
	ItemName   string           `db:"item_name"`
	Quantity   decimal.Decimal  `db:"quantity"`
	UnitPrice  decimal.Decimal  `db:"unit_price"`
	Amount     decimal.Decimal  `db:"amount"`
	TaxCode    string           `db:"tax_code"`
	TaxRate    *decimal.Decimal `db:"tax_rate"`
	TaxAmount  decimal.Decimal  `db:"tax_amount"`
	AuditFields
}
