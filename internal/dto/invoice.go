package dto

import (
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Invoice DTOs ---

// UpsertLineItemRequest defines one document line as pushed by the QuickBooks sync.
type UpsertLineItemRequest struct {
	LineNumber int              `json:"lineNumber" binding:"required,min=1"`
	ItemCode   string           `json:"itemCode"`
	ItemName   string           `json:"itemName" binding:"required"`
	Quantity   decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice  decimal.Decimal  `json:"unitPrice"`
	Amount     decimal.Decimal  `json:"amount" binding:"required"`
	TaxCode    string           `json:"taxCode"`
	TaxRate    *decimal.Decimal `json:"taxRate"` // Fractional, e.g. 0.16
	TaxAmount  decimal.Decimal  `json:"taxAmount"`
}

// UpsertInvoiceRequest defines an invoice as pushed by the QuickBooks sync.
// The same payload creates the invoice on first push and replaces it afterwards.
type UpsertInvoiceRequest struct {
	QuickBooksID    string                  `json:"quickBooksID" binding:"required"`
	DocumentNumber  string                  `json:"documentNumber" binding:"required"`
	TransactionDate time.Time               `json:"transactionDate" binding:"required"`
	TotalAmt        decimal.Decimal         `json:"totalAmt" binding:"required"`
	Balance         decimal.Decimal         `json:"balance"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	TaxTotal        decimal.Decimal         `json:"taxTotal"`
	TaxRateRef      *string                 `json:"taxRateRef"`
	TaxPercent      decimal.Decimal         `json:"taxPercent"`
	CurrencyCode    string                  `json:"currencyCode" binding:"omitempty,iso4217"`
	ExchangeRate    decimal.Decimal         `json:"exchangeRate"`
	CustomerName    string                  `json:"customerName"`
	CustomerPin     *string                 `json:"customerPin"`
	Lines           []UpsertLineItemRequest `json:"lines" binding:"omitempty,dive"`
}

// LineItemResponse defines the data returned for a document line.
type LineItemResponse struct {
	LineID     string           `json:"lineID"`
	LineNumber int              `json:"lineNumber"`
	ItemCode   string           `json:"itemCode"`
	ItemName   string           `json:"itemName"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unitPrice"`
	Amount     decimal.Decimal  `json:"amount"`
	TaxCode    string           `json:"taxCode"`
	TaxRate    *decimal.Decimal `json:"taxRate,omitempty"`
	TaxAmount  decimal.Decimal  `json:"taxAmount"`
}

// ToLineItemResponse converts a domain.LineItem to LineItemResponse DTO.
func ToLineItemResponse(l *domain.LineItem) LineItemResponse {
	return LineItemResponse{
		LineID:     l.LineID,
		LineNumber: l.LineNumber,
		ItemCode:   l.ItemCode,
		ItemName:   l.ItemName,
		Quantity:   l.Quantity,
		UnitPrice:  l.UnitPrice,
		Amount:     l.Amount,
		TaxCode:    l.TaxCode,
		TaxRate:    l.TaxRate,
		TaxAmount:  l.TaxAmount,
	}
}

// ToLineItemResponses converts a slice of domain.LineItem to []LineItemResponse.
func ToLineItemResponses(lines []domain.LineItem) []LineItemResponse {
	responses := make([]LineItemResponse, len(lines))
	for i, l := range lines {
		responses[i] = ToLineItemResponse(&l)
	}
	return responses
}

// InvoiceResponse defines the data returned for an invoice.
type InvoiceResponse struct {
	InvoiceID       string             `json:"invoiceID"`
	CompanyID       string             `json:"companyID"`
	QuickBooksID    string             `json:"quickBooksID"`
	DocumentNumber  string             `json:"documentNumber"`
	TransactionDate time.Time          `json:"transactionDate"`
	TotalAmt        decimal.Decimal    `json:"totalAmt"`
	Balance         decimal.Decimal    `json:"balance"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	TaxTotal        decimal.Decimal    `json:"taxTotal"`
	TaxPercent      decimal.Decimal    `json:"taxPercent"`
	CurrencyCode    string             `json:"currencyCode"`
	ExchangeRate    decimal.Decimal    `json:"exchangeRate"`
	CustomerName    string             `json:"customerName"`
	CustomerPin     *string            `json:"customerPin,omitempty"`
	Validated       bool               `json:"validated"`
	Lines           []LineItemResponse `json:"lines,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	LastUpdatedAt   time.Time          `json:"lastUpdatedAt"`
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO.
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:       inv.InvoiceID,
		CompanyID:       inv.CompanyID,
		QuickBooksID:    inv.QuickBooksID,
		DocumentNumber:  inv.DocumentNumber,
		TransactionDate: inv.TransactionDate,
		TotalAmt:        inv.TotalAmt,
		Balance:         inv.Balance,
		Subtotal:        inv.Subtotal,
		TaxTotal:        inv.TaxTotal,
		TaxPercent:      inv.TaxPercent,
		CurrencyCode:    inv.CurrencyCode,
		ExchangeRate:    inv.ExchangeRate,
		CustomerName:    inv.CustomerName,
		CustomerPin:     inv.CustomerPin,
		Validated:       inv.Validated,
		CreatedAt:       inv.CreatedAt,
		LastUpdatedAt:   inv.LastUpdatedAt,
	}
}

// ListInvoicesParams defines query parameters for listing invoices.
type ListInvoicesParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ListInvoicesResponse wraps the list of invoices plus the pagination token.
type ListInvoicesResponse struct {
	Invoices  []InvoiceResponse `json:"invoices"`
	NextToken *string           `json:"nextToken,omitempty"`
}
