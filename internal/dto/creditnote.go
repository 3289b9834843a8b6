package dto

import (
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Credit Note DTOs ---

// UpsertCreditNoteRequest defines a credit note as pushed by the QuickBooks sync.
// Linkage to an invoice is never set through this payload; the reconciliation
// endpoints own the link.
type UpsertCreditNoteRequest struct {
	QuickBooksID    string                  `json:"quickBooksID" binding:"required"`
	DocumentNumber  string                  `json:"documentNumber" binding:"required"`
	TransactionDate time.Time               `json:"transactionDate" binding:"required"`
	TotalAmt        decimal.Decimal         `json:"totalAmt" binding:"required"`
	Balance         decimal.Decimal         `json:"balance"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	TaxTotal        decimal.Decimal         `json:"taxTotal"`
	TaxPercent      decimal.Decimal         `json:"taxPercent"`
	CurrencyCode    string                  `json:"currencyCode" binding:"omitempty,iso4217"`
	ExchangeRate    decimal.Decimal         `json:"exchangeRate"`
	CustomerName    string                  `json:"customerName"`
	CustomerPin     *string                 `json:"customerPin"`
	Lines           []UpsertLineItemRequest `json:"lines" binding:"omitempty,dive"`
}

// CreditNoteResponse defines the data returned for a credit note.
type CreditNoteResponse struct {
	CreditNoteID     string             `json:"creditNoteID"`
	CompanyID        string             `json:"companyID"`
	QuickBooksID     string             `json:"quickBooksID"`
	DocumentNumber   string             `json:"documentNumber"`
	TransactionDate  time.Time          `json:"transactionDate"`
	TotalAmt         decimal.Decimal    `json:"totalAmt"`
	Balance          decimal.Decimal    `json:"balance"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	TaxTotal         decimal.Decimal    `json:"taxTotal"`
	TaxPercent       decimal.Decimal    `json:"taxPercent"`
	RelatedInvoiceID *string            `json:"relatedInvoiceID,omitempty"`
	CurrencyCode     string             `json:"currencyCode"`
	ExchangeRate     decimal.Decimal    `json:"exchangeRate"`
	CustomerName     string             `json:"customerName"`
	CustomerPin      *string            `json:"customerPin,omitempty"`
	Validated        bool               `json:"validated"`
	Lines            []LineItemResponse `json:"lines,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	LastUpdatedAt    time.Time          `json:"lastUpdatedAt"`
}

// ToCreditNoteResponse converts a domain.CreditNote to CreditNoteResponse DTO.
func ToCreditNoteResponse(cn *domain.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		CreditNoteID:     cn.CreditNoteID,
		CompanyID:        cn.CompanyID,
		QuickBooksID:     cn.QuickBooksID,
		DocumentNumber:   cn.DocumentNumber,
		TransactionDate:  cn.TransactionDate,
		TotalAmt:         cn.TotalAmt,
		Balance:          cn.Balance,
		Subtotal:         cn.Subtotal,
		TaxTotal:         cn.TaxTotal,
		TaxPercent:       cn.TaxPercent,
		RelatedInvoiceID: cn.RelatedInvoiceID,
		CurrencyCode:     cn.CurrencyCode,
		ExchangeRate:     cn.ExchangeRate,
		CustomerName:     cn.CustomerName,
		CustomerPin:      cn.CustomerPin,
		Validated:        cn.Validated,
		CreatedAt:        cn.CreatedAt,
		LastUpdatedAt:    cn.LastUpdatedAt,
	}
}

// ListCreditNotesParams defines query parameters for listing credit notes.
type ListCreditNotesParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ListCreditNotesResponse wraps the list of credit notes plus the pagination token.
type ListCreditNotesResponse struct {
	CreditNotes []CreditNoteResponse `json:"creditNotes"`
	NextToken   *string              `json:"nextToken,omitempty"`
}
