package dto

import (
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Credit Reconciliation DTOs ---

// ValidateCreditAmountRequest asks whether an amount could be credited against an invoice.
type ValidateCreditAmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	// ExcludeCreditNoteID leaves one already-linked credit note out of the
	// committed total, for re-validating an edit of that credit note.
	ExcludeCreditNoteID *string `json:"excludeCreditNoteID"`
}

// LinkCreditNoteRequest asks to link a credit note to an invoice.
type LinkCreditNoteRequest struct {
	InvoiceID string `json:"invoiceID" binding:"required"`
}

// CreditValidationResponse is the structured outcome of a credit amount check.
// A rejection is a normal response, not an HTTP error.
type CreditValidationResponse struct {
	OK               bool             `json:"ok"`
	Reason           string           `json:"reason,omitempty"`
	Message          string           `json:"message,omitempty"`
	AvailableBalance decimal.Decimal  `json:"availableBalance"`
	Shortfall        *decimal.Decimal `json:"shortfall,omitempty"`
}

// ToCreditValidationResponse converts a domain.CreditValidation to DTO.
func ToCreditValidationResponse(v *domain.CreditValidation) CreditValidationResponse {
	resp := CreditValidationResponse{
		OK:               v.OK,
		Reason:           string(v.Reason),
		Message:          v.Message,
		AvailableBalance: v.AvailableBalance,
	}
	if !v.Shortfall.IsZero() {
		shortfall := v.Shortfall
		resp.Shortfall = &shortfall
	}
	return resp
}

// CreditSummaryResponse is the computed-on-read credit position of an invoice.
type CreditSummaryResponse struct {
	InvoiceID        string          `json:"invoiceID"`
	InvoiceTotal     decimal.Decimal `json:"invoiceTotal"`
	TotalCredits     decimal.Decimal `json:"totalCredits"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	IsFullyCredited  bool            `json:"isFullyCredited"`
	UtilizationPct   decimal.Decimal `json:"utilizationPct"`
}

// ToCreditSummaryResponse converts a domain.CreditSummary to DTO.
func ToCreditSummaryResponse(s *domain.CreditSummary) CreditSummaryResponse {
	return CreditSummaryResponse{
		InvoiceID:        s.InvoiceID,
		InvoiceTotal:     s.InvoiceTotal,
		TotalCredits:     s.TotalCredits,
		AvailableBalance: s.AvailableBalance,
		IsFullyCredited:  s.IsFullyCredited,
		UtilizationPct:   s.UtilizationPct,
	}
}

// CreditLinkResponse reports the outcome of a link attempt with the balances
// observed under the invoice lock.
type CreditLinkResponse struct {
	Validation    CreditValidationResponse `json:"validation"`
	BalanceBefore decimal.Decimal          `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal          `json:"balanceAfter"`
}

// ToCreditLinkResponse converts a domain.CreditLinkResult to DTO.
func ToCreditLinkResponse(r *domain.CreditLinkResult) CreditLinkResponse {
	return CreditLinkResponse{
		Validation:    ToCreditValidationResponse(&r.Validation),
		BalanceBefore: r.BalanceBefore,
		BalanceAfter:  r.BalanceAfter,
	}
}
