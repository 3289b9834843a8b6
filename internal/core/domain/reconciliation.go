package domain

import "github.com/shopspring/decimal"

// CreditRejectionReason classifies why a credit amount was refused. These are
// structured results, not errors: callers surface the distinct message and
// numeric details to the user.
type CreditRejectionReason string

const (
	// RejectionInvalidAmount: the requested credit amount is zero or negative.
	RejectionInvalidAmount CreditRejectionReason = "INVALID_AMOUNT"
	// RejectionAlreadyFullyCredited: the invoice has no headroom left at all.
	RejectionAlreadyFullyCredited CreditRejectionReason = "ALREADY_FULLY_CREDITED"
	// RejectionInsufficientBalance: the invoice has headroom, but less than requested.
	RejectionInsufficientBalance CreditRejectionReason = "INSUFFICIENT_BALANCE"
)

// CreditSummary is the computed-on-read balance picture of one invoice.
type CreditSummary struct {
	InvoiceID        string          `json:"invoiceID"`
	InvoiceTotal     decimal.Decimal `json:"invoiceTotal"`
	TotalCredits     decimal.Decimal `json:"totalCredits"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	IsFullyCredited  bool            `json:"isFullyCredited"`
	UtilizationPct   decimal.Decimal `json:"utilizationPct"`
}

// CreditValidation is the outcome of checking a credit amount against an
// invoice's available balance.
type CreditValidation struct {
	OK               bool                  `json:"ok"`
	Reason           CreditRejectionReason `json:"reason,omitempty"`
	Message          string                `json:"message,omitempty"`
	AvailableBalance decimal.Decimal       `json:"availableBalance"`
	Shortfall        decimal.Decimal       `json:"shortfall"` // amount - available, only set for INSUFFICIENT_BALANCE
}

// CreditLinkResult reports a link attempt together with the invoice balance
// before and after the commit.
type CreditLinkResult struct {
	Validation    CreditValidation `json:"validation"`
	BalanceBefore decimal.Decimal  `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal  `json:"balanceAfter"`
}
