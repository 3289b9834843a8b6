package services

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreditReconciliationSvc governs the linkage between credit notes and
// invoices. Rejections come back as structured CreditValidation results with
// the specific reason and amounts; errors are reserved for missing documents,
// authorization failures and persistence problems.
type CreditReconciliationSvc interface {
	// SummarizeCredits computes the credit position of an invoice from current
	// data: total linked credits, available balance floored at zero, the
	// fully-credited flag and the utilization percentage.
	SummarizeCredits(ctx context.Context, companyID, invoiceID string, requestingUserID string) (*domain.CreditSummary, error)

	// ValidateCreditAmount checks whether amount could be credited against the
	// invoice right now. Advisory only: the answer may be stale by commit time,
	// so LinkCreditNote revalidates under the invoice lock.
	ValidateCreditAmount(ctx context.Context, companyID, invoiceID string, amount decimal.Decimal, excludeCreditNoteID *string, requestingUserID string) (*domain.CreditValidation, error)

	// LinkCreditNote links a credit note to an invoice. Validation and commit
	// happen atomically under an exclusive lock on the invoice row, so two
	// credit notes racing for the same remaining balance cannot both win.
	LinkCreditNote(ctx context.Context, companyID, creditNoteID, invoiceID string, requestingUserID string) (*domain.CreditLinkResult, error)

	// UnlinkCreditNote clears the invoice link of a credit note, restoring the
	// invoice's available balance.
	UnlinkCreditNote(ctx context.Context, companyID, creditNoteID string, requestingUserID string) error
}
