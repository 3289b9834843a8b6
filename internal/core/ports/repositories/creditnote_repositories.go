package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreditNoteReader defines read operations for credit note data
type CreditNoteReader interface {
	// FindCreditNoteByID retrieves a specific credit note by its unique identifier.
	FindCreditNoteByID(ctx context.Context, creditNoteID string) (*domain.CreditNote, error)

	// FindCreditNoteByQuickBooksID retrieves a credit note by its source system identifier within a company.
	FindCreditNoteByQuickBooksID(ctx context.Context, companyID string, quickBooksID string) (*domain.CreditNote, error)

	// ListCreditNotesByCompany retrieves a paginated list of credit notes for a company using token-based pagination.
	// It returns the credit notes, a token for the next page, and an error.
	ListCreditNotesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.CreditNote, *string, error)

	// ListCreditNotesByInvoiceID retrieves all credit notes linked to an invoice.
	ListCreditNotesByInvoiceID(ctx context.Context, invoiceID string) ([]domain.CreditNote, error)

	// FindCreditNoteLines retrieves all line items associated with a credit note, ordered by line number.
	FindCreditNoteLines(ctx context.Context, creditNoteID string) ([]domain.LineItem, error)
}

// CreditNoteWriter defines write operations for credit note data
type CreditNoteWriter interface {
	// SaveCreditNote persists a new credit note and its line items atomically.
	SaveCreditNote(ctx context.Context, creditNote domain.CreditNote, lines []domain.LineItem) error

	// UpdateCreditNote updates a credit note and replaces its line items, using optimistic locking on Version.
	UpdateCreditNote(ctx context.Context, creditNote domain.CreditNote, lines []domain.LineItem) error

	// SetCreditNoteValidated marks a credit note as accepted by the tax authority.
	SetCreditNoteValidated(ctx context.Context, creditNoteID string, updatedBy string, now time.Time) error
}

// CreditNoteTransactionSupport defines operations that run inside a caller-owned transaction.
// These back the credit reconciliation flow, which locks the target invoice row
// before reading or changing linkage state.
type CreditNoteTransactionSupport interface {
	// SumLinkedCreditAmountsInTx totals the amounts of credit notes linked to an invoice.
	// When excludeCreditNoteID is non-nil, that credit note is left out of the total.
	SumLinkedCreditAmountsInTx(ctx context.Context, tx pgx.Tx, invoiceID string, excludeCreditNoteID *string) (decimal.Decimal, error)

	// UpdateRelatedInvoiceInTx sets or clears the invoice linkage of a credit note.
	// The write only applies when the link is in its required prior state
	// (unlinked or same invoice when setting, linked when clearing); otherwise
	// it returns ErrConflict so a concurrent link is never silently overwritten.
	UpdateRelatedInvoiceInTx(ctx context.Context, tx pgx.Tx, creditNoteID string, relatedInvoiceID *string, updatedBy string, now time.Time) error
}

// CreditNoteRepositoryFacade combines all credit-note-related repository interfaces
// This is a facade for clients that need access to all operations
type CreditNoteRepositoryFacade interface {
	CreditNoteReader
	CreditNoteWriter
	CreditNoteTransactionSupport
}

// CreditNoteRepositoryWithTx extends CreditNoteRepositoryFacade with transaction capabilities
type CreditNoteRepositoryWithTx interface {
	CreditNoteRepositoryFacade
	TransactionManager
}
