package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
)

// InvoiceReader defines read operations for invoice data
type InvoiceReader interface {
	// FindInvoiceByID retrieves a specific invoice by its unique identifier.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// FindInvoiceByQuickBooksID retrieves an invoice by its source system identifier within a company.
	FindInvoiceByQuickBooksID(ctx context.Context, companyID string, quickBooksID string) (*domain.Invoice, error)

	// ListInvoicesByCompany retrieves a paginated list of invoices for a company using token-based pagination.
	// It returns the invoices, a token for the next page, and an error.
	ListInvoicesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Invoice, *string, error)

	// FindInvoiceLines retrieves all line items associated with an invoice, ordered by line number.
	FindInvoiceLines(ctx context.Context, invoiceID string) ([]domain.LineItem, error)
}

// InvoiceWriter defines write operations for invoice data
type InvoiceWriter interface {
	// SaveInvoice persists a new invoice and its line items atomically.
	SaveInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.LineItem) error

	// UpdateInvoice updates an invoice and replaces its line items, using optimistic locking on Version.
	UpdateInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.LineItem) error

	// SetInvoiceValidated marks an invoice as accepted by the tax authority.
	SetInvoiceValidated(ctx context.Context, invoiceID string, updatedBy string, now time.Time) error
}

// InvoiceTransactionSupport defines operations that run inside a caller-owned transaction
type InvoiceTransactionSupport interface {
	// FindInvoiceByIDForUpdate selects an invoice and locks its row for update within a transaction.
	FindInvoiceByIDForUpdate(ctx context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error)
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces
// This is a facade for clients that need access to all operations
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
	InvoiceTransactionSupport
}

// InvoiceRepositoryWithTx extends InvoiceRepositoryFacade with transaction capabilities
type InvoiceRepositoryWithTx interface {
	InvoiceRepositoryFacade
	TransactionManager
}
