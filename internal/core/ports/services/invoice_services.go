package services

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
)

// InvoiceReaderSvc defines read operations for invoice data
type InvoiceReaderSvc interface {
	// GetInvoiceByID retrieves an invoice that belongs to the company.
	GetInvoiceByID(ctx context.Context, companyID, invoiceID string, requestingUserID string) (*domain.Invoice, error)

	// GetInvoiceLines retrieves the line items of an invoice.
	GetInvoiceLines(ctx context.Context, companyID, invoiceID string, requestingUserID string) ([]domain.LineItem, error)

	// ListInvoices retrieves a paginated list of invoices for a company.
	ListInvoices(ctx context.Context, companyID string, requestingUserID string, params dto.ListInvoicesParams) (*dto.ListInvoicesResponse, error)
}

// InvoiceWriterSvc defines write operations for invoice data
type InvoiceWriterSvc interface {
	// UpsertInvoice creates or replaces an invoice pushed by the QuickBooks sync,
	// matching on the QuickBooks id within the company. Line items are replaced
	// wholesale on update.
	UpsertInvoice(ctx context.Context, companyID string, req dto.UpsertInvoiceRequest, requestingUserID string) (*domain.Invoice, error)
}

// InvoiceSvcFacade combines all invoice-related service interfaces
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceWriterSvc
}
