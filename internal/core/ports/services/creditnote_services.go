package services

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
)

// CreditNoteReaderSvc defines read operations for credit note data
type CreditNoteReaderSvc interface {
	// GetCreditNoteByID retrieves a credit note that belongs to the company.
	GetCreditNoteByID(ctx context.Context, companyID, creditNoteID string, requestingUserID string) (*domain.CreditNote, error)

	// GetCreditNoteLines retrieves the line items of a credit note.
	GetCreditNoteLines(ctx context.Context, companyID, creditNoteID string, requestingUserID string) ([]domain.LineItem, error)

	// ListCreditNotes retrieves a paginated list of credit notes for a company.
	ListCreditNotes(ctx context.Context, companyID string, requestingUserID string, params dto.ListCreditNotesParams) (*dto.ListCreditNotesResponse, error)
}

// CreditNoteWriterSvc defines write operations for credit note data
type CreditNoteWriterSvc interface {
	// UpsertCreditNote creates or replaces a credit note pushed by the QuickBooks
	// sync, matching on the QuickBooks id within the company. The invoice link is
	// never touched by the upsert; only the reconciliation engine mutates it.
	UpsertCreditNote(ctx context.Context, companyID string, req dto.UpsertCreditNoteRequest, requestingUserID string) (*domain.CreditNote, error)
}

// CreditNoteSvcFacade combines all credit-note-related service interfaces
type CreditNoteSvcFacade interface {
	CreditNoteReaderSvc
	CreditNoteWriterSvc
}
