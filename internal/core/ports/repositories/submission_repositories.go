package repositories

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
)

// SubmissionReader defines read operations for submission records
type SubmissionReader interface {
	// FindSubmissionByID retrieves a specific submission record by its unique identifier.
	FindSubmissionByID(ctx context.Context, submissionID string) (*domain.SubmissionRecord, error)

	// FindSubmissionByDocument retrieves the submission record for a document, if any.
	// There is at most one record per (company, document type, document) triple.
	FindSubmissionByDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string) (*domain.SubmissionRecord, error)

	// ListSubmissionsByCompany retrieves a paginated list of submission records for a company
	// using token-based pagination, optionally filtered by status.
	ListSubmissionsByCompany(ctx context.Context, companyID string, limit int, nextToken *string, status *domain.SubmissionStatus) ([]domain.SubmissionRecord, *string, error)
}

// SubmissionWriter defines write operations for submission records
type SubmissionWriter interface {
	// SaveSubmission persists a new submission record. The allocated document number
	// is unique per company, so a duplicate allocation surfaces as a conflict error.
	SaveSubmission(ctx context.Context, record domain.SubmissionRecord) error

	// UpdateSubmission updates the mutable state of a submission record: status,
	// payloads, error message, receipt fields and attempt count.
	UpdateSubmission(ctx context.Context, record domain.SubmissionRecord) error
}

// SubmissionRepositoryFacade combines all submission-related repository interfaces
// This is a facade for clients that need access to all operations
type SubmissionRepositoryFacade interface {
	SubmissionReader
	SubmissionWriter
}

// SubmissionRepositoryWithTx extends SubmissionRepositoryFacade with transaction capabilities
type SubmissionRepositoryWithTx interface {
	SubmissionRepositoryFacade
	TransactionManager
}
