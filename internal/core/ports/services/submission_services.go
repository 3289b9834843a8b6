package services

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
)

// SubmissionReaderSvc defines read operations for submission records
type SubmissionReaderSvc interface {
	// GetSubmissionByID retrieves a submission record that belongs to the company.
	GetSubmissionByID(ctx context.Context, companyID, submissionID string, requestingUserID string) (*domain.SubmissionRecord, error)

	// GetSubmissionForDocument retrieves the submission record of a document, if any.
	GetSubmissionForDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, requestingUserID string) (*domain.SubmissionRecord, error)

	// ListSubmissions retrieves a paginated list of submission records for a company.
	ListSubmissions(ctx context.Context, companyID string, requestingUserID string, params dto.ListSubmissionsParams) (*dto.ListSubmissionsResponse, error)
}

// SubmissionLifecycleSvc drives a submission record through its states.
// Allowed transitions: pending to submitted; submitted to success or failed;
// failed back to submitted on retry; success to signed on external
// confirmation. Nothing leaves success or signed.
type SubmissionLifecycleSvc interface {
	// CreatePending creates the record for a document with its allocated number.
	// Fails with ErrAlreadySubmitted when a success or signed record exists.
	CreatePending(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, allocatedNumber int64, actorUserID string) (*domain.SubmissionRecord, error)

	// MarkSubmitted stores the outbound payload and trader reference and moves
	// the record to submitted. Re-entry from failed increments nothing; the
	// attempt is counted only if it fails again.
	MarkSubmitted(ctx context.Context, submissionID string, payload string, traderReference string, actorUserID string) (*domain.SubmissionRecord, error)

	// MarkSuccess stores the authority response, receipt signature and QR
	// payload, moves the record to success, and flips the owning document's
	// validated flag. This is the only path that sets that flag.
	MarkSuccess(ctx context.Context, submissionID string, responsePayload string, receiptSignature string, qrPayload string, actorUserID string) (*domain.SubmissionRecord, error)

	// MarkFailed records the error message and optional response payload,
	// moves the record to failed and increments the attempt count. The
	// previously stored submitted payload is kept.
	MarkFailed(ctx context.Context, submissionID string, errorMessage string, responsePayload *string, actorUserID string) (*domain.SubmissionRecord, error)

	// MarkSigned records the external signing confirmation on a successful
	// submission.
	MarkSigned(ctx context.Context, submissionID string, actorUserID string) (*domain.SubmissionRecord, error)
}

// SubmissionOrchestratorSvc runs the full submit flow: allocate a number on
// first attempt, build the payload, drive the state machine and call the
// authority transport with a bounded timeout.
type SubmissionOrchestratorSvc interface {
	// SubmitDocument submits a document to the tax authority. A retry of a
	// failed submission reuses the existing record and its allocated number.
	// Returns ErrAlreadySubmitted when the document already succeeded;
	// authority rejections and transport failures are recorded on the returned
	// record and also surfaced as errors.
	SubmitDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, requestingUserID string) (*domain.SubmissionRecord, error)
}

// SubmissionSvcFacade combines all submission-related service interfaces
type SubmissionSvcFacade interface {
	SubmissionReaderSvc
	SubmissionLifecycleSvc
	SubmissionOrchestratorSvc
}
