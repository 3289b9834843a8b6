package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
)

// ErrAlreadySubmitted is returned when a document already has an accepted
// submission. Accepted documents are immutable towards the authority.
var ErrAlreadySubmitted = fmt.Errorf("%w: document has already been accepted by the tax authority", apperrors.ErrConflict)

// ErrRetryLimitExceeded is returned when a failed submission has exhausted the
// configured retry limit.
var ErrRetryLimitExceeded = fmt.Errorf("%w: submission retry limit exceeded", apperrors.ErrConflict)

// ErrSubmissionInFlight is returned when a submit is requested while a prior
// attempt is still awaiting the authority's verdict.
var ErrSubmissionInFlight = fmt.Errorf("%w: a submission for this document is already in flight", apperrors.ErrConflict)

type submissionService struct {
	submissionRepo portsrepo.SubmissionRepositoryFacade
	invoiceRepo    portsrepo.InvoiceRepositoryFacade
	creditNoteRepo portsrepo.CreditNoteRepositoryFacade
	companyRepo    portsrepo.CompanyRepositoryFacade
	numbering      portssvc.DocumentNumberingSvc
	tax            portssvc.TaxComputationSvc
	transport      portssvc.AuthorityTransportSvc
	authorizer     portssvc.CompanyAuthorizerSvc
	qrBaseURL      string
	// maxAttempts caps retries of a failed submission; 0 means unlimited.
	maxAttempts int
}

// NewSubmissionService creates the submission service: record reads, the
// status state machine, and the submit orchestration on top of both.
func NewSubmissionService(
	submissionRepo portsrepo.SubmissionRepositoryFacade,
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	creditNoteRepo portsrepo.CreditNoteRepositoryFacade,
	companyRepo portsrepo.CompanyRepositoryFacade,
	numbering portssvc.DocumentNumberingSvc,
	tax portssvc.TaxComputationSvc,
	transport portssvc.AuthorityTransportSvc,
	authorizer portssvc.CompanyAuthorizerSvc,
	qrBaseURL string,
	maxAttempts int,
) portssvc.SubmissionSvcFacade {
	return &submissionService{
		submissionRepo: submissionRepo,
		invoiceRepo:    invoiceRepo,
		creditNoteRepo: creditNoteRepo,
		companyRepo:    companyRepo,
		numbering:      numbering,
		tax:            tax,
		transport:      transport,
		authorizer:     authorizer,
		qrBaseURL:      qrBaseURL,
		maxAttempts:    maxAttempts,
	}
}

var _ portssvc.SubmissionSvcFacade = (*submissionService)(nil)

// --- Reads ---

func (s *submissionService) GetSubmissionByID(ctx context.Context, companyID, submissionID string, requestingUserID string) (*domain.SubmissionRecord, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	record, err := s.submissionRepo.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if record.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}
	return record, nil
}

func (s *submissionService) GetSubmissionForDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, requestingUserID string) (*domain.SubmissionRecord, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}
	return s.submissionRepo.FindSubmissionByDocument(ctx, companyID, documentType, documentID)
}

func (s *submissionService) ListSubmissions(ctx context.Context, companyID string, requestingUserID string, params dto.ListSubmissionsParams) (*dto.ListSubmissionsResponse, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	var status *domain.SubmissionStatus
	if params.Status != nil {
		st := domain.SubmissionStatus(*params.Status)
		status = &st
	}

	records, nextToken, err := s.submissionRepo.ListSubmissionsByCompany(ctx, companyID, params.Limit, params.NextToken, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for company %s: %w", companyID, err)
	}

	response := &dto.ListSubmissionsResponse{
		Submissions: make([]dto.SubmissionResponse, 0, len(records)),
		NextToken:   nextToken,
	}
	for i := range records {
		response.Submissions = append(response.Submissions, dto.ToSubmissionResponse(&records[i]))
	}
	return response, nil
}

// --- Lifecycle ---

// CreatePending creates the single submission record a document will carry for
// its whole lineage. The allocated number is bound here and never changes.
func (s *submissionService) CreatePending(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, allocatedNumber int64, actorUserID string) (*domain.SubmissionRecord, error) {
	existing, err := s.submissionRepo.FindSubmissionByDocument(ctx, companyID, documentType, documentID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status.IsTerminalSuccess() {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("%w: submission record already exists for %s %s", apperrors.ErrConflict, documentType, documentID)
	}

	now := time.Now()
	record := domain.SubmissionRecord{
		SubmissionID:    uuid.NewString(),
		CompanyID:       companyID,
		DocumentType:    documentType,
		DocumentID:      documentID,
		AllocatedNumber: allocatedNumber,
		Status:          domain.SubmissionPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorUserID,
		},
	}

	if err := s.submissionRepo.SaveSubmission(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save submission record: %w", err)
	}
	return &record, nil
}

// MarkSubmitted snapshots the outbound payload and moves the record to
// submitted. Legal from pending and from failed (retry).
func (s *submissionService) MarkSubmitted(ctx context.Context, submissionID string, payload string, traderReference string, actorUserID string) (*domain.SubmissionRecord, error) {
	record, err := s.loadForTransition(ctx, submissionID, domain.SubmissionSubmitted)
	if err != nil {
		return nil, err
	}

	record.Status = domain.SubmissionSubmitted
	record.SubmittedPayload = &payload
	record.TraderReference = traderReference
	s.touch(record, actorUserID)

	if err := s.submissionRepo.UpdateSubmission(ctx, *record); err != nil {
		return nil, fmt.Errorf("failed to update submission %s: %w", submissionID, err)
	}
	return record, nil
}

// MarkSuccess records the authority's acceptance and flips the owning
// document's validated flag. This is the only code path that sets the flag.
func (s *submissionService) MarkSuccess(ctx context.Context, submissionID string, responsePayload string, receiptSignature string, qrPayload string, actorUserID string) (*domain.SubmissionRecord, error) {
	record, err := s.loadForTransition(ctx, submissionID, domain.SubmissionSuccess)
	if err != nil {
		return nil, err
	}

	record.Status = domain.SubmissionSuccess
	record.ResponsePayload = &responsePayload
	record.ReceiptSignature = &receiptSignature
	record.QRPayload = &qrPayload
	record.ErrorMessage = nil
	s.touch(record, actorUserID)

	if err := s.submissionRepo.UpdateSubmission(ctx, *record); err != nil {
		return nil, fmt.Errorf("failed to update submission %s: %w", submissionID, err)
	}

	if err := s.markDocumentValidated(ctx, record, actorUserID); err != nil {
		return nil, err
	}
	return record, nil
}

// MarkFailed records the failure and counts the attempt. The submitted payload
// snapshot is kept for audit.
func (s *submissionService) MarkFailed(ctx context.Context, submissionID string, errorMessage string, responsePayload *string, actorUserID string) (*domain.SubmissionRecord, error) {
	record, err := s.loadForTransition(ctx, submissionID, domain.SubmissionFailed)
	if err != nil {
		return nil, err
	}

	record.Status = domain.SubmissionFailed
	record.ErrorMessage = &errorMessage
	if responsePayload != nil {
		record.ResponsePayload = responsePayload
	}
	record.AttemptCount++
	s.touch(record, actorUserID)

	if err := s.submissionRepo.UpdateSubmission(ctx, *record); err != nil {
		return nil, fmt.Errorf("failed to update submission %s: %w", submissionID, err)
	}
	return record, nil
}

// MarkSigned records the external signing confirmation. Legal only from success.
func (s *submissionService) MarkSigned(ctx context.Context, submissionID string, actorUserID string) (*domain.SubmissionRecord, error) {
	record, err := s.loadForTransition(ctx, submissionID, domain.SubmissionSigned)
	if err != nil {
		return nil, err
	}

	record.Status = domain.SubmissionSigned
	s.touch(record, actorUserID)

	if err := s.submissionRepo.UpdateSubmission(ctx, *record); err != nil {
		return nil, fmt.Errorf("failed to update submission %s: %w", submissionID, err)
	}
	return record, nil
}

// --- Orchestration ---

// SubmitDocument runs the full submit flow for a document. First attempts
// allocate a sequential number and create the record; retries of failed
// attempts reuse the existing record and its number. A document with an
// accepted submission is never sent again.
func (s *submissionService) SubmitDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, requestingUserID string) (*domain.SubmissionRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleMember); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	doc, lines, err := s.loadDocument(ctx, companyID, documentType, documentID)
	if err != nil {
		return nil, err
	}

	record, err := s.findOrCreateRecord(ctx, companyID, documentType, documentID, requestingUserID)
	if err != nil {
		return nil, err
	}

	payload, malformedLines, err := s.tax.BuildPayload(ctx, company, doc, lines, record.AllocatedNumber)
	if err != nil {
		return nil, err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission payload: %w", err)
	}

	record, err = s.MarkSubmitted(ctx, record.SubmissionID, string(payloadJSON), doc.DocumentNumber, requestingUserID)
	if err != nil {
		return nil, err
	}

	logger.Info("Submitting document to tax authority",
		slog.String("submission_id", record.SubmissionID),
		slog.String("document_type", string(documentType)),
		slog.String("document_id", documentID),
		slog.Int64("allocated_number", record.AllocatedNumber),
		slog.Int("attempt", record.AttemptCount+1),
		slog.Int("malformed_lines", malformedLines))

	response, err := s.transport.SubmitSales(ctx, company.Credentials(), payload)
	if err != nil {
		failed, markErr := s.MarkFailed(ctx, record.SubmissionID, err.Error(), nil, requestingUserID)
		if markErr != nil {
			logger.Error("Failed to record submission transport failure", slog.String("submission_id", record.SubmissionID), slog.String("error", markErr.Error()))
			return nil, markErr
		}
		return failed, fmt.Errorf("authority call failed: %w", err)
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to encode authority response: %w", err)
	}
	responseStr := string(responseJSON)

	if !response.IsSuccess() {
		message := fmt.Sprintf("authority rejected submission: %s %s", response.ResultCd, response.ResultMsg)
		failed, markErr := s.MarkFailed(ctx, record.SubmissionID, message, &responseStr, requestingUserID)
		if markErr != nil {
			return nil, markErr
		}
		logger.Warn("Tax authority rejected submission",
			slog.String("submission_id", record.SubmissionID),
			slog.String("result_cd", response.ResultCd),
			slog.String("result_msg", response.ResultMsg))
		return failed, errors.New(message)
	}

	receiptSignature := ""
	if response.Data != nil {
		receiptSignature = response.Data.RcptSign
	}
	qrPayload := fmt.Sprintf("%s?Data=%s%s%s", s.qrBaseURL, company.KraPin, company.BranchID, receiptSignature)

	succeeded, err := s.MarkSuccess(ctx, record.SubmissionID, responseStr, receiptSignature, qrPayload, requestingUserID)
	if err != nil {
		return nil, err
	}

	logger.Info("Tax authority accepted submission",
		slog.String("submission_id", succeeded.SubmissionID),
		slog.Int64("allocated_number", succeeded.AllocatedNumber),
		slog.String("receipt_signature", receiptSignature))
	return succeeded, nil
}

// findOrCreateRecord resolves the submission record a submit attempt should
// run against: the existing one for retries, or a fresh record with a newly
// allocated number for first attempts.
func (s *submissionService) findOrCreateRecord(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string, actorUserID string) (*domain.SubmissionRecord, error) {
	existing, err := s.submissionRepo.FindSubmissionByDocument(ctx, companyID, documentType, documentID)
	switch {
	case err == nil:
		if existing.Status.IsTerminalSuccess() {
			return nil, ErrAlreadySubmitted
		}
		if existing.Status == domain.SubmissionSubmitted {
			return nil, ErrSubmissionInFlight
		}
		if s.maxAttempts > 0 && existing.AttemptCount >= s.maxAttempts {
			return nil, ErrRetryLimitExceeded
		}
		return existing, nil
	case errors.Is(err, apperrors.ErrNotFound):
		number, allocErr := s.numbering.AllocateNumber(ctx, companyID)
		if allocErr != nil {
			return nil, allocErr
		}
		return s.CreatePending(ctx, companyID, documentType, documentID, number, actorUserID)
	default:
		return nil, err
	}
}

// loadDocument fetches the document header and lines for either document type,
// hiding documents of other companies.
func (s *submissionService) loadDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string) (domain.TaxDocument, []domain.LineItem, error) {
	switch documentType {
	case domain.DocumentTypeInvoice:
		invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, documentID)
		if err != nil {
			return domain.TaxDocument{}, nil, err
		}
		if invoice.CompanyID != companyID {
			return domain.TaxDocument{}, nil, ErrCompanyMismatch
		}
		lines, err := s.invoiceRepo.FindInvoiceLines(ctx, documentID)
		if err != nil {
			return domain.TaxDocument{}, nil, err
		}
		return invoice.TaxDocument(), lines, nil
	case domain.DocumentTypeCreditNote:
		creditNote, err := s.creditNoteRepo.FindCreditNoteByID(ctx, documentID)
		if err != nil {
			return domain.TaxDocument{}, nil, err
		}
		if creditNote.CompanyID != companyID {
			return domain.TaxDocument{}, nil, ErrCompanyMismatch
		}
		lines, err := s.creditNoteRepo.FindCreditNoteLines(ctx, documentID)
		if err != nil {
			return domain.TaxDocument{}, nil, err
		}
		doc := creditNote.TaxDocument()
		doc.OriginalInvoiceNumber, err = s.originalInvoiceNumber(ctx, companyID, creditNote.RelatedInvoiceID)
		if err != nil {
			return domain.TaxDocument{}, nil, err
		}
		return doc, lines, nil
	default:
		return domain.TaxDocument{}, nil, fmt.Errorf("%w: unknown document type %q", apperrors.ErrValidation, documentType)
	}
}

// originalInvoiceNumber resolves the authority-allocated number of the invoice
// a credit note corrects. The number only exists once the invoice's own
// submission has succeeded; an unlinked credit note or an unsubmitted invoice
// yields zero, which the authority reads as "no original invoice".
func (s *submissionService) originalInvoiceNumber(ctx context.Context, companyID string, relatedInvoiceID *string) (int64, error) {
	if relatedInvoiceID == nil {
		return 0, nil
	}

	record, err := s.submissionRepo.FindSubmissionByDocument(ctx, companyID, domain.DocumentTypeInvoice, *relatedInvoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to look up submission of related invoice %s: %w", *relatedInvoiceID, err)
	}
	if !record.Status.IsTerminalSuccess() {
		return 0, nil
	}
	return record.AllocatedNumber, nil
}

// loadForTransition fetches a record and verifies the requested status change
// is legal before any field is touched.
func (s *submissionService) loadForTransition(ctx context.Context, submissionID string, target domain.SubmissionStatus) (*domain.SubmissionRecord, error) {
	record, err := s.submissionRepo.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !record.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: illegal submission status transition from %s to %s", apperrors.ErrConflict, record.Status, target)
	}
	return record, nil
}

// markDocumentValidated flips the validated flag on the submitted document.
func (s *submissionService) markDocumentValidated(ctx context.Context, record *domain.SubmissionRecord, actorUserID string) error {
	now := time.Now()
	switch record.DocumentType {
	case domain.DocumentTypeInvoice:
		if err := s.invoiceRepo.SetInvoiceValidated(ctx, record.DocumentID, actorUserID, now); err != nil {
			return fmt.Errorf("failed to mark invoice %s validated: %w", record.DocumentID, err)
		}
	case domain.DocumentTypeCreditNote:
		if err := s.creditNoteRepo.SetCreditNoteValidated(ctx, record.DocumentID, actorUserID, now); err != nil {
			return fmt.Errorf("failed to mark credit note %s validated: %w", record.DocumentID, err)
		}
	}
	return nil
}

func (s *submissionService) touch(record *domain.SubmissionRecord, actorUserID string) {
	record.LastUpdatedAt = time.Now()
	record.LastUpdatedBy = actorUserID
}
