package services

import (
	"context"
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

type creditNoteService struct {
	creditNoteRepo portsrepo.CreditNoteRepositoryFacade
	currencyRepo   portsrepo.CurrencyRepositoryFacade
	authorizer     portssvc.CompanyAuthorizerSvc
}

// NewCreditNoteService creates the credit note mirror service.
func NewCreditNoteService(
	creditNoteRepo portsrepo.CreditNoteRepositoryFacade,
	currencyRepo portsrepo.CurrencyRepositoryFacade,
	authorizer portssvc.CompanyAuthorizerSvc,
) portssvc.CreditNoteSvcFacade {
	return &creditNoteService{
		creditNoteRepo: creditNoteRepo,
		currencyRepo:   currencyRepo,
		authorizer:     authorizer,
	}
}

var _ portssvc.CreditNoteSvcFacade = (*creditNoteService)(nil)

func (s *creditNoteService) GetCreditNoteByID(ctx context.Context, companyID, creditNoteID string, requestingUserID string) (*domain.CreditNote, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	creditNote, err := s.creditNoteRepo.FindCreditNoteByID(ctx, creditNoteID)
	if err != nil {
		return nil, err
	}
	if creditNote.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}
	return creditNote, nil
}

func (s *creditNoteService) GetCreditNoteLines(ctx context.Context, companyID, creditNoteID string, requestingUserID string) ([]domain.LineItem, error) {
	if _, err := s.GetCreditNoteByID(ctx, companyID, creditNoteID, requestingUserID); err != nil {
		return nil, err
	}
	return s.creditNoteRepo.FindCreditNoteLines(ctx, creditNoteID)
}

func (s *creditNoteService) ListCreditNotes(ctx context.Context, companyID string, requestingUserID string, params dto.ListCreditNotesParams) (*dto.ListCreditNotesResponse, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	creditNotes, nextToken, err := s.creditNoteRepo.ListCreditNotesByCompany(ctx, companyID, params.Limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit notes for company %s: %w", companyID, err)
	}

	response := &dto.ListCreditNotesResponse{
		CreditNotes: make([]dto.CreditNoteResponse, 0, len(creditNotes)),
		NextToken:   nextToken,
	}
	for i := range creditNotes {
		response.CreditNotes = append(response.CreditNotes, dto.ToCreditNoteResponse(&creditNotes[i]))
	}
	return response, nil
}

// UpsertCreditNote mirrors a QuickBooks credit note into local storage. The
// sync payload never carries linkage: RelatedInvoiceID survives updates
// untouched and is mutated only by the reconciliation engine. Likewise the
// Validated flag is set only on submission success.
func (s *creditNoteService) UpsertCreditNote(ctx context.Context, companyID string, req dto.UpsertCreditNoteRequest, requestingUserID string) (*domain.CreditNote, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleMember); err != nil {
		return nil, err
	}
	if err := s.validateCurrencyCode(ctx, req.CurrencyCode); err != nil {
		return nil, err
	}

	now := time.Now()
	existing, err := s.creditNoteRepo.FindCreditNoteByQuickBooksID(ctx, companyID, req.QuickBooksID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		creditNote := domain.CreditNote{
			CreditNoteID:    uuid.NewString(),
			CompanyID:       companyID,
			QuickBooksID:    req.QuickBooksID,
			DocumentNumber:  req.DocumentNumber,
			TransactionDate: req.TransactionDate,
			TotalAmt:        req.TotalAmt,
			Balance:         req.Balance,
			Subtotal:        req.Subtotal,
			TaxTotal:        req.TaxTotal,
			TaxPercent:      req.TaxPercent,
			CurrencyCode:    req.CurrencyCode,
			ExchangeRate:    normalizeExchangeRate(req.ExchangeRate),
			CustomerName:    req.CustomerName,
			CustomerPin:     req.CustomerPin,
			Version:         1,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     requestingUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: requestingUserID,
			},
		}

		lines := buildLineItems(req.Lines, requestingUserID, now)
		if err := s.creditNoteRepo.SaveCreditNote(ctx, creditNote, lines); err != nil {
			return nil, fmt.Errorf("failed to save credit note: %w", err)
		}

		logger.Info("Credit note created from sync",
			slog.String("credit_note_id", creditNote.CreditNoteID),
			slog.String("quickbooks_id", creditNote.QuickBooksID),
			slog.String("document_number", creditNote.DocumentNumber))
		return &creditNote, nil
	}

	updated := *existing
	updated.DocumentNumber = req.DocumentNumber
	updated.TransactionDate = req.TransactionDate
	updated.TotalAmt = req.TotalAmt
	updated.Balance = req.Balance
	updated.Subtotal = req.Subtotal
	updated.TaxTotal = req.TaxTotal
	updated.TaxPercent = req.TaxPercent
	updated.CurrencyCode = req.CurrencyCode
	updated.ExchangeRate = normalizeExchangeRate(req.ExchangeRate)
	updated.CustomerName = req.CustomerName
	updated.CustomerPin = req.CustomerPin
	updated.Version = existing.Version + 1
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = requestingUserID

	lines := buildLineItems(req.Lines, requestingUserID, now)
	if err := s.creditNoteRepo.UpdateCreditNote(ctx, updated, lines); err != nil {
		return nil, fmt.Errorf("failed to update credit note %s: %w", existing.CreditNoteID, err)
	}

	logger.Info("Credit note replaced from sync",
		slog.String("credit_note_id", updated.CreditNoteID),
		slog.String("quickbooks_id", updated.QuickBooksID),
		slog.Int64("version", updated.Version))
	return &updated, nil
}

func (s *creditNoteService) validateCurrencyCode(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}
	if _, err := s.currencyRepo.FindCurrencyByCode(ctx, code); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: unknown currency code %q", apperrors.ErrValidation, code)
		}
		return err
	}
	return nil
}
