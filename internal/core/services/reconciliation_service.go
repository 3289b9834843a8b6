package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// ErrCompanyMismatch is returned when a document exists but belongs to a
// different company than the one in the request. It matches ErrNotFound so
// handlers keep cross-tenant existence hidden, while logs carry the real cause.
var ErrCompanyMismatch = fmt.Errorf("%w: document belongs to a different company", apperrors.ErrNotFound)

// ErrCreditNoteAlreadyLinked is returned when linking a credit note that is
// already linked to a different invoice. The link must be cleared first.
var ErrCreditNoteAlreadyLinked = fmt.Errorf("%w: credit note is already linked to another invoice", apperrors.ErrConflict)

type reconciliationService struct {
	invoiceRepo    portsrepo.InvoiceRepositoryFacade
	creditNoteRepo portsrepo.CreditNoteRepositoryFacade
	txManager      portsrepo.TransactionManager
	authorizer     portssvc.CompanyAuthorizerSvc
}

// NewReconciliationService creates the credit reconciliation engine. All link
// mutations go through it; nothing else writes related_invoice_id.
func NewReconciliationService(
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	creditNoteRepo portsrepo.CreditNoteRepositoryFacade,
	txManager portsrepo.TransactionManager,
	authorizer portssvc.CompanyAuthorizerSvc,
) portssvc.CreditReconciliationSvc {
	return &reconciliationService{
		invoiceRepo:    invoiceRepo,
		creditNoteRepo: creditNoteRepo,
		txManager:      txManager,
		authorizer:     authorizer,
	}
}

var _ portssvc.CreditReconciliationSvc = (*reconciliationService)(nil)

// SummarizeCredits computes the credit position of an invoice from current rows.
func (s *reconciliationService) SummarizeCredits(ctx context.Context, companyID, invoiceID string, requestingUserID string) (*domain.CreditSummary, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	invoice, err := s.findCompanyInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	linked, err := s.creditNoteRepo.ListCreditNotesByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit notes for invoice %s: %w", invoiceID, err)
	}

	totalCredits := decimal.Zero
	for _, cn := range linked {
		totalCredits = totalCredits.Add(cn.TotalAmt)
	}

	return &domain.CreditSummary{
		InvoiceID:        invoice.InvoiceID,
		InvoiceTotal:     invoice.TotalAmt,
		TotalCredits:     accounting.RoundMoney(totalCredits),
		AvailableBalance: accounting.RoundMoney(accounting.AvailableBalance(invoice.TotalAmt, totalCredits)),
		IsFullyCredited:  accounting.IsFullyCredited(invoice.TotalAmt, totalCredits),
		UtilizationPct:   accounting.UtilizationPct(invoice.TotalAmt, totalCredits),
	}, nil
}

// ValidateCreditAmount checks an amount against the invoice's current headroom.
// The answer is advisory: LinkCreditNote revalidates under the invoice lock.
func (s *reconciliationService) ValidateCreditAmount(ctx context.Context, companyID, invoiceID string, amount decimal.Decimal, excludeCreditNoteID *string, requestingUserID string) (*domain.CreditValidation, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	invoice, err := s.findCompanyInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	linked, err := s.creditNoteRepo.ListCreditNotesByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit notes for invoice %s: %w", invoiceID, err)
	}

	committed := decimal.Zero
	for _, cn := range linked {
		if excludeCreditNoteID != nil && cn.CreditNoteID == *excludeCreditNoteID {
			continue
		}
		committed = committed.Add(cn.TotalAmt)
	}

	validation := validateCreditAgainstBalance(amount, invoice.TotalAmt, committed)
	return &validation, nil
}

// LinkCreditNote links a credit note to an invoice. Validation and commit run
// atomically under an exclusive lock on the invoice row, closing the
// check-then-act race between two credit notes competing for the same headroom.
func (s *reconciliationService) LinkCreditNote(ctx context.Context, companyID, creditNoteID, invoiceID string, requestingUserID string) (*domain.CreditLinkResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleMember); err != nil {
		return nil, err
	}

	creditNote, err := s.findCompanyCreditNote(ctx, companyID, creditNoteID)
	if err != nil {
		return nil, err
	}
	if creditNote.IsLinked() && *creditNote.RelatedInvoiceID != invoiceID {
		return nil, ErrCreditNoteAlreadyLinked
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin link transaction: %w", err)
	}
	defer s.txManager.Rollback(ctx, tx) // No-op once committed

	// Lock the invoice row for the whole validate+commit sequence.
	invoice, err := s.invoiceRepo.FindInvoiceByIDForUpdate(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}

	// Recompute committed credits under the lock, leaving out this credit note
	// so re-linking to the same invoice validates against fresh headroom.
	committed, err := s.creditNoteRepo.SumLinkedCreditAmountsInTx(ctx, tx, invoiceID, &creditNoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum linked credits for invoice %s: %w", invoiceID, err)
	}

	balanceBefore := accounting.RoundMoney(accounting.AvailableBalance(invoice.TotalAmt, committed))
	validation := validateCreditAgainstBalance(creditNote.TotalAmt, invoice.TotalAmt, committed)
	if !validation.OK {
		logger.Warn("Credit note link rejected",
			slog.String("credit_note_id", creditNoteID),
			slog.String("invoice_id", invoiceID),
			slog.String("reason", string(validation.Reason)),
			slog.String("amount", creditNote.TotalAmt.String()),
			slog.String("available_balance", validation.AvailableBalance.String()))
		return &domain.CreditLinkResult{
			Validation:    validation,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceBefore,
		}, nil
	}

	now := time.Now()
	if err := s.creditNoteRepo.UpdateRelatedInvoiceInTx(ctx, tx, creditNoteID, &invoiceID, requestingUserID, now); err != nil {
		return nil, fmt.Errorf("failed to link credit note %s to invoice %s: %w", creditNoteID, invoiceID, err)
	}

	if err := s.txManager.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit credit note link: %w", err)
	}

	balanceAfter := accounting.RoundMoney(accounting.AvailableBalance(invoice.TotalAmt, committed.Add(creditNote.TotalAmt)))
	logger.Info("Credit note linked to invoice",
		slog.String("credit_note_id", creditNoteID),
		slog.String("invoice_id", invoiceID),
		slog.String("amount", creditNote.TotalAmt.String()),
		slog.String("balance_before", balanceBefore.String()),
		slog.String("balance_after", balanceAfter.String()))

	return &domain.CreditLinkResult{
		Validation:    validation,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}, nil
}

// UnlinkCreditNote clears the invoice link. No balance re-validation is
// needed: removing a link only increases the invoice's available balance.
func (s *reconciliationService) UnlinkCreditNote(ctx context.Context, companyID, creditNoteID string, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleMember); err != nil {
		return err
	}

	creditNote, err := s.findCompanyCreditNote(ctx, companyID, creditNoteID)
	if err != nil {
		return err
	}
	if !creditNote.IsLinked() {
		return fmt.Errorf("%w: credit note %s is not linked to an invoice", apperrors.ErrValidation, creditNoteID)
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unlink transaction: %w", err)
	}
	defer s.txManager.Rollback(ctx, tx)

	if err := s.creditNoteRepo.UpdateRelatedInvoiceInTx(ctx, tx, creditNoteID, nil, requestingUserID, time.Now()); err != nil {
		return fmt.Errorf("failed to unlink credit note %s: %w", creditNoteID, err)
	}

	if err := s.txManager.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit credit note unlink: %w", err)
	}

	logger.Info("Credit note unlinked from invoice",
		slog.String("credit_note_id", creditNoteID),
		slog.String("invoice_id", *creditNote.RelatedInvoiceID))
	return nil
}

// findCompanyInvoice loads an invoice and hides it when it belongs to another company.
func (s *reconciliationService) findCompanyInvoice(ctx context.Context, companyID, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}
	return invoice, nil
}

// findCompanyCreditNote loads a credit note and hides it when it belongs to another company.
func (s *reconciliationService) findCompanyCreditNote(ctx context.Context, companyID, creditNoteID string) (*domain.CreditNote, error) {
	creditNote, err := s.creditNoteRepo.FindCreditNoteByID(ctx, creditNoteID)
	if err != nil {
		return nil, err
	}
	if creditNote.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}
	return creditNote, nil
}

// validateCreditAgainstBalance applies the balance rules to a requested credit
// amount given the invoice total and the committed credit total. It is pure so
// the advisory check and the under-lock recheck share one implementation.
func validateCreditAgainstBalance(amount, invoiceTotal, committedCredits decimal.Decimal) domain.CreditValidation {
	available := accounting.RoundMoney(accounting.AvailableBalance(invoiceTotal, committedCredits))

	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.CreditValidation{
			Reason:           domain.RejectionInvalidAmount,
			Message:          "credit amount must be greater than zero",
			AvailableBalance: available,
		}
	}

	// No headroom at all versus this specific request exceeding remaining
	// headroom are distinct outcomes; callers surface the distinct messages.
	if available.LessThanOrEqual(accounting.Tolerance) {
		return domain.CreditValidation{
			Reason:           domain.RejectionAlreadyFullyCredited,
			Message:          fmt.Sprintf("invoice is already fully credited (total %s, credited %s)", invoiceTotal.StringFixed(2), accounting.RoundMoney(committedCredits).StringFixed(2)),
			AvailableBalance: available,
		}
	}

	if exceeds, shortfall := accounting.ExceedsAvailable(amount, available); exceeds {
		return domain.CreditValidation{
			Reason:           domain.RejectionInsufficientBalance,
			Message:          fmt.Sprintf("credit amount %s exceeds available balance %s by %s", amount.StringFixed(2), available.StringFixed(2), shortfall.StringFixed(2)),
			AvailableBalance: available,
			Shortfall:        shortfall,
		}
	}

	return domain.CreditValidation{
		OK:               true,
		AvailableBalance: available,
	}
}
