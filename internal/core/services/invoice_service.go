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
	"github.com/shopspring/decimal"
)

type invoiceService struct {
	invoiceRepo  portsrepo.InvoiceRepositoryFacade
	currencyRepo portsrepo.CurrencyRepositoryFacade
	authorizer   portssvc.CompanyAuthorizerSvc
}

// NewInvoiceService creates the invoice mirror service.
func NewInvoiceService(
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	currencyRepo portsrepo.CurrencyRepositoryFacade,
	authorizer portssvc.CompanyAuthorizerSvc,
) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		currencyRepo: currencyRepo,
		authorizer:   authorizer,
	}
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

func (s *invoiceService) GetInvoiceByID(ctx context.Context, companyID, invoiceID string, requestingUserID string) (*domain.Invoice, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.CompanyID != companyID {
		return nil, ErrCompanyMismatch
	}
	return invoice, nil
}

func (s *invoiceService) GetInvoiceLines(ctx context.Context, companyID, invoiceID string, requestingUserID string) ([]domain.LineItem, error) {
	if _, err := s.GetInvoiceByID(ctx, companyID, invoiceID, requestingUserID); err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindInvoiceLines(ctx, invoiceID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, companyID string, requestingUserID string, params dto.ListInvoicesParams) (*dto.ListInvoicesResponse, error) {
	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	invoices, nextToken, err := s.invoiceRepo.ListInvoicesByCompany(ctx, companyID, params.Limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for company %s: %w", companyID, err)
	}

	response := &dto.ListInvoicesResponse{
		Invoices:  make([]dto.InvoiceResponse, 0, len(invoices)),
		NextToken: nextToken,
	}
	for i := range invoices {
		response.Invoices = append(response.Invoices, dto.ToInvoiceResponse(&invoices[i]))
	}
	return response, nil
}

// UpsertInvoice mirrors a QuickBooks invoice into local storage, matching on
// the QuickBooks id within the company. The sync payload never touches the
// Validated flag; only a successful submission sets it.
func (s *invoiceService) UpsertInvoice(ctx context.Context, companyID string, req dto.UpsertInvoiceRequest, requestingUserID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleMember); err != nil {
		return nil, err
	}
	if err := s.validateCurrencyCode(ctx, req.CurrencyCode); err != nil {
		return nil, err
	}

	now := time.Now()
	existing, err := s.invoiceRepo.FindInvoiceByQuickBooksID(ctx, companyID, req.QuickBooksID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		invoice := domain.Invoice{
			InvoiceID:       uuid.NewString(),
			CompanyID:       companyID,
			QuickBooksID:    req.QuickBooksID,
			DocumentNumber:  req.DocumentNumber,
			TransactionDate: req.TransactionDate,
			TotalAmt:        req.TotalAmt,
			Balance:         req.Balance,
			Subtotal:        req.Subtotal,
			TaxTotal:        req.TaxTotal,
			TaxRateRef:      req.TaxRateRef,
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
		if err := s.invoiceRepo.SaveInvoice(ctx, invoice, lines); err != nil {
			return nil, fmt.Errorf("failed to save invoice: %w", err)
		}

		logger.Info("Invoice created from sync",
			slog.String("invoice_id", invoice.InvoiceID),
			slog.String("quickbooks_id", invoice.QuickBooksID),
			slog.String("document_number", invoice.DocumentNumber))
		return &invoice, nil
	}

	// Replace mutable fields wholesale; identity, validation state and audit
	// creation fields survive the sync.
	updated := *existing
	updated.DocumentNumber = req.DocumentNumber
	updated.TransactionDate = req.TransactionDate
	updated.TotalAmt = req.TotalAmt
	updated.Balance = req.Balance
	updated.Subtotal = req.Subtotal
	updated.TaxTotal = req.TaxTotal
	updated.TaxRateRef = req.TaxRateRef
	updated.TaxPercent = req.TaxPercent
	updated.CurrencyCode = req.CurrencyCode
	updated.ExchangeRate = normalizeExchangeRate(req.ExchangeRate)
	updated.CustomerName = req.CustomerName
	updated.CustomerPin = req.CustomerPin
	updated.Version = existing.Version + 1
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = requestingUserID

	lines := buildLineItems(req.Lines, requestingUserID, now)
	if err := s.invoiceRepo.UpdateInvoice(ctx, updated, lines); err != nil {
		return nil, fmt.Errorf("failed to update invoice %s: %w", existing.InvoiceID, err)
	}

	logger.Info("Invoice replaced from sync",
		slog.String("invoice_id", updated.InvoiceID),
		slog.String("quickbooks_id", updated.QuickBooksID),
		slog.Int64("version", updated.Version))
	return &updated, nil
}

// validateCurrencyCode checks an optional currency code against the currency
// catalogue. An empty code is accepted; the document stays in the company's
// default currency handling.
func (s *invoiceService) validateCurrencyCode(ctx context.Context, code string) error {
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

// normalizeExchangeRate defaults a missing rate to 1.0 (home currency).
func normalizeExchangeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return rate
}

// buildLineItems materializes sync line payloads as fresh line rows. Lines are
// replaced wholesale on every upsert, so each gets a new id.
func buildLineItems(reqLines []dto.UpsertLineItemRequest, actorUserID string, now time.Time) []domain.LineItem {
	lines := make([]domain.LineItem, 0, len(reqLines))
	for _, l := range reqLines {
		lines = append(lines, domain.LineItem{
			LineID:     uuid.NewString(),
			LineNumber: l.LineNumber,
			ItemCode:   l.ItemCode,
			ItemName:   l.ItemName,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Amount:     l.Amount,
			TaxCode:    l.TaxCode,
			TaxRate:    l.TaxRate,
			TaxAmount:  l.TaxAmount,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorUserID,
			},
		})
	}
	return lines
}
