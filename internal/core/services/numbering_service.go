package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
)

// ErrCounterPersistFailure is returned when the allocated number could not be
// persisted. No value is handed to the caller in that case, so the sequence
// stays gap-free.
var ErrCounterPersistFailure = errors.New("failed to persist document number counter")

type numberingService struct {
	counterRepo portsrepo.CounterRepositoryFacade
	txManager   portsrepo.TransactionManager
}

// NewNumberingService creates the per-company document number allocator.
func NewNumberingService(counterRepo portsrepo.CounterRepositoryFacade, txManager portsrepo.TransactionManager) portssvc.DocumentNumberingSvc {
	return &numberingService{
		counterRepo: counterRepo,
		txManager:   txManager,
	}
}

var _ portssvc.DocumentNumberingSvc = (*numberingService)(nil)

// AllocateNumber increments the company's counter under an exclusive row lock
// and returns the new value. Concurrent callers for the same company serialize
// on the row lock, so every caller receives a distinct consecutive number.
func (s *numberingService) AllocateNumber(ctx context.Context, companyID string) (int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin allocation transaction: %w", err)
	}
	defer s.txManager.Rollback(ctx, tx) // No-op once committed

	counter, err := s.counterRepo.FindCounterForUpdate(ctx, tx, companyID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return 0, fmt.Errorf("failed to lock counter for company %s: %w", companyID, err)
		}
		// First allocation for this company. SELECT FOR UPDATE on an absent
		// row acquires no lock, so two first allocators can both land here;
		// seeding with ON CONFLICT DO NOTHING lets exactly one insert win and
		// the re-select below serializes everyone on the now-present row.
		seed := domain.TaxDocumentCounter{
			CompanyID:  companyID,
			LastNumber: 0,
			AuditFields: domain.AuditFields{
				CreatedAt: time.Now(),
				CreatedBy: "system",
			},
		}
		if err := s.counterRepo.CreateCounterInTx(ctx, tx, seed); err != nil {
			return 0, fmt.Errorf("failed to seed counter for company %s: %w", companyID, err)
		}
		counter, err = s.counterRepo.FindCounterForUpdate(ctx, tx, companyID)
		if err != nil {
			return 0, fmt.Errorf("failed to lock seeded counter for company %s: %w", companyID, err)
		}
	}

	counter.LastNumber++
	counter.LastUpdatedAt = time.Now()
	counter.LastUpdatedBy = "system"

	if err := s.counterRepo.UpsertCounterInTx(ctx, tx, *counter); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterPersistFailure, err)
	}
	if err := s.txManager.Commit(ctx, tx); err != nil {
		// Increment and persist are one atomic unit: a failed commit consumes
		// nothing and the caller gets no number.
		return 0, fmt.Errorf("%w: %v", ErrCounterPersistFailure, err)
	}

	logger.Debug("Allocated document number",
		slog.String("company_id", companyID),
		slog.Int64("number", counter.LastNumber))
	return counter.LastNumber, nil
}

// CurrentNumber returns the last number handed out for the company, zero when
// nothing has been allocated yet.
func (s *numberingService) CurrentNumber(ctx context.Context, companyID string) (int64, error) {
	counter, err := s.counterRepo.FindCounter(ctx, companyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter for company %s: %w", companyID, err)
	}
	return counter.LastNumber, nil
}
