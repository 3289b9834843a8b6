package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/mapping"
)

type PgxCounterRepository struct {
	BaseRepository
}

// newPgxCounterRepository creates a new repository for the per-company
// document number counter.
func newPgxCounterRepository(pool *pgxpool.Pool) portsrepo.CounterRepositoryWithTx {
	return &PgxCounterRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxCounterRepository implements portsrepo.CounterRepositoryWithTx
var _ portsrepo.CounterRepositoryWithTx = (*PgxCounterRepository)(nil)

const counterSelectColumns = `
	company_id, last_number, created_at, created_by, last_updated_at, last_updated_by
`

// FindCounter retrieves the counter row for a company without locking it.
func (r *PgxCounterRepository) FindCounter(ctx context.Context, companyID string) (*domain.TaxDocumentCounter, error) {
	query := `SELECT ` + counterSelectColumns + ` FROM tax_document_counters WHERE company_id = $1;`
	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query counter for company "+companyID, err)
	}
	modelCounter, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.TaxDocumentCounter])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to collect counter row for company "+companyID, err)
	}
	domainCounter := mapping.ToDomainCounter(modelCounter)
	return &domainCounter, nil
}

// FindCounterForUpdate selects the counter row and locks it inside the
// caller's transaction. Concurrent allocations for the same company block here.
func (r *PgxCounterRepository) FindCounterForUpdate(ctx context.Context, tx pgx.Tx, companyID string) (*domain.TaxDocumentCounter, error) {
	query := `SELECT ` + counterSelectColumns + ` FROM tax_document_counters WHERE company_id = $1 FOR UPDATE;`
	rows, err := tx.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock counter for company "+companyID, err)
	}
	modelCounter, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.TaxDocumentCounter])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to collect locked counter row for company "+companyID, err)
	}
	domainCounter := mapping.ToDomainCounter(modelCounter)
	return &domainCounter, nil
}

// CreateCounterInTx seeds the counter row on a company's first allocation.
// When a concurrent seeder has already inserted the row, the insert waits on
// the primary key until that transaction commits and then does nothing; the
// caller re-selects FOR UPDATE either way.
func (r *PgxCounterRepository) CreateCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	query := `
		INSERT INTO tax_document_counters (company_id, last_number, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO NOTHING;
	`
	_, err := tx.Exec(ctx, query,
		counter.CompanyID,
		counter.LastNumber,
		counter.CreatedAt,
		counter.CreatedBy,
		counter.LastUpdatedAt,
		counter.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to seed counter for company "+counter.CompanyID, err)
	}
	return nil
}

// UpsertCounterInTx writes the counter row inside the caller's transaction.
// By the time this runs the row exists and is locked by FindCounterForUpdate.
func (r *PgxCounterRepository) UpsertCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error {
	query := `
		INSERT INTO tax_document_counters (company_id, last_number, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO UPDATE
		SET last_number = EXCLUDED.last_number,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by;
	`
	_, err := tx.Exec(ctx, query,
		counter.CompanyID,
		counter.LastNumber,
		counter.CreatedAt,
		counter.CreatedBy,
		counter.LastUpdatedAt,
		counter.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to upsert counter for company "+counter.CompanyID, err)
	}
	return nil
}
