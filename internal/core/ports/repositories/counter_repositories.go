package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
)

// CounterReader defines read operations for the per-company tax document counter
type CounterReader interface {
	// FindCounter retrieves the counter row for a company, or ErrNotFound when
	// no document number has been allocated yet.
	FindCounter(ctx context.Context, companyID string) (*domain.TaxDocumentCounter, error)
}

// CounterTransactionSupport defines operations that run inside a caller-owned transaction.
// Number allocation locks the counter row so concurrent allocations serialize.
type CounterTransactionSupport interface {
	// FindCounterForUpdate selects the counter row and locks it for update within a transaction.
	// Returns ErrNotFound when the company has no counter row yet. SELECT FOR UPDATE
	// acquires no lock when the row is absent, so allocation seeds the row with
	// CreateCounterInTx and re-selects before relying on the lock.
	FindCounterForUpdate(ctx context.Context, tx pgx.Tx, companyID string) (*domain.TaxDocumentCounter, error)

	// CreateCounterInTx seeds the counter row within a transaction. A concurrent
	// seeder may win the insert; the call blocks on the primary key until that
	// seeder commits and is then a no-op.
	CreateCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error

	// UpsertCounterInTx writes the counter row within a transaction. Callers hold
	// the row lock from FindCounterForUpdate by the time this runs.
	UpsertCounterInTx(ctx context.Context, tx pgx.Tx, counter domain.TaxDocumentCounter) error
}

// CounterRepositoryFacade combines all counter-related repository interfaces
// This is a facade for clients that need access to all operations
type CounterRepositoryFacade interface {
	CounterReader
	CounterTransactionSupport
}

// CounterRepositoryWithTx extends CounterRepositoryFacade with transaction capabilities
type CounterRepositoryWithTx interface {
	CounterRepositoryFacade
	TransactionManager
}
