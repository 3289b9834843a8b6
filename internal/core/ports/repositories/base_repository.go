package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager begins and finishes database transactions. Services use
// it for multi-step writes that must land atomically, such as linking a
// credit note while the invoice row is locked, or allocating a submission
// number.
type TransactionManager interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, tx pgx.Tx) error
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// RepositoryWithTx marks repositories whose facade also exposes transaction
// management. Embedded by the per-entity XxxRepositoryWithTx interfaces.
type RepositoryWithTx interface {
	TransactionManager
}
