package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
)

// NewRepositoryProvider wires the pgsql repositories against one pool. The
// shared BaseRepository doubles as the cross-repository transaction manager.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	companyRepo := newPgxCompanyRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	currencyRepo := newPgxCurrencyRepository(dbPool)
	invoiceRepo := newPgxInvoiceRepository(dbPool)
	creditNoteRepo := newPgxCreditNoteRepository(dbPool)
	counterRepo := newPgxCounterRepository(dbPool)
	submissionRepo := newPgxSubmissionRepository(dbPool)
	apiTokenRepo := newPgxAPITokenRepository(dbPool)

	return portsrepo.RepositoryProvider{
		CompanyRepo:    companyRepo,
		UserRepo:       userRepo,
		CurrencyRepo:   currencyRepo,
		InvoiceRepo:    invoiceRepo,
		CreditNoteRepo: creditNoteRepo,
		CounterRepo:    counterRepo,
		SubmissionRepo: submissionRepo,
		APITokenRepo:   apiTokenRepo,
		TxManager:      &BaseRepository{Pool: dbPool},
	}
}
