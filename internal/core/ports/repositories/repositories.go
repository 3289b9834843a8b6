package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	CompanyRepo    CompanyRepositoryFacade
	UserRepo       UserRepositoryFacade
	CurrencyRepo   CurrencyRepositoryFacade
	InvoiceRepo    InvoiceRepositoryFacade
	CreditNoteRepo CreditNoteRepositoryFacade
	CounterRepo    CounterRepositoryFacade
	SubmissionRepo SubmissionRepositoryFacade
	APITokenRepo   APITokenRepository

	// TxManager coordinates multi-repository units of work, such as credit
	// linking and document number allocation, which lock rows across tables.
	TxManager TransactionManager
}
