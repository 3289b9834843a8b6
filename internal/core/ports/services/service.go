package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Company        CompanySvcFacade
	User           UserSvcFacade
	Currency       CurrencySvcFacade
	Invoice        InvoiceSvcFacade
	CreditNote     CreditNoteSvcFacade
	Reconciliation CreditReconciliationSvc
	Numbering      DocumentNumberingSvc
	Tax            TaxComputationSvc
	Submission     SubmissionSvcFacade
	APIToken       APITokenSvc

	TokenService       TokenSvcFacade
	GoogleOAuthHandler GoogleOAuthHandlerSvcFacade
}
