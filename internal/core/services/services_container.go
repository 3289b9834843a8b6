package services

import (
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/etims"
	"github.com/savannahbooks/etims_bridge_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	// Create the container structure first
	container := &portssvc.ServiceContainer{}

	// Initialize company service first since most services depend on its authorizer
	container.Company = NewCompanyService(repos.CompanyRepo, repos.CurrencyRepo)
	companyAuthorizer := container.Company.(portssvc.CompanyAuthorizerSvc)

	container.Currency = NewCurrencyService(repos.CurrencyRepo)
	container.User = NewUserService(repos.UserRepo, companyAuthorizer)

	container.Invoice = NewInvoiceService(repos.InvoiceRepo, repos.CurrencyRepo, companyAuthorizer)
	container.CreditNote = NewCreditNoteService(repos.CreditNoteRepo, repos.CurrencyRepo, companyAuthorizer)
	container.Reconciliation = NewReconciliationService(repos.InvoiceRepo, repos.CreditNoteRepo, repos.TxManager, companyAuthorizer)
	container.Numbering = NewNumberingService(repos.CounterRepo, repos.TxManager)
	container.Tax = NewTaxService()

	authorityClient := etims.NewClient(cfg.EtimsBaseURL, cfg.EtimsTimeout)
	container.Submission = NewSubmissionService(
		repos.SubmissionRepo,
		repos.InvoiceRepo,
		repos.CreditNoteRepo,
		repos.CompanyRepo,
		container.Numbering,
		container.Tax,
		authorityClient,
		companyAuthorizer,
		cfg.EtimsQRBaseURL,
		cfg.SubmissionMaxAttempts,
	)

	container.APIToken = NewAPITokenService(repos.APITokenRepo, container.User)

	// Initialize TokenService
	container.TokenService = NewTokenService(cfg, container.User)

	// Initialize GoogleOAuthHandlerSvcFacade
	container.GoogleOAuthHandler = NewGoogleOAuthHandlerService(cfg)

	return container
}
