package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/core/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	var inv *domain.Invoice
	if args.Get(0) != nil {
		inv = args.Get(0).(*domain.Invoice)
	}
	return inv, args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoiceByQuickBooksID(ctx context.Context, companyID string, quickBooksID string) (*domain.Invoice, error) {
	args := m.Called(ctx, companyID, quickBooksID)
	var inv *domain.Invoice
	if args.Get(0) != nil {
		inv = args.Get(0).(*domain.Invoice)
	}
	return inv, args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoicesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	args := m.Called(ctx, companyID, limit, nextToken)
	var invoices []domain.Invoice
	if args.Get(0) != nil {
		invoices = args.Get(0).([]domain.Invoice)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return invoices, token, args.Error(2)
}

func (m *MockInvoiceRepository) FindInvoiceLines(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	args := m.Called(ctx, invoiceID)
	var lines []domain.LineItem
	if args.Get(0) != nil {
		lines = args.Get(0).([]domain.LineItem)
	}
	return lines, args.Error(1)
}

func (m *MockInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.LineItem) error {
	args := m.Called(ctx, invoice, lines)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.LineItem) error {
	args := m.Called(ctx, invoice, lines)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetInvoiceValidated(ctx context.Context, invoiceID string, updatedBy string, now time.Time) error {
	args := m.Called(ctx, invoiceID, updatedBy, now)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindInvoiceByIDForUpdate(ctx context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, tx, invoiceID)
	var inv *domain.Invoice
	if args.Get(0) != nil {
		inv = args.Get(0).(*domain.Invoice)
	}
	return inv, args.Error(1)
}

// --- Mock CreditNoteRepository ---
type MockCreditNoteRepository struct {
	mock.Mock
}

func (m *MockCreditNoteRepository) FindCreditNoteByID(ctx context.Context, creditNoteID string) (*domain.CreditNote, error) {
	args := m.Called(ctx, creditNoteID)
	var cn *domain.CreditNote
	if args.Get(0) != nil {
		cn = args.Get(0).(*domain.CreditNote)
	}
	return cn, args.Error(1)
}

func (m *MockCreditNoteRepository) FindCreditNoteByQuickBooksID(ctx context.Context, companyID string, quickBooksID string) (*domain.CreditNote, error) {
	args := m.Called(ctx, companyID, quickBooksID)
	var cn *domain.CreditNote
	if args.Get(0) != nil {
		cn = args.Get(0).(*domain.CreditNote)
	}
	return cn, args.Error(1)
}

func (m *MockCreditNoteRepository) ListCreditNotesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.CreditNote, *string, error) {
	args := m.Called(ctx, companyID, limit, nextToken)
	var notes []domain.CreditNote
	if args.Get(0) != nil {
		notes = args.Get(0).([]domain.CreditNote)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return notes, token, args.Error(2)
}

func (m *MockCreditNoteRepository) ListCreditNotesByInvoiceID(ctx context.Context, invoiceID string) ([]domain.CreditNote, error) {
	args := m.Called(ctx, invoiceID)
	var notes []domain.CreditNote
	if args.Get(0) != nil {
		notes = args.Get(0).([]domain.CreditNote)
	}
	return notes, args.Error(1)
}

func (m *MockCreditNoteRepository) FindCreditNoteLines(ctx context.Context, creditNoteID string) ([]domain.LineItem, error) {
	args := m.Called(ctx, creditNoteID)
	var lines []domain.LineItem
	if args.Get(0) != nil {
		lines = args.Get(0).([]domain.LineItem)
	}
	return lines, args.Error(1)
}

func (m *MockCreditNoteRepository) SaveCreditNote(ctx context.Context, creditNote domain.CreditNote, lines []domain.LineItem) error {
	args := m.Called(ctx, creditNote, lines)
	return args.Error(0)
}

func (m *MockCreditNoteRepository) UpdateCreditNote(ctx context.Context, creditNote domain.CreditNote, lines []domain.LineItem) error {
	args := m.Called(ctx, creditNote, lines)
	return args.Error(0)
}

func (m *MockCreditNoteRepository) SetCreditNoteValidated(ctx context.Context, creditNoteID string, updatedBy string, now time.Time) error {
	args := m.Called(ctx, creditNoteID, updatedBy, now)
	return args.Error(0)
}

func (m *MockCreditNoteRepository) SumLinkedCreditAmountsInTx(ctx context.Context, tx pgx.Tx, invoiceID string, excludeCreditNoteID *string) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, invoiceID, excludeCreditNoteID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCreditNoteRepository) UpdateRelatedInvoiceInTx(ctx context.Context, tx pgx.Tx, creditNoteID string, relatedInvoiceID *string, updatedBy string, now time.Time) error {
	args := m.Called(ctx, tx, creditNoteID, relatedInvoiceID, updatedBy, now)
	return args.Error(0)
}

// --- Mock TransactionManager ---
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	var tx pgx.Tx
	if args.Get(0) != nil {
		tx = args.Get(0).(pgx.Tx)
	}
	return tx, args.Error(1)
}

func (m *MockTxManager) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTxManager) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock CompanyAuthorizer ---
type MockCompanyAuthorizer struct {
	mock.Mock
}

func (m *MockCompanyAuthorizer) AuthorizeUserAction(ctx context.Context, userID, companyID string, requiredRole domain.UserCompanyRole) error {
	args := m.Called(ctx, userID, companyID, requiredRole)
	return args.Error(0)
}

// --- Test Suite ---
type ReconciliationServiceTestSuite struct {
	suite.Suite
	mockInvoiceRepo    *MockInvoiceRepository
	mockCreditNoteRepo *MockCreditNoteRepository
	mockTxManager      *MockTxManager
	mockAuthorizer     *MockCompanyAuthorizer
	service            portssvc.CreditReconciliationSvc

	companyID string
	userID    string
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.mockInvoiceRepo = new(MockInvoiceRepository)
	suite.mockCreditNoteRepo = new(MockCreditNoteRepository)
	suite.mockTxManager = new(MockTxManager)
	suite.mockAuthorizer = new(MockCompanyAuthorizer)
	suite.service = services.NewReconciliationService(
		suite.mockInvoiceRepo,
		suite.mockCreditNoteRepo,
		suite.mockTxManager,
		suite.mockAuthorizer,
	)
	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
}

func (suite *ReconciliationServiceTestSuite) authorize(role domain.UserCompanyRole) {
	suite.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, suite.userID, suite.companyID, role).Return(nil).Once()
}

func (suite *ReconciliationServiceTestSuite) invoice(invoiceID, total string) *domain.Invoice {
	return &domain.Invoice{
		InvoiceID: invoiceID,
		CompanyID: suite.companyID,
		TotalAmt:  decimal.RequireFromString(total),
	}
}

func (suite *ReconciliationServiceTestSuite) creditNote(creditNoteID, total string) *domain.CreditNote {
	return &domain.CreditNote{
		CreditNoteID: creditNoteID,
		CompanyID:    suite.companyID,
		TotalAmt:     decimal.RequireFromString(total),
	}
}

// --- SummarizeCredits ---
func (suite *ReconciliationServiceTestSuite) TestSummarizeCredits_Success() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	linked := []domain.CreditNote{
		{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("400")},
		{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("200")},
	}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return(linked, nil).Once()

	summary, err := suite.service.SummarizeCredits(ctx, suite.companyID, invoiceID, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(summary)
	suite.Equal(invoiceID, summary.InvoiceID)
	suite.True(decimal.RequireFromString("600").Equal(summary.TotalCredits))
	suite.True(decimal.RequireFromString("400").Equal(summary.AvailableBalance))
	suite.False(summary.IsFullyCredited)
	suite.True(decimal.RequireFromString("60").Equal(summary.UtilizationPct))
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockCreditNoteRepo.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestSummarizeCredits_FullyCredited() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	inv := suite.invoice(invoiceID, "400")
	linked := []domain.CreditNote{{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("400")}}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return(linked, nil).Once()

	summary, err := suite.service.SummarizeCredits(ctx, suite.companyID, invoiceID, suite.userID)

	suite.Require().NoError(err)
	suite.True(summary.AvailableBalance.IsZero())
	suite.True(summary.IsFullyCredited)
}

func (suite *ReconciliationServiceTestSuite) TestSummarizeCredits_CrossCompanyHidden() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	foreign := &domain.Invoice{InvoiceID: invoiceID, CompanyID: uuid.NewString(), TotalAmt: decimal.RequireFromString("1000")}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(foreign, nil).Once()

	summary, err := suite.service.SummarizeCredits(ctx, suite.companyID, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(summary)
	// Documents of other companies must look like they don't exist
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockCreditNoteRepo.AssertNotCalled(suite.T(), "ListCreditNotesByInvoiceID", mock.Anything, mock.Anything)
}

// --- ValidateCreditAmount ---
func (suite *ReconciliationServiceTestSuite) TestValidateCreditAmount_Accepted() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	linked := []domain.CreditNote{{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("600")}}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return(linked, nil).Once()

	validation, err := suite.service.ValidateCreditAmount(ctx, suite.companyID, invoiceID, decimal.RequireFromString("400"), nil, suite.userID)

	suite.Require().NoError(err)
	suite.True(validation.OK)
	suite.True(decimal.RequireFromString("400").Equal(validation.AvailableBalance))
}

func (suite *ReconciliationServiceTestSuite) TestValidateCreditAmount_InsufficientBalance() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	linked := []domain.CreditNote{{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("600")}}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return(linked, nil).Once()

	validation, err := suite.service.ValidateCreditAmount(ctx, suite.companyID, invoiceID, decimal.RequireFromString("500"), nil, suite.userID)

	suite.Require().NoError(err)
	suite.False(validation.OK)
	suite.Equal(domain.RejectionInsufficientBalance, validation.Reason)
	suite.True(decimal.RequireFromString("100").Equal(validation.Shortfall))
	suite.Contains(validation.Message, "exceeds available balance")
}

func (suite *ReconciliationServiceTestSuite) TestValidateCreditAmount_AlreadyFullyCredited() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	inv := suite.invoice(invoiceID, "400")
	linked := []domain.CreditNote{{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("400")}}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return(linked, nil).Once()

	validation, err := suite.service.ValidateCreditAmount(ctx, suite.companyID, invoiceID, decimal.RequireFromString("1"), nil, suite.userID)

	suite.Require().NoError(err)
	suite.False(validation.OK)
	suite.Equal(domain.RejectionAlreadyFullyCredited, validation.Reason)
}

func (suite *ReconciliationServiceTestSuite) TestValidateCreditAmount_NonPositiveAmount() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return([]domain.CreditNote{}, nil).Once()

	validation, err := suite.service.ValidateCreditAmount(ctx, suite.companyID, invoiceID, decimal.Zero, nil, suite.userID)

	suite.Require().NoError(err)
	suite.False(validation.OK)
	suite.Equal(domain.RejectionInvalidAmount, validation.Reason)
}

func (suite *ReconciliationServiceTestSuite) TestValidateCreditAmount_ExcludesOwnCreditNote() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	ownID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	linked := []domain.CreditNote{
		{CreditNoteID: ownID, TotalAmt: decimal.RequireFromString("600")},
		{CreditNoteID: uuid.NewString(), TotalAmt: decimal.RequireFromString("300")},
	}

	suite.authorize(domain.RoleReadOnly)
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("ListCreditNotesByInvoiceID", ctx, invoiceID).Return(linked, nil).Once()

	// Own 600 excluded: committed is 300, leaving 700 of headroom
	validation, err := suite.service.ValidateCreditAmount(ctx, suite.companyID, invoiceID, decimal.RequireFromString("650"), &ownID, suite.userID)

	suite.Require().NoError(err)
	suite.True(validation.OK)
	suite.True(decimal.RequireFromString("700").Equal(validation.AvailableBalance))
}

// --- LinkCreditNote ---
func (suite *ReconciliationServiceTestSuite) TestLinkCreditNote_Success() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	creditNoteID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	cn := suite.creditNote(creditNoteID, "400")

	suite.authorize(domain.RoleMember)
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(cn, nil).Once()
	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockInvoiceRepo.On("FindInvoiceByIDForUpdate", ctx, mock.Anything, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("SumLinkedCreditAmountsInTx", ctx, mock.Anything, invoiceID, &creditNoteID).Return(decimal.RequireFromString("500"), nil).Once()
	suite.mockCreditNoteRepo.On("UpdateRelatedInvoiceInTx", ctx, mock.Anything, creditNoteID, &invoiceID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxManager.On("Commit", ctx, mock.Anything).Return(nil).Once()

	result, err := suite.service.LinkCreditNote(ctx, suite.companyID, creditNoteID, invoiceID, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(result)
	suite.True(result.Validation.OK)
	suite.True(decimal.RequireFromString("500").Equal(result.BalanceBefore))
	suite.True(decimal.RequireFromString("100").Equal(result.BalanceAfter))
	suite.mockTxManager.AssertExpectations(suite.T())
	suite.mockCreditNoteRepo.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestLinkCreditNote_RejectedExceedsBalance() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	creditNoteID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	cn := suite.creditNote(creditNoteID, "500")

	suite.authorize(domain.RoleMember)
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(cn, nil).Once()
	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockInvoiceRepo.On("FindInvoiceByIDForUpdate", ctx, mock.Anything, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("SumLinkedCreditAmountsInTx", ctx, mock.Anything, invoiceID, &creditNoteID).Return(decimal.RequireFromString("600"), nil).Once()

	result, err := suite.service.LinkCreditNote(ctx, suite.companyID, creditNoteID, invoiceID, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(result)
	suite.False(result.Validation.OK)
	suite.Equal(domain.RejectionInsufficientBalance, result.Validation.Reason)
	suite.True(result.BalanceBefore.Equal(result.BalanceAfter))
	// A rejected link must not write anything
	suite.mockCreditNoteRepo.AssertNotCalled(suite.T(), "UpdateRelatedInvoiceInTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockTxManager.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestLinkCreditNote_SecondLinkLosesRace() {
	// Two credit notes compete for the last 500 of headroom. The first commit
	// consumes it; the second validates under the lock against the fresh sum
	// and must be rejected.
	ctx := context.Background()
	invoiceID := uuid.NewString()
	firstID := uuid.NewString()
	secondID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	first := suite.creditNote(firstID, "500")
	second := suite.creditNote(secondID, "500")

	suite.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, suite.userID, suite.companyID, domain.RoleMember).Return(nil).Twice()
	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Twice()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Twice()
	suite.mockInvoiceRepo.On("FindInvoiceByIDForUpdate", ctx, mock.Anything, invoiceID).Return(inv, nil).Twice()

	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, firstID).Return(first, nil).Once()
	suite.mockCreditNoteRepo.On("SumLinkedCreditAmountsInTx", ctx, mock.Anything, invoiceID, &firstID).Return(decimal.RequireFromString("500"), nil).Once()
	suite.mockCreditNoteRepo.On("UpdateRelatedInvoiceInTx", ctx, mock.Anything, firstID, &invoiceID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxManager.On("Commit", ctx, mock.Anything).Return(nil).Once()

	firstResult, err := suite.service.LinkCreditNote(ctx, suite.companyID, firstID, invoiceID, suite.userID)
	suite.Require().NoError(err)
	suite.True(firstResult.Validation.OK)

	// Second attempt sees the first link included in the committed sum.
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, secondID).Return(second, nil).Once()
	suite.mockCreditNoteRepo.On("SumLinkedCreditAmountsInTx", ctx, mock.Anything, invoiceID, &secondID).Return(decimal.RequireFromString("1000"), nil).Once()

	secondResult, err := suite.service.LinkCreditNote(ctx, suite.companyID, secondID, invoiceID, suite.userID)
	suite.Require().NoError(err)
	suite.False(secondResult.Validation.OK)
	suite.Equal(domain.RejectionAlreadyFullyCredited, secondResult.Validation.Reason)
	suite.mockCreditNoteRepo.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestLinkCreditNote_AlreadyLinkedElsewhere() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	otherInvoiceID := uuid.NewString()
	creditNoteID := uuid.NewString()
	cn := suite.creditNote(creditNoteID, "400")
	cn.RelatedInvoiceID = &otherInvoiceID

	suite.authorize(domain.RoleMember)
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(cn, nil).Once()

	result, err := suite.service.LinkCreditNote(ctx, suite.companyID, creditNoteID, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockTxManager.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestLinkCreditNote_ConcurrentLinkGuardedByUpdate() {
	// The pre-transaction linkage check can read a stale credit note while a
	// concurrent request links it to a different invoice. The guarded update
	// matches zero rows in that case and the link must fail with a conflict
	// instead of overwriting the winner.
	ctx := context.Background()
	invoiceID := uuid.NewString()
	creditNoteID := uuid.NewString()
	inv := suite.invoice(invoiceID, "1000")
	cn := suite.creditNote(creditNoteID, "400") // read as unlinked, already stale

	suite.authorize(domain.RoleMember)
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(cn, nil).Once()
	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockInvoiceRepo.On("FindInvoiceByIDForUpdate", ctx, mock.Anything, invoiceID).Return(inv, nil).Once()
	suite.mockCreditNoteRepo.On("SumLinkedCreditAmountsInTx", ctx, mock.Anything, invoiceID, &creditNoteID).Return(decimal.Zero, nil).Once()
	suite.mockCreditNoteRepo.On("UpdateRelatedInvoiceInTx", ctx, mock.Anything, creditNoteID, &invoiceID, suite.userID, mock.AnythingOfType("time.Time")).
		Return(fmt.Errorf("%w: invoice link of credit note %s changed concurrently", apperrors.ErrConflict, creditNoteID)).Once()

	result, err := suite.service.LinkCreditNote(ctx, suite.companyID, creditNoteID, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockTxManager.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
	suite.mockCreditNoteRepo.AssertExpectations(suite.T())
}

// --- UnlinkCreditNote ---
func (suite *ReconciliationServiceTestSuite) TestUnlinkCreditNote_Success() {
	ctx := context.Background()
	invoiceID := uuid.NewString()
	creditNoteID := uuid.NewString()
	cn := suite.creditNote(creditNoteID, "400")
	cn.RelatedInvoiceID = &invoiceID

	suite.authorize(domain.RoleMember)
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(cn, nil).Once()
	suite.mockTxManager.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockTxManager.On("Rollback", ctx, mock.Anything).Return(nil).Once()
	suite.mockCreditNoteRepo.On("UpdateRelatedInvoiceInTx", ctx, mock.Anything, creditNoteID, (*string)(nil), suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxManager.On("Commit", ctx, mock.Anything).Return(nil).Once()

	err := suite.service.UnlinkCreditNote(ctx, suite.companyID, creditNoteID, suite.userID)

	suite.Require().NoError(err)
	suite.mockCreditNoteRepo.AssertExpectations(suite.T())
	suite.mockTxManager.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestUnlinkCreditNote_NotLinked() {
	ctx := context.Background()
	creditNoteID := uuid.NewString()
	cn := suite.creditNote(creditNoteID, "400")

	suite.authorize(domain.RoleMember)
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(cn, nil).Once()

	err := suite.service.UnlinkCreditNote(ctx, suite.companyID, creditNoteID, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxManager.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

// --- Run Suite ---
func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
