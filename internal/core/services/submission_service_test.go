package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/core/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock SubmissionRepository ---
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) FindSubmissionByID(ctx context.Context, submissionID string) (*domain.SubmissionRecord, error) {
	args := m.Called(ctx, submissionID)
	var record *domain.SubmissionRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.SubmissionRecord)
	}
	return record, args.Error(1)
}

func (m *MockSubmissionRepository) FindSubmissionByDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string) (*domain.SubmissionRecord, error) {
	args := m.Called(ctx, companyID, documentType, documentID)
	var record *domain.SubmissionRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.SubmissionRecord)
	}
	return record, args.Error(1)
}

func (m *MockSubmissionRepository) ListSubmissionsByCompany(ctx context.Context, companyID string, limit int, nextToken *string, status *domain.SubmissionStatus) ([]domain.SubmissionRecord, *string, error) {
	args := m.Called(ctx, companyID, limit, nextToken, status)
	var records []domain.SubmissionRecord
	if args.Get(0) != nil {
		records = args.Get(0).([]domain.SubmissionRecord)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return records, token, args.Error(2)
}

func (m *MockSubmissionRepository) SaveSubmission(ctx context.Context, record domain.SubmissionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSubmissionRepository) UpdateSubmission(ctx context.Context, record domain.SubmissionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// --- Mock CompanyRepository ---
type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	args := m.Called(ctx, companyID)
	var company *domain.Company
	if args.Get(0) != nil {
		company = args.Get(0).(*domain.Company)
	}
	return company, args.Error(1)
}

func (m *MockCompanyRepository) ListCompaniesByUserID(ctx context.Context, userID string) ([]domain.Company, error) {
	args := m.Called(ctx, userID)
	var companies []domain.Company
	if args.Get(0) != nil {
		companies = args.Get(0).([]domain.Company)
	}
	return companies, args.Error(1)
}

func (m *MockCompanyRepository) SaveCompany(ctx context.Context, company domain.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) UpdateCompany(ctx context.Context, company domain.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) AddUserToCompany(ctx context.Context, membership domain.UserCompany) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockCompanyRepository) FindUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	args := m.Called(ctx, userID, companyID)
	var uc *domain.UserCompany
	if args.Get(0) != nil {
		uc = args.Get(0).(*domain.UserCompany)
	}
	return uc, args.Error(1)
}

func (m *MockCompanyRepository) ListUsersByCompanyID(ctx context.Context, companyID string, includeRemoved ...bool) ([]domain.UserCompany, error) {
	callArgs := make([]interface{}, 0, 2+len(includeRemoved))
	callArgs = append(callArgs, ctx, companyID)
	for _, b := range includeRemoved {
		callArgs = append(callArgs, b)
	}
	args := m.Called(callArgs...)
	var memberships []domain.UserCompany
	if args.Get(0) != nil {
		memberships = args.Get(0).([]domain.UserCompany)
	}
	return memberships, args.Error(1)
}

func (m *MockCompanyRepository) UpdateUserCompanyRole(ctx context.Context, userID, companyID string, role domain.UserCompanyRole) error {
	args := m.Called(ctx, userID, companyID, role)
	return args.Error(0)
}

// --- Mock NumberingSvc ---
type MockNumberingSvc struct {
	mock.Mock
}

func (m *MockNumberingSvc) AllocateNumber(ctx context.Context, companyID string) (int64, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNumberingSvc) CurrentNumber(ctx context.Context, companyID string) (int64, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock AuthorityTransport ---
type MockAuthorityTransport struct {
	mock.Mock
}

func (m *MockAuthorityTransport) SubmitSales(ctx context.Context, creds domain.AuthorityCredentials, payload *dto.EtimsSalesRequest) (*dto.EtimsResponse, error) {
	args := m.Called(ctx, creds, payload)
	var resp *dto.EtimsResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*dto.EtimsResponse)
	}
	return resp, args.Error(1)
}

// --- Test Suite ---
type SubmissionServiceTestSuite struct {
	suite.Suite
	mockSubmissionRepo *MockSubmissionRepository
	mockInvoiceRepo    *MockInvoiceRepository
	mockCreditNoteRepo *MockCreditNoteRepository
	mockCompanyRepo    *MockCompanyRepository
	mockNumbering      *MockNumberingSvc
	mockTransport      *MockAuthorityTransport
	mockAuthorizer     *MockCompanyAuthorizer
	service            portssvc.SubmissionSvcFacade

	companyID string
	userID    string
	company   *domain.Company
}

const testQRBaseURL = "https://etims-sbx.kra.go.ke/common/link/etims/receipt/indexEtimsReceiptData"

func (suite *SubmissionServiceTestSuite) SetupTest() {
	suite.setup(0)
}

// setup wires the service with a given retry cap so individual tests can
// override the default unlimited retry cap.
func (suite *SubmissionServiceTestSuite) setup(maxAttempts int) {
	suite.mockSubmissionRepo = new(MockSubmissionRepository)
	suite.mockInvoiceRepo = new(MockInvoiceRepository)
	suite.mockCreditNoteRepo = new(MockCreditNoteRepository)
	suite.mockCompanyRepo = new(MockCompanyRepository)
	suite.mockNumbering = new(MockNumberingSvc)
	suite.mockTransport = new(MockAuthorityTransport)
	suite.mockAuthorizer = new(MockCompanyAuthorizer)
	suite.service = services.NewSubmissionService(
		suite.mockSubmissionRepo,
		suite.mockInvoiceRepo,
		suite.mockCreditNoteRepo,
		suite.mockCompanyRepo,
		suite.mockNumbering,
		services.NewTaxService(),
		suite.mockTransport,
		suite.mockAuthorizer,
		testQRBaseURL,
		maxAttempts,
	)
	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
	suite.company = &domain.Company{
		CompanyID: suite.companyID,
		Name:      "Savannah Books Ltd",
		KraPin:    "A123456789B",
		BranchID:  "00",
		TradeName: "Savannah Books",
		IsActive:  true,
	}
}

func (suite *SubmissionServiceTestSuite) submitInvoice() (string, *domain.Invoice) {
	invoiceID := uuid.NewString()
	invoice := &domain.Invoice{
		InvoiceID:       invoiceID,
		CompanyID:       suite.companyID,
		DocumentNumber:  "INV-100",
		TransactionDate: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		TotalAmt:        decimal.RequireFromString("116"),
		CustomerName:    "Acme Ltd",
		CurrencyCode:    "KES",
	}
	return invoiceID, invoice
}

func (suite *SubmissionServiceTestSuite) invoiceLines() []domain.LineItem {
	r := decimal.RequireFromString("0.16")
	return []domain.LineItem{
		{LineNumber: 1, ItemName: "Book", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("116"), Amount: decimal.RequireFromString("116"), TaxAmount: decimal.RequireFromString("16"), TaxCode: "TAX", TaxRate: &r},
	}
}

func (suite *SubmissionServiceTestSuite) expectSubmitPreamble(invoiceID string, invoice *domain.Invoice) {
	ctx := mock.Anything
	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleMember).Return(nil).Once()
	suite.mockCompanyRepo.On("FindCompanyByID", ctx, suite.companyID).Return(suite.company, nil).Once()
	suite.mockInvoiceRepo.On("FindInvoiceByID", ctx, invoiceID).Return(invoice, nil).Once()
	suite.mockInvoiceRepo.On("FindInvoiceLines", ctx, invoiceID).Return(suite.invoiceLines(), nil).Once()
}

func acceptedResponse() *dto.EtimsResponse {
	return &dto.EtimsResponse{
		ResultCd:  "000",
		ResultMsg: "Successful",
		Data: &dto.EtimsResponseData{
			CurRcptNo: 7,
			RcptSign:  "SIG1234567890",
			SdcID:     "KRACU0100000001",
		},
	}
}

// --- SubmitDocument: first attempt ---
func (suite *SubmissionServiceTestSuite) TestSubmitDocument_FirstAttemptSuccess() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	// No record yet: a number is allocated and a pending record created.
	// The lookup runs twice, once to decide and once inside the create guard.
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(nil, apperrors.ErrNotFound).Twice()
	suite.mockNumbering.On("AllocateNumber", mock.Anything, suite.companyID).Return(int64(1), nil).Once()

	// state mirrors the persisted row so the lifecycle transitions that re-read
	// the record by id observe their own prior writes.
	state := &domain.SubmissionRecord{}
	suite.mockSubmissionRepo.On("SaveSubmission", mock.Anything, mock.MatchedBy(func(r domain.SubmissionRecord) bool {
		return r.Status == domain.SubmissionPending && r.AllocatedNumber == 1 && r.DocumentID == invoiceID
	})).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByID", mock.Anything, mock.AnythingOfType("string")).Return(state, nil)
	suite.mockSubmissionRepo.On("UpdateSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil)

	suite.mockTransport.On("SubmitSales", mock.Anything, suite.company.Credentials(), mock.MatchedBy(func(p *dto.EtimsSalesRequest) bool {
		return p.InvcNo == 1 && p.Tin == suite.company.KraPin && p.RcptTyCd == "S"
	})).Return(acceptedResponse(), nil).Once()
	suite.mockInvoiceRepo.On("SetInvoiceValidated", mock.Anything, invoiceID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(record)
	suite.Equal(domain.SubmissionSuccess, record.Status)
	suite.Equal(int64(1), record.AllocatedNumber)
	suite.Equal("INV-100", record.TraderReference)
	suite.Require().NotNil(record.SubmittedPayload)
	suite.Require().NotNil(record.ReceiptSignature)
	suite.Equal("SIG1234567890", *record.ReceiptSignature)
	suite.Require().NotNil(record.QRPayload)
	suite.Equal(fmt.Sprintf("%s?Data=%s%s%s", testQRBaseURL, suite.company.KraPin, suite.company.BranchID, "SIG1234567890"), *record.QRPayload)

	// The stored payload snapshot is the JSON actually sent
	var sent dto.EtimsSalesRequest
	suite.Require().NoError(json.Unmarshal([]byte(*record.SubmittedPayload), &sent))
	suite.Equal(int64(1), sent.InvcNo)

	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockTransport.AssertExpectations(suite.T())
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_AlreadyAcceptedIsNotResent() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	existing := &domain.SubmissionRecord{
		SubmissionID:    uuid.NewString(),
		CompanyID:       suite.companyID,
		DocumentType:    domain.DocumentTypeInvoice,
		DocumentID:      invoiceID,
		AllocatedNumber: 5,
		Status:          domain.SubmissionSuccess,
	}
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(existing, nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(record)
	suite.ErrorIs(err, apperrors.ErrConflict)
	// An accepted document must not consume another number or reach the wire
	suite.mockNumbering.AssertNotCalled(suite.T(), "AllocateNumber", mock.Anything, mock.Anything)
	suite.mockTransport.AssertNotCalled(suite.T(), "SubmitSales", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_RetryReusesNumber() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	failed := &domain.SubmissionRecord{
		SubmissionID:    uuid.NewString(),
		CompanyID:       suite.companyID,
		DocumentType:    domain.DocumentTypeInvoice,
		DocumentID:      invoiceID,
		AllocatedNumber: 9,
		Status:          domain.SubmissionFailed,
		AttemptCount:    1,
	}
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(failed, nil).Once()

	state := &domain.SubmissionRecord{}
	*state = *failed
	suite.mockSubmissionRepo.On("FindSubmissionByID", mock.Anything, failed.SubmissionID).Return(state, nil)
	suite.mockSubmissionRepo.On("UpdateSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		r := args.Get(1).(domain.SubmissionRecord)
		*state = r
	}).Return(nil)

	suite.mockTransport.On("SubmitSales", mock.Anything, suite.company.Credentials(), mock.MatchedBy(func(p *dto.EtimsSalesRequest) bool {
		// The retry goes out under the originally allocated number
		return p.InvcNo == 9
	})).Return(acceptedResponse(), nil).Once()
	suite.mockInvoiceRepo.On("SetInvoiceValidated", mock.Anything, invoiceID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.SubmissionSuccess, record.Status)
	suite.Equal(int64(9), record.AllocatedNumber)
	suite.mockNumbering.AssertNotCalled(suite.T(), "AllocateNumber", mock.Anything, mock.Anything)
	suite.mockTransport.AssertExpectations(suite.T())
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_TransportFailureMarksFailed() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(nil, apperrors.ErrNotFound).Twice()
	suite.mockNumbering.On("AllocateNumber", mock.Anything, suite.companyID).Return(int64(3), nil).Once()

	state := &domain.SubmissionRecord{}
	suite.mockSubmissionRepo.On("SaveSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByID", mock.Anything, mock.AnythingOfType("string")).Return(state, nil)
	suite.mockSubmissionRepo.On("UpdateSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil)

	suite.mockTransport.On("SubmitSales", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().Error(err)
	// The failed record is returned alongside the error so callers can show it
	suite.Require().NotNil(record)
	suite.Equal(domain.SubmissionFailed, record.Status)
	suite.Equal(1, record.AttemptCount)
	suite.Require().NotNil(record.ErrorMessage)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "SetInvoiceValidated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_AuthorityRejectionMarksFailed() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(nil, apperrors.ErrNotFound).Twice()
	suite.mockNumbering.On("AllocateNumber", mock.Anything, suite.companyID).Return(int64(4), nil).Once()

	state := &domain.SubmissionRecord{}
	suite.mockSubmissionRepo.On("SaveSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByID", mock.Anything, mock.AnythingOfType("string")).Return(state, nil)
	suite.mockSubmissionRepo.On("UpdateSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil)

	rejection := &dto.EtimsResponse{ResultCd: "910", ResultMsg: "Invalid TIN"}
	suite.mockTransport.On("SubmitSales", mock.Anything, mock.Anything, mock.Anything).Return(rejection, nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Contains(err.Error(), "910")
	suite.Require().NotNil(record)
	suite.Equal(domain.SubmissionFailed, record.Status)
	suite.Require().NotNil(record.ResponsePayload)
	suite.Contains(*record.ResponsePayload, "Invalid TIN")
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_RetryLimitEnforced() {
	suite.setup(3)
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	exhausted := &domain.SubmissionRecord{
		SubmissionID: uuid.NewString(),
		CompanyID:    suite.companyID,
		DocumentType: domain.DocumentTypeInvoice,
		DocumentID:   invoiceID,
		Status:       domain.SubmissionFailed,
		AttemptCount: 3,
	}
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(exhausted, nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(record)
	suite.ErrorIs(err, services.ErrRetryLimitExceeded)
	suite.mockTransport.AssertNotCalled(suite.T(), "SubmitSales", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_InFlightBlocked() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	inFlight := &domain.SubmissionRecord{
		SubmissionID: uuid.NewString(),
		CompanyID:    suite.companyID,
		DocumentType: domain.DocumentTypeInvoice,
		DocumentID:   invoiceID,
		Status:       domain.SubmissionSubmitted,
	}
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(inFlight, nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(record)
	suite.ErrorIs(err, services.ErrSubmissionInFlight)
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_NumberAllocationFailureAborts() {
	ctx := context.Background()
	invoiceID, invoice := suite.submitInvoice()
	suite.expectSubmitPreamble(invoiceID, invoice)

	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, invoiceID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockNumbering.On("AllocateNumber", mock.Anything, suite.companyID).Return(int64(0), services.ErrCounterPersistFailure).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeInvoice, invoiceID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(record)
	suite.ErrorIs(err, services.ErrCounterPersistFailure)
	suite.mockSubmissionRepo.AssertNotCalled(suite.T(), "SaveSubmission", mock.Anything, mock.Anything)
	suite.mockTransport.AssertNotCalled(suite.T(), "SubmitSales", mock.Anything, mock.Anything, mock.Anything)
}

// --- SubmitDocument: credit notes reference the corrected invoice ---
func (suite *SubmissionServiceTestSuite) submitCreditNote(relatedInvoiceID *string) (string, *domain.CreditNote) {
	creditNoteID := uuid.NewString()
	creditNote := &domain.CreditNote{
		CreditNoteID:     creditNoteID,
		CompanyID:        suite.companyID,
		DocumentNumber:   "CN-7",
		TransactionDate:  time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC),
		TotalAmt:         decimal.RequireFromString("116"),
		CustomerName:     "Acme Ltd",
		CurrencyCode:     "KES",
		RelatedInvoiceID: relatedInvoiceID,
	}
	return creditNoteID, creditNote
}

func (suite *SubmissionServiceTestSuite) expectCreditNoteSubmitPreamble(creditNoteID string, creditNote *domain.CreditNote) {
	ctx := mock.Anything
	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleMember).Return(nil).Once()
	suite.mockCompanyRepo.On("FindCompanyByID", ctx, suite.companyID).Return(suite.company, nil).Once()
	suite.mockCreditNoteRepo.On("FindCreditNoteByID", ctx, creditNoteID).Return(creditNote, nil).Once()
	suite.mockCreditNoteRepo.On("FindCreditNoteLines", ctx, creditNoteID).Return(suite.invoiceLines(), nil).Once()
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_CreditNoteCarriesOriginalInvoiceNumber() {
	ctx := context.Background()
	relatedInvoiceID := uuid.NewString()
	creditNoteID, creditNote := suite.submitCreditNote(&relatedInvoiceID)
	suite.expectCreditNoteSubmitPreamble(creditNoteID, creditNote)

	// The corrected invoice was submitted and accepted under number 41.
	invoiceSubmission := &domain.SubmissionRecord{
		SubmissionID:    uuid.NewString(),
		CompanyID:       suite.companyID,
		DocumentType:    domain.DocumentTypeInvoice,
		DocumentID:      relatedInvoiceID,
		AllocatedNumber: 41,
		Status:          domain.SubmissionSuccess,
	}
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, relatedInvoiceID).Return(invoiceSubmission, nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeCreditNote, creditNoteID).Return(nil, apperrors.ErrNotFound).Twice()
	suite.mockNumbering.On("AllocateNumber", mock.Anything, suite.companyID).Return(int64(42), nil).Once()

	state := &domain.SubmissionRecord{}
	suite.mockSubmissionRepo.On("SaveSubmission", mock.Anything, mock.MatchedBy(func(r domain.SubmissionRecord) bool {
		return r.Status == domain.SubmissionPending && r.AllocatedNumber == 42 && r.DocumentID == creditNoteID
	})).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByID", mock.Anything, mock.AnythingOfType("string")).Return(state, nil)
	suite.mockSubmissionRepo.On("UpdateSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil)

	// The payload must name the original invoice's number, not zero.
	suite.mockTransport.On("SubmitSales", mock.Anything, suite.company.Credentials(), mock.MatchedBy(func(p *dto.EtimsSalesRequest) bool {
		return p.InvcNo == 42 && p.OrgInvcNo == 41 && p.RcptTyCd == "R"
	})).Return(acceptedResponse(), nil).Once()
	suite.mockCreditNoteRepo.On("SetCreditNoteValidated", mock.Anything, creditNoteID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeCreditNote, creditNoteID, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(record)
	suite.Equal(domain.SubmissionSuccess, record.Status)

	var sent dto.EtimsSalesRequest
	suite.Require().NoError(json.Unmarshal([]byte(*record.SubmittedPayload), &sent))
	suite.Equal(int64(41), sent.OrgInvcNo)

	suite.mockTransport.AssertExpectations(suite.T())
	suite.mockCreditNoteRepo.AssertExpectations(suite.T())
}

func (suite *SubmissionServiceTestSuite) TestSubmitDocument_CreditNoteWithUnsubmittedInvoiceSendsZero() {
	ctx := context.Background()
	relatedInvoiceID := uuid.NewString()
	creditNoteID, creditNote := suite.submitCreditNote(&relatedInvoiceID)
	suite.expectCreditNoteSubmitPreamble(creditNoteID, creditNote)

	// The corrected invoice has a record but it never succeeded, so there is
	// no authority number to reference yet.
	failedInvoiceSubmission := &domain.SubmissionRecord{
		SubmissionID:    uuid.NewString(),
		CompanyID:       suite.companyID,
		DocumentType:    domain.DocumentTypeInvoice,
		DocumentID:      relatedInvoiceID,
		AllocatedNumber: 41,
		Status:          domain.SubmissionFailed,
	}
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeInvoice, relatedInvoiceID).Return(failedInvoiceSubmission, nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByDocument", mock.Anything, suite.companyID, domain.DocumentTypeCreditNote, creditNoteID).Return(nil, apperrors.ErrNotFound).Twice()
	suite.mockNumbering.On("AllocateNumber", mock.Anything, suite.companyID).Return(int64(42), nil).Once()

	state := &domain.SubmissionRecord{}
	suite.mockSubmissionRepo.On("SaveSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByID", mock.Anything, mock.AnythingOfType("string")).Return(state, nil)
	suite.mockSubmissionRepo.On("UpdateSubmission", mock.Anything, mock.AnythingOfType("domain.SubmissionRecord")).Run(func(args mock.Arguments) {
		*state = args.Get(1).(domain.SubmissionRecord)
	}).Return(nil)

	suite.mockTransport.On("SubmitSales", mock.Anything, suite.company.Credentials(), mock.MatchedBy(func(p *dto.EtimsSalesRequest) bool {
		return p.InvcNo == 42 && p.OrgInvcNo == 0 && p.RcptTyCd == "R"
	})).Return(acceptedResponse(), nil).Once()
	suite.mockCreditNoteRepo.On("SetCreditNoteValidated", mock.Anything, creditNoteID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	record, err := suite.service.SubmitDocument(ctx, suite.companyID, domain.DocumentTypeCreditNote, creditNoteID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.SubmissionSuccess, record.Status)
	suite.mockTransport.AssertExpectations(suite.T())
}

// --- MarkSigned ---
func (suite *SubmissionServiceTestSuite) TestMarkSigned_FromSuccess() {
	ctx := context.Background()
	record := &domain.SubmissionRecord{
		SubmissionID: uuid.NewString(),
		CompanyID:    suite.companyID,
		Status:       domain.SubmissionSuccess,
	}

	suite.mockSubmissionRepo.On("FindSubmissionByID", ctx, record.SubmissionID).Return(record, nil).Once()
	suite.mockSubmissionRepo.On("UpdateSubmission", ctx, mock.MatchedBy(func(r domain.SubmissionRecord) bool {
		return r.Status == domain.SubmissionSigned
	})).Return(nil).Once()

	signed, err := suite.service.MarkSigned(ctx, record.SubmissionID, suite.userID)

	suite.Require().NoError(err)
	suite.Equal(domain.SubmissionSigned, signed.Status)
}

func (suite *SubmissionServiceTestSuite) TestMarkSigned_IllegalFromPending() {
	ctx := context.Background()
	record := &domain.SubmissionRecord{
		SubmissionID: uuid.NewString(),
		CompanyID:    suite.companyID,
		Status:       domain.SubmissionPending,
	}

	suite.mockSubmissionRepo.On("FindSubmissionByID", ctx, record.SubmissionID).Return(record, nil).Once()

	signed, err := suite.service.MarkSigned(ctx, record.SubmissionID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(signed)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockSubmissionRepo.AssertNotCalled(suite.T(), "UpdateSubmission", mock.Anything, mock.Anything)
}

// --- Reads ---
func (suite *SubmissionServiceTestSuite) TestGetSubmissionByID_CrossCompanyHidden() {
	ctx := context.Background()
	record := &domain.SubmissionRecord{
		SubmissionID: uuid.NewString(),
		CompanyID:    uuid.NewString(), // different company
		Status:       domain.SubmissionSuccess,
	}

	suite.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, suite.userID, suite.companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockSubmissionRepo.On("FindSubmissionByID", ctx, record.SubmissionID).Return(record, nil).Once()

	found, err := suite.service.GetSubmissionByID(ctx, suite.companyID, record.SubmissionID, suite.userID)

	suite.Require().Error(err)
	suite.Nil(found)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- Run Suite ---
func TestSubmissionService(t *testing.T) {
	suite.Run(t, new(SubmissionServiceTestSuite))
}
