package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock APITokenRepository (based on APITokenService usage) ---
type MockAPITokenRepository struct {
	mock.Mock
}

func (m *MockAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPITokenRepository) FindByID(ctx context.Context, id string) (*domain.APIToken, error) {
	args := m.Called(ctx, id)
	var token *domain.APIToken
	if args.Get(0) != nil {
		token = args.Get(0).(*domain.APIToken)
	}
	return token, args.Error(1)
}

func (m *MockAPITokenRepository) FindByUserID(ctx context.Context, userID string) ([]domain.APIToken, error) {
	args := m.Called(ctx, userID)
	var tokens []domain.APIToken
	if args.Get(0) != nil {
		tokens = args.Get(0).([]domain.APIToken)
	}
	return tokens, args.Error(1)
}

func (m *MockAPITokenRepository) FindActive(ctx context.Context, now time.Time) ([]domain.APIToken, error) {
	args := m.Called(ctx, now)
	var tokens []domain.APIToken
	if args.Get(0) != nil {
		tokens = args.Get(0).([]domain.APIToken)
	}
	return tokens, args.Error(1)
}

func (m *MockAPITokenRepository) Update(ctx context.Context, token *domain.APIToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPITokenRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPITokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAPITokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Test Suite ---

type APITokenServiceTestSuite struct {
	suite.Suite
	mockTokenRepo *MockAPITokenRepository
	mockUserRepo  *MockUserRepository
	service       portssvc.APITokenSvc
	ctx           context.Context
	userID        string
}

func (suite *APITokenServiceTestSuite) SetupTest() {
	suite.mockTokenRepo = new(MockAPITokenRepository)
	suite.mockUserRepo = new(MockUserRepository)
	userSvc := services.NewUserService(suite.mockUserRepo, new(MockCompanyAuthorizer))
	suite.service = services.NewAPITokenService(suite.mockTokenRepo, userSvc)
	suite.ctx = context.Background()
	suite.userID = uuid.NewString()
}

func TestAPITokenServiceTestSuite(t *testing.T) {
	suite.Run(t, new(APITokenServiceTestSuite))
}

func (suite *APITokenServiceTestSuite) hashOf(plaintext string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	suite.Require().NoError(err)
	return string(hash)
}

func (suite *APITokenServiceTestSuite) TestCreateToken_Success() {
	suite.mockTokenRepo.On("Create", suite.ctx, mock.MatchedBy(func(t *domain.APIToken) bool {
		return t.UserID == suite.userID && t.Name == "sync-worker" && t.TokenHash != ""
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.APIToken).ID = uuid.NewString()
	}).Return(nil).Once()

	plaintext, token, err := suite.service.CreateToken(suite.ctx, suite.userID, "sync-worker", nil)

	suite.Require().NoError(err)
	suite.Require().NotNil(token)
	suite.True(strings.HasPrefix(plaintext, "etb_"), "token should carry the etb_ prefix")
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(plaintext)), "stored hash should match the returned plaintext")
	suite.Nil(token.ExpiresAt)
	suite.mockTokenRepo.AssertExpectations(suite.T())
}

func (suite *APITokenServiceTestSuite) TestCreateToken_MissingName() {
	_, _, err := suite.service.CreateToken(suite.ctx, suite.userID, "", nil)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTokenRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *APITokenServiceTestSuite) TestValidateToken_Success() {
	plaintext := "etb_live_token"
	matchID := uuid.NewString()
	active := []domain.APIToken{
		{ID: uuid.NewString(), UserID: uuid.NewString(), TokenHash: suite.hashOf("etb_other_token")},
		{ID: matchID, UserID: suite.userID, TokenHash: suite.hashOf(plaintext)},
	}
	user := &domain.User{UserID: suite.userID, Name: "Sync Bot"}

	suite.mockTokenRepo.On("FindActive", suite.ctx, mock.AnythingOfType("time.Time")).Return(active, nil).Once()
	suite.mockTokenRepo.On("Update", suite.ctx, mock.MatchedBy(func(t *domain.APIToken) bool {
		return t.ID == matchID && t.LastUsedAt != nil
	})).Return(nil).Once()
	suite.mockUserRepo.On("FindUserByID", suite.ctx, suite.userID).Return(user, nil).Once()

	got, err := suite.service.ValidateToken(suite.ctx, plaintext)

	suite.Require().NoError(err)
	suite.Equal(suite.userID, got.UserID)
	suite.mockTokenRepo.AssertExpectations(suite.T())
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *APITokenServiceTestSuite) TestValidateToken_UnknownToken() {
	active := []domain.APIToken{
		{ID: uuid.NewString(), UserID: suite.userID, TokenHash: suite.hashOf("etb_other_token")},
	}
	suite.mockTokenRepo.On("FindActive", suite.ctx, mock.AnythingOfType("time.Time")).Return(active, nil).Once()

	got, err := suite.service.ValidateToken(suite.ctx, "etb_wrong_token")

	suite.Require().Error(err)
	suite.Nil(got)
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	suite.mockTokenRepo.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything)
}

func (suite *APITokenServiceTestSuite) TestValidateToken_StaleLastUsedIsTolerated() {
	plaintext := "etb_live_token"
	active := []domain.APIToken{
		{ID: uuid.NewString(), UserID: suite.userID, TokenHash: suite.hashOf(plaintext)},
	}
	user := &domain.User{UserID: suite.userID}

	suite.mockTokenRepo.On("FindActive", suite.ctx, mock.AnythingOfType("time.Time")).Return(active, nil).Once()
	suite.mockTokenRepo.On("Update", suite.ctx, mock.Anything).Return(apperrors.ErrInternal).Once()
	suite.mockUserRepo.On("FindUserByID", suite.ctx, suite.userID).Return(user, nil).Once()

	got, err := suite.service.ValidateToken(suite.ctx, plaintext)

	suite.Require().NoError(err, "a failed last-used update must not reject the authentication")
	suite.Equal(suite.userID, got.UserID)
}

func (suite *APITokenServiceTestSuite) TestRevokeToken_WrongOwnerReadsAsNotFound() {
	tokenID := uuid.NewString()
	other := &domain.APIToken{ID: tokenID, UserID: uuid.NewString()}
	suite.mockTokenRepo.On("FindByID", suite.ctx, tokenID).Return(other, nil).Once()

	err := suite.service.RevokeToken(suite.ctx, suite.userID, tokenID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockTokenRepo.AssertNotCalled(suite.T(), "Delete", mock.Anything, mock.Anything)
}
