package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/core/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock UserRepository (based on UserService usage) ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByProviderDetails(ctx context.Context, authProvider string, providerUserID string) (*domain.User, error) {
	args := m.Called(ctx, authProvider, providerUserID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUsersByCompanyID(ctx context.Context, companyID string) ([]domain.User, error) {
	args := m.Called(ctx, companyID)
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}
	return users, args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRefreshToken(ctx context.Context, userID string, refreshTokenHash string, refreshTokenExpiryTime time.Time) error {
	args := m.Called(ctx, userID, refreshTokenHash, refreshTokenExpiryTime)
	return args.Error(0)
}

func (m *MockUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string) error {
	args := m.Called(ctx, userID, deletedAt, deletedBy)
	return args.Error(0)
}

// --- Test Suite ---
type UserServiceTestSuite struct {
	suite.Suite
	mockUserRepo   *MockUserRepository
	mockAuthorizer *MockCompanyAuthorizer
	service        portssvc.UserSvcFacade
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockUserRepo = new(MockUserRepository)
	suite.mockAuthorizer = new(MockCompanyAuthorizer)
	suite.service = services.NewUserService(suite.mockUserRepo, suite.mockAuthorizer)
}

// --- CreateUser Tests ---
func (suite *UserServiceTestSuite) TestCreateUser_Success() {
	ctx := context.Background()
	req := dto.CreateUserRequest{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "password123",
	}

	suite.mockUserRepo.On("FindUserByEmail", ctx, req.Email).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("SaveUser", ctx, mock.MatchedBy(func(user domain.User) bool {
		return user.Email == req.Email && user.Name == req.Name &&
			user.PasswordHash != "" && user.PasswordHash != req.Password &&
			user.AuthProvider == domain.ProviderLocal
	})).Return(nil).Once()

	createdUser, err := suite.service.CreateUser(ctx, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(createdUser)
	suite.Equal(req.Email, createdUser.Email)
	suite.Equal(req.Name, createdUser.Name)
	suite.NotEmpty(createdUser.UserID)
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte(req.Password)))
	suite.Equal(createdUser.UserID, createdUser.CreatedBy) // Self-registration

	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestCreateUser_DuplicateEmail() {
	ctx := context.Background()
	req := dto.CreateUserRequest{Name: "Dup", Email: "dup@example.com", Password: "password123"}
	existing := &domain.User{UserID: uuid.NewString(), Email: req.Email}

	suite.mockUserRepo.On("FindUserByEmail", ctx, req.Email).Return(existing, nil).Once()

	createdUser, err := suite.service.CreateUser(ctx, req)

	suite.Require().Error(err)
	suite.Nil(createdUser)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockUserRepo.AssertExpectations(suite.T())
	suite.mockUserRepo.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestCreateUser_SaveError() {
	ctx := context.Background()
	req := dto.CreateUserRequest{Name: "Save Err", Email: "saveerr@example.com", Password: "password123"}
	expectedErr := assert.AnError

	suite.mockUserRepo.On("FindUserByEmail", ctx, req.Email).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("SaveUser", ctx, mock.AnythingOfType("domain.User")).Return(expectedErr).Once()

	createdUser, err := suite.service.CreateUser(ctx, req)

	suite.Require().Error(err)
	suite.Nil(createdUser)
	suite.ErrorIs(err, expectedErr)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

// --- GetUserByID Tests ---
func (suite *UserServiceTestSuite) TestGetUserByID_Success() {
	ctx := context.Background()
	userID := uuid.NewString()
	expectedUser := &domain.User{UserID: userID, Name: "Found User"}

	suite.mockUserRepo.On("FindUserByID", ctx, userID).Return(expectedUser, nil).Once()

	user, err := suite.service.GetUserByID(ctx, userID)

	suite.Require().NoError(err)
	suite.Equal(expectedUser, user)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestGetUserByID_NotFound() {
	ctx := context.Background()
	userID := uuid.NewString()

	suite.mockUserRepo.On("FindUserByID", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()

	user, err := suite.service.GetUserByID(ctx, userID)

	suite.Require().Error(err)
	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

// --- ListUsersByCompany Tests ---
func (suite *UserServiceTestSuite) TestListUsersByCompany_Success() {
	ctx := context.Background()
	companyID := uuid.NewString()
	requestingUserID := uuid.NewString()
	expectedUsers := []domain.User{{UserID: uuid.NewString()}, {UserID: uuid.NewString()}}

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, requestingUserID, companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockUserRepo.On("FindUsersByCompanyID", ctx, companyID).Return(expectedUsers, nil).Once()

	users, err := suite.service.ListUsersByCompany(ctx, companyID, requestingUserID)

	suite.Require().NoError(err)
	suite.Require().NotNil(users)
	suite.Len(users, len(expectedUsers))
	for i := range expectedUsers {
		suite.Equal(expectedUsers[i].UserID, users[i].UserID)
	}
	suite.mockUserRepo.AssertExpectations(suite.T())
	suite.mockAuthorizer.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestListUsersByCompany_NonMemberForbidden() {
	ctx := context.Background()
	companyID := uuid.NewString()
	requestingUserID := uuid.NewString()

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, requestingUserID, companyID, domain.RoleReadOnly).Return(apperrors.ErrForbidden).Once()

	users, err := suite.service.ListUsersByCompany(ctx, companyID, requestingUserID)

	suite.Require().Error(err)
	suite.Nil(users)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockUserRepo.AssertNotCalled(suite.T(), "FindUsersByCompanyID", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestListUsersByCompany_Empty() {
	ctx := context.Background()
	companyID := uuid.NewString()
	requestingUserID := uuid.NewString()
	var expectedUsers []domain.User

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, requestingUserID, companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockUserRepo.On("FindUsersByCompanyID", ctx, companyID).Return(expectedUsers, nil).Once()

	users, err := suite.service.ListUsersByCompany(ctx, companyID, requestingUserID)

	suite.Require().NoError(err)
	suite.Require().NotNil(users)
	suite.Empty(users)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestListUsersByCompany_RepoError() {
	ctx := context.Background()
	companyID := uuid.NewString()
	requestingUserID := uuid.NewString()
	expectedErr := assert.AnError

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, requestingUserID, companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockUserRepo.On("FindUsersByCompanyID", ctx, companyID).Return(nil, expectedErr).Once()

	users, err := suite.service.ListUsersByCompany(ctx, companyID, requestingUserID)

	suite.Require().Error(err)
	suite.Nil(users)
	suite.Contains(err.Error(), "failed to list users")
	suite.ErrorIs(err, expectedErr)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

// --- UpdateUser Tests ---
func (suite *UserServiceTestSuite) TestUpdateUser_Success() {
	ctx := context.Background()
	userID := uuid.NewString()
	updaterUserID := uuid.NewString()
	newName := "Updated Name"
	req := dto.UpdateUserRequest{Name: &newName}
	originalUser := &domain.User{
		UserID: userID,
		Name:   "Original Name",
		AuditFields: domain.AuditFields{
			LastUpdatedAt: time.Now().Add(-time.Hour),
			LastUpdatedBy: "somebodyElse",
		},
	}
	originalTimestamp := originalUser.LastUpdatedAt

	suite.mockUserRepo.On("FindUserByID", ctx, userID).Return(originalUser, nil).Once()
	suite.mockUserRepo.On("UpdateUser", ctx, mock.AnythingOfType("domain.User")).Return(nil).Once().Run(func(args mock.Arguments) {
		userArg := args.Get(1).(domain.User)
		suite.Equal(userID, userArg.UserID)
		suite.Equal(newName, userArg.Name)
		suite.Equal(updaterUserID, userArg.LastUpdatedBy)
		suite.True(userArg.LastUpdatedAt.After(originalTimestamp))
	})

	user, err := suite.service.UpdateUser(ctx, userID, req, updaterUserID)

	suite.Require().NoError(err)
	suite.Require().NotNil(user)
	suite.Equal(newName, user.Name)
	suite.Equal(updaterUserID, user.LastUpdatedBy)
	suite.True(user.LastUpdatedAt.After(originalTimestamp))

	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestUpdateUser_NoChange() {
	ctx := context.Background()
	userID := uuid.NewString()
	updaterUserID := uuid.NewString()
	originalName := "Original Name"
	originalUser := &domain.User{UserID: userID, Name: originalName, AuditFields: domain.AuditFields{LastUpdatedBy: "prevUpdater", LastUpdatedAt: time.Now().Add(-time.Hour)}}
	req := dto.UpdateUserRequest{Name: &originalName} // No actual change

	suite.mockUserRepo.On("FindUserByID", ctx, userID).Return(originalUser, nil).Once()
	// UpdateUser should NOT be called

	user, err := suite.service.UpdateUser(ctx, userID, req, updaterUserID)

	suite.Require().NoError(err)
	suite.Equal(originalUser, user) // Should return the original unchanged user
	suite.mockUserRepo.AssertExpectations(suite.T())
	suite.mockUserRepo.AssertNotCalled(suite.T(), "UpdateUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestUpdateUser_NotFound() {
	ctx := context.Background()
	userID := uuid.NewString()
	updaterUserID := uuid.NewString()
	newName := "Updated Name"
	req := dto.UpdateUserRequest{Name: &newName}

	suite.mockUserRepo.On("FindUserByID", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()

	user, err := suite.service.UpdateUser(ctx, userID, req, updaterUserID)

	suite.Require().Error(err)
	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockUserRepo.AssertExpectations(suite.T())
	suite.mockUserRepo.AssertNotCalled(suite.T(), "UpdateUser", mock.Anything, mock.Anything)
}

// --- DeleteUser Tests ---
func (suite *UserServiceTestSuite) TestDeleteUser_Success() {
	ctx := context.Background()
	userID := uuid.NewString()
	deleterUserID := uuid.NewString()

	suite.mockUserRepo.On("MarkUserDeleted", ctx, userID, mock.AnythingOfType("time.Time"), deleterUserID).Return(nil).Once()

	err := suite.service.DeleteUser(ctx, userID, deleterUserID)

	suite.Require().NoError(err)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestDeleteUser_NotFound() {
	ctx := context.Background()
	userID := uuid.NewString()
	deleterUserID := uuid.NewString()

	suite.mockUserRepo.On("MarkUserDeleted", ctx, userID, mock.AnythingOfType("time.Time"), deleterUserID).Return(apperrors.ErrNotFound).Once()

	err := suite.service.DeleteUser(ctx, userID, deleterUserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

// --- AuthenticateUser Tests ---
func (suite *UserServiceTestSuite) TestAuthenticateUser_Success() {
	ctx := context.Background()
	email := "login@example.com"
	password := "password123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	suite.Require().NoError(err)
	storedUser := &domain.User{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		AuthProvider: domain.ProviderLocal,
	}

	suite.mockUserRepo.On("FindUserByEmail", ctx, email).Return(storedUser, nil).Once()

	user, err := suite.service.AuthenticateUser(ctx, email, password)

	suite.Require().NoError(err)
	suite.Equal(storedUser.UserID, user.UserID)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_WrongPassword() {
	ctx := context.Background()
	email := "login@example.com"
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)
	suite.Require().NoError(err)
	storedUser := &domain.User{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		AuthProvider: domain.ProviderLocal,
	}

	suite.mockUserRepo.On("FindUserByEmail", ctx, email).Return(storedUser, nil).Once()

	user, err := suite.service.AuthenticateUser(ctx, email, "wrong-password")

	suite.Require().Error(err)
	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_UnknownEmail() {
	ctx := context.Background()
	email := "nobody@example.com"

	suite.mockUserRepo.On("FindUserByEmail", ctx, email).Return(nil, apperrors.ErrNotFound).Once()

	user, err := suite.service.AuthenticateUser(ctx, email, "whatever")

	suite.Require().Error(err)
	suite.Nil(user)
	// Unknown emails must not be distinguishable from bad passwords
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestAuthenticateUser_OAuthOnlyUser() {
	ctx := context.Background()
	email := "google-only@example.com"
	storedUser := &domain.User{
		UserID:       uuid.NewString(),
		Email:        email,
		AuthProvider: domain.ProviderGoogle,
	}

	suite.mockUserRepo.On("FindUserByEmail", ctx, email).Return(storedUser, nil).Once()

	user, err := suite.service.AuthenticateUser(ctx, email, "anything")

	suite.Require().Error(err)
	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrUnauthorized)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

// --- FindOrCreateOAuthUser Tests ---
func (suite *UserServiceTestSuite) TestFindOrCreateOAuthUser_ExistingProviderIdentity() {
	ctx := context.Background()
	info := domain.GoogleUserInfo{ID: "google-sub-1", Email: "oauth@example.com", Name: "OAuth User"}
	providerID := info.ID
	existing := &domain.User{UserID: uuid.NewString(), Email: info.Email, AuthProvider: domain.ProviderGoogle, ProviderUserID: &providerID}

	suite.mockUserRepo.On("FindUserByProviderDetails", ctx, string(domain.ProviderGoogle), info.ID).Return(existing, nil).Once()

	user, err := suite.service.FindOrCreateOAuthUser(ctx, info)

	suite.Require().NoError(err)
	suite.Equal(existing.UserID, user.UserID)
	suite.mockUserRepo.AssertExpectations(suite.T())
	suite.mockUserRepo.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestFindOrCreateOAuthUser_AttachToExistingEmail() {
	ctx := context.Background()
	info := domain.GoogleUserInfo{ID: "google-sub-2", Email: "local@example.com", Name: "Local User"}
	existing := &domain.User{UserID: uuid.NewString(), Email: info.Email, AuthProvider: domain.ProviderLocal}

	suite.mockUserRepo.On("FindUserByProviderDetails", ctx, string(domain.ProviderGoogle), info.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("FindUserByEmail", ctx, info.Email).Return(existing, nil).Once()
	suite.mockUserRepo.On("UpdateUser", ctx, mock.MatchedBy(func(user domain.User) bool {
		return user.UserID == existing.UserID &&
			user.AuthProvider == domain.ProviderGoogle &&
			user.ProviderUserID != nil && *user.ProviderUserID == info.ID
	})).Return(nil).Once()

	user, err := suite.service.FindOrCreateOAuthUser(ctx, info)

	suite.Require().NoError(err)
	suite.Equal(existing.UserID, user.UserID)
	suite.Equal(domain.ProviderGoogle, user.AuthProvider)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestFindOrCreateOAuthUser_CreatesNewUser() {
	ctx := context.Background()
	info := domain.GoogleUserInfo{ID: "google-sub-3", Email: "fresh@example.com", Name: "Fresh User"}

	suite.mockUserRepo.On("FindUserByProviderDetails", ctx, string(domain.ProviderGoogle), info.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("FindUserByEmail", ctx, info.Email).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("SaveUser", ctx, mock.MatchedBy(func(user domain.User) bool {
		return user.Email == info.Email && user.Name == info.Name &&
			user.AuthProvider == domain.ProviderGoogle &&
			user.ProviderUserID != nil && *user.ProviderUserID == info.ID &&
			user.PasswordHash == ""
	})).Return(nil).Once()

	user, err := suite.service.FindOrCreateOAuthUser(ctx, info)

	suite.Require().NoError(err)
	suite.Require().NotNil(user)
	suite.NotEmpty(user.UserID)
	suite.Equal(info.Email, user.Email)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

// --- Run Suite ---
func TestUserService(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
