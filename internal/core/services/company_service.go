package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
)

// roleRank orders membership roles for authorization checks. REMOVED is
// deliberately absent: a removed member never authorizes.
var roleRank = map[domain.UserCompanyRole]int{
	domain.RoleReadOnly: 1,
	domain.RoleMember:   2,
	domain.RoleAdmin:    3,
}

// CompanyService handles business logic related to companies and memberships.
type CompanyService struct {
	companyRepo  portsrepo.CompanyRepositoryFacade
	currencyRepo portsrepo.CurrencyRepositoryFacade
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(cr portsrepo.CompanyRepositoryFacade, curr portsrepo.CurrencyRepositoryFacade) portssvc.CompanySvcFacade {
	return &CompanyService{
		companyRepo:  cr,
		currencyRepo: curr,
	}
}

// Ensure CompanyService implements the portssvc.CompanySvcFacade interface
var _ portssvc.CompanySvcFacade = (*CompanyService)(nil)

// CreateCompany creates a new company and makes the creator the initial admin.
func (s *CompanyService) CreateCompany(ctx context.Context, req dto.CreateCompanyRequest, creatorUserID string) (*domain.Company, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Validate that the currency exists
	if req.DefaultCurrencyCode != nil && *req.DefaultCurrencyCode != "" {
		_, err := s.currencyRepo.FindCurrencyByCode(ctx, *req.DefaultCurrencyCode)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.Warn("Invalid default currency code provided", slog.String("currency_code", *req.DefaultCurrencyCode))
				return nil, fmt.Errorf("%w: currency code %s not found", apperrors.ErrValidation, *req.DefaultCurrencyCode)
			}
			logger.Error("Failed to check currency code existence", slog.String("error", err.Error()), slog.String("currency_code", *req.DefaultCurrencyCode))
			return nil, fmt.Errorf("failed to validate currency code: %w", err)
		}
	}

	now := time.Now()
	newCompanyID := uuid.NewString()

	branchID := req.BranchID
	if branchID == "" {
		branchID = "00" // Head office branch per the authority's convention
	}

	company := domain.Company{
		CompanyID:           newCompanyID,
		Name:                req.Name,
		KraPin:              req.KraPin,
		BranchID:            branchID,
		TradeName:           req.TradeName,
		Address:             req.Address,
		DeviceKey:           req.DeviceKey,
		ReceiptHeaderMsg:    req.ReceiptHeaderMsg,
		ReceiptFooterMsg:    req.ReceiptFooterMsg,
		QuickBooksRealmID:   req.QuickBooksRealmID,
		DefaultCurrencyCode: req.DefaultCurrencyCode,
		IsActive:            true,
		Version:             1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.companyRepo.SaveCompany(ctx, company); err != nil {
		logger.Error("Failed to save company in repository", slog.String("error", err.Error()), slog.String("company_name", req.Name))
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	// Add the creator as the initial admin
	membership := domain.UserCompany{
		UserID:    creatorUserID,
		CompanyID: newCompanyID,
		Role:      domain.RoleAdmin,
		JoinedAt:  now,
	}
	if err := s.companyRepo.AddUserToCompany(ctx, membership); err != nil {
		logger.Error("Failed to add creator as admin to new company", slog.String("error", err.Error()), slog.String("company_id", newCompanyID), slog.String("user_id", creatorUserID))
	}

	logger.Info("Company created successfully", slog.String("company_id", newCompanyID), slog.String("creator_user_id", creatorUserID))
	return &company, nil
}

// UpdateCompany updates the tax identity and receipt configuration of a company.
func (s *CompanyService) UpdateCompany(ctx context.Context, companyID string, req dto.UpdateCompanyRequest, requestingUserID string) (*domain.Company, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.TradeName != nil {
		company.TradeName = *req.TradeName
	}
	if req.Address != nil {
		company.Address = *req.Address
	}
	if req.DeviceKey != nil {
		company.DeviceKey = *req.DeviceKey
	}
	if req.ReceiptHeaderMsg != nil {
		company.ReceiptHeaderMsg = *req.ReceiptHeaderMsg
	}
	if req.ReceiptFooterMsg != nil {
		company.ReceiptFooterMsg = *req.ReceiptFooterMsg
	}
	if req.QuickBooksRealmID != nil {
		company.QuickBooksRealmID = req.QuickBooksRealmID
	}

	company.LastUpdatedAt = time.Now()
	company.LastUpdatedBy = requestingUserID

	if err := s.companyRepo.UpdateCompany(ctx, *company); err != nil {
		logger.Error("Failed to update company in repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	logger.Info("Company updated successfully", slog.String("company_id", companyID), slog.String("updated_by", requestingUserID))
	return company, nil
}

// DeactivateCompany marks a company as inactive.
func (s *CompanyService) DeactivateCompany(ctx context.Context, companyID string, requestingUserID string) error {
	return s.setCompanyActive(ctx, companyID, requestingUserID, false)
}

// ActivateCompany marks a company as active.
func (s *CompanyService) ActivateCompany(ctx context.Context, companyID string, requestingUserID string) error {
	return s.setCompanyActive(ctx, companyID, requestingUserID, true)
}

func (s *CompanyService) setCompanyActive(ctx context.Context, companyID, requestingUserID string, active bool) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	company, err := s.companyRepo.FindCompanyByID(ctx, companyID)
	if err != nil {
		return err
	}
	if company.IsActive == active {
		return nil
	}

	company.IsActive = active
	company.LastUpdatedAt = time.Now()
	company.LastUpdatedBy = requestingUserID

	if err := s.companyRepo.UpdateCompany(ctx, *company); err != nil {
		logger.Error("Failed to change company active state", slog.String("error", err.Error()), slog.String("company_id", companyID), slog.Bool("active", active))
		return fmt.Errorf("failed to update company: %w", err)
	}
	logger.Info("Company active state changed", slog.String("company_id", companyID), slog.Bool("active", active))
	return nil
}

// FindCompanyByID retrieves a company by its ID.
func (s *CompanyService) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	company, err := s.companyRepo.FindCompanyByID(ctx, companyID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find company by ID in repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		}
		return nil, err
	}
	return company, nil
}

// ListUserCompanies retrieves the list of companies a given user belongs to.
func (s *CompanyService) ListUserCompanies(ctx context.Context, userID string, includeDisabled bool) ([]domain.Company, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	companies, err := s.companyRepo.ListCompaniesByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to list companies for user from repository", slog.String("error", err.Error()), slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list companies for user %s: %w", userID, err)
	}

	if !includeDisabled {
		active := companies[:0]
		for _, c := range companies {
			if c.IsActive {
				active = append(active, c)
			}
		}
		companies = active
	}

	if companies == nil {
		return []domain.Company{}, nil // Return empty slice, not nil
	}

	logger.Debug("Companies listed successfully for user", slog.String("user_id", userID), slog.Int("count", len(companies)))
	return companies, nil
}

// ListCompanyUsers retrieves all memberships of a company. Requires the
// requesting user to be at least a read-only member.
func (s *CompanyService) ListCompanyUsers(ctx context.Context, companyID string, requestingUserID string) ([]domain.UserCompany, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleReadOnly); err != nil {
		return nil, err
	}

	members, err := s.companyRepo.ListUsersByCompanyID(ctx, companyID)
	if err != nil {
		logger.Error("Failed to list company users from repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to list users for company %s: %w", companyID, err)
	}
	return members, nil
}

// AddUserToCompany adds a user to a company with a specific role.
func (s *CompanyService) AddUserToCompany(ctx context.Context, addingUserID, targetUserID, companyID string, role domain.UserCompanyRole) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.AuthorizeUserAction(ctx, addingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	if _, ok := roleRank[role]; !ok {
		return fmt.Errorf("%w: invalid role %s", apperrors.ErrValidation, role)
	}

	now := time.Now()
	membership := domain.UserCompany{
		UserID:    targetUserID,
		CompanyID: companyID,
		Role:      role,
		JoinedAt:  now,
	}

	if err := s.companyRepo.AddUserToCompany(ctx, membership); err != nil {
		logger.Error("Failed to add user to company in repository", slog.String("error", err.Error()), slog.String("target_user_id", targetUserID), slog.String("company_id", companyID))
		return fmt.Errorf("failed to add user %s to company %s: %w", targetUserID, companyID, err)
	}

	logger.Info("User added to company successfully", slog.String("target_user_id", targetUserID), slog.String("company_id", companyID), slog.String("role", string(role)), slog.String("added_by_user_id", addingUserID))
	return nil
}

// RemoveUserFromCompany removes a user from a company by marking the
// membership REMOVED, preserving the join history.
func (s *CompanyService) RemoveUserFromCompany(ctx context.Context, requestingUserID, targetUserID, companyID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	if requestingUserID == targetUserID {
		return fmt.Errorf("%w: cannot remove yourself from a company", apperrors.ErrValidation)
	}

	if _, err := s.companyRepo.FindUserCompanyRole(ctx, targetUserID, companyID); err != nil {
		return err
	}

	if err := s.companyRepo.UpdateUserCompanyRole(ctx, targetUserID, companyID, domain.RoleRemoved); err != nil {
		logger.Error("Failed to remove user from company", slog.String("error", err.Error()), slog.String("target_user_id", targetUserID), slog.String("company_id", companyID))
		return fmt.Errorf("failed to remove user %s from company %s: %w", targetUserID, companyID, err)
	}

	logger.Info("User removed from company", slog.String("target_user_id", targetUserID), slog.String("company_id", companyID), slog.String("removed_by", requestingUserID))
	return nil
}

// UpdateUserCompanyRole updates a user's role in a company.
func (s *CompanyService) UpdateUserCompanyRole(ctx context.Context, requestingUserID, targetUserID, companyID string, newRole domain.UserCompanyRole) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.AuthorizeUserAction(ctx, requestingUserID, companyID, domain.RoleAdmin); err != nil {
		return err
	}

	if _, ok := roleRank[newRole]; !ok {
		return fmt.Errorf("%w: invalid role %s", apperrors.ErrValidation, newRole)
	}

	if _, err := s.companyRepo.FindUserCompanyRole(ctx, targetUserID, companyID); err != nil {
		return err
	}

	if err := s.companyRepo.UpdateUserCompanyRole(ctx, targetUserID, companyID, newRole); err != nil {
		logger.Error("Failed to update user role in company", slog.String("error", err.Error()), slog.String("target_user_id", targetUserID), slog.String("company_id", companyID))
		return fmt.Errorf("failed to update role for user %s in company %s: %w", targetUserID, companyID, err)
	}

	logger.Info("User role updated in company", slog.String("target_user_id", targetUserID), slog.String("company_id", companyID), slog.String("new_role", string(newRole)), slog.String("updated_by", requestingUserID))
	return nil
}

// AuthorizeUserAction checks if a user holds the required role or higher
// within a company. Returns apperrors.ErrNotFound when the user is not a
// member, keeping company existence hidden; apperrors.ErrForbidden when the
// member's role ranks below the required one.
func (s *CompanyService) AuthorizeUserAction(ctx context.Context, userID, companyID string, requiredRole domain.UserCompanyRole) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	membership, err := s.companyRepo.FindUserCompanyRole(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Authorization failed: user or company not found, or user not a member", slog.String("user_id", userID), slog.String("company_id", companyID))
			return apperrors.ErrNotFound
		}
		logger.Error("Failed to check user company role in repository", slog.String("error", err.Error()), slog.String("user_id", userID), slog.String("company_id", companyID))
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	userRank, ok := roleRank[membership.Role]
	if !ok {
		// REMOVED or unknown role: treat as not a member.
		logger.Warn("Authorization failed: membership inactive", slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("role", string(membership.Role)))
		return apperrors.ErrNotFound
	}

	requiredRank, ok := roleRank[requiredRole]
	if !ok {
		return fmt.Errorf("%w: invalid required role %s", apperrors.ErrValidation, requiredRole)
	}

	if userRank < requiredRank {
		logger.Warn("Authorization failed: user lacks required role", slog.String("user_id", userID), slog.String("company_id", companyID), slog.String("user_role", string(membership.Role)), slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}
	return nil
}
