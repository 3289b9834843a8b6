package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
)

type PgxCompanyRepository struct {
	BaseRepository
}

// newPgxCompanyRepository creates a new repository for company data.
func newPgxCompanyRepository(pool *pgxpool.Pool) portsrepo.CompanyRepositoryWithTx {
	return &PgxCompanyRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxCompanyRepository implements portsrepo.CompanyRepositoryWithTx
var _ portsrepo.CompanyRepositoryWithTx = (*PgxCompanyRepository)(nil)

var FULL_COMPANY_SELECT_QUERY = `
SELECT
	c.company_id, c.name, c.kra_pin, c.branch_id, c.trade_name, c.address,
	c.device_key, c.receipt_header_msg, c.receipt_footer_msg,
	c.quick_books_realm_id, c.default_currency_code, c.is_active,
	c.created_at, c.created_by, c.last_updated_at, c.last_updated_by, c.version
FROM companies c
`

// getCompanies runs the full select with the given filter and collects rows.
func (r *PgxCompanyRepository) getCompanies(ctx context.Context, filterQuery string, args ...any) ([]domain.Company, error) {
	query := FULL_COMPANY_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query companies", err)
	}
	defer rows.Close()
	companies, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Company])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Company{}, nil
		}
		return nil, apperrors.NewAppError(500, "failed to collect company rows", err)
	}

	return companies, nil
}

func (r *PgxCompanyRepository) SaveCompany(ctx context.Context, company domain.Company) error {
	query := `
		INSERT INTO companies (
			company_id, name, kra_pin, branch_id, trade_name, address,
			device_key, receipt_header_msg, receipt_footer_msg,
			quick_books_realm_id, default_currency_code, is_active,
			created_at, created_by, last_updated_at, last_updated_by, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.Pool.Exec(ctx, query,
		company.CompanyID,
		company.Name,
		company.KraPin,
		company.BranchID,
		company.TradeName,
		company.Address,
		company.DeviceKey,
		company.ReceiptHeaderMsg,
		company.ReceiptFooterMsg,
		company.QuickBooksRealmID,
		company.DefaultCurrencyCode,
		company.IsActive,
		company.CreatedAt,
		company.CreatedBy,
		company.LastUpdatedAt,
		company.LastUpdatedBy,
		1,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return apperrors.NewConflictError("company ID " + company.CompanyID + " already exists")
			}
			if pgErr.Code == "23503" && pgErr.ConstraintName == "fk_company_default_currency" { // foreign_key_violation
				return apperrors.NewValidationFailedError("currency code does not exist")
			}
		}
		return apperrors.NewAppError(500, "failed to save company "+company.CompanyID, err)
	}
	return nil
}

func (r *PgxCompanyRepository) UpdateCompany(ctx context.Context, company domain.Company) error {
	query := `
		UPDATE companies
		SET name = $1, kra_pin = $2, branch_id = $3, trade_name = $4, address = $5,
			device_key = $6, receipt_header_msg = $7, receipt_footer_msg = $8,
			quick_books_realm_id = $9, default_currency_code = $10, is_active = $11,
			last_updated_at = $12, last_updated_by = $13, version = version + 1
		WHERE company_id = $14 AND version = $15;
	`
	result, err := r.Pool.Exec(ctx, query,
		company.Name,
		company.KraPin,
		company.BranchID,
		company.TradeName,
		company.Address,
		company.DeviceKey,
		company.ReceiptHeaderMsg,
		company.ReceiptFooterMsg,
		company.QuickBooksRealmID,
		company.DefaultCurrencyCode,
		company.IsActive,
		company.LastUpdatedAt,
		company.LastUpdatedBy,
		company.CompanyID,
		company.Version,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update company "+company.CompanyID, err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("optimistic locking failed: company " + company.CompanyID)
	}
	return nil
}

func (r *PgxCompanyRepository) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	query := `WHERE c.company_id = $1`
	companies, err := r.getCompanies(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &companies[0], nil
}

func (r *PgxCompanyRepository) ListCompaniesByUserID(ctx context.Context, userID string) ([]domain.Company, error) {
	query := `
		JOIN user_companies uc ON c.company_id = uc.company_id
		WHERE uc.user_id = $1 AND uc.role != $2 AND c.is_active = true
		ORDER BY c.name;
	`
	return r.getCompanies(ctx, query, userID, domain.RoleRemoved)
}

func (r *PgxCompanyRepository) AddUserToCompany(ctx context.Context, membership domain.UserCompany) error {
	query := `
		INSERT INTO user_companies (user_id, company_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, company_id) DO UPDATE SET role = EXCLUDED.role;
	` // Upsert: add user or update their role if they already exist
	_, err := r.Pool.Exec(ctx, query,
		membership.UserID,
		membership.CompanyID,
		membership.Role,
		membership.JoinedAt,
	)

	if err != nil {
		return apperrors.NewAppError(500, "failed to add/update user "+membership.UserID+" in company "+membership.CompanyID, err)
	}
	return nil
}

func (r *PgxCompanyRepository) FindUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	query := `
		SELECT user_id, company_id, role, joined_at
		FROM user_companies
		WHERE user_id = $1 AND company_id = $2;
	`
	var uc domain.UserCompany
	err := r.Pool.QueryRow(ctx, query, userID, companyID).Scan(
		&uc.UserID,
		&uc.CompanyID,
		&uc.Role,
		&uc.JoinedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("company not found")
		}
		return nil, apperrors.NewAppError(500, "failed to find user "+userID+" company role in "+companyID, err)
	}
	return &uc, nil
}

// ListUsersByCompanyID retrieves the memberships of a company.
// By default, users with the REMOVED role are excluded.
func (r *PgxCompanyRepository) ListUsersByCompanyID(ctx context.Context, companyID string, includeRemoved ...bool) ([]domain.UserCompany, error) {
	query := `
		SELECT uc.user_id, u.name as user_name, uc.company_id, uc.role, uc.joined_at
		FROM user_companies uc
		JOIN users u ON uc.user_id = u.user_id
		WHERE uc.company_id = $1
	`

	shouldIncludeRemoved := false
	if len(includeRemoved) > 0 {
		shouldIncludeRemoved = includeRemoved[0]
	}

	if !shouldIncludeRemoved {
		query += ` AND uc.role != $2`
	}

	query += ` ORDER BY uc.joined_at DESC;`

	var rows pgx.Rows
	var err error

	if !shouldIncludeRemoved {
		rows, err = r.Pool.Query(ctx, query, companyID, domain.RoleRemoved)
	} else {
		rows, err = r.Pool.Query(ctx, query, companyID)
	}

	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query users for company "+companyID, err)
	}
	defer rows.Close()

	var memberships []domain.UserCompany
	for rows.Next() {
		var uc domain.UserCompany
		err := rows.Scan(
			&uc.UserID,
			&uc.UserName,
			&uc.CompanyID,
			&uc.Role,
			&uc.JoinedAt,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan user company row", err)
		}
		memberships = append(memberships, uc)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating user company rows", err)
	}

	return memberships, nil
}

// UpdateUserCompanyRole updates a user's role in a company.
func (r *PgxCompanyRepository) UpdateUserCompanyRole(ctx context.Context, userID, companyID string, newRole domain.UserCompanyRole) error {
	query := `
		UPDATE user_companies
		SET role = $3
		WHERE user_id = $1 AND company_id = $2;
	`

	result, err := r.Pool.Exec(ctx, query, userID, companyID, newRole)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update role for user "+userID+" in company "+companyID, err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("company not found")
	}
	return nil
}
