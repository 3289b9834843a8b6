package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/mapping"
)

type PgxAPITokenRepository struct {
	BaseRepository
}

// newPgxAPITokenRepository creates a repository for the machine credentials
// used on the x-api-key path.
func newPgxAPITokenRepository(pool *pgxpool.Pool) portsrepo.APITokenRepository {
	return &PgxAPITokenRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.APITokenRepository = (*PgxAPITokenRepository)(nil)

const apiTokenSelectColumns = `
	api_token_id, user_id, name, token_hash, last_used_at, expires_at, created_at, updated_at
`

// Create persists a new API token and backfills the generated ID and
// timestamps onto the domain object.
func (r *PgxAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if token == nil {
		return apperrors.NewValidationFailedError("token cannot be nil")
	}

	modelToken := mapping.ToModelAPIToken(*token)
	query := `
		INSERT INTO api_tokens (user_id, name, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + apiTokenSelectColumns + `;`

	rows, err := r.Pool.Query(ctx, query, modelToken.UserID, modelToken.Name, modelToken.TokenHash, modelToken.ExpiresAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert api token", err)
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.APIToken])
	if err != nil {
		return apperrors.NewAppError(500, "failed to collect inserted api token", err)
	}

	token.ID = created.ID
	token.CreatedAt = created.CreatedAt
	token.UpdatedAt = created.UpdatedAt
	return nil
}

// FindByID retrieves an API token by its ID.
func (r *PgxAPITokenRepository) FindByID(ctx context.Context, id string) (*domain.APIToken, error) {
	query := `SELECT ` + apiTokenSelectColumns + ` FROM api_tokens WHERE api_token_id = $1 AND deleted_at IS NULL;`
	rows, err := r.Pool.Query(ctx, query, id)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query api token", err)
	}
	modelToken, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.APIToken])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to collect api token row", err)
	}
	domainToken := mapping.ToDomainAPIToken(modelToken)
	return &domainToken, nil
}

// FindByUserID retrieves all of a user's tokens, newest first.
func (r *PgxAPITokenRepository) FindByUserID(ctx context.Context, userID string) ([]domain.APIToken, error) {
	query := `
		SELECT ` + apiTokenSelectColumns + `
		FROM api_tokens
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC;`
	rows, err := r.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query api tokens for user "+userID, err)
	}
	modelTokens, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.APIToken])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to collect api token rows", err)
	}
	return mapping.ToDomainAPITokenSlice(modelTokens), nil
}

// FindActive returns every live token: not soft-deleted and not expired as
// of now. Token hashes are bcrypt, so validation has to compare against the
// whole active set; this keeps that set as small as the data allows.
func (r *PgxAPITokenRepository) FindActive(ctx context.Context, now time.Time) ([]domain.APIToken, error) {
	query := `
		SELECT ` + apiTokenSelectColumns + `
		FROM api_tokens
		WHERE deleted_at IS NULL AND (expires_at IS NULL OR expires_at > $1);`
	rows, err := r.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query active api tokens", err)
	}
	modelTokens, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.APIToken])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to collect active api token rows", err)
	}
	return mapping.ToDomainAPITokenSlice(modelTokens), nil
}

// Update writes the mutable token fields; currently only last_used_at changes
// after creation.
func (r *PgxAPITokenRepository) Update(ctx context.Context, token *domain.APIToken) error {
	if token == nil {
		return apperrors.NewValidationFailedError("token cannot be nil")
	}

	query := `
		UPDATE api_tokens
		SET last_used_at = COALESCE($2, last_used_at), updated_at = NOW()
		WHERE api_token_id = $1 AND deleted_at IS NULL;`
	tag, err := r.Pool.Exec(ctx, query, token.ID, token.LastUsedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update api token", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete soft-deletes a token so revocations stay auditable.
func (r *PgxAPITokenRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE api_tokens SET deleted_at = NOW() WHERE api_token_id = $1 AND deleted_at IS NULL;`
	tag, err := r.Pool.Exec(ctx, query, id)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete api token", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteByUserID soft-deletes all of a user's tokens.
func (r *PgxAPITokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `UPDATE api_tokens SET deleted_at = NOW() WHERE user_id = $1 AND deleted_at IS NULL;`
	if _, err := r.Pool.Exec(ctx, query, userID); err != nil {
		return apperrors.NewAppError(500, "failed to delete api tokens for user "+userID, err)
	}
	return nil
}

// DeleteExpired soft-deletes tokens whose expiry has passed and reports how
// many were swept.
func (r *PgxAPITokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE api_tokens SET deleted_at = NOW() WHERE expires_at < $1 AND deleted_at IS NULL;`
	tag, err := r.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to delete expired api tokens", err)
	}
	return tag.RowsAffected(), nil
}
