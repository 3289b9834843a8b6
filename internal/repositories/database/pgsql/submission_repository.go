package pgsql

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/mapping"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/pagination"
)

type PgxSubmissionRepository struct {
	BaseRepository
}

// newPgxSubmissionRepository creates a new repository for submission records.
func newPgxSubmissionRepository(pool *pgxpool.Pool) portsrepo.SubmissionRepositoryWithTx {
	return &PgxSubmissionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxSubmissionRepository implements portsrepo.SubmissionRepositoryWithTx
var _ portsrepo.SubmissionRepositoryWithTx = (*PgxSubmissionRepository)(nil)

const submissionSelectColumns = `
	submission_id, company_id, document_type, document_id, allocated_number,
	trader_reference, submitted_payload, response_payload, status,
	error_message, receipt_signature, qr_payload, attempt_count,
	created_at, created_by, last_updated_at, last_updated_by
`

// SaveSubmission persists a new submission record. The allocated number is
// unique per company, so a duplicate allocation surfaces as a conflict.
func (r *PgxSubmissionRepository) SaveSubmission(ctx context.Context, record domain.SubmissionRecord) error {
	modelRecord := mapping.ToModelSubmissionRecord(record)
	query := `
		INSERT INTO submission_records (` + submissionSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.Pool.Exec(ctx, query,
		modelRecord.SubmissionID,
		modelRecord.CompanyID,
		modelRecord.DocumentType,
		modelRecord.DocumentID,
		modelRecord.AllocatedNumber,
		modelRecord.TraderReference,
		modelRecord.SubmittedPayload,
		modelRecord.ResponsePayload,
		modelRecord.Status,
		modelRecord.ErrorMessage,
		modelRecord.ReceiptSignature,
		modelRecord.QRPayload,
		modelRecord.AttemptCount,
		modelRecord.CreatedAt,
		modelRecord.CreatedBy,
		modelRecord.LastUpdatedAt,
		modelRecord.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return apperrors.NewConflictError("submission with allocated number " + strconv.FormatInt(record.AllocatedNumber, 10) + " or document " + record.DocumentID + " already exists in company " + record.CompanyID)
		}
		return apperrors.NewAppError(500, "failed to insert submission "+modelRecord.SubmissionID, err)
	}
	return nil
}

// UpdateSubmission writes the mutable state of a submission record. The
// allocated number and document identity never change after insert.
func (r *PgxSubmissionRepository) UpdateSubmission(ctx context.Context, record domain.SubmissionRecord) error {
	modelRecord := mapping.ToModelSubmissionRecord(record)
	query := `
		UPDATE submission_records
		SET trader_reference = $2, submitted_payload = $3, response_payload = $4,
			status = $5, error_message = $6, receipt_signature = $7, qr_payload = $8,
			attempt_count = $9, last_updated_at = $10, last_updated_by = $11
		WHERE submission_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		modelRecord.SubmissionID,
		modelRecord.TraderReference,
		modelRecord.SubmittedPayload,
		modelRecord.ResponsePayload,
		modelRecord.Status,
		modelRecord.ErrorMessage,
		modelRecord.ReceiptSignature,
		modelRecord.QRPayload,
		modelRecord.AttemptCount,
		modelRecord.LastUpdatedAt,
		modelRecord.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update submission "+modelRecord.SubmissionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("submission " + modelRecord.SubmissionID + " not found")
	}
	return nil
}

// FindSubmissionByID retrieves a submission record by its ID.
func (r *PgxSubmissionRepository) FindSubmissionByID(ctx context.Context, submissionID string) (*domain.SubmissionRecord, error) {
	query := `SELECT ` + submissionSelectColumns + ` FROM submission_records WHERE submission_id = $1;`
	return r.findSubmission(ctx, query, submissionID)
}

// FindSubmissionByDocument retrieves the submission record of a document.
func (r *PgxSubmissionRepository) FindSubmissionByDocument(ctx context.Context, companyID string, documentType domain.DocumentType, documentID string) (*domain.SubmissionRecord, error) {
	query := `SELECT ` + submissionSelectColumns + ` FROM submission_records WHERE company_id = $1 AND document_type = $2 AND document_id = $3;`
	return r.findSubmission(ctx, query, companyID, string(documentType), documentID)
}

func (r *PgxSubmissionRepository) findSubmission(ctx context.Context, query string, args ...any) (*domain.SubmissionRecord, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query submission", err)
	}
	modelRecord, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.SubmissionRecord])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to collect submission row", err)
	}
	domainRecord := mapping.ToDomainSubmissionRecord(modelRecord)
	return &domainRecord, nil
}

// ListSubmissionsByCompany retrieves a paginated list of submission records
// for a company, newest first, optionally filtered by status. Pagination is
// token-based on created_at.
func (r *PgxSubmissionRepository) ListSubmissionsByCompany(ctx context.Context, companyID string, limit int, nextToken *string, status *domain.SubmissionStatus) ([]domain.SubmissionRecord, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	query := `SELECT ` + submissionSelectColumns + ` FROM submission_records WHERE company_id = $1`
	args := []any{companyID}

	if status != nil {
		args = append(args, string(*status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, decodeErr := pagination.DecodeDateBasedToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		args = append(args, lastCreatedAt)
		query += ` AND created_at < $` + strconv.Itoa(len(args))
	}

	args = append(args, fetchLimit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query submissions for company "+companyID, err)
	}
	modelRecords, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.SubmissionRecord])
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to collect submission rows for company "+companyID, err)
	}

	var nextTokenVal *string
	results := modelRecords
	if len(modelRecords) > limit {
		last := modelRecords[limit-1]
		token := pagination.EncodeDateBasedToken(last.CreatedAt)
		nextTokenVal = &token
		results = modelRecords[:limit]
	}

	records := make([]domain.SubmissionRecord, len(results))
	for i, m := range results {
		records[i] = mapping.ToDomainSubmissionRecord(m)
	}
	return records, nextTokenVal, nil
}
