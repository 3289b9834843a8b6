package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portsrepo "github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/mapping"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

type PgxCreditNoteRepository struct {
	BaseRepository
}

// newPgxCreditNoteRepository creates a new repository for credit note data.
func newPgxCreditNoteRepository(pool *pgxpool.Pool) portsrepo.CreditNoteRepositoryWithTx {
	return &PgxCreditNoteRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxCreditNoteRepository implements portsrepo.CreditNoteRepositoryWithTx
var _ portsrepo.CreditNoteRepositoryWithTx = (*PgxCreditNoteRepository)(nil)

const creditNoteSelectColumns = `
	credit_note_id, company_id, quickbooks_id, document_number, transaction_date,
	total_amt, balance, subtotal, tax_total, tax_percent, related_invoice_id,
	currency_code, exchange_rate, customer_name, customer_pin, validated,
	created_at, created_by, last_updated_at, last_updated_by, version
`

const creditNoteLineSelectColumns = `
	line_id, credit_note_id, line_number, item_code, item_name, quantity,
	unit_price, amount, tax_code, tax_rate, tax_amount,
	created_at, created_by, last_updated_at, last_updated_by
`

// SaveCreditNote persists a credit note and its lines atomically.
func (r *PgxCreditNoteRepository) SaveCreditNote(ctx context.Context, creditNote domain.CreditNote, lines []domain.LineItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	defer r.Rollback(ctx, tx) // Ignored once committed

	modelCreditNote := mapping.ToModelCreditNote(creditNote)
	query := `
		INSERT INTO credit_notes (` + creditNoteSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`
	_, err = tx.Exec(ctx, query,
		modelCreditNote.CreditNoteID,
		modelCreditNote.CompanyID,
		modelCreditNote.QuickBooksID,
		modelCreditNote.DocumentNumber,
		modelCreditNote.TransactionDate,
		modelCreditNote.TotalAmt,
		modelCreditNote.Balance,
		modelCreditNote.Subtotal,
		modelCreditNote.TaxTotal,
		modelCreditNote.TaxPercent,
		modelCreditNote.RelatedInvoiceID,
		modelCreditNote.CurrencyCode,
		modelCreditNote.ExchangeRate,
		modelCreditNote.CustomerName,
		modelCreditNote.CustomerPin,
		modelCreditNote.Validated,
		modelCreditNote.CreatedAt,
		modelCreditNote.CreatedBy,
		modelCreditNote.LastUpdatedAt,
		modelCreditNote.LastUpdatedBy,
		1,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return apperrors.NewConflictError("credit note with QuickBooks ID " + creditNote.QuickBooksID + " already exists in company " + creditNote.CompanyID)
			}
			if pgErr.Code == "23503" { // foreign_key_violation
				return apperrors.NewValidationFailedError("related invoice does not exist")
			}
		}
		return apperrors.NewAppError(500, "failed to insert credit note "+modelCreditNote.CreditNoteID, err)
	}

	if err := r.insertLines(ctx, tx, modelCreditNote.CreditNoteID, lines); err != nil {
		return err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return apperrors.NewAppError(500, "failed to commit credit note "+modelCreditNote.CreditNoteID, err)
	}
	return nil
}

// UpdateCreditNote replaces a credit note's sync-owned columns and its lines
// wholesale, using optimistic locking on version. The related invoice link is
// deliberately not touched here; linkage changes go through
// UpdateRelatedInvoiceInTx under the invoice lock.
func (r *PgxCreditNoteRepository) UpdateCreditNote(ctx context.Context, creditNote domain.CreditNote, lines []domain.LineItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	defer r.Rollback(ctx, tx)

	modelCreditNote := mapping.ToModelCreditNote(creditNote)
	query := `
		UPDATE credit_notes
		SET document_number = $2, transaction_date = $3, total_amt = $4, balance = $5,
			subtotal = $6, tax_total = $7, tax_percent = $8,
			currency_code = $9, exchange_rate = $10, customer_name = $11, customer_pin = $12,
			last_updated_at = $13, last_updated_by = $14, version = $15
		WHERE credit_note_id = $1 AND version = $16;
	`
	cmdTag, err := tx.Exec(ctx, query,
		modelCreditNote.CreditNoteID,
		modelCreditNote.DocumentNumber,
		modelCreditNote.TransactionDate,
		modelCreditNote.TotalAmt,
		modelCreditNote.Balance,
		modelCreditNote.Subtotal,
		modelCreditNote.TaxTotal,
		modelCreditNote.TaxPercent,
		modelCreditNote.CurrencyCode,
		modelCreditNote.ExchangeRate,
		modelCreditNote.CustomerName,
		modelCreditNote.CustomerPin,
		modelCreditNote.LastUpdatedAt,
		modelCreditNote.LastUpdatedBy,
		modelCreditNote.Version,
		modelCreditNote.Version-1,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update credit note "+modelCreditNote.CreditNoteID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewConflictError("optimistic locking failed: credit note " + modelCreditNote.CreditNoteID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM credit_note_lines WHERE credit_note_id = $1;`, modelCreditNote.CreditNoteID); err != nil {
		return apperrors.NewAppError(500, "failed to delete lines of credit note "+modelCreditNote.CreditNoteID, err)
	}
	if err := r.insertLines(ctx, tx, modelCreditNote.CreditNoteID, lines); err != nil {
		return err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return apperrors.NewAppError(500, "failed to commit credit note update "+modelCreditNote.CreditNoteID, err)
	}
	return nil
}

func (r *PgxCreditNoteRepository) insertLines(ctx context.Context, tx pgx.Tx, creditNoteID string, lines []domain.LineItem) error {
	if len(lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO credit_note_lines (` + creditNoteLineSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	for _, line := range lines {
		modelLine := mapping.ToModelCreditNoteLine(creditNoteID, line)
		batch.Queue(lineQuery,
			modelLine.LineID,
			modelLine.CreditNoteID,
			modelLine.LineNumber,
			modelLine.ItemCode,
			modelLine.ItemName,
			modelLine.Quantity,
			modelLine.UnitPrice,
			modelLine.Amount,
			modelLine.TaxCode,
			modelLine.TaxRate,
			modelLine.TaxAmount,
			modelLine.CreatedAt,
			modelLine.CreatedBy,
			modelLine.LastUpdatedAt,
			modelLine.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to execute line batch for credit note "+creditNoteID, err)
	}
	return nil
}

// SetCreditNoteValidated marks a credit note as accepted by the tax authority.
func (r *PgxCreditNoteRepository) SetCreditNoteValidated(ctx context.Context, creditNoteID string, updatedBy string, now time.Time) error {
	query := `
		UPDATE credit_notes
		SET validated = true, last_updated_at = $2, last_updated_by = $3, version = version + 1
		WHERE credit_note_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, creditNoteID, now, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark credit note "+creditNoteID+" validated", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("credit note " + creditNoteID + " not found")
	}
	return nil
}

// FindCreditNoteByID retrieves a credit note by its ID.
func (r *PgxCreditNoteRepository) FindCreditNoteByID(ctx context.Context, creditNoteID string) (*domain.CreditNote, error) {
	query := `SELECT ` + creditNoteSelectColumns + ` FROM credit_notes WHERE credit_note_id = $1;`
	return r.findCreditNote(ctx, query, creditNoteID)
}

// FindCreditNoteByQuickBooksID retrieves a credit note by its source system id within a company.
func (r *PgxCreditNoteRepository) FindCreditNoteByQuickBooksID(ctx context.Context, companyID string, quickBooksID string) (*domain.CreditNote, error) {
	query := `SELECT ` + creditNoteSelectColumns + ` FROM credit_notes WHERE company_id = $1 AND quickbooks_id = $2;`
	return r.findCreditNote(ctx, query, companyID, quickBooksID)
}

func (r *PgxCreditNoteRepository) findCreditNote(ctx context.Context, query string, args ...any) (*domain.CreditNote, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query credit note", err)
	}
	modelCreditNote, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.CreditNote])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to collect credit note row", err)
	}
	domainCreditNote := mapping.ToDomainCreditNote(modelCreditNote)
	return &domainCreditNote, nil
}

// FindCreditNoteLines retrieves the lines of a credit note ordered by line number.
func (r *PgxCreditNoteRepository) FindCreditNoteLines(ctx context.Context, creditNoteID string) ([]domain.LineItem, error) {
	query := `SELECT ` + creditNoteLineSelectColumns + ` FROM credit_note_lines WHERE credit_note_id = $1 ORDER BY line_number;`
	rows, err := r.Pool.Query(ctx, query, creditNoteID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for credit note "+creditNoteID, err)
	}
	modelLines, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.CreditNoteLine])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.LineItem{}, nil
		}
		return nil, apperrors.NewAppError(500, "failed to collect lines for credit note "+creditNoteID, err)
	}

	lines := make([]domain.LineItem, len(modelLines))
	for i, m := range modelLines {
		lines[i] = mapping.ToDomainLineItemFromCreditNoteLine(m)
	}
	return lines, nil
}

// ListCreditNotesByInvoiceID retrieves all credit notes linked to an invoice.
func (r *PgxCreditNoteRepository) ListCreditNotesByInvoiceID(ctx context.Context, invoiceID string) ([]domain.CreditNote, error) {
	query := `SELECT ` + creditNoteSelectColumns + ` FROM credit_notes WHERE related_invoice_id = $1 ORDER BY transaction_date, created_at;`
	rows, err := r.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query credit notes for invoice "+invoiceID, err)
	}
	modelCreditNotes, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.CreditNote])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.CreditNote{}, nil
		}
		return nil, apperrors.NewAppError(500, "failed to collect credit notes for invoice "+invoiceID, err)
	}

	creditNotes := make([]domain.CreditNote, len(modelCreditNotes))
	for i, m := range modelCreditNotes {
		creditNotes[i] = mapping.ToDomainCreditNote(m)
	}
	return creditNotes, nil
}

// ListCreditNotesByCompany retrieves a paginated list of credit notes for a
// company using token-based pagination on (transaction_date, created_at).
func (r *PgxCreditNoteRepository) ListCreditNotesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.CreditNote, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + creditNoteSelectColumns + ` FROM credit_notes WHERE company_id = $1`
	orderByClause := `ORDER BY transaction_date DESC, created_at DESC`

	args := []any{companyID}
	query := baseQuery

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (transaction_date, created_at) < ($2, $3)`
		args = append(args, lastDate, lastCreatedAt)
	}

	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query credit notes for company "+companyID, err)
	}
	modelCreditNotes, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.CreditNote])
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to collect credit note rows for company "+companyID, err)
	}

	var nextTokenVal *string
	results := modelCreditNotes
	if len(modelCreditNotes) > limit {
		last := modelCreditNotes[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.CreatedAt)
		nextTokenVal = &token
		results = modelCreditNotes[:limit]
	}

	creditNotes := make([]domain.CreditNote, len(results))
	for i, m := range results {
		creditNotes[i] = mapping.ToDomainCreditNote(m)
	}
	return creditNotes, nextTokenVal, nil
}

// SumLinkedCreditAmountsInTx totals the credit notes linked to an invoice
// inside the caller's transaction, which holds the invoice row lock.
func (r *PgxCreditNoteRepository) SumLinkedCreditAmountsInTx(ctx context.Context, tx pgx.Tx, invoiceID string, excludeCreditNoteID *string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(total_amt), 0) FROM credit_notes WHERE related_invoice_id = $1`
	args := []any{invoiceID}
	if excludeCreditNoteID != nil {
		query += ` AND credit_note_id != $2`
		args = append(args, *excludeCreditNoteID)
	}
	query += ";"

	var total decimal.Decimal
	if err := tx.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum linked credits for invoice "+invoiceID, err)
	}
	return total, nil
}

// UpdateRelatedInvoiceInTx sets or clears a credit note's invoice link inside
// the caller's transaction. The write is guarded by the link's required prior
// state: setting requires the note to be unlinked or already linked to the
// same invoice, clearing requires it to be linked. A concurrent writer that
// changed the link in between makes the guard miss, which reads as ErrConflict
// rather than a silent overwrite.
func (r *PgxCreditNoteRepository) UpdateRelatedInvoiceInTx(ctx context.Context, tx pgx.Tx, creditNoteID string, relatedInvoiceID *string, updatedBy string, now time.Time) error {
	var (
		cmdTag pgconn.CommandTag
		err    error
	)
	if relatedInvoiceID != nil {
		query := `
			UPDATE credit_notes
			SET related_invoice_id = $2, last_updated_at = $3, last_updated_by = $4, version = version + 1
			WHERE credit_note_id = $1
				AND (related_invoice_id IS NULL OR related_invoice_id = $2);
		`
		cmdTag, err = tx.Exec(ctx, query, creditNoteID, *relatedInvoiceID, now, updatedBy)
	} else {
		query := `
			UPDATE credit_notes
			SET related_invoice_id = NULL, last_updated_at = $2, last_updated_by = $3, version = version + 1
			WHERE credit_note_id = $1
				AND related_invoice_id IS NOT NULL;
		`
		cmdTag, err = tx.Exec(ctx, query, creditNoteID, now, updatedBy)
	}
	if err != nil {
		return apperrors.NewAppError(500, "failed to update invoice link of credit note "+creditNoteID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice link of credit note %s changed concurrently", apperrors.ErrConflict, creditNoteID)
	}
	return nil
}
