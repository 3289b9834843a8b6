package pgsql

import (
	"context"
	"errors"
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
)

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryWithTx {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxInvoiceRepository implements portsrepo.InvoiceRepositoryWithTx
var _ portsrepo.InvoiceRepositoryWithTx = (*PgxInvoiceRepository)(nil)

const invoiceSelectColumns = `
	invoice_id, company_id, quickbooks_id, document_number, transaction_date,
	total_amt, balance, subtotal, tax_total, tax_rate_ref, tax_percent,
	currency_code, exchange_rate, customer_name, customer_pin, validated,
	created_at, created_by, last_updated_at, last_updated_by, version
`

const invoiceLineSelectColumns = `
	line_id, invoice_id, line_number, item_code, item_name, quantity,
	unit_price, amount, tax_code, tax_rate, tax_amount,
	created_at, created_by, last_updated_at, last_updated_by
`

// SaveInvoice persists an invoice and its lines atomically.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.LineItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	defer r.Rollback(ctx, tx) // Ignored once committed

	modelInvoice := mapping.ToModelInvoice(invoice)
	query := `
		INSERT INTO invoices (` + invoiceSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`
	_, err = tx.Exec(ctx, query,
		modelInvoice.InvoiceID,
		modelInvoice.CompanyID,
		modelInvoice.QuickBooksID,
		modelInvoice.DocumentNumber,
		modelInvoice.TransactionDate,
		modelInvoice.TotalAmt,
		modelInvoice.Balance,
		modelInvoice.Subtotal,
		modelInvoice.TaxTotal,
		modelInvoice.TaxRateRef,
		modelInvoice.TaxPercent,
		modelInvoice.CurrencyCode,
		modelInvoice.ExchangeRate,
		modelInvoice.CustomerName,
		modelInvoice.CustomerPin,
		modelInvoice.Validated,
		modelInvoice.CreatedAt,
		modelInvoice.CreatedBy,
		modelInvoice.LastUpdatedAt,
		modelInvoice.LastUpdatedBy,
		1,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return apperrors.NewConflictError("invoice with QuickBooks ID " + invoice.QuickBooksID + " already exists in company " + invoice.CompanyID)
		}
		return apperrors.NewAppError(500, "failed to insert invoice "+modelInvoice.InvoiceID, err)
	}

	if err := r.insertLines(ctx, tx, modelInvoice.InvoiceID, lines); err != nil {
		return err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return apperrors.NewAppError(500, "failed to commit invoice "+modelInvoice.InvoiceID, err)
	}
	return nil
}

// UpdateInvoice replaces an invoice's mutable columns and its lines wholesale,
// using optimistic locking on version.
func (r *PgxInvoiceRepository) UpdateInvoice(ctx context.Context, invoice domain.Invoice, lines []domain.LineItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	defer r.Rollback(ctx, tx)

	modelInvoice := mapping.ToModelInvoice(invoice)
	query := `
		UPDATE invoices
		SET document_number = $2, transaction_date = $3, total_amt = $4, balance = $5,
			subtotal = $6, tax_total = $7, tax_rate_ref = $8, tax_percent = $9,
			currency_code = $10, exchange_rate = $11, customer_name = $12, customer_pin = $13,
			last_updated_at = $14, last_updated_by = $15, version = $16
		WHERE invoice_id = $1 AND version = $17;
	`
	cmdTag, err := tx.Exec(ctx, query,
		modelInvoice.InvoiceID,
		modelInvoice.DocumentNumber,
		modelInvoice.TransactionDate,
		modelInvoice.TotalAmt,
		modelInvoice.Balance,
		modelInvoice.Subtotal,
		modelInvoice.TaxTotal,
		modelInvoice.TaxRateRef,
		modelInvoice.TaxPercent,
		modelInvoice.CurrencyCode,
		modelInvoice.ExchangeRate,
		modelInvoice.CustomerName,
		modelInvoice.CustomerPin,
		modelInvoice.LastUpdatedAt,
		modelInvoice.LastUpdatedBy,
		modelInvoice.Version,
		modelInvoice.Version-1,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update invoice "+modelInvoice.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewConflictError("optimistic locking failed: invoice " + modelInvoice.InvoiceID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1;`, modelInvoice.InvoiceID); err != nil {
		return apperrors.NewAppError(500, "failed to delete lines of invoice "+modelInvoice.InvoiceID, err)
	}
	if err := r.insertLines(ctx, tx, modelInvoice.InvoiceID, lines); err != nil {
		return err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return apperrors.NewAppError(500, "failed to commit invoice update "+modelInvoice.InvoiceID, err)
	}
	return nil
}

// insertLines queues the line inserts as one batch inside the caller's tx.
func (r *PgxInvoiceRepository) insertLines(ctx context.Context, tx pgx.Tx, invoiceID string, lines []domain.LineItem) error {
	if len(lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO invoice_lines (` + invoiceLineSelectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	for _, line := range lines {
		modelLine := mapping.ToModelInvoiceLine(invoiceID, line)
		batch.Queue(lineQuery,
			modelLine.LineID,
			modelLine.InvoiceID,
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
		return apperrors.NewAppError(500, "failed to execute line batch for invoice "+invoiceID, err)
	}
	return nil
}

// SetInvoiceValidated marks an invoice as accepted by the tax authority.
func (r *PgxInvoiceRepository) SetInvoiceValidated(ctx context.Context, invoiceID string, updatedBy string, now time.Time) error {
	query := `
		UPDATE invoices
		SET validated = true, last_updated_at = $2, last_updated_by = $3, version = version + 1
		WHERE invoice_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, invoiceID, now, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark invoice "+invoiceID+" validated", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("invoice " + invoiceID + " not found")
	}
	return nil
}

// FindInvoiceByID retrieves an invoice by its ID.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceSelectColumns + ` FROM invoices WHERE invoice_id = $1;`
	return r.findInvoice(ctx, query, invoiceID)
}

// FindInvoiceByQuickBooksID retrieves an invoice by its source system id within a company.
func (r *PgxInvoiceRepository) FindInvoiceByQuickBooksID(ctx context.Context, companyID string, quickBooksID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceSelectColumns + ` FROM invoices WHERE company_id = $1 AND quickbooks_id = $2;`
	return r.findInvoice(ctx, query, companyID, quickBooksID)
}

// FindInvoiceByIDForUpdate selects an invoice and locks its row within the
// caller's transaction. The lock serializes credit linkage against this invoice.
func (r *PgxInvoiceRepository) FindInvoiceByIDForUpdate(ctx context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceSelectColumns + ` FROM invoices WHERE invoice_id = $1 FOR UPDATE;`
	rows, err := tx.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock invoice "+invoiceID, err)
	}
	modelInvoice, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Invoice])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to scan locked invoice "+invoiceID, err)
	}
	domainInvoice := mapping.ToDomainInvoice(modelInvoice)
	return &domainInvoice, nil
}

func (r *PgxInvoiceRepository) findInvoice(ctx context.Context, query string, args ...any) (*domain.Invoice, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query invoice", err)
	}
	modelInvoice, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Invoice])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to collect invoice row", err)
	}
	domainInvoice := mapping.ToDomainInvoice(modelInvoice)
	return &domainInvoice, nil
}

// FindInvoiceLines retrieves the lines of an invoice ordered by line number.
func (r *PgxInvoiceRepository) FindInvoiceLines(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	query := `SELECT ` + invoiceLineSelectColumns + ` FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_number;`
	rows, err := r.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for invoice "+invoiceID, err)
	}
	modelLines, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.InvoiceLine])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.LineItem{}, nil
		}
		return nil, apperrors.NewAppError(500, "failed to collect lines for invoice "+invoiceID, err)
	}

	lines := make([]domain.LineItem, len(modelLines))
	for i, m := range modelLines {
		lines[i] = mapping.ToDomainLineItemFromInvoiceLine(m)
	}
	return lines, nil
}

// ListInvoicesByCompany retrieves a paginated list of invoices for a company
// using token-based pagination on (transaction_date, created_at).
func (r *PgxInvoiceRepository) ListInvoicesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to know whether a next page exists.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + invoiceSelectColumns + ` FROM invoices WHERE company_id = $1`
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
		return nil, nil, apperrors.NewAppError(500, "failed to query invoices for company "+companyID, err)
	}
	modelInvoices, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Invoice])
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to collect invoice rows for company "+companyID, err)
	}

	var nextTokenVal *string
	results := modelInvoices
	if len(modelInvoices) > limit {
		last := modelInvoices[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.CreatedAt)
		nextTokenVal = &token
		results = modelInvoices[:limit]
	}

	invoices := make([]domain.Invoice, len(results))
	for i, m := range results {
		invoices[i] = mapping.ToDomainInvoice(m)
	}
	return invoices, nextTokenVal, nil
}
