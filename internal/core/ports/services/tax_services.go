package services

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/shopspring/decimal"
)

// TaxComputationSvc classifies document lines into the authority's five tax
// categories and assembles the submission payload.
type TaxComputationSvc interface {
	// Categorize maps a line's tax code and fractional rate to a category.
	// Exempt-coded lines are A; 16% is B; 0% non-exempt is C; 8% is E; anything
	// else falls through to D. The B and E rate checks run before the D
	// fallback. The second return is false when the pair matched nothing and
	// the line fell through to D.
	Categorize(taxCode string, taxRate *decimal.Decimal) (domain.TaxCategory, bool)

	// SummarizeTax aggregates the lines into per-category taxable and tax
	// amounts. A line's taxable amount is its amount minus its reported tax;
	// B and E tax is recomputed as taxable times the category rate; A, C and D
	// accrue zero tax. Lines with malformed tax data are folded into category D
	// with zero tax and counted in MalformedLines instead of failing the
	// summary.
	SummarizeTax(lines []domain.LineItem) domain.TaxSummary

	// BuildPayload assembles the authority submission for a document with its
	// allocated sequential number. Building never fails on bad line data; it
	// degrades per SummarizeTax and reports the number of degraded lines.
	BuildPayload(ctx context.Context, company *domain.Company, doc domain.TaxDocument, lines []domain.LineItem, allocatedNumber int64) (*dto.EtimsSalesRequest, int, error)
}
