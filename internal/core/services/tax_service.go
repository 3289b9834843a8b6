package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"github.com/savannahbooks/etims_bridge_app/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// Authority timestamp layouts: yyyyMMddHHmmss for full timestamps and
// yyyyMMdd for date-only fields.
const (
	authorityTimestampLayout = "20060102150405"
	authorityDateLayout      = "20060102"
)

// Fixed fractional rates the category decision table matches against.
var (
	rateStandard = decimal.NewFromFloat(0.16)
	rateReduced  = decimal.NewFromFloat(0.08)
)

// exemptTaxCodes are the source tax codes treated as exempt regardless of rate.
var exemptTaxCodes = map[string]bool{
	"EXEMPT":     true,
	"EXE":        true,
	"VAT EXEMPT": true,
	"NON-VAT":    true,
}

type taxService struct {
	// now is swappable so payload timestamps are deterministic in tests.
	now func() time.Time
}

// NewTaxService creates the tax categorization and payload building service.
func NewTaxService() portssvc.TaxComputationSvc {
	return &taxService{now: time.Now}
}

var _ portssvc.TaxComputationSvc = (*taxService)(nil)

// Categorize maps a line's tax code and rate to one of the authority's five
// categories. The decision table is closed and ordered: exempt codes first,
// then the 16% and 8% rate checks, then zero-rated, then the D fallback.
// The second return is false when the line fell through to D with no usable
// rate at all, which callers count as a degraded line.
func (s *taxService) Categorize(taxCode string, taxRate *decimal.Decimal) (domain.TaxCategory, bool) {
	if isExemptCode(taxCode) {
		return domain.TaxCategoryA, true
	}
	if taxRate != nil {
		switch {
		case taxRate.Equal(rateStandard):
			return domain.TaxCategoryB, true
		case taxRate.Equal(rateReduced):
			return domain.TaxCategoryE, true
		case taxRate.IsZero():
			return domain.TaxCategoryC, true
		default:
			// A real but non-standard rate is a deliberate category D line.
			return domain.TaxCategoryD, true
		}
	}
	return domain.TaxCategoryD, false
}

// SummarizeTax aggregates document lines into the five-category breakdown.
// Lines with malformed tax data (no usable rate, or a reported tax amount
// exceeding the line amount) degrade to zero-tax category D and are counted
// rather than failing the summary.
func (s *taxService) SummarizeTax(lines []domain.LineItem) domain.TaxSummary {
	summary := domain.NewTaxSummary()

	for _, line := range lines {
		category, ok := s.Categorize(line.TaxCode, line.TaxRate)
		taxable := line.Amount.Sub(line.TaxAmount)

		if !ok || taxable.IsNegative() {
			// Degraded line: the whole amount goes to category D untaxed.
			summary.MalformedLines++
			bucket := summary.Buckets[domain.TaxCategoryD]
			bucket.TaxableAmount = bucket.TaxableAmount.Add(line.Amount)
			summary.Buckets[domain.TaxCategoryD] = bucket
			continue
		}

		bucket := summary.Buckets[category]
		bucket.TaxableAmount = bucket.TaxableAmount.Add(taxable)
		// B and E tax is recomputed from the taxable amount at the category
		// rate; the reported tax amount is only trusted to derive the taxable
		// base. A, C and D accrue zero tax.
		bucket.TaxAmount = bucket.TaxAmount.Add(taxable.Mul(domain.CategoryRate(category)))
		summary.Buckets[category] = bucket
	}

	for cat, bucket := range summary.Buckets {
		bucket.TaxableAmount = accounting.RoundMoney(bucket.TaxableAmount)
		bucket.TaxAmount = accounting.RoundMoney(bucket.TaxAmount)
		summary.Buckets[cat] = bucket
	}
	return summary
}

// BuildPayload assembles the authority submission for a document and its
// allocated sequential number. Bad line data never fails the build; it
// degrades per SummarizeTax, and the number of degraded lines is returned so
// the orchestrator can log a data-quality warning.
func (s *taxService) BuildPayload(ctx context.Context, company *domain.Company, doc domain.TaxDocument, lines []domain.LineItem, allocatedNumber int64) (*dto.EtimsSalesRequest, int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if company == nil {
		return nil, 0, fmt.Errorf("%w: company is required to build a payload", apperrors.ErrValidation)
	}
	if allocatedNumber <= 0 {
		return nil, 0, fmt.Errorf("%w: allocated number must be positive, got %d", apperrors.ErrValidation, allocatedNumber)
	}

	summary := s.SummarizeTax(lines)
	if summary.MalformedLines > 0 {
		logger.Warn("Document has lines with malformed tax data, degraded to zero-tax category D",
			slog.String("document_id", doc.DocumentID),
			slog.Int("malformed_lines", summary.MalformedLines))
	}

	now := s.now()
	customerName := doc.CustomerName
	if customerName == "" {
		customerName = "WALK-IN CUSTOMER"
	}

	receiptType := "S"
	if doc.DocumentType == domain.DocumentTypeCreditNote {
		receiptType = "R"
	}

	items := make([]dto.EtimsItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, s.buildItem(line))
	}

	req := &dto.EtimsSalesRequest{
		Tin:          company.KraPin,
		BhfID:        company.BranchID,
		InvcNo:       allocatedNumber,
		OrgInvcNo:    doc.OriginalInvoiceNumber,
		TrdInvcNo:    doc.DocumentNumber,
		CustTin:      doc.CustomerPin,
		CustNm:       customerName,
		SalesTyCd:    "N",
		RcptTyCd:     receiptType,
		PmtTyCd:      "01",
		SalesSttsCd:  "02",
		CfmDt:        now.Format(authorityTimestampLayout),
		SalesDt:      doc.TransactionDate.Format(authorityDateLayout),
		TotItemCnt:   len(items),
		TaxblAmtA:    summary.Buckets[domain.TaxCategoryA].TaxableAmount,
		TaxblAmtB:    summary.Buckets[domain.TaxCategoryB].TaxableAmount,
		TaxblAmtC:    summary.Buckets[domain.TaxCategoryC].TaxableAmount,
		TaxblAmtD:    summary.Buckets[domain.TaxCategoryD].TaxableAmount,
		TaxblAmtE:    summary.Buckets[domain.TaxCategoryE].TaxableAmount,
		TaxRtA:       categoryRatePct(domain.TaxCategoryA),
		TaxRtB:       categoryRatePct(domain.TaxCategoryB),
		TaxRtC:       categoryRatePct(domain.TaxCategoryC),
		TaxRtD:       categoryRatePct(domain.TaxCategoryD),
		TaxRtE:       categoryRatePct(domain.TaxCategoryE),
		TaxAmtA:      summary.Buckets[domain.TaxCategoryA].TaxAmount,
		TaxAmtB:      summary.Buckets[domain.TaxCategoryB].TaxAmount,
		TaxAmtC:      summary.Buckets[domain.TaxCategoryC].TaxAmount,
		TaxAmtD:      summary.Buckets[domain.TaxCategoryD].TaxAmount,
		TaxAmtE:      summary.Buckets[domain.TaxCategoryE].TaxAmount,
		TotTaxblAmt:  summary.TotalTaxable(),
		TotTaxAmt:    summary.TotalTax(),
		TotAmt:       accounting.RoundMoney(doc.TotalAmt),
		PrchrAcptcYn: "N",
		RegrID:       "etims-bridge",
		RegrNm:       company.TradeName,
		ModrID:       "etims-bridge",
		ModrNm:       company.TradeName,
		Receipt: dto.EtimsReceipt{
			CustTin:      doc.CustomerPin,
			RcptPbctDt:   now.Format(authorityTimestampLayout),
			TrdeNm:       company.TradeName,
			Adrs:         company.Address,
			TopMsg:       company.ReceiptHeaderMsg,
			BtmMsg:       company.ReceiptFooterMsg,
			PrchrAcptcYn: "N",
		},
		ItemList: items,
	}

	return req, summary.MalformedLines, nil
}

// buildItem maps one document line to its payload shape, applying the same
// degradation rules as SummarizeTax so the item list and the category summary
// always agree.
func (s *taxService) buildItem(line domain.LineItem) dto.EtimsItem {
	category, ok := s.Categorize(line.TaxCode, line.TaxRate)
	taxable := line.Amount.Sub(line.TaxAmount)
	tax := taxable.Mul(domain.CategoryRate(category))

	if !ok || taxable.IsNegative() {
		category = domain.TaxCategoryD
		taxable = line.Amount
		tax = decimal.Zero
	}

	return dto.EtimsItem{
		ItemSeq:  line.LineNumber,
		ItemCd:   line.ItemCode,
		ItemNm:   line.ItemName,
		Qty:      line.Quantity,
		Prc:      line.UnitPrice,
		SplyAmt:  accounting.RoundMoney(line.Amount),
		DcRt:     decimal.Zero,
		DcAmt:    decimal.Zero,
		TaxTyCd:  string(category),
		TaxblAmt: accounting.RoundMoney(taxable),
		TaxAmt:   accounting.RoundMoney(tax),
		TotAmt:   accounting.RoundMoney(line.Amount),
	}
}

// categoryRatePct converts the fractional category rate to the percent figure
// the authority schema expects (16, 8 or 0).
func categoryRatePct(cat domain.TaxCategory) decimal.Decimal {
	return domain.CategoryRate(cat).Mul(decimal.NewFromInt(100))
}

// isExemptCode reports whether the source tax code marks a line exempt.
func isExemptCode(taxCode string) bool {
	return exemptTaxCodes[strings.ToUpper(strings.TrimSpace(taxCode))]
}
