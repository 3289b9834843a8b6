package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxCategory is one of the authority's fixed classification buckets.
type TaxCategory string

const (
	TaxCategoryA TaxCategory = "A" // Exempt
	TaxCategoryB TaxCategory = "B" // Standard rate, 16%
	TaxCategoryC TaxCategory = "C" // Zero-rated
	TaxCategoryD TaxCategory = "D" // Non-VAT / other
	TaxCategoryE TaxCategory = "E" // Reduced rate, 8%
)

// TaxCategories lists all categories in payload order.
var TaxCategories = []TaxCategory{TaxCategoryA, TaxCategoryB, TaxCategoryC, TaxCategoryD, TaxCategoryE}

// CategoryRate returns the fixed fractional rate the authority assigns to a
// category. Only B and E carry tax.
func CategoryRate(cat TaxCategory) decimal.Decimal {
	switch cat {
	case TaxCategoryB:
		return decimal.NewFromFloat(0.16)
	case TaxCategoryE:
		return decimal.NewFromFloat(0.08)
	default:
		return decimal.Zero
	}
}

// TaxBucket accumulates the taxable and tax amounts for one category.
type TaxBucket struct {
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	Rate          decimal.Decimal `json:"rate"`
}

// TaxSummary is the five-category breakdown of a document plus the count of
// lines that had to be degraded to zero-tax defaults because their tax data
// was malformed.
type TaxSummary struct {
	Buckets        map[TaxCategory]TaxBucket `json:"buckets"`
	MalformedLines int                       `json:"malformedLines"`
}

// NewTaxSummary returns a summary with all five buckets present at zero.
func NewTaxSummary() TaxSummary {
	buckets := make(map[TaxCategory]TaxBucket, len(TaxCategories))
	for _, cat := range TaxCategories {
		buckets[cat] = TaxBucket{
			TaxableAmount: decimal.Zero,
			TaxAmount:     decimal.Zero,
			Rate:          CategoryRate(cat),
		}
	}
	return TaxSummary{Buckets: buckets}
}

// TotalTaxable sums the taxable amounts across all categories.
func (s TaxSummary) TotalTaxable() decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.Buckets {
		total = total.Add(b.TaxableAmount)
	}
	return total
}

// TotalTax sums the tax amounts across all categories.
func (s TaxSummary) TotalTax() decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.Buckets {
		total = total.Add(b.TaxAmount)
	}
	return total
}

// TaxDocument carries the document-level fields the payload builder needs,
// independent of whether the source is an invoice or a credit note.
type TaxDocument struct {
	DocumentType    DocumentType
	DocumentID      string
	DocumentNumber  string
	TransactionDate time.Time
	TotalAmt        decimal.Decimal
	CustomerName    string
	CustomerPin     *string
	CurrencyCode    string

	// OriginalInvoiceNumber is the authority-allocated number of the invoice a
	// credit note corrects, taken from that invoice's successful submission.
	// Zero for invoices and for credit notes whose related invoice has not
	// been submitted.
	OriginalInvoiceNumber int64
}
