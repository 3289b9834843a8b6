package models

// Currency represents a supported currency for mirrored documents.
type Currency struct {
	CurrencyCode string `db:"currency_code"` // Primary Key (e.g., "KES")
	Symbol       string `db:"symbol"`        // e.g., "KSh"
	Name         string `db:"name"`          // e.g., "Kenyan Shilling"
	Precision    int16  `db:"precision"`     // Minor-unit decimal places
	AuditFields
}
