package domain

// Currency is reference data validating the currency codes carried by
// mirrored documents. Precision is the number of minor-unit decimal places
// used when rounding amounts for display (KES and most currencies use 2).
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // Primary Key (e.g., "KES")
	Symbol       string `json:"symbol"`       // e.g., "KSh"
	Name         string `json:"name"`         // e.g., "Kenyan Shilling"
	Precision    int16  `json:"precision"`
	AuditFields
}
