package models

// TaxDocumentCounter is the per-company sequence row. last_number only moves
// forward, under an exclusive row lock.
type TaxDocumentCounter struct {
	CompanyID  string `db:"company_id"`
	LastNumber int64  `db:"last_number"`
	AuditFields
}
