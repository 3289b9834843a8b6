package domain

// TaxDocumentCounter issues the per-company sequence used to number documents
// towards the tax authority. One row per company, created lazily on first
// allocation and mutated only under an exclusive row lock.
type TaxDocumentCounter struct {
	CompanyID  string `json:"companyID"`  // Primary Key, FK -> companies.company_id
	LastNumber int64  `json:"lastNumber"` // Last allocated value; next allocation returns LastNumber+1
	AuditFields
}
