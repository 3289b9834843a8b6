package models

// SubmissionRecord is the persisted submission lineage of one document.
// (company_id, allocated_number) carries a unique constraint.
type SubmissionRecord struct {
	SubmissionID     string  `db:"submission_id"`
	CompanyID        string  `db:"company_id"`
	DocumentType     string  `db:"document_type"`
	DocumentID       string  `db:"document_id"`
	AllocatedNumber  int64   `db:"allocated_number"`
	TraderReference  string  `db:"trader_reference"`
	SubmittedPayload *string `db:"submitted_payload"`
	ResponsePayload  *string `db:"response_payload"`
	Status           string  `db:"status"`
	ErrorMessage     *string `db:"error_message"`
	ReceiptSignature *string `db:"receipt_signature"`
	QRPayload        *string `db:"qr_payload"`
	AttemptCount     int     `db:"attempt_count"`
	AuditFields
}
