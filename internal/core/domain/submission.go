package domain

import "time"

// SubmissionStatus tracks a document's journey to the tax authority.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "PENDING"
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionSuccess   SubmissionStatus = "SUCCESS"
	SubmissionFailed    SubmissionStatus = "FAILED"
	SubmissionSigned    SubmissionStatus = "SIGNED"
)

// submissionTransitions holds the allowed status transitions. Nothing leaves
// SUCCESS except the external SIGNED confirmation; nothing leaves SIGNED.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionPending:   {SubmissionSubmitted},
	SubmissionSubmitted: {SubmissionSuccess, SubmissionFailed},
	SubmissionFailed:    {SubmissionSubmitted},
	SubmissionSuccess:   {SubmissionSigned},
	SubmissionSigned:    {},
}

// CanTransitionTo reports whether moving from s to target is a legal
// state-machine transition.
func (s SubmissionStatus) CanTransitionTo(target SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminalSuccess reports whether the status represents an accepted
// submission that must never be re-submitted.
func (s SubmissionStatus) IsTerminalSuccess() bool {
	return s == SubmissionSuccess || s == SubmissionSigned
}

// SubmissionRecord is a document's submission lineage towards the authority,
// keyed by company + allocated sequence number. Retries reuse the record and
// its number; a new number is never allocated once a record exists.
type SubmissionRecord struct {
	SubmissionID     string           `json:"submissionID"`     // Primary Key (e.g., UUID)
	CompanyID        string           `json:"companyID"`        // FK -> companies.company_id
	DocumentType     DocumentType     `json:"documentType"`     // INVOICE or CREDIT_NOTE
	DocumentID       string           `json:"documentID"`       // FK to the submitted document
	AllocatedNumber  int64            `json:"allocatedNumber"`  // Per-company sequence, unique per company
	TraderReference  string           `json:"traderReference"`  // Document number sent as the trader reference
	SubmittedPayload *string          `json:"submittedPayload"` // Immutable JSON snapshot of the sent payload
	ResponsePayload  *string          `json:"responsePayload"`  // JSON of the last authority response
	Status           SubmissionStatus `json:"status"`
	ErrorMessage     *string          `json:"errorMessage"`     // Last failure message, if any
	ReceiptSignature *string          `json:"receiptSignature"` // Authority-issued receipt signature
	QRPayload        *string          `json:"qrPayload"`        // Verification URL embedded in receipts
	AttemptCount     int              `json:"attemptCount"`     // Number of failed attempts so far
	AuditFields
}

// LastAttemptAt is the time of the most recent state change.
func (r *SubmissionRecord) LastAttemptAt() time.Time {
	return r.LastUpdatedAt
}
