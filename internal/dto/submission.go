package dto

import (
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
)

// --- Submission DTOs ---

// SubmitDocumentRequest identifies the document to push to the tax authority.
type SubmitDocumentRequest struct {
	DocumentType domain.DocumentType `json:"documentType" binding:"required,oneof=INVOICE CREDIT_NOTE"`
	DocumentID   string              `json:"documentID" binding:"required"`
}

// SubmissionResponse defines the data returned for a submission record.
// Raw request/response payloads are kept off the default view.
type SubmissionResponse struct {
	SubmissionID     string              `json:"submissionID"`
	CompanyID        string              `json:"companyID"`
	DocumentType     domain.DocumentType `json:"documentType"`
	DocumentID       string              `json:"documentID"`
	AllocatedNumber  int64               `json:"allocatedNumber"`
	TraderReference  string              `json:"traderReference"`
	Status           string              `json:"status"`
	ErrorMessage     *string             `json:"errorMessage,omitempty"`
	ReceiptSignature *string             `json:"receiptSignature,omitempty"`
	QRPayload        *string             `json:"qrPayload,omitempty"`
	AttemptCount     int                 `json:"attemptCount"`
	CreatedAt        time.Time           `json:"createdAt"`
	LastUpdatedAt    time.Time           `json:"lastUpdatedAt"`
}

// ToSubmissionResponse converts a domain.SubmissionRecord to SubmissionResponse DTO.
func ToSubmissionResponse(rec *domain.SubmissionRecord) SubmissionResponse {
	return SubmissionResponse{
		SubmissionID:     rec.SubmissionID,
		CompanyID:        rec.CompanyID,
		DocumentType:     rec.DocumentType,
		DocumentID:       rec.DocumentID,
		AllocatedNumber:  rec.AllocatedNumber,
		TraderReference:  rec.TraderReference,
		Status:           string(rec.Status),
		ErrorMessage:     rec.ErrorMessage,
		ReceiptSignature: rec.ReceiptSignature,
		QRPayload:        rec.QRPayload,
		AttemptCount:     rec.AttemptCount,
		CreatedAt:        rec.CreatedAt,
		LastUpdatedAt:    rec.LastUpdatedAt,
	}
}

// ListSubmissionsParams defines query parameters for listing submission records.
type ListSubmissionsParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
	Status    *string `form:"status" binding:"omitempty,oneof=PENDING SUBMITTED SUCCESS FAILED SIGNED"`
}

// ListSubmissionsResponse wraps the list of submissions plus the pagination token.
type ListSubmissionsResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	NextToken   *string              `json:"nextToken,omitempty"`
}

// CounterResponse reports the last number handed out for a company.
type CounterResponse struct {
	CompanyID  string `json:"companyID"`
	LastNumber int64  `json:"lastNumber"`
}
