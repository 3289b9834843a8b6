package mapping

import (
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/models"
)

// ToModelSubmissionRecord converts a domain SubmissionRecord to a model SubmissionRecord
func ToModelSubmissionRecord(d domain.SubmissionRecord) models.SubmissionRecord {
	return models.SubmissionRecord{
		SubmissionID:     d.SubmissionID,
		CompanyID:        d.CompanyID,
		DocumentType:     string(d.DocumentType),
		DocumentID:       d.DocumentID,
		AllocatedNumber:  d.AllocatedNumber,
		TraderReference:  d.TraderReference,
		SubmittedPayload: d.SubmittedPayload,
		ResponsePayload:  d.ResponsePayload,
		Status:           string(d.Status),
		ErrorMessage:     d.ErrorMessage,
		ReceiptSignature: d.ReceiptSignature,
		QRPayload:        d.QRPayload,
		AttemptCount:     d.AttemptCount,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainSubmissionRecord converts a model SubmissionRecord to a domain SubmissionRecord
func ToDomainSubmissionRecord(m models.SubmissionRecord) domain.SubmissionRecord {
	return domain.SubmissionRecord{
		SubmissionID:     m.SubmissionID,
		CompanyID:        m.CompanyID,
		DocumentType:     domain.DocumentType(m.DocumentType),
		DocumentID:       m.DocumentID,
		AllocatedNumber:  m.AllocatedNumber,
		TraderReference:  m.TraderReference,
		SubmittedPayload: m.SubmittedPayload,
		ResponsePayload:  m.ResponsePayload,
		Status:           domain.SubmissionStatus(m.Status),
		ErrorMessage:     m.ErrorMessage,
		ReceiptSignature: m.ReceiptSignature,
		QRPayload:        m.QRPayload,
		AttemptCount:     m.AttemptCount,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainCounter converts a model TaxDocumentCounter to its domain shape
func ToDomainCounter(m models.TaxDocumentCounter) domain.TaxDocumentCounter {
	return domain.TaxDocumentCounter{
		CompanyID:   m.CompanyID,
		LastNumber:  m.LastNumber,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}
