package services

import "context"

// DocumentNumberingSvc issues the gap-free sequential numbers the tax
// authority requires per company.
type DocumentNumberingSvc interface {
	// AllocateNumber increments the company's counter and returns the new value.
	// The read-increment-persist runs under an exclusive lock on the counter
	// row; concurrent calls for the same company serialize and each caller gets
	// a distinct consecutive number. When the persist fails no number is
	// consumed and no value is returned.
	AllocateNumber(ctx context.Context, companyID string) (int64, error)

	// CurrentNumber returns the last number handed out for the company, zero
	// when nothing has been allocated yet.
	CurrentNumber(ctx context.Context, companyID string) (int64, error)
}
