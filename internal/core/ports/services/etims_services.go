package services

import (
	"context"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
)

// AuthorityTransportSvc is the synchronous call to the tax authority. The
// implementation applies a bounded timeout; a timeout or connection failure
// comes back as a typed transport error, while a business rejection comes back
// as a normal response with a non-success result code.
type AuthorityTransportSvc interface {
	// SubmitSales posts a sales payload using the company's credentials.
	SubmitSales(ctx context.Context, creds domain.AuthorityCredentials, payload *dto.EtimsSalesRequest) (*dto.EtimsResponse, error)
}
