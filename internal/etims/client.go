package etims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/dto"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
)

// ErrAuthorityTimeout is returned when the authority does not answer within
// the configured deadline. The submission outcome is unknown to the caller.
var ErrAuthorityTimeout = errors.New("tax authority request timed out")

// ErrAuthorityUnreachable is returned on connection-level failures before a
// response was received.
var ErrAuthorityUnreachable = errors.New("tax authority unreachable")

const salesEndpoint = "/saveTrnsSales"

// Client posts sales payloads to the eTIMS OSCU API. Company credentials ride
// as headers on every call; the body is the document payload.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates an authority transport bound to one API base URL. The
// timeout caps each call end to end, including connection setup.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ portssvc.AuthorityTransportSvc = (*Client)(nil)

// SubmitSales posts a sales payload using the company's credentials. A
// non-success result code is not an error here; callers inspect the response.
func (c *Client) SubmitSales(ctx context.Context, creds domain.AuthorityCredentials, payload *dto.EtimsSalesRequest) (*dto.EtimsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sales payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+salesEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build authority request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("tin", creds.Pin)
	req.Header.Set("bhfId", creds.BranchID)
	req.Header.Set("cmcKey", creds.DeviceKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Error("Tax authority call timed out",
				slog.Duration("timeout", c.timeout),
				slog.Int64("invc_no", payload.InvcNo))
			return nil, fmt.Errorf("%w after %s", ErrAuthorityTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAuthorityUnreachable, resp.StatusCode)
	}

	var authorityResp dto.EtimsResponse
	if err := json.NewDecoder(resp.Body).Decode(&authorityResp); err != nil {
		return nil, fmt.Errorf("failed to decode authority response: %w", err)
	}

	logger.Debug("Tax authority call completed",
		slog.Int64("invc_no", payload.InvcNo),
		slog.String("result_cd", authorityResp.ResultCd),
		slog.Duration("elapsed", time.Since(start)))
	return &authorityResp, nil
}

// isTimeout distinguishes deadline expiry from other transport failures.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
