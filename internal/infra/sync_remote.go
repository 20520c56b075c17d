package infra

// sync_remote.go — HTTP client for the retaguarda (back office), the
// remote system of record that offline sales are replayed into. Transport
// failures are expected and routine; callers keep entries pending and try
// again later. The remote treats sale ids as idempotency keys, so a batch
// whose ack was lost can be resubmitted safely.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/google/uuid"
)

// ErrNetwork wraps any transport-level failure talking to the remote.
var ErrNetwork = errors.New("sync: falha de rede")

// SyncRemoteClient submits sale batches to the back office.
type SyncRemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSyncRemoteClient(baseURL string) *SyncRemoteClient {
	return &SyncRemoteClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type batchRequest struct {
	Sales []model.SaleRecord `json:"sales"`
}

type batchResponse struct {
	AcknowledgedIDs []uuid.UUID `json:"acknowledged_ids"`
}

// SubmitBatch delivers the given sales in one request and returns the ids
// the remote acknowledged. Partial acks are allowed — unacked sales stay
// queued locally.
func (c *SyncRemoteClient) SubmitBatch(ctx context.Context, sales []model.SaleRecord) ([]uuid.UUID, error) {
	body, err := json.Marshal(batchRequest{Sales: sales})
	if err != nil {
		return nil, fmt.Errorf("sync: marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sales/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sync: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: remote returned %d", ErrNetwork, resp.StatusCode)
	}

	var result batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}
	return result.AcknowledgedIDs, nil
}

// Ping is a cheap connectivity probe used by the flush cron to decide
// whether a replay attempt is worth making.
func (c *SyncRemoteClient) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
