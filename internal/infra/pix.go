package infra

// pix.go — PIX charge creation against the PSP, plus the payment
// confirmation listener. Confirmations arrive as PSP webhooks on
// POST /v1/webhooks/pix; the handler publishes them to a per-transaction
// Redis channel, and Subscribe delivers them to the waiting orchestrator.
// The returned cancel func tears down the subscription and is safe to
// call more than once.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const pixChannelPrefix = "pix:confirmed:"

// PixCharge is a dynamic PIX charge created at the PSP.
type PixCharge struct {
	TransactionID string          `json:"transaction_id"`
	QRCodeData    string          `json:"qr_code_data"` // "copia e cola" payload shown to the customer
	Amount        decimal.Decimal `json:"amount"`
}

// PixConfirmation is the webhook payload reporting a paid charge.
type PixConfirmation struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"` // "PAID"
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// PixProvider creates charges at the PSP over HTTP and listens for
// confirmations over Redis pub/sub.
type PixProvider struct {
	pspURL     string
	httpClient *http.Client
	rdb        *redis.Client
}

func NewPixProvider(pspURL string, rdb *redis.Client) *PixProvider {
	return &PixProvider{
		pspURL:     pspURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		rdb:        rdb,
	}
}

// CreateCharge requests a dynamic PIX charge for the given amount.
func (p *PixProvider) CreateCharge(ctx context.Context, amount decimal.Decimal) (*PixCharge, error) {
	body, err := json.Marshal(map[string]decimal.Decimal{"amount": amount})
	if err != nil {
		return nil, fmt.Errorf("pix: marshal charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.pspURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("pix: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pix: psp unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pix: psp returned %d", resp.StatusCode)
	}

	var charge PixCharge
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, fmt.Errorf("pix: decode charge: %w", err)
	}
	return &charge, nil
}

// Subscribe registers onConfirmed for the given transaction and returns a
// cancel handle. The callback fires at most once, on the subscription
// goroutine. Cancel is idempotent.
func (p *PixProvider) Subscribe(transactionID string, onConfirmed func(PixConfirmation)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := p.rdb.Subscribe(ctx, pixChannelPrefix+transactionID)

	go func() {
		defer sub.Close()
		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				return // cancelled or connection lost
			}
			var conf PixConfirmation
			if err := json.Unmarshal([]byte(msg.Payload), &conf); err != nil {
				log.Error().Err(err).Str("transaction_id", transactionID).Msg("pix: bad confirmation payload")
				continue
			}
			if conf.Status != "PAID" {
				continue
			}
			onConfirmed(conf)
			return
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			log.Debug().Str("transaction_id", transactionID).Msg("pix: listener cancelled")
		})
	}
}

// PublishConfirmation fans a webhook payload out to the transaction's
// subscription channel. Called by the webhook handler.
func (p *PixProvider) PublishConfirmation(ctx context.Context, conf PixConfirmation) error {
	data, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("pix: marshal confirmation: %w", err)
	}
	return p.rdb.Publish(ctx, pixChannelPrefix+conf.TransactionID, data).Err()
}
