package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/shopspring/decimal"
)

// ErrDocumentInvalid is returned when the sidecar rejects the document
// contents (HTTP 422). This is terminal for the transaction — the core
// never retries a rejected document.
var ErrDocumentInvalid = errors.New("fiscal: documento rejeitado pelo emissor")

// UnsignedDocument is the NFC-e payload built by the sidecar, before signing.
// The core treats the XML as opaque bytes.
type UnsignedDocument struct {
	AccessKey string `json:"access_key"`
	XML       string `json:"xml"`
}

// SignedDocument carries the digitally signed NFC-e payload.
type SignedDocument struct {
	AccessKey string `json:"access_key"`
	XML       string `json:"xml"`
	SignedAt  string `json:"signed_at"`
}

// FiscalClient delegates NFC-e construction and signing to the fiscal
// sidecar. Keeping XML building and certificate handling out of process
// isolates their failures from the terminal core.
type FiscalClient struct {
	sidecarURL string
	httpClient *http.Client
}

func NewFiscalClient(sidecarURL string) *FiscalClient {
	return &FiscalClient{
		sidecarURL: sidecarURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Items         []model.SaleItem `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	DiscountTotal decimal.Decimal  `json:"discount_total"`
	Total         decimal.Decimal  `json:"total"`
}

// GenerateDocument asks the sidecar to build an unsigned NFC-e from the
// cart lines and totals.
func (c *FiscalClient) GenerateDocument(ctx context.Context, items []model.SaleItem, subtotal, discountTotal, total decimal.Decimal) (*UnsignedDocument, error) {
	payload := generateRequest{Items: items, Subtotal: subtotal, DiscountTotal: discountTotal, Total: total}

	var doc UnsignedDocument
	if err := c.post(ctx, "/nfce/generate", payload, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SignDocument asks the sidecar to sign a previously generated document.
func (c *FiscalClient) SignDocument(ctx context.Context, doc *UnsignedDocument) (*SignedDocument, error) {
	var signed SignedDocument
	if err := c.post(ctx, "/nfce/sign", doc, &signed); err != nil {
		return nil, err
	}
	return &signed, nil
}

func (c *FiscalClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fiscal: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sidecarURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fiscal: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fiscal: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrDocumentInvalid
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("fiscal: sidecar returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fiscal: decode response: %w", err)
	}
	return nil
}
