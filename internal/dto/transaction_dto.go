package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CartItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,min=1,max=60"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Quantity  int             `json:"quantity"   validate:"required,min=1"`
	Discount  decimal.Decimal `json:"discount"   validate:"min=0"`
}

type PaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash pix credit_card debit_card store_credit"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type BeginTransactionRequest struct {
	Items       []CartItemRequest `json:"items"    validate:"required,min=1,dive"`
	Payments    []PaymentRequest  `json:"payments" validate:"required,min=1,dive"`
	ChangeGiven decimal.Decimal   `json:"change_given" validate:"min=0"`
	CustomerID  *string           `json:"customer_id"  validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ChargeResponse struct {
	TransactionID string          `json:"transaction_id"`
	QRCodeData    string          `json:"qr_code_data"`
	Amount        decimal.Decimal `json:"amount"`
}

type TransactionResponse struct {
	ID     string          `json:"id"`
	State  string          `json:"state"`
	Charge *ChargeResponse `json:"charge,omitempty"`
	SaleID *string         `json:"sale_id,omitempty"`
	Error  *string         `json:"error,omitempty"`
}
