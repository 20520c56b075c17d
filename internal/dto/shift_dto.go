package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenShiftRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float" validate:"min=0"`
}

type MovementRequest struct {
	Kind        string          `json:"kind"        validate:"required,oneof=inflow outflow"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,min=3"`
}

type CloseShiftRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovementResponse struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
}

type PaymentTotalResponse struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
}

type ShiftResponse struct {
	ID            string                 `json:"id"`
	RegisterID    string                 `json:"register_id"`
	OperatorName  string                 `json:"operator_name"`
	Status        string                 `json:"status"`
	OpeningFloat  decimal.Decimal        `json:"opening_float"`
	TotalSales    decimal.Decimal        `json:"total_sales"`
	TotalInflows  decimal.Decimal        `json:"total_inflows"`
	TotalOutflows decimal.Decimal        `json:"total_outflows"`
	PaymentTotals []PaymentTotalResponse `json:"payment_totals"`
	Movements     []MovementResponse     `json:"movements,omitempty"`

	// Reconciliation fields, present only after close.
	CountedCash            *decimal.Decimal `json:"counted_cash,omitempty"`
	ExpectedCash           *decimal.Decimal `json:"expected_cash,omitempty"`
	CashVariance           *decimal.Decimal `json:"cash_variance,omitempty"`
	VarianceClassification *string          `json:"variance_classification,omitempty"`

	OpenedAt string  `json:"opened_at"`
	ClosedAt *string `json:"closed_at,omitempty"`
}
