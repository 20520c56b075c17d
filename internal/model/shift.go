package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shift status values.
const (
	ShiftOpen   = "open"
	ShiftClosed = "closed"
)

// Movement kinds. The opening float is recorded as a synthetic Inflow
// movement so the whole cash trail is reconstructable from movements alone.
const (
	MovementInflow  = "inflow"  // suprimento
	MovementOutflow = "outflow" // sangria
)

// Variance classification thresholds applied at close:
// normal: |variance| <= 1% of expected, warning: <= 5%, critical: > 5%.
const (
	VarianceNormal   = "normal"
	VarianceWarning  = "warning"
	VarianceCritical = "critical"
)

// CashShift is one continuous period a register is open under one operator.
// At most one shift per register is open at any time. While open it is
// mutated only through the ledger; once closed it is frozen in history.
type CashShift struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RegisterID   string          `gorm:"type:varchar(40);not null;index" json:"register_id"`
	OperatorID   uuid.UUID       `gorm:"type:uuid;not null" json:"operator_id"`
	OperatorName string          `gorm:"type:varchar(120);not null" json:"operator_name"`
	Status       string          `gorm:"type:varchar(10);not null;default:'open'" json:"status"`
	OpeningFloat decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"opening_float"`

	// Running totals. Durable source of truth is the movement/sale log;
	// these columns are persisted on close for reporting.
	TotalSales    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_sales"`
	TotalInflows  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_inflows"`
	TotalOutflows decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_outflows"`

	// Reconciliation fields, set only at close.
	CountedCash            *decimal.Decimal `gorm:"type:decimal(12,2)" json:"counted_cash,omitempty"`
	ExpectedCash           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"expected_cash,omitempty"`
	CashVariance           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"cash_variance,omitempty"`
	VarianceClassification *string          `gorm:"type:varchar(10)" json:"variance_classification,omitempty"`

	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`

	Movements     []ShiftMovement     `gorm:"foreignKey:ShiftID" json:"movements,omitempty"`
	Sales         []SaleRecord        `gorm:"foreignKey:ShiftID" json:"sales,omitempty"`
	PaymentTotals []ShiftPaymentTotal `gorm:"foreignKey:ShiftID" json:"payment_totals,omitempty"`
}

// ShiftMovement is an immutable entry in the cash trail. Movements are
// NEVER updated or deleted — corrections create inverse entries.
type ShiftMovement struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShiftID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"shift_id"`
	Kind       string          `gorm:"type:varchar(10);not null" json:"kind"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason     string          `gorm:"not null" json:"reason"`
	OperatorID uuid.UUID       `gorm:"type:uuid;not null" json:"operator_id"`
	CreatedAt  time.Time       `json:"timestamp"`
}

// ShiftPaymentTotal persists the per-method accumulation at close.
type ShiftPaymentTotal struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	ShiftID uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Method  PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Amount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}
