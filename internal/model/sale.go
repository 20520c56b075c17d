package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the tender types accepted at the terminal.
type PaymentMethod string

const (
	PayCash        PaymentMethod = "cash"
	PayPix         PaymentMethod = "pix"
	PayCreditCard  PaymentMethod = "credit_card"
	PayDebitCard   PaymentMethod = "debit_card"
	PayStoreCredit PaymentMethod = "store_credit" // fiado
)

// Valid reports whether m names a known tender type.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayPix, PayCreditCard, PayDebitCard, PayStoreCredit:
		return true
	}
	return false
}

// SaleRecord is immutable once created. The invariant
// sum(payments) - change_given == total is enforced before construction.
type SaleRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ShiftID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"shift_id"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_total"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	ChangeGiven   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"change_given"`
	// FiscalDocument is the opaque signed payload returned by the fiscal
	// collaborator. The core never parses it.
	FiscalDocument string     `gorm:"type:text" json:"fiscal_document,omitempty"`
	CustomerID     *uuid.UUID `gorm:"type:uuid" json:"customer_id,omitempty"`
	CreatedAt      time.Time  `json:"timestamp"`

	Items    []SaleItem    `gorm:"foreignKey:SaleID" json:"items"`
	Payments []SalePayment `gorm:"foreignKey:SaleID" json:"payments"`
}

// SaleItem is one cart line frozen at sale time.
type SaleItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	ProductID    string          `gorm:"type:varchar(60);not null" json:"product_id"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	ItemDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"item_discount"`
	LineSubtotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_subtotal"`
}

// SalePayment is one tender line of a sale. Order is preserved.
type SalePayment struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	SaleID uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Seq    int             `gorm:"not null" json:"-"`
	Method PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}
