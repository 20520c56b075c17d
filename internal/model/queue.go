package model

import (
	"time"

	"github.com/google/uuid"
)

// QueuePending is the only persisted queue status: acknowledged entries
// are deleted outright rather than marked synced.
const QueuePending = "pending"

// QueuedSaleEntry wraps a completed sale awaiting delivery to the remote
// system of record. Delivery is at-least-once; the remote dedupes by sale id.
type QueuedSaleEntry struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SaleID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"sale_id"`
	Status   string    `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	QueuedAt time.Time `json:"queued_at"`

	Sale *SaleRecord `gorm:"foreignKey:SaleID;references:ID" json:"sale,omitempty"`
}
