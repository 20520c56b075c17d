package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator stores terminal operators with role-based access.
// Role: "cashier" | "supervisor" | "admin"
type Operator struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code    string    `gorm:"uniqueIndex;not null"` // badge code typed at login
	Name    string    `gorm:"not null"`
	Email   *string
	PINHash string `gorm:"not null"`
	Role    string `gorm:"type:varchar(20);not null"`
	// RegisterID restricts a cashier to a specific register; nil = all registers
	RegisterID *string
	Active     bool `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
