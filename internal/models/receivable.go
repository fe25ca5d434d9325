package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReceivablePending = "pending"
	ReceivablePaid    = "paid"
)

// Receivable is money owed to the user. Status moves pending -> paid once.
type Receivable struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserID      string          `gorm:"index;size:128;not null" json:"-"`
	Name        string          `gorm:"size:64;not null" json:"name"`
	Description string          `gorm:"size:255" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Status      string          `gorm:"size:16;index;not null;default:pending" json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	Version     int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Receivable) TableName() string { return "receivables" }
