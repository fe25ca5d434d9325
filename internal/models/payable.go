package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payable is an outstanding debt. Balance goes down with payments and up only
// when new debt is added explicitly.
type Payable struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserID      string          `gorm:"index;size:128;not null" json:"-"`
	AccountName string          `gorm:"size:64;not null" json:"accountName"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Category    string          `gorm:"size:32" json:"category"`
	Version     int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Payable) TableName() string { return "payables" }
