package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types offered by the add-account form.
const (
	AccountBank    = "Bank"
	AccountSavings = "Savings"
	AccountEWallet = "E-wallet"
	AccountCash    = "Cash"
)

// DefaultAccountColor is tailwind blue-500.
const DefaultAccountColor = "#3b82f6"

// AccountTypes lists the accepted Account.Type values.
var AccountTypes = []string{AccountBank, AccountSavings, AccountEWallet, AccountCash}

// Account holds a running balance. Balance is changed only by the ledger
// writers; Version guards every balance update.
type Account struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    string          `gorm:"index;size:128;not null" json:"-"`
	Name      string          `gorm:"size:64;not null" json:"name"`
	Type      string          `gorm:"size:16;not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	Color     string          `gorm:"size:16" json:"color"`
	Version   int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }
