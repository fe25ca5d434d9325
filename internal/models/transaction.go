package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. Amount is always a magnitude; the sign is implied by Type.
const (
	TypeIncome   = "income"
	TypeExpense  = "expense"
	TypeTransfer = "transfer"
	TypePayable  = "payable"
)

// Categories written by the ledger itself.
const (
	CategoryTransferSender   = "Transfer - Sender"
	CategoryTransferReceiver = "Transfer - Receiver"
	CategoryTransferFee      = "Transfer Fee"
	CategoryPayables         = "Payables"
	CategoryReceivable       = "Receivable"
	CategoryAdjustment       = "Balance Adjustment"
)

// Transaction is one ledger entry. It is never updated after creation.
type Transaction struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	UserID       string          `gorm:"index;size:128;not null" json:"user_id"`
	AccountID    string          `gorm:"index;size:36" json:"account_id,omitempty"`
	AccountName  string          `gorm:"size:64" json:"account_name,omitempty"`
	Type         string          `gorm:"size:16;index;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Category     string          `gorm:"size:32" json:"category"`
	Description  string          `gorm:"size:255" json:"description"`
	DateIncurred time.Time       `gorm:"index;not null" json:"date_incurred"`
	PayableID    string          `gorm:"index;size:36" json:"payable_id,omitempty"`
	PayableName  string          `gorm:"size:64" json:"payable_name,omitempty"`
	RelatedTo    string          `gorm:"index;size:36" json:"related_to,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }
