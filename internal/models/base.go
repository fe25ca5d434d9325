package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID returns a document-style id for rows that do not have one yet.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Collection names, shared by the ledger writers and the live feed.
const (
	CollectionAccounts     = "accounts"
	CollectionTransactions = "transactions"
	CollectionPayables     = "payables"
	CollectionReceivables  = "receivables"
)

func (a *Account) BeforeCreate(*gorm.DB) error {
	newID(&a.ID)
	return nil
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	newID(&t.ID)
	t.DateIncurred = t.DateIncurred.UTC()
	return nil
}

func (p *Payable) BeforeCreate(*gorm.DB) error {
	newID(&p.ID)
	p.DueDate = utcPtr(p.DueDate)
	return nil
}

func (r *Receivable) BeforeCreate(*gorm.DB) error {
	newID(&r.ID)
	r.DueDate = utcPtr(r.DueDate)
	r.PaidAt = utcPtr(r.PaidAt)
	return nil
}
