package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// TransactionInput is the add-transaction form.
type TransactionInput struct {
	AccountID    string
	Type         string // income, expense or transfer
	Amount       string
	Category     string
	Description  string
	DateIncurred string // optional, defaults to now
}

// TransactionResult is what RecordTransaction changed.
type TransactionResult struct {
	Account models.Account     `json:"account"`
	Entry   models.Transaction `json:"entry"`
}

// RecordTransaction is the account ledger writer: it appends one entry and
// moves the account balance by +amount for income and -amount otherwise.
// Outgoing amounts larger than the balance read inside the transaction are
// refused.
func (s *Service) RecordTransaction(ctx context.Context, uid string, in TransactionInput) (*TransactionResult, error) {
	switch in.Type {
	case models.TypeIncome, models.TypeExpense, models.TypeTransfer:
	default:
		return nil, fmt.Errorf("transaction type %q: %w", in.Type, ErrInvalidType)
	}
	amount, err := util.ParseAmount(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	category := strings.TrimSpace(in.Category)
	if err := util.ValidateCategory(category); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	incurred := s.now()
	if strings.TrimSpace(in.DateIncurred) != "" {
		incurred, err = util.ParseDate(in.DateIncurred)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
		}
		if !incurred.Before(s.startOfTomorrow()) {
			return nil, ErrFutureDate
		}
	}

	delta := amount
	if in.Type != models.TypeIncome {
		delta = amount.Neg()
	}

	var res *TransactionResult
	err = s.write(ctx, uid, "record_transaction", func(tx *gorm.DB, ch *changes) error {
		res = nil
		acc, err := loadAccount(tx, uid, in.AccountID)
		if err != nil {
			return err
		}
		if delta.IsNegative() && acc.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		entry := models.Transaction{
			UserID:       uid,
			AccountID:    acc.ID,
			AccountName:  acc.Name,
			Type:         in.Type,
			Amount:       amount,
			Category:     category,
			Description:  strings.TrimSpace(in.Description),
			DateIncurred: incurred,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		ch.add(models.CollectionTransactions, entry.ID, feed.OpCreate)

		if err := moveBalance(tx, acc, delta, ch); err != nil {
			return err
		}
		res = &TransactionResult{Account: *acc, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TransactionFilter narrows ListTransactions. Zero values mean no filter.
type TransactionFilter struct {
	Type      string
	AccountID string
	Category  string
	Start     *time.Time // inclusive
	End       *time.Time // exclusive
	Sort      string     // date_desc (default), date_asc, amount_desc, amount_asc
	Page      int
	PageSize  int
}

// TransactionPage is one page of ledger entries.
type TransactionPage struct {
	Items []models.Transaction `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Size  int                  `json:"size"`
}

// ListTransactions pages through uid's ledger.
func (s *Service) ListTransactions(ctx context.Context, uid string, f TransactionFilter) (*TransactionPage, error) {
	page := f.Page
	if page <= 0 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	orderBy := "date_incurred DESC, created_at DESC"
	switch f.Sort {
	case "date_asc":
		orderBy = "date_incurred ASC, created_at ASC"
	case "amount_desc":
		orderBy = "amount DESC, date_incurred DESC"
	case "amount_asc":
		orderBy = "amount ASC, date_incurred DESC"
	}

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", uid)
	if f.Type != "" {
		base = base.Where("type = ?", f.Type)
	}
	if f.AccountID != "" {
		base = base.Where("account_id = ?", f.AccountID)
	}
	if f.Category != "" {
		base = base.Where("category = ?", f.Category)
	}
	if f.Start != nil {
		base = base.Where("date_incurred >= ?", f.Start.UTC())
	}
	if f.End != nil {
		base = base.Where("date_incurred < ?", f.End.UTC())
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}

	items := make([]models.Transaction, 0, size)
	if err := base.Session(&gorm.Session{}).
		Order(orderBy).
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return &TransactionPage{Items: items, Total: total, Page: page, Size: size}, nil
}

// DeleteTransaction removes a ledger entry. Balances are not touched: an
// entry is a record of what happened, and removing it is a bookkeeping
// correction only.
func (s *Service) DeleteTransaction(ctx context.Context, uid, id string) error {
	return s.write(ctx, uid, "delete_transaction", func(tx *gorm.DB, ch *changes) error {
		res := tx.Where("id = ? AND user_id = ?", id, uid).Delete(&models.Transaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTransactionNotFound
		}
		ch.add(models.CollectionTransactions, id, feed.OpDelete)
		return nil
	})
}
