package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// NewPayable is the add-payable form; every field is required.
type NewPayable struct {
	AccountName string
	Balance     string
	DueDate     string
	Category    string
}

// PayableResult is what a settlement changed. Account is nil for
// AddToPayable, which does not touch any account.
type PayableResult struct {
	Payable models.Payable     `json:"payable"`
	Account *models.Account    `json:"account,omitempty"`
	Entry   models.Transaction `json:"entry"`
}

// CreatePayable records a debt with its current outstanding balance.
func (s *Service) CreatePayable(ctx context.Context, uid string, in NewPayable) (*models.Payable, error) {
	name := strings.TrimSpace(in.AccountName)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" || strings.TrimSpace(in.DueDate) == "" {
		return nil, fmt.Errorf("payable: %w", ErrMissingField)
	}
	balance, err := util.ParseAmount(in.Balance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	due, err := util.ParseDate(in.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
	}

	p := &models.Payable{
		UserID:      uid,
		AccountName: name,
		Balance:     balance,
		DueDate:     &due,
		Category:    category,
	}
	err = s.write(ctx, uid, "create_payable", func(tx *gorm.DB, ch *changes) error {
		p.ID = ""
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		ch.add(models.CollectionPayables, p.ID, feed.OpCreate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPayable loads one of uid's payables.
func (s *Service) GetPayable(ctx context.Context, uid, id string) (*models.Payable, error) {
	return loadPayable(s.db.WithContext(ctx), uid, id)
}

// ListPayables returns uid's payables, nearest due date first.
func (s *Service) ListPayables(ctx context.Context, uid string) ([]models.Payable, error) {
	var list []models.Payable
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("due_date ASC, created_at ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	return list, nil
}

// PayPayable pays amount of a payable from an account: both balances drop
// by amount and one "Payables" expense is booked against the account.
func (s *Service) PayPayable(ctx context.Context, uid, payableID, accountID, amountStr string) (*PayableResult, error) {
	amount, err := util.ParseAmount(amountStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	var res *PayableResult
	err = s.write(ctx, uid, "pay_payable", func(tx *gorm.DB, ch *changes) error {
		res = nil
		p, err := loadPayable(tx, uid, payableID)
		if err != nil {
			return err
		}
		acc, err := loadAccount(tx, uid, accountID)
		if err != nil {
			return err
		}
		if acc.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		if amount.GreaterThan(p.Balance) {
			return ErrOverpayment
		}

		if err := movePayable(tx, p, amount.Neg(), ch); err != nil {
			return err
		}
		if err := moveBalance(tx, acc, amount.Neg(), ch); err != nil {
			return err
		}

		entry := models.Transaction{
			UserID:       uid,
			AccountID:    acc.ID,
			AccountName:  acc.Name,
			Type:         models.TypeExpense,
			Amount:       amount,
			Category:     models.CategoryPayables,
			Description:  "Payment to " + p.AccountName,
			DateIncurred: s.now(),
			PayableID:    p.ID,
			PayableName:  p.AccountName,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		ch.add(models.CollectionTransactions, entry.ID, feed.OpCreate)

		res = &PayableResult{Payable: *p, Account: acc, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AddToPayable records newly incurred debt: the payable grows by amount and
// a "payable" entry with no account is written. It is the opposite of
// PayPayable.
func (s *Service) AddToPayable(ctx context.Context, uid, payableID, amountStr string) (*PayableResult, error) {
	amount, err := util.ParseAmount(amountStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	var res *PayableResult
	err = s.write(ctx, uid, "add_to_payable", func(tx *gorm.DB, ch *changes) error {
		res = nil
		p, err := loadPayable(tx, uid, payableID)
		if err != nil {
			return err
		}
		if err := movePayable(tx, p, amount, ch); err != nil {
			return err
		}

		entry := models.Transaction{
			UserID:       uid,
			Type:         models.TypePayable,
			Amount:       amount,
			Category:     models.CategoryPayables,
			Description:  "Added to " + p.AccountName,
			DateIncurred: s.now(),
			PayableID:    p.ID,
			PayableName:  p.AccountName,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		ch.add(models.CollectionTransactions, entry.ID, feed.OpCreate)

		res = &PayableResult{Payable: *p, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func loadPayable(tx *gorm.DB, uid, id string) (*models.Payable, error) {
	if id == "" {
		return nil, fmt.Errorf("payable id: %w", ErrMissingField)
	}
	var p models.Payable
	err := tx.Where("id = ? AND user_id = ?", id, uid).First(&p).Error
	if err := lookup(err, ErrPayableNotFound, "payable"); err != nil {
		return nil, err
	}
	return &p, nil
}

func movePayable(tx *gorm.DB, p *models.Payable, delta decimal.Decimal, ch *changes) error {
	next := p.Balance.Add(delta)
	if err := saveVersioned(tx, &models.Payable{}, p.ID, p.Version, map[string]interface{}{
		"balance": next,
	}); err != nil {
		return err
	}
	p.Balance = next
	p.Version++
	ch.add(models.CollectionPayables, p.ID, feed.OpUpdate)
	return nil
}
