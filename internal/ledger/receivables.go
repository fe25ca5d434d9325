package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
	"github.com/stanrainier/stan-finance-tracker/internal/util"
)

// NewReceivable is the add-receivable form. DueDate is optional.
type NewReceivable struct {
	Name        string
	Description string
	Amount      string
	DueDate     string
}

// ReceivableResult is what SettleReceivable changed.
type ReceivableResult struct {
	Receivable models.Receivable  `json:"receivable"`
	Account    models.Account     `json:"account"`
	Entry      models.Transaction `json:"entry"`
}

// CreateReceivable records money owed to the user, pending until settled.
func (s *Service) CreateReceivable(ctx context.Context, uid string, in NewReceivable) (*models.Receivable, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("receivable name: %w", ErrMissingField)
	}
	amount, err := util.ParseAmount(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	var due *time.Time
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := util.ParseDate(in.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
		}
		due = &d
	}

	r := &models.Receivable{
		UserID:      uid,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		DueDate:     due,
		Status:      models.ReceivablePending,
	}
	err = s.write(ctx, uid, "create_receivable", func(tx *gorm.DB, ch *changes) error {
		r.ID = ""
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		ch.add(models.CollectionReceivables, r.ID, feed.OpCreate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReceivables returns uid's receivables; status narrows to pending or
// paid when set.
func (s *Service) ListReceivables(ctx context.Context, uid, status string) ([]models.Receivable, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", uid)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Receivable
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list receivables: %w", err)
	}
	return list, nil
}

// SettleReceivable credits the receivable's amount to an account and marks
// it paid. A receivable that is already paid is refused without any write,
// so a retried or duplicated call cannot credit twice.
func (s *Service) SettleReceivable(ctx context.Context, uid, receivableID, accountID string) (*ReceivableResult, error) {
	var res *ReceivableResult
	err := s.write(ctx, uid, "settle_receivable", func(tx *gorm.DB, ch *changes) error {
		res = nil
		r, err := loadReceivable(tx, uid, receivableID)
		if err != nil {
			return err
		}
		if r.Status != models.ReceivablePending {
			return ErrAlreadySettled
		}
		acc, err := loadAccount(tx, uid, accountID)
		if err != nil {
			return err
		}

		credited := r.Amount
		if err := moveBalance(tx, acc, credited, ch); err != nil {
			return err
		}

		paidAt := s.now().UTC()
		update := map[string]interface{}{
			"status":  models.ReceivablePaid,
			"paid_at": paidAt,
		}
		if s.opts.ZeroSettledReceivables {
			update["amount"] = decimal.Zero
		}
		if err := saveVersioned(tx, &models.Receivable{}, r.ID, r.Version, update); err != nil {
			return err
		}
		ch.add(models.CollectionReceivables, r.ID, feed.OpUpdate)
		r.Status = models.ReceivablePaid
		r.PaidAt = &paidAt
		r.Version++
		if s.opts.ZeroSettledReceivables {
			r.Amount = decimal.Zero
		}

		entry := models.Transaction{
			UserID:       uid,
			AccountID:    acc.ID,
			AccountName:  acc.Name,
			Type:         models.TypeIncome,
			Amount:       credited,
			Category:     models.CategoryReceivable,
			Description:  "Payment from " + r.Name,
			DateIncurred: paidAt,
			RelatedTo:    r.ID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		ch.add(models.CollectionTransactions, entry.ID, feed.OpCreate)

		res = &ReceivableResult{Receivable: *r, Account: *acc, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteReceivable removes a receivable. Settled ones keep their income
// entry.
func (s *Service) DeleteReceivable(ctx context.Context, uid, id string) error {
	return s.write(ctx, uid, "delete_receivable", func(tx *gorm.DB, ch *changes) error {
		res := tx.Where("id = ? AND user_id = ?", id, uid).Delete(&models.Receivable{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReceivableNotFound
		}
		ch.add(models.CollectionReceivables, id, feed.OpDelete)
		return nil
	})
}

func loadReceivable(tx *gorm.DB, uid, id string) (*models.Receivable, error) {
	if id == "" {
		return nil, fmt.Errorf("receivable id: %w", ErrMissingField)
	}
	var r models.Receivable
	err := tx.Where("id = ? AND user_id = ?", id, uid).First(&r).Error
	if err := lookup(err, ErrReceivableNotFound, "receivable"); err != nil {
		return nil, err
	}
	return &r, nil
}
