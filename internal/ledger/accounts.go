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

// NewAccount is the add-account form. Balance may be blank for zero.
type NewAccount struct {
	Name    string
	Type    string
	Balance string
	Color   string
}

// AccountUpdate is a manual edit; nil fields are left alone.
type AccountUpdate struct {
	Name    *string
	Type    *string
	Color   *string
	Balance *string
}

func validAccountType(t string) bool {
	for _, at := range models.AccountTypes {
		if at == t {
			return true
		}
	}
	return false
}

// CreateAccount opens an account with its starting balance. The opening
// balance is not a ledger movement, so no entry is written.
func (s *Service) CreateAccount(ctx context.Context, uid string, in NewAccount) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("account name: %w", ErrMissingField)
	}
	if !validAccountType(in.Type) {
		return nil, fmt.Errorf("account type %q: %w", in.Type, ErrInvalidType)
	}
	balance, err := util.ParseOptionalAmount(in.Balance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = models.DefaultAccountColor
	}

	acc := &models.Account{
		UserID:  uid,
		Name:    name,
		Type:    in.Type,
		Balance: balance,
		Color:   color,
	}
	err = s.write(ctx, uid, "create_account", func(tx *gorm.DB, ch *changes) error {
		acc.ID = ""
		if err := tx.Create(acc).Error; err != nil {
			return err
		}
		ch.add(models.CollectionAccounts, acc.ID, feed.OpCreate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetAccount loads one of uid's accounts.
func (s *Service) GetAccount(ctx context.Context, uid, id string) (*models.Account, error) {
	return loadAccount(s.db.WithContext(ctx), uid, id)
}

// ListAccounts returns uid's accounts, oldest first.
func (s *Service) ListAccounts(ctx context.Context, uid string) ([]models.Account, error) {
	var list []models.Account
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return list, nil
}

// UpdateAccount applies a manual edit. A changed balance is booked as a
// "Balance Adjustment" income or expense for the difference, keeping the
// ledger in agreement with the new figure.
func (s *Service) UpdateAccount(ctx context.Context, uid, id string, in AccountUpdate) (*models.Account, *models.Transaction, error) {
	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("account name: %w", ErrMissingField)
		}
		fields["name"] = name
	}
	if in.Type != nil {
		if !validAccountType(*in.Type) {
			return nil, nil, fmt.Errorf("account type %q: %w", *in.Type, ErrInvalidType)
		}
		fields["type"] = *in.Type
	}
	if in.Color != nil {
		fields["color"] = strings.TrimSpace(*in.Color)
	}
	var target *decimal.Decimal
	if in.Balance != nil {
		b, err := util.ParseOptionalAmount(*in.Balance)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		target = &b
	}

	var (
		acc   *models.Account
		entry *models.Transaction
	)
	err := s.write(ctx, uid, "update_account", func(tx *gorm.DB, ch *changes) error {
		acc, entry = nil, nil
		a, err := loadAccount(tx, uid, id)
		if err != nil {
			return err
		}

		update := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			update[k] = v
		}
		if target != nil && !target.Equal(a.Balance) {
			delta := target.Sub(a.Balance)
			kind := models.TypeIncome
			if delta.IsNegative() {
				kind = models.TypeExpense
			}
			entry = &models.Transaction{
				UserID:       uid,
				AccountID:    a.ID,
				AccountName:  a.Name,
				Type:         kind,
				Amount:       delta.Abs(),
				Category:     models.CategoryAdjustment,
				Description:  "Manual balance edit",
				DateIncurred: s.now(),
			}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("append entry: %w", err)
			}
			ch.add(models.CollectionTransactions, entry.ID, feed.OpCreate)
			update["balance"] = *target
		}
		if len(update) == 0 {
			acc = a
			return nil
		}
		if err := saveVersioned(tx, &models.Account{}, a.ID, a.Version, update); err != nil {
			return err
		}
		ch.add(models.CollectionAccounts, a.ID, feed.OpUpdate)

		acc, err = loadAccount(tx, uid, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return acc, entry, nil
}

func loadAccount(tx *gorm.DB, uid, id string) (*models.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("account id: %w", ErrMissingField)
	}
	var a models.Account
	err := tx.Where("id = ? AND user_id = ?", id, uid).First(&a).Error
	if err := lookup(err, ErrAccountNotFound, "account"); err != nil {
		return nil, err
	}
	return &a, nil
}

// moveBalance adds delta to an account that was loaded in the same
// transaction and stamps the loaded copy with the new values.
func moveBalance(tx *gorm.DB, a *models.Account, delta decimal.Decimal, ch *changes) error {
	next := a.Balance.Add(delta)
	if err := saveVersioned(tx, &models.Account{}, a.ID, a.Version, map[string]interface{}{
		"balance": next,
	}); err != nil {
		return err
	}
	a.Balance = next
	a.Version++
	ch.add(models.CollectionAccounts, a.ID, feed.OpUpdate)
	return nil
}
