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

// TransferInput moves Amount from one account to another. Fee, when set, is
// charged to the source on top of Amount.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        string
	Fee           string
	Description   string
}

// TransferResult carries both accounts after the move and every entry
// written: sender, receiver and, if charged, the fee.
type TransferResult struct {
	From    models.Account       `json:"from"`
	To      models.Account       `json:"to"`
	Entries []models.Transaction `json:"entries"`
}

// Transfer debits the source by amount+fee, credits the destination by
// amount and writes the sender/receiver entries plus a fee expense.
func (s *Service) Transfer(ctx context.Context, uid string, in TransferInput) (*TransferResult, error) {
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return nil, fmt.Errorf("transfer accounts: %w", ErrMissingField)
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, ErrSelfTransfer
	}
	amount, err := util.ParseAmount(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	fee, err := util.ParseOptionalAmount(in.Fee)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFee, err)
	}
	debit := amount.Add(fee)
	desc := strings.TrimSpace(in.Description)

	var res *TransferResult
	err = s.write(ctx, uid, "transfer", func(tx *gorm.DB, ch *changes) error {
		res = nil
		from, err := loadAccount(tx, uid, in.FromAccountID)
		if err != nil {
			return err
		}
		to, err := loadAccount(tx, uid, in.ToAccountID)
		if err != nil {
			return err
		}
		if from.Balance.LessThan(debit) {
			return ErrInsufficientFunds
		}

		if err := moveBalance(tx, from, debit.Neg(), ch); err != nil {
			return err
		}
		if err := moveBalance(tx, to, amount, ch); err != nil {
			return err
		}

		now := s.now()
		entries := []models.Transaction{
			{
				UserID:       uid,
				AccountID:    from.ID,
				AccountName:  from.Name,
				Type:         models.TypeTransfer,
				Amount:       amount,
				Category:     models.CategoryTransferSender,
				Description:  orDefault(desc, "Transfer to "+to.Name),
				DateIncurred: now,
			},
			{
				UserID:       uid,
				AccountID:    to.ID,
				AccountName:  to.Name,
				Type:         models.TypeTransfer,
				Amount:       amount,
				Category:     models.CategoryTransferReceiver,
				Description:  orDefault(desc, "Transfer from "+from.Name),
				DateIncurred: now,
			},
		}
		if fee.GreaterThan(decimal.Zero) {
			entries = append(entries, models.Transaction{
				UserID:       uid,
				AccountID:    from.ID,
				AccountName:  from.Name,
				Type:         models.TypeExpense,
				Amount:       fee,
				Category:     models.CategoryTransferFee,
				Description:  "Fee for transfer to " + to.Name,
				DateIncurred: now,
			})
		}
		for i := range entries {
			if err := tx.Create(&entries[i]).Error; err != nil {
				return fmt.Errorf("append entry: %w", err)
			}
			ch.add(models.CollectionTransactions, entries[i].ID, feed.OpCreate)
		}

		res = &TransferResult{From: *from, To: *to, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
