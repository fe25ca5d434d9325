package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanrainier/stan-finance-tracker/internal/models"
)

// sumColumn reads one numeric column of a user's collection and adds it up.
// Values that are NULL or do not parse as numbers count as zero.
func (s *Service) sumColumn(ctx context.Context, model interface{}, uid, column string) (decimal.Decimal, error) {
	var raw []sql.NullString
	if err := s.db.WithContext(ctx).Model(model).Where("user_id = ?", uid).Pluck(column, &raw).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", column, err)
	}
	total := decimal.Zero
	for _, v := range raw {
		if !v.Valid {
			continue
		}
		d, err := decimal.NewFromString(v.String)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total, nil
}

// SumAccounts is the total balance across uid's accounts.
func (s *Service) SumAccounts(ctx context.Context, uid string) (decimal.Decimal, error) {
	return s.sumColumn(ctx, &models.Account{}, uid, "balance")
}

// SumPayables is the total outstanding payable balance.
func (s *Service) SumPayables(ctx context.Context, uid string) (decimal.Decimal, error) {
	return s.sumColumn(ctx, &models.Payable{}, uid, "balance")
}

// SumReceivables is the total of receivable amounts.
func (s *Service) SumReceivables(ctx context.Context, uid string) (decimal.Decimal, error) {
	return s.sumColumn(ctx, &models.Receivable{}, uid, "amount")
}

// Totals groups the three aggregation cards.
type Totals struct {
	Accounts    decimal.Decimal `json:"accounts"`
	Payables    decimal.Decimal `json:"payables"`
	Receivables decimal.Decimal `json:"receivables"`
	// NetWorth is accounts + receivables - payables.
	NetWorth decimal.Decimal `json:"net_worth"`
}

// Totals runs every aggregation reader.
func (s *Service) Totals(ctx context.Context, uid string) (*Totals, error) {
	var (
		t   Totals
		err error
	)
	if t.Accounts, err = s.SumAccounts(ctx, uid); err != nil {
		return nil, err
	}
	if t.Payables, err = s.SumPayables(ctx, uid); err != nil {
		return nil, err
	}
	if t.Receivables, err = s.SumReceivables(ctx, uid); err != nil {
		return nil, err
	}
	t.NetWorth = t.Accounts.Add(t.Receivables).Sub(t.Payables)
	return &t, nil
}

// CategoryTotal is income and expense for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
}

// Dashboard is the summary screen: totals, flows over a period and the
// latest entries.
type Dashboard struct {
	Totals     Totals               `json:"totals"`
	Start      time.Time            `json:"start"`
	End        time.Time            `json:"end"`
	Income     decimal.Decimal      `json:"income"`
	Expense    decimal.Decimal      `json:"expense"`
	Net        decimal.Decimal      `json:"net"`
	ByCategory []CategoryTotal      `json:"by_category"`
	Recent     []models.Transaction `json:"recent"`
}

// Dashboard summarises [start, end). Transfers move money between the
// user's own accounts and count as neither income nor expense.
func (s *Service) Dashboard(ctx context.Context, uid string, start, end time.Time, recent int) (*Dashboard, error) {
	totals, err := s.Totals(ctx, uid)
	if err != nil {
		return nil, err
	}
	if recent <= 0 {
		recent = 5
	}

	var entries []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date_incurred >= ? AND date_incurred < ? AND type IN ?",
			uid, start.UTC(), end.UTC(), []string{models.TypeIncome, models.TypeExpense}).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("dashboard entries: %w", err)
	}

	d := &Dashboard{Totals: *totals, Start: start, End: end, Income: decimal.Zero, Expense: decimal.Zero}
	byCat := make(map[string]*CategoryTotal)
	for i := range entries {
		e := &entries[i]
		ct, ok := byCat[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category, Income: decimal.Zero, Expense: decimal.Zero}
			byCat[e.Category] = ct
		}
		if e.Type == models.TypeIncome {
			d.Income = d.Income.Add(e.Amount)
			ct.Income = ct.Income.Add(e.Amount)
		} else {
			d.Expense = d.Expense.Add(e.Amount)
			ct.Expense = ct.Expense.Add(e.Amount)
		}
	}
	d.Net = d.Income.Sub(d.Expense)

	d.ByCategory = make([]CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		d.ByCategory = append(d.ByCategory, *ct)
	}
	sort.Slice(d.ByCategory, func(i, j int) bool {
		return d.ByCategory[i].Category < d.ByCategory[j].Category
	})

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("date_incurred DESC, created_at DESC").
		Limit(recent).
		Find(&d.Recent).Error; err != nil {
		return nil, fmt.Errorf("dashboard recent: %w", err)
	}
	return d, nil
}
