package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/config"
	"github.com/stanrainier/stan-finance-tracker/internal/database"
	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
)

const testUID = "user-1"

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []feed.Event
}

func (r *recorder) Publish(uid string, events ...feed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestService(t *testing.T, opts Options) (*Service, *recorder) {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 5 * time.Millisecond
	}
	rec := &recorder{}
	return New(db, rec, opts), rec
}

func mustAccount(t *testing.T, s *Service, name, balance string) *models.Account {
	t.Helper()
	acc, err := s.CreateAccount(context.Background(), testUID, NewAccount{Name: name, Type: models.AccountBank, Balance: balance})
	if err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", name, err)
	}
	return acc
}

func balanceOf(t *testing.T, s *Service, id string) decimal.Decimal {
	t.Helper()
	acc, err := s.GetAccount(context.Background(), testUID, id)
	if err != nil {
		t.Fatalf("GetAccount error = %v", err)
	}
	return acc.Balance
}

func entryCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Transaction{}).Where("user_id = ?", testUID).Count(&n).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return n
}

func wantAmount(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

func TestRecordTransaction_IncomeAndExpense(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Wallet", "100")

	res, err := s.RecordTransaction(ctx, testUID, TransactionInput{
		AccountID: acc.ID, Type: models.TypeIncome, Amount: "50.25", Category: "Salary",
	})
	if err != nil {
		t.Fatalf("income error = %v", err)
	}
	wantAmount(t, "balance after income", res.Account.Balance, "150.25")
	if res.Entry.AccountName != "Wallet" || res.Entry.Category != "Salary" {
		t.Errorf("entry = %+v", res.Entry)
	}

	if _, err := s.RecordTransaction(ctx, testUID, TransactionInput{
		AccountID: acc.ID, Type: models.TypeExpense, Amount: "0.25", Category: "Food",
	}); err != nil {
		t.Fatalf("expense error = %v", err)
	}
	wantAmount(t, "balance after expense", balanceOf(t, s, acc.ID), "150")
	if n := entryCount(t, s.DB()); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
}

func TestRecordTransaction_Rejections(t *testing.T) {
	s, rec := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Wallet", "10")
	before := rec.count()

	cases := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"insufficient", TransactionInput{AccountID: acc.ID, Type: models.TypeExpense, Amount: "10.01", Category: "Food"}, ErrInsufficientFunds},
		{"zero amount", TransactionInput{AccountID: acc.ID, Type: models.TypeIncome, Amount: "0", Category: "Food"}, ErrInvalidAmount},
		{"bad type", TransactionInput{AccountID: acc.ID, Type: "gift", Amount: "1", Category: "Food"}, ErrInvalidType},
		{"no category", TransactionInput{AccountID: acc.ID, Type: models.TypeIncome, Amount: "1"}, ErrMissingField},
		{"unknown account", TransactionInput{AccountID: "nope", Type: models.TypeIncome, Amount: "1", Category: "Food"}, ErrAccountNotFound},
		{"future date", TransactionInput{
			AccountID: acc.ID, Type: models.TypeIncome, Amount: "1", Category: "Food",
			DateIncurred: time.Now().AddDate(0, 0, 2).Format("2006-01-02"),
		}, ErrFutureDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RecordTransaction(ctx, testUID, tc.in)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}

	wantAmount(t, "balance", balanceOf(t, s, acc.ID), "10")
	if n := entryCount(t, s.DB()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
	if rec.count() != before {
		t.Errorf("rejected writes published %d events", rec.count()-before)
	}
}

func TestRecordTransaction_ExactBalanceAllowed(t *testing.T) {
	s, _ := newTestService(t, Options{})
	acc := mustAccount(t, s, "Wallet", "10")
	if _, err := s.RecordTransaction(context.Background(), testUID, TransactionInput{
		AccountID: acc.ID, Type: models.TypeExpense, Amount: "10", Category: "Food",
	}); err != nil {
		t.Fatalf("error = %v", err)
	}
	wantAmount(t, "balance", balanceOf(t, s, acc.ID), "0")
}

func TestTransfer_WithFee(t *testing.T) {
	s, rec := newTestService(t, Options{})
	ctx := context.Background()
	a := mustAccount(t, s, "A", "1000")
	b := mustAccount(t, s, "B", "500")
	before := rec.count()

	res, err := s.Transfer(ctx, testUID, TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: "200", Fee: "10"})
	if err != nil {
		t.Fatalf("Transfer error = %v", err)
	}
	wantAmount(t, "A", balanceOf(t, s, a.ID), "790")
	wantAmount(t, "B", balanceOf(t, s, b.ID), "700")
	if len(res.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(res.Entries))
	}
	if n := entryCount(t, s.DB()); n != 3 {
		t.Errorf("stored entries = %d, want 3", n)
	}

	got := map[string]models.Transaction{}
	for _, e := range res.Entries {
		got[e.Category] = e
	}
	if e := got[models.CategoryTransferSender]; e.AccountID != a.ID || e.Description != "Transfer to B" {
		t.Errorf("sender entry = %+v", e)
	}
	if e := got[models.CategoryTransferReceiver]; e.AccountID != b.ID || e.Description != "Transfer from A" {
		t.Errorf("receiver entry = %+v", e)
	}
	if e := got[models.CategoryTransferFee]; e.Type != models.TypeExpense || !e.Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("fee entry = %+v", e)
	}

	// two account updates plus three entries
	if n := rec.count() - before; n != 5 {
		t.Errorf("events = %d, want 5", n)
	}
}

func TestTransfer_NoFeeWritesTwoEntries(t *testing.T) {
	s, _ := newTestService(t, Options{})
	a := mustAccount(t, s, "A", "100")
	b := mustAccount(t, s, "B", "0")

	res, err := s.Transfer(context.Background(), testUID, TransferInput{
		FromAccountID: a.ID, ToAccountID: b.ID, Amount: "100", Description: "rent share",
	})
	if err != nil {
		t.Fatalf("Transfer error = %v", err)
	}
	if len(res.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(res.Entries))
	}
	for _, e := range res.Entries {
		if e.Description != "rent share" {
			t.Errorf("description = %q", e.Description)
		}
	}
	wantAmount(t, "A", balanceOf(t, s, a.ID), "0")
	wantAmount(t, "B", balanceOf(t, s, b.ID), "100")
}

func TestTransfer_Rejections(t *testing.T) {
	s, rec := newTestService(t, Options{})
	ctx := context.Background()
	a := mustAccount(t, s, "A", "100")
	b := mustAccount(t, s, "B", "0")
	before := rec.count()

	cases := []struct {
		name string
		in   TransferInput
		want error
	}{
		{"self", TransferInput{FromAccountID: a.ID, ToAccountID: a.ID, Amount: "1"}, ErrSelfTransfer},
		{"fee pushes over", TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: "95", Fee: "6"}, ErrInsufficientFunds},
		{"negative fee", TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: "1", Fee: "-1"}, ErrInvalidFee},
		{"missing dest", TransferInput{FromAccountID: a.ID, Amount: "1"}, ErrMissingField},
		{"unknown dest", TransferInput{FromAccountID: a.ID, ToAccountID: "nope", Amount: "1"}, ErrAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Transfer(ctx, testUID, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}

	wantAmount(t, "A", balanceOf(t, s, a.ID), "100")
	wantAmount(t, "B", balanceOf(t, s, b.ID), "0")
	if n := entryCount(t, s.DB()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
	if rec.count() != before {
		t.Errorf("rejected transfers published events")
	}
}

func mustPayable(t *testing.T, s *Service, name, balance string) *models.Payable {
	t.Helper()
	p, err := s.CreatePayable(context.Background(), testUID, NewPayable{
		AccountName: name, Balance: balance, DueDate: "2025-01-31", Category: "Credit Card",
	})
	if err != nil {
		t.Fatalf("CreatePayable error = %v", err)
	}
	return p
}

func TestPayPayable(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Checking", "2000")
	p := mustPayable(t, s, "Visa", "1200")

	res, err := s.PayPayable(ctx, testUID, p.ID, acc.ID, "500")
	if err != nil {
		t.Fatalf("PayPayable error = %v", err)
	}
	wantAmount(t, "payable", res.Payable.Balance, "700")
	wantAmount(t, "account", balanceOf(t, s, acc.ID), "1500")

	stored, err := s.GetPayable(ctx, testUID, p.ID)
	if err != nil {
		t.Fatalf("GetPayable error = %v", err)
	}
	wantAmount(t, "stored payable", stored.Balance, "700")

	e := res.Entry
	if e.Type != models.TypeExpense || e.Category != models.CategoryPayables || e.PayableID != p.ID {
		t.Errorf("entry = %+v", e)
	}
	if e.Description != "Payment to Visa" {
		t.Errorf("description = %q", e.Description)
	}
	if n := entryCount(t, s.DB()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestPayPayable_Rejections(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Checking", "100")
	p := mustPayable(t, s, "Visa", "50")

	if _, err := s.PayPayable(ctx, testUID, p.ID, acc.ID, "150"); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("insufficient: error = %v", err)
	}
	if _, err := s.PayPayable(ctx, testUID, p.ID, acc.ID, "60"); !errors.Is(err, ErrOverpayment) {
		t.Errorf("overpay: error = %v", err)
	}
	if _, err := s.PayPayable(ctx, testUID, "nope", acc.ID, "1"); !errors.Is(err, ErrPayableNotFound) {
		t.Errorf("unknown payable: error = %v", err)
	}
	wantAmount(t, "account", balanceOf(t, s, acc.ID), "100")
	if n := entryCount(t, s.DB()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
}

func TestAddToPayable(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Checking", "100")
	p := mustPayable(t, s, "Visa", "50")

	res, err := s.AddToPayable(ctx, testUID, p.ID, "25.50")
	if err != nil {
		t.Fatalf("AddToPayable error = %v", err)
	}
	wantAmount(t, "payable", res.Payable.Balance, "75.5")
	if res.Account != nil {
		t.Errorf("account = %+v, want nil", res.Account)
	}
	if res.Entry.Type != models.TypePayable || res.Entry.AccountID != "" {
		t.Errorf("entry = %+v", res.Entry)
	}
	wantAmount(t, "account", balanceOf(t, s, acc.ID), "100")
}

func mustReceivable(t *testing.T, s *Service, name, amount string) *models.Receivable {
	t.Helper()
	r, err := s.CreateReceivable(context.Background(), testUID, NewReceivable{Name: name, Amount: amount})
	if err != nil {
		t.Fatalf("CreateReceivable error = %v", err)
	}
	return r
}

func TestSettleReceivable(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Checking", "1000")
	r := mustReceivable(t, s, "Juan", "5000")

	res, err := s.SettleReceivable(ctx, testUID, r.ID, acc.ID)
	if err != nil {
		t.Fatalf("SettleReceivable error = %v", err)
	}
	wantAmount(t, "account", balanceOf(t, s, acc.ID), "6000")
	if res.Receivable.Status != models.ReceivablePaid || res.Receivable.PaidAt == nil {
		t.Errorf("receivable = %+v", res.Receivable)
	}
	wantAmount(t, "receivable amount", res.Receivable.Amount, "5000")
	if e := res.Entry; e.Type != models.TypeIncome || e.RelatedTo != r.ID || e.Description != "Payment from Juan" {
		t.Errorf("entry = %+v", e)
	}
	if n := entryCount(t, s.DB()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}

	// a second settle must not credit again
	if _, err := s.SettleReceivable(ctx, testUID, r.ID, acc.ID); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("second settle error = %v, want ErrAlreadySettled", err)
	}
	wantAmount(t, "account after retry", balanceOf(t, s, acc.ID), "6000")
	if n := entryCount(t, s.DB()); n != 1 {
		t.Errorf("entries after retry = %d, want 1", n)
	}

	paid, err := s.ListReceivables(ctx, testUID, models.ReceivablePaid)
	if err != nil || len(paid) != 1 {
		t.Errorf("ListReceivables(paid) = %d, %v", len(paid), err)
	}
}

func TestSettleReceivable_ZeroOnSettle(t *testing.T) {
	s, _ := newTestService(t, Options{ZeroSettledReceivables: true})
	ctx := context.Background()
	acc := mustAccount(t, s, "Checking", "0")
	r := mustReceivable(t, s, "Ana", "300")

	res, err := s.SettleReceivable(ctx, testUID, r.ID, acc.ID)
	if err != nil {
		t.Fatalf("SettleReceivable error = %v", err)
	}
	wantAmount(t, "receivable amount", res.Receivable.Amount, "0")
	wantAmount(t, "entry amount", res.Entry.Amount, "300")
	wantAmount(t, "account", balanceOf(t, s, acc.ID), "300")

	sum, err := s.SumReceivables(ctx, testUID)
	if err != nil {
		t.Fatalf("SumReceivables error = %v", err)
	}
	wantAmount(t, "receivables total", sum, "0")
}

func TestUpdateAccount_BalanceAdjustment(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Cash", "100")

	target := "80"
	updated, entry, err := s.UpdateAccount(ctx, testUID, acc.ID, AccountUpdate{Balance: &target})
	if err != nil {
		t.Fatalf("UpdateAccount error = %v", err)
	}
	wantAmount(t, "balance", updated.Balance, "80")
	if entry == nil || entry.Type != models.TypeExpense || entry.Category != models.CategoryAdjustment {
		t.Fatalf("entry = %+v", entry)
	}
	wantAmount(t, "adjustment", entry.Amount, "20")

	name := "Pocket"
	updated, entry, err = s.UpdateAccount(ctx, testUID, acc.ID, AccountUpdate{Name: &name})
	if err != nil {
		t.Fatalf("rename error = %v", err)
	}
	if updated.Name != "Pocket" || entry != nil {
		t.Errorf("rename gave %+v, entry %+v", updated, entry)
	}
}

func TestDeleteTransaction_KeepsBalance(t *testing.T) {
	s, _ := newTestService(t, Options{})
	ctx := context.Background()
	acc := mustAccount(t, s, "Cash", "0")
	res, err := s.RecordTransaction(ctx, testUID, TransactionInput{
		AccountID: acc.ID, Type: models.TypeIncome, Amount: "40", Category: "Gift",
	})
	if err != nil {
		t.Fatalf("record error = %v", err)
	}
	if err := s.DeleteTransaction(ctx, testUID, res.Entry.ID); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if err := s.DeleteTransaction(ctx, testUID, res.Entry.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("second delete error = %v", err)
	}
	wantAmount(t, "balance", balanceOf(t, s, acc.ID), "40")
}

func TestUserIsolation(t *testing.T) {
	s, _ := newTestService(t, Options{})
	acc := mustAccount(t, s, "Mine", "100")
	_, err := s.RecordTransaction(context.Background(), "someone-else", TransactionInput{
		AccountID: acc.ID, Type: models.TypeExpense, Amount: "1", Category: "Food",
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestConcurrentIncome_NoLostUpdate(t *testing.T) {
	s, _ := newTestService(t, Options{MaxRetries: 20})
	ctx := context.Background()
	acc := mustAccount(t, s, "Shared", "0")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordTransaction(ctx, testUID, TransactionInput{
				AccountID: acc.ID, Type: models.TypeIncome, Amount: "10", Category: "Tips",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent write error = %v", err)
		}
	}
	wantAmount(t, "balance", balanceOf(t, s, acc.ID), "100")
	if c := entryCount(t, s.DB()); c != n {
		t.Errorf("entries = %d, want %d", c, n)
	}
}

func TestVersionConflictIsRetried(t *testing.T) {
	s, _ := newTestService(t, Options{MaxRetries: 2})
	ctx := context.Background()
	acc := mustAccount(t, s, "Cash", "10")

	attempts := 0
	err := s.write(ctx, testUID, "test", func(tx *gorm.DB, ch *changes) error {
		attempts++
		a, err := loadAccount(tx, testUID, acc.ID)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// a stale version loses the race
			a.Version--
		}
		return moveBalance(tx, a, decimal.NewFromInt(1), ch)
	})
	if err != nil {
		t.Fatalf("write error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	wantAmount(t, "balance", balanceOf(t, s, acc.ID), "11")
}

func TestVersionConflictGivesUp(t *testing.T) {
	s, _ := newTestService(t, Options{MaxRetries: 1})
	acc := mustAccount(t, s, "Cash", "10")

	err := s.write(context.Background(), testUID, "test", func(tx *gorm.DB, ch *changes) error {
		a, err := loadAccount(tx, testUID, acc.ID)
		if err != nil {
			return err
		}
		a.Version++
		return moveBalance(tx, a, decimal.NewFromInt(1), ch)
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
	wantAmount(t, "balance", balanceOf(t, s, acc.ID), "10")
}
