package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
	"github.com/stanrainier/stan-finance-tracker/internal/models"
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "", "YAML fixture file")
	seedCmd.Flags().String("uid", "", "user to seed")
	_ = seedCmd.MarkFlagRequired("file")
	_ = seedCmd.MarkFlagRequired("uid")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load accounts, payables, receivables and movements from a YAML file",
	Long: `Load a fixture file for one user. Every movement goes through the same
writers the API uses, so balances and ledger entries stay consistent.`,
	RunE: runSeed,
}

// Fixtures is the seed file layout. Keys name records so later sections can
// refer to them.
type Fixtures struct {
	Accounts []struct {
		Key     string `yaml:"key"`
		Name    string `yaml:"name"`
		Type    string `yaml:"type"`
		Balance string `yaml:"balance"`
		Color   string `yaml:"color"`
	} `yaml:"accounts"`
	Payables []struct {
		Key         string `yaml:"key"`
		AccountName string `yaml:"account_name"`
		Balance     string `yaml:"balance"`
		DueDate     string `yaml:"due_date"`
		Category    string `yaml:"category"`
	} `yaml:"payables"`
	Receivables []struct {
		Key         string `yaml:"key"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Amount      string `yaml:"amount"`
		DueDate     string `yaml:"due_date"`
	} `yaml:"receivables"`
	Transactions []struct {
		Account     string `yaml:"account"`
		Type        string `yaml:"type"`
		Amount      string `yaml:"amount"`
		Category    string `yaml:"category"`
		Description string `yaml:"description"`
		Date        string `yaml:"date"`
	} `yaml:"transactions"`
	Transfers []struct {
		From        string `yaml:"from"`
		To          string `yaml:"to"`
		Amount      string `yaml:"amount"`
		Fee         string `yaml:"fee"`
		Description string `yaml:"description"`
	} `yaml:"transfers"`
	Payments []struct {
		Payable string `yaml:"payable"`
		Account string `yaml:"account"`
		Amount  string `yaml:"amount"`
	} `yaml:"payments"`
	Settlements []struct {
		Receivable string `yaml:"receivable"`
		Account    string `yaml:"account"`
	} `yaml:"settlements"`
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Accounts, Payables, Receivables, Movements int
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	uid, _ := cmd.Flags().GetString("uid")

	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := Seed(cmd.Context(), a.db, a.ledger, uid, &fx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d accounts, %d payables, %d receivables, %d movements\n",
		uid, res.Accounts, res.Payables, res.Receivables, res.Movements)
	return nil
}

// Seed writes fx for uid, creating the user row if it does not exist yet.
// It stops at the first rejected record.
func Seed(ctx context.Context, db *gorm.DB, svc *ledger.Service, uid string, fx *Fixtures) (*SeedResult, error) {
	if uid == "" {
		return nil, fmt.Errorf("seed: uid is required")
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.User{UID: uid, Name: uid}).Error; err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}

	var (
		res         SeedResult
		accounts    = map[string]string{}
		payables    = map[string]string{}
		receivables = map[string]string{}
	)
	ref := func(kind string, ids map[string]string, key string) (string, error) {
		id, ok := ids[key]
		if !ok {
			return "", fmt.Errorf("seed: unknown %s %q", kind, key)
		}
		return id, nil
	}

	for _, in := range fx.Accounts {
		acc, err := svc.CreateAccount(ctx, uid, ledger.NewAccount{Name: in.Name, Type: in.Type, Balance: in.Balance, Color: in.Color})
		if err != nil {
			return nil, fmt.Errorf("seed account %q: %w", in.Key, err)
		}
		accounts[in.Key] = acc.ID
		res.Accounts++
	}
	for _, in := range fx.Payables {
		p, err := svc.CreatePayable(ctx, uid, ledger.NewPayable{
			AccountName: in.AccountName, Balance: in.Balance, DueDate: in.DueDate, Category: in.Category,
		})
		if err != nil {
			return nil, fmt.Errorf("seed payable %q: %w", in.Key, err)
		}
		payables[in.Key] = p.ID
		res.Payables++
	}
	for _, in := range fx.Receivables {
		r, err := svc.CreateReceivable(ctx, uid, ledger.NewReceivable{
			Name: in.Name, Description: in.Description, Amount: in.Amount, DueDate: in.DueDate,
		})
		if err != nil {
			return nil, fmt.Errorf("seed receivable %q: %w", in.Key, err)
		}
		receivables[in.Key] = r.ID
		res.Receivables++
	}

	for i, in := range fx.Transactions {
		accID, err := ref("account", accounts, in.Account)
		if err != nil {
			return nil, err
		}
		if _, err := svc.RecordTransaction(ctx, uid, ledger.TransactionInput{
			AccountID: accID, Type: in.Type, Amount: in.Amount, Category: in.Category,
			Description: in.Description, DateIncurred: in.Date,
		}); err != nil {
			return nil, fmt.Errorf("seed transaction %d: %w", i+1, err)
		}
		res.Movements++
	}
	for i, in := range fx.Transfers {
		from, err := ref("account", accounts, in.From)
		if err != nil {
			return nil, err
		}
		to, err := ref("account", accounts, in.To)
		if err != nil {
			return nil, err
		}
		if _, err := svc.Transfer(ctx, uid, ledger.TransferInput{
			FromAccountID: from, ToAccountID: to, Amount: in.Amount, Fee: in.Fee, Description: in.Description,
		}); err != nil {
			return nil, fmt.Errorf("seed transfer %d: %w", i+1, err)
		}
		res.Movements++
	}
	for i, in := range fx.Payments {
		pID, err := ref("payable", payables, in.Payable)
		if err != nil {
			return nil, err
		}
		accID, err := ref("account", accounts, in.Account)
		if err != nil {
			return nil, err
		}
		if _, err := svc.PayPayable(ctx, uid, pID, accID, in.Amount); err != nil {
			return nil, fmt.Errorf("seed payment %d: %w", i+1, err)
		}
		res.Movements++
	}
	for i, in := range fx.Settlements {
		rID, err := ref("receivable", receivables, in.Receivable)
		if err != nil {
			return nil, err
		}
		accID, err := ref("account", accounts, in.Account)
		if err != nil {
			return nil, err
		}
		if _, err := svc.SettleReceivable(ctx, uid, rID, accID); err != nil {
			return nil, fmt.Errorf("seed settlement %d: %w", i+1, err)
		}
		res.Movements++
	}
	return &res, nil
}
