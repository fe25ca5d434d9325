package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/stanrainier/stan-finance-tracker/internal/ledger"
)

func init() {
	rootCmd.AddCommand(totalsCmd)
	totalsCmd.Flags().String("uid", "", "user to summarise")
	_ = totalsCmd.MarkFlagRequired("uid")
}

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Print account, payable and receivable totals for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("uid")
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.ledger.Totals(cmd.Context(), uid)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTotals(uid, t, a.cfg.App.CurrencySymbol))
		return nil
	},
}

var (
	totalsTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	totalsLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(14)
	totalsValue = lipgloss.NewStyle().Bold(true).Align(lipgloss.Right).Width(18)
	totalsDebt  = totalsValue.Foreground(lipgloss.Color("#FF6B6B"))
	totalsBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func money(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixed(2)
}

// renderTotals draws the totals card shown by "finance totals".
func renderTotals(uid string, t *ledger.Totals, symbol string) string {
	row := func(label, value string, style lipgloss.Style) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, totalsLabel.Render(label), style.Render(value))
	}
	rows := []string{
		totalsTitle.Render("Totals for " + uid),
		row("Accounts", money(symbol, t.Accounts), totalsValue),
		row("Receivables", money(symbol, t.Receivables), totalsValue),
		row("Payables", money(symbol, t.Payables), totalsDebt),
		strings.Repeat("─", 32),
	}
	net := totalsValue
	if t.NetWorth.IsNegative() {
		net = totalsDebt
	}
	rows = append(rows, row("Net worth", money(symbol, t.NetWorth), net))
	return totalsBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
