package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/model"
)

func newWalletCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet balance, transactions and payment methods",
	}

	balance := &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet balance",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			b, err := e.api.Wallet.Balance(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(b, func() string {
				return "Balance: " + money(b.Balance, b.Currency)
			})
		}),
	}

	var limit int
	transactions := &cobra.Command{
		Use:   "transactions",
		Short: "List wallet credits and debits",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			params := api.Params{}
			if limit > 0 {
				params["limit"] = strconv.Itoa(limit)
			}
			txs, err := e.api.Wallet.Transactions(cmd.Context(), params)
			if err != nil {
				return err
			}
			return e.printer.print(txs, func() string { return transactionsTable(txs) })
		}),
	}
	transactions.Flags().IntVar(&limit, "limit", 0, "maximum number of transactions")

	var amount float64
	var methodID string
	topup := &cobra.Command{
		Use:   "topup",
		Short: "Add funds from a stored payment method",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			if amount <= 0 {
				return fmt.Errorf("--amount must be positive")
			}
			b, err := e.api.Wallet.TopUp(cmd.Context(), amount, methodID)
			if err != nil {
				return err
			}
			return e.printer.print(b, func() string {
				return "New balance: " + money(b.Balance, b.Currency)
			})
		}),
	}
	topup.Flags().Float64Var(&amount, "amount", 0, "amount to add")
	topup.Flags().StringVar(&methodID, "method", "", "payment method id")
	_ = topup.MarkFlagRequired("method")

	methods := &cobra.Command{
		Use:   "methods",
		Short: "List stored payment methods",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			ms, err := e.api.Payments.Methods(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(ms, func() string { return methodsTable(ms) })
		}),
	}

	cmd.AddCommand(balance, transactions, topup, methods)
	return cmd
}

func transactionsTable(txs []model.WalletTransaction) string {
	if len(txs) == 0 {
		return "No transactions."
	}
	t := newTable("ID", "TYPE", "AMOUNT", "DESCRIPTION", "WHEN")
	for _, tx := range txs {
		t.Row(tx.ID, tx.Type, money(tx.Amount, tx.Currency), tx.Description, ago(tx.CreatedDate))
	}
	return t.String()
}

func methodsTable(ms []model.PaymentMethod) string {
	if len(ms) == 0 {
		return "No payment methods."
	}
	t := newTable("ID", "TYPE", "CARD", "DEFAULT")
	for _, m := range ms {
		card := m.Brand
		if m.Last4 != "" {
			card += " •••• " + m.Last4
		}
		def := ""
		if m.IsDefault {
			def = "yes"
		}
		t.Row(m.ID, m.Type, card, def)
	}
	return t.String()
}
