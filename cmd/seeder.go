package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/household-ledger/internal/expense"
)

var (
	seedUser  string
	seedMonth int
	seedYear  int
	clearData bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a user's ledger with sample data",
	Long:  `Create the default categories and one month of sample expenses, including a credit card with linked purchases.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if seedMonth == 0 {
			seedMonth = int(now.Month())
		}
		if seedYear == 0 {
			seedYear = now.Year()
		}
		return runAsUser(cmd.Context(), seedUser, seed)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedUser, "user", "u", "", "user id to seed")
	seedCmd.Flags().IntVar(&seedMonth, "month", 0, "month to seed, defaults to the current month")
	seedCmd.Flags().IntVar(&seedYear, "year", 0, "year to seed, defaults to the current year")
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear the month before seeding")
}

func seed(ctx context.Context, svc *Services) error {
	categories, err := svc.Categories.EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to create categories: %w", err)
	}
	if len(categories) < 2 {
		return fmt.Errorf("expected default categories, got %d", len(categories))
	}
	home, card := categories[0].ID, categories[1].ID

	if clearData {
		n, err := svc.Expenses.ClearMonth(ctx, seedMonth, seedYear)
		if err != nil {
			return fmt.Errorf("failed to clear month: %w", err)
		}
		fmt.Printf("Cleared %d expenses from %02d/%d\n", n, seedMonth, seedYear)
	}

	amount := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	fixed := []expense.CreateExpenseDTO{
		{Name: "Alquiler", Vto: "10", Importe: decimal.RequireFromString("450000"), Payer: "Compartido", Status: expense.StatusPagado, Category: home},
		{Name: "Luz", Vto: "15", Importe: decimal.RequireFromString("38500.50"), Payer: "Compartido", Category: home},
		{Name: "Internet", Vto: "20", Importe: decimal.RequireFromString("21990"), Payer: "Compartido", Status: expense.StatusVencido, Category: home},
		{Name: "Seguro auto", Importe: decimal.RequireFromString("310000"), Status: expense.StatusPagoAnual, Category: home},
	}
	for _, dto := range fixed {
		dto.Month, dto.Year = seedMonth, seedYear
		if _, err := svc.Expenses.Add(ctx, dto); err != nil {
			return fmt.Errorf("failed to add %s: %w", dto.Name, err)
		}
	}

	visa, err := svc.Expenses.Add(ctx, expense.CreateExpenseDTO{
		Name:         "Visa",
		Vto:          "5",
		Category:     card,
		Month:        seedMonth,
		Year:         seedYear,
		CardTotalARS: amount("182000"),
		CardTotalUSD: amount("25"),
		CardUSDRate:  amount("1150"),
	})
	if err != nil {
		return fmt.Errorf("failed to add card: %w", err)
	}

	purchases := []expense.CreateExpenseDTO{
		{Name: "Supermercado", Importe: decimal.RequireFromString("132000"), Category: card},
		{Name: "Farmacia", Importe: decimal.RequireFromString("50000"), Category: card},
		{Name: "Streaming", Importe: decimal.RequireFromString("25"), Currency: expense.CurrencyUSD, Category: card},
	}
	ids := make([]string, 0, len(purchases))
	for _, dto := range purchases {
		dto.Month, dto.Year = seedMonth, seedYear
		e, err := svc.Expenses.Add(ctx, dto)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", dto.Name, err)
		}
		ids = append(ids, e.ID)
	}
	if err := svc.Expenses.LinkToCard(ctx, visa.ID, ids); err != nil {
		return fmt.Errorf("failed to link card purchases: %w", err)
	}

	fmt.Printf("Seeded %d categories and %d expenses into %02d/%d\n",
		len(categories), len(fixed)+1+len(purchases), seedMonth, seedYear)
	return nil
}
