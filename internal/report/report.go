package report

import (
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/shopspring/decimal"
)

// Totals holds one sum per currency.
type Totals map[string]decimal.Decimal

func newTotals() Totals {
	t := make(Totals, len(expense.Currencies))
	for _, c := range expense.Currencies {
		t[c] = decimal.Zero
	}
	return t
}

func (t Totals) add(currency string, amount decimal.Decimal) {
	t[currency] = t[currency].Add(amount)
}

type CategoryTotals struct {
	CategoryID      string `json:"categoryId"`
	Name            string `json:"name"`
	IncludeInTotals bool   `json:"includeInTotals"`
	Count           int    `json:"count"`
	Totals          Totals `json:"totals"`
}

// MonthTotals summarizes one (year, month) bucket. Included sums expenses whose
// category counts toward totals; expenses in unknown categories count as included.
type MonthTotals struct {
	Year       int               `json:"year"`
	Month      int               `json:"month"`
	Count      int               `json:"count"`
	Included   Totals            `json:"included"`
	Excluded   Totals            `json:"excluded"`
	Categories []*CategoryTotals `json:"categories"`
}

type MonthlyTotalsResponse struct {
	Months []*MonthTotals `json:"months"`
}
