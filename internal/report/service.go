package report

import (
	"context"
	"log/slog"
	"math"
	"sort"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/category"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

type ExpenseReader interface {
	ListByUser(ctx context.Context, userID string) ([]*expense.Expense, error)
	ListByMonth(ctx context.Context, userID string, month, year int) ([]*expense.Expense, error)
}

type CategoryReader interface {
	ListByUser(ctx context.Context, userID string) ([]*category.Category, error)
}

type Service struct {
	expenses   ExpenseReader
	categories CategoryReader
	logger     *slog.Logger
}

func NewService(expenses ExpenseReader, categories CategoryReader, logger *slog.Logger) *Service {
	return &Service{
		expenses:   expenses,
		categories: categories,
		logger:     logger,
	}
}

// MonthlyTotals returns one summary per bucket, newest first. A non-zero year
// restricts the result to that year.
func (s *Service) MonthlyTotals(ctx context.Context, year int) ([]*MonthTotals, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", userID)
		return nil, err
	}
	categories, err := s.categoryIndex(ctx, userID)
	if err != nil {
		return nil, err
	}

	type bucket struct{ year, month int }
	months := make(map[bucket]*summary)
	for _, e := range expenses {
		if year != 0 && e.Year != year {
			continue
		}
		key := bucket{e.Year, e.Month}
		if months[key] == nil {
			months[key] = newSummary(e.Year, e.Month, categories)
		}
		months[key].add(e)
	}

	result := make([]*MonthTotals, 0, len(months))
	for _, m := range months {
		result = append(result, m.totals())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	return result, nil
}

// Month summarizes a single bucket; an empty bucket yields zero totals.
func (s *Service) Month(ctx context.Context, month, year int) (*MonthTotals, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if appErr := validation.ValidateBucket(month, year); appErr != nil {
		return nil, appErr
	}

	expenses, err := s.expenses.ListByMonth(ctx, userID, month, year)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", userID, "month", month, "year", year)
		return nil, err
	}
	categories, err := s.categoryIndex(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum := newSummary(year, month, categories)
	for _, e := range expenses {
		sum.add(e)
	}
	return sum.totals(), nil
}

func (s *Service) categoryIndex(ctx context.Context, userID string) (map[string]*category.Category, error) {
	categories, err := s.categories.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err, "user_id", userID)
		return nil, err
	}
	index := make(map[string]*category.Category, len(categories))
	for _, c := range categories {
		index[c.ID] = c
	}
	return index, nil
}

type summary struct {
	result     *MonthTotals
	categories map[string]*category.Category
	byCategory map[string]*CategoryTotals
}

func newSummary(year, month int, categories map[string]*category.Category) *summary {
	return &summary{
		result: &MonthTotals{
			Year:     year,
			Month:    month,
			Included: newTotals(),
			Excluded: newTotals(),
		},
		categories: categories,
		byCategory: make(map[string]*CategoryTotals),
	}
}

func (s *summary) add(e *expense.Expense) {
	ct := s.byCategory[e.Category]
	if ct == nil {
		ct = &CategoryTotals{CategoryID: e.Category, IncludeInTotals: true, Totals: newTotals()}
		if c, ok := s.categories[e.Category]; ok {
			ct.Name = c.Name
			ct.IncludeInTotals = c.IncludeInTotals
		}
		s.byCategory[e.Category] = ct
	}

	ct.Count++
	ct.Totals.add(e.Currency, e.Importe)
	s.result.Count++
	if ct.IncludeInTotals {
		s.result.Included.add(e.Currency, e.Importe)
	} else {
		s.result.Excluded.add(e.Currency, e.Importe)
	}
}

// totals orders the breakdown the way categories are displayed; unknown
// categories go last.
func (s *summary) totals() *MonthTotals {
	rank := func(id string) int {
		if c, ok := s.categories[id]; ok {
			return c.Order
		}
		return math.MaxInt
	}
	list := make([]*CategoryTotals, 0, len(s.byCategory))
	for _, ct := range s.byCategory {
		list = append(list, ct)
	}
	sort.Slice(list, func(i, j int) bool {
		ri, rj := rank(list[i].CategoryID), rank(list[j].CategoryID)
		if ri != rj {
			return ri < rj
		}
		return list[i].CategoryID < list[j].CategoryID
	})
	s.result.Categories = list
	return s.result
}
