package category

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultFanOut = 8

// ExpenseStore is the part of the expense store categories depend on.
type ExpenseStore interface {
	ListByUser(ctx context.Context, userID string) ([]*expense.Expense, error)
	ListByCategory(ctx context.Context, userID, categoryID string) ([]*expense.Expense, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo      Repository
	expenses  ExpenseStore
	bus       *events.EventBus
	logger    *slog.Logger
	now       func() time.Time
	fanOut    int
	provision singleflight.Group
}

func NewService(repo Repository, expenses ExpenseStore, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		expenses: expenses,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
		fanOut:   defaultFanOut,
	}
}

// WithFanOut limits how many expense deletes run at once.
func (s *Service) WithFanOut(n int) *Service {
	if n > 0 {
		s.fanOut = n
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EnsureDefaults reads the user's categories and, when there are none,
// writes the placeholder set and reads again.
func (s *Service) EnsureDefaults(ctx context.Context) ([]*Category, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err, "user_id", userID)
		return nil, err
	}
	if len(categories) > 0 {
		return categories, nil
	}

	v, err, _ := s.provision.Do(userID, func() (interface{}, error) {
		return s.createDefaults(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Category), nil
}

func (s *Service) createDefaults(ctx context.Context, userID string) ([]*Category, error) {
	// another caller may have provisioned while we waited
	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	now := s.now()
	defaults := make([]*Category, DefaultCount)
	for i := range defaults {
		defaults[i] = NewCategory(s.repo.NewID(), userID, DefaultName(i+1), i+1, now)
	}
	if err := s.repo.CreateMany(ctx, defaults); err != nil {
		s.logger.Error("failed to create default categories", "error", err, "user_id", userID)
		return nil, err
	}
	s.logger.Info("default categories created", "user_id", userID)
	s.changed(ctx, userID, events.EventTypeCategoriesChanged)

	categories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err, "user_id", userID)
		return nil, err
	}
	return categories, nil
}

func (s *Service) List(ctx context.Context) ([]*Category, error) {
	return s.EnsureDefaults(ctx)
}

// Subscribe provisions defaults, then delivers the ordered category list on
// every category change.
func (s *Service) Subscribe(ctx context.Context, onChange func([]*Category), onError func(error)) (*events.Subscription, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureDefaults(ctx); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) ([]*Category, error) {
		return s.repo.ListByUser(ctx, userID)
	}
	reportErr := func(err error) {
		s.logger.Error("category subscription reload failed", "error", err, "user_id", userID)
		if onError != nil {
			onError(err)
		}
	}
	return events.Watch(ctx, s.bus, events.EventTypeCategoriesChanged, userID, load, onChange, reportErr), nil
}

// Add appends a category after the current highest order. Concurrent adds
// can produce equal orders.
func (s *Service) Add(ctx context.Context, dto CreateCategoryDTO) (*Category, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err, "user_id", userID)
		return nil, err
	}
	order := 0
	for _, c := range existing {
		if c.Order > order {
			order = c.Order
		}
	}

	c := NewCategory(s.repo.NewID(), userID, dto.Name, order+1, s.now())
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create category", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("category created", "category_id", c.ID, "user_id", userID, "order", c.Order)
	s.changed(ctx, userID, events.EventTypeCategoriesChanged)
	return c, nil
}

// Delete removes a category. Without cascade it fails while expenses still
// reference it; with cascade those expenses are deleted first.
func (s *Service) Delete(ctx context.Context, id string, cascade bool) (int, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return 0, err
	}

	dependents, err := s.expenses.ListByCategory(ctx, userID, id)
	if err != nil {
		s.logger.Error("failed to list category expenses", "error", err, "category_id", id)
		return 0, err
	}
	if len(dependents) > 0 && !cascade {
		s.logger.Warn("category delete blocked by expenses", "category_id", id, "expenses", len(dependents))
		return 0, inUse(len(dependents))
	}

	deleted := 0
	if len(dependents) > 0 {
		deleted, err = s.deleteExpenses(ctx, dependents)
		if deleted > 0 {
			s.changed(ctx, userID, events.EventTypeExpensesChanged)
		}
		if err != nil {
			s.logger.Error("failed to delete category expenses", "error", err, "category_id", id, "deleted", deleted)
			return deleted, err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete category", "error", err, "category_id", id)
		return deleted, err
	}

	s.logger.Info("category deleted", "category_id", id, "user_id", userID, "deleted_expenses", deleted)
	s.changed(ctx, userID, events.EventTypeCategoriesChanged)
	return deleted, nil
}

// deleteExpenses deletes each expense individually, at most fanOut at a time.
// Records that are already gone count as deleted.
func (s *Service) deleteExpenses(ctx context.Context, list []*expense.Expense) (int, error) {
	var deleted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for _, e := range list {
		id := e.ID
		g.Go(func() error {
			err := s.expenses.Delete(gctx, id)
			if err != nil && !errors.Is(err, expense.ErrExpenseNotFound) {
				return err
			}
			deleted.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(deleted.Load()), err
}

func (s *Service) UpdateColors(ctx context.Context, id string, colors *Colors) (*Category, error) {
	if appErr := (ColorsDTO{Colors: colors}).Validate(); appErr != nil {
		return nil, appErr
	}
	changes := Changes{Colors: colors, ClearColors: colors == nil}
	return s.update(ctx, id, changes)
}

// UpdateIcon sets the icon name; an empty name removes it.
func (s *Service) UpdateIcon(ctx context.Context, id, icon string) (*Category, error) {
	if icon == "" {
		return s.update(ctx, id, Changes{ClearIcon: true})
	}
	return s.update(ctx, id, Changes{Icon: &icon})
}

func (s *Service) ToggleIncludeInTotals(ctx context.Context, id string) (*Category, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	include := !c.IncludeInTotals
	return s.apply(ctx, userID, c, Changes{IncludeInTotals: &include})
}

func (s *Service) Rename(ctx context.Context, id, name string) (*Category, error) {
	if appErr := (CreateCategoryDTO{Name: name}).Validate(); appErr != nil {
		return nil, appErr
	}
	return s.update(ctx, id, Changes{Name: &name})
}

// Reorder stores each id's position in ids as its order.
func (s *Service) Reorder(ctx context.Context, ids []string) error {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return err
	}
	if appErr := (ReorderDTO{IDs: ids}).Validate(); appErr != nil {
		return appErr
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err, "user_id", userID)
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	orders := make(map[string]int, len(ids))
	for i, id := range ids {
		if !known[id] {
			return ErrCategoryNotFound.WithDetails(map[string]string{"id": id})
		}
		orders[id] = i + 1
	}

	if err := s.repo.SetOrders(ctx, orders, s.now()); err != nil {
		s.logger.Error("failed to reorder categories", "error", err, "user_id", userID)
		return err
	}
	s.changed(ctx, userID, events.EventTypeCategoriesChanged)
	return nil
}

func (s *Service) update(ctx context.Context, id string, changes Changes) (*Category, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, c, changes)
}

func (s *Service) apply(ctx context.Context, userID string, c *Category, changes Changes) (*Category, error) {
	changes.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c.ID, changes); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", c.ID)
		return nil, err
	}
	changes.Apply(c)
	s.changed(ctx, userID, events.EventTypeCategoriesChanged)
	return c, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrCategoryNotFound) {
			s.logger.Error("failed to get category", "error", err, "category_id", id)
		}
		return nil, err
	}
	if c.UserID != userID {
		s.logger.Warn("access to foreign category", "category_id", id, "user_id", userID)
		return nil, errors.ErrForeignRecord
	}
	return c, nil
}

func (s *Service) changed(ctx context.Context, userID, eventType string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewChangeEvent(eventType, userID)); err != nil {
		s.logger.Error("failed to publish change", "error", err, "event_type", eventType, "user_id", userID)
	}
}
