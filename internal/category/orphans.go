package category

import (
	"context"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

// FindOrphanedExpenses returns every expense of the user whose category no
// longer exists. The whole expense set is read at once.
func (s *Service) FindOrphanedExpenses(ctx context.Context) ([]*expense.Expense, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.findOrphans(ctx, userID)
}

func (s *Service) findOrphans(ctx context.Context, userID string) ([]*expense.Expense, error) {
	categories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories for orphan scan", "error", err, "user_id", userID)
		return nil, err
	}
	valid := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		valid[c.ID] = struct{}{}
	}

	all, err := s.expenses.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list expenses for orphan scan", "error", err, "user_id", userID)
		return nil, err
	}

	orphans := make([]*expense.Expense, 0)
	for _, e := range all {
		if _, ok := valid[e.Category]; !ok {
			orphans = append(orphans, e)
		}
	}
	return orphans, nil
}

// CleanupOrphanedExpenses deletes the current orphans and returns how many
// were removed.
func (s *Service) CleanupOrphanedExpenses(ctx context.Context) (int, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return 0, err
	}

	orphans, err := s.findOrphans(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	removed, err := s.deleteExpenses(ctx, orphans)
	if removed > 0 {
		s.changed(ctx, userID, events.EventTypeExpensesChanged)
	}
	if err != nil {
		s.logger.Error("orphan cleanup failed", "error", err, "user_id", userID, "removed", removed)
		return removed, err
	}

	s.logger.Info("orphaned expenses removed", "user_id", userID, "removed", removed)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.NewOrphansCleanedEvent(userID, removed)); err != nil {
			s.logger.Error("failed to publish orphan cleanup", "error", err, "user_id", userID)
		}
	}
	return removed, nil
}
