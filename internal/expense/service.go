package expense

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests and seeders.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, month, year int) ([]*Expense, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if appErr := validation.ValidateBucket(month, year); appErr != nil {
		return nil, appErr
	}

	expenses, err := s.repo.ListByMonth(ctx, userID, month, year)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", userID, "month", month, "year", year)
		return nil, err
	}
	return expenses, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*Expense, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list all expenses", "error", err, "user_id", userID)
		return nil, err
	}
	return expenses, nil
}

// Subscribe delivers the bucket now and again after every expense change of
// the signed-in user.
func (s *Service) Subscribe(ctx context.Context, month, year int, onChange func([]*Expense), onError func(error)) (*events.Subscription, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if appErr := validation.ValidateBucket(month, year); appErr != nil {
		return nil, appErr
	}

	load := func(ctx context.Context) ([]*Expense, error) {
		return s.repo.ListByMonth(ctx, userID, month, year)
	}
	return events.Watch(ctx, s.bus, events.EventTypeExpensesChanged, userID, load, onChange, s.watchError(onError, userID)), nil
}

// SubscribeAll is Subscribe over every bucket, for charts.
func (s *Service) SubscribeAll(ctx context.Context, onChange func([]*Expense), onError func(error)) (*events.Subscription, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	load := func(ctx context.Context) ([]*Expense, error) {
		return s.repo.ListByUser(ctx, userID)
	}
	return events.Watch(ctx, s.bus, events.EventTypeExpensesChanged, userID, load, onChange, s.watchError(onError, userID)), nil
}

func (s *Service) watchError(onError func(error), userID string) func(error) {
	return func(err error) {
		s.logger.Error("expense subscription reload failed", "error", err, "user_id", userID)
		if onError != nil {
			onError(err)
		}
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Expense, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.owned(ctx, userID, id)
}

func (s *Service) Add(ctx context.Context, dto CreateExpenseDTO) (*Expense, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		s.logger.Warn("expense validation failed", "error", appErr.GetDetailedMessage(), "user_id", userID)
		return nil, appErr
	}

	if dto.LinkedToCardID != nil {
		if err := s.requireCard(ctx, userID, *dto.LinkedToCardID); err != nil {
			return nil, err
		}
	}

	order, err := s.nextOrder(ctx, userID, dto.Month, dto.Year)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &Expense{
		ID:             s.repo.NewID(),
		UserID:         userID,
		Name:           dto.Name,
		Vto:            dto.Vto,
		FechaPago:      dto.FechaPago,
		Importe:        dto.Importe,
		Currency:       dto.Currency,
		Payer:          dto.Payer,
		Status:         dto.Status,
		Category:       dto.Category,
		Month:          dto.Month,
		Year:           dto.Year,
		Order:          order,
		Comment:        dto.Comment,
		Debt:           dto.Debt,
		LinkedToCardID: dto.LinkedToCardID,
		CardTotalARS:   dto.CardTotalARS,
		CardTotalUSD:   dto.CardTotalUSD,
		CardUSDRate:    dto.CardUSDRate,
		Icon:           dto.Icon,
		IconColor:      dto.IconColor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", userID,
		"month", e.Month,
		"year", e.Year)
	s.changed(ctx, userID)

	return e, nil
}

// QuickAdd creates an empty pending ARS row in the bucket.
func (s *Service) QuickAdd(ctx context.Context, dto QuickAddDTO) (*Expense, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}
	return s.Add(ctx, CreateExpenseDTO{
		Importe:  decimal.Zero,
		Currency: CurrencyARS,
		Status:   StatusPendiente,
		Category: dto.Category,
		Month:    dto.Month,
		Year:     dto.Year,
	})
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Expense, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if appErr := patch.Validate(); appErr != nil {
		return nil, appErr
	}
	if linked, ok := patch.Set[FieldLinkedToCardID].(string); ok && linked == id {
		return nil, ErrSelfLink
	}

	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if linked, ok := patch.Set[FieldLinkedToCardID].(string); ok {
		if err := s.requireCard(ctx, userID, linked); err != nil {
			return nil, err
		}
	}

	patch.UpdatedAt = s.now()
	if err := s.repo.Patch(ctx, id, patch); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id, "fields", patch.Fields())
		return nil, err
	}

	patch.Apply(existing)
	s.logger.Info("expense updated", "expense_id", id, "user_id", userID, "fields", patch.Fields())
	s.changed(ctx, userID)

	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return err
	}

	s.logger.Info("expense deleted", "expense_id", id, "user_id", userID)
	s.changed(ctx, userID)
	return nil
}

// Reorder stores each id's position in ids as its order, in one batch.
func (s *Service) Reorder(ctx context.Context, ids []string) error {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return err
	}
	if appErr := (ReorderDTO{IDs: ids}).Validate(); appErr != nil {
		return appErr
	}

	byID, err := s.ownedSet(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	batch := s.repo.NewBatch()
	for i, id := range ids {
		if _, ok := byID[id]; !ok {
			return ErrExpenseNotFound.WithDetails(map[string]string{"id": id})
		}
		p := NewPatch().With(FieldOrder, i+1)
		p.UpdatedAt = now
		batch.Patch(id, p)
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("failed to reorder expenses", "error", err, "user_id", userID, "count", len(ids))
		return err
	}

	s.changed(ctx, userID)
	return nil
}

// ClearMonth deletes the whole bucket in one batch and returns how many
// records went away.
func (s *Service) ClearMonth(ctx context.Context, month, year int) (int, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return 0, err
	}
	if appErr := validation.ValidateBucket(month, year); appErr != nil {
		return 0, appErr
	}

	expenses, err := s.repo.ListByMonth(ctx, userID, month, year)
	if err != nil {
		s.logger.Error("failed to read month for clearing", "error", err, "user_id", userID, "month", month, "year", year)
		return 0, err
	}
	if len(expenses) == 0 {
		return 0, nil
	}

	batch := s.repo.NewBatch()
	for _, e := range expenses {
		batch.Delete(e.ID)
	}
	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("failed to clear month", "error", err, "user_id", userID, "month", month, "year", year)
		return 0, err
	}

	s.logger.Info("month cleared", "user_id", userID, "month", month, "year", year, "deleted", len(expenses))
	s.changed(ctx, userID)
	return len(expenses), nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrExpenseNotFound) {
			s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		}
		return nil, err
	}
	if e.UserID != userID {
		s.logger.Warn("access to foreign expense", "expense_id", id, "user_id", userID)
		return nil, errors.ErrForeignRecord
	}
	return e, nil
}

// requireCard checks that cardID is a credit card expense of userID.
func (s *Service) requireCard(ctx context.Context, userID, cardID string) error {
	card, err := s.repo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return ErrCardNotFound
		}
		s.logger.Error("failed to get card", "error", err, "card_id", cardID)
		return err
	}
	if card.UserID != userID {
		return ErrCardNotFound
	}
	if !card.IsCreditCard() {
		return ErrNotACard
	}
	return nil
}

func (s *Service) ownedSet(ctx context.Context, userID string) (map[string]*Expense, error) {
	all, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", userID)
		return nil, err
	}
	byID := make(map[string]*Expense, len(all))
	for _, e := range all {
		byID[e.ID] = e
	}
	return byID, nil
}

// nextOrder is max(order)+1 within the bucket. Two sessions adding at the same
// moment can get the same value.
func (s *Service) nextOrder(ctx context.Context, userID string, month, year int) (int, error) {
	bucket, err := s.repo.ListByMonth(ctx, userID, month, year)
	if err != nil {
		s.logger.Error("failed to read bucket for ordering", "error", err, "user_id", userID)
		return 0, err
	}
	max := 0
	for _, e := range bucket {
		if e.Order > max {
			max = e.Order
		}
	}
	return max + 1, nil
}

func (s *Service) changed(ctx context.Context, userID string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewChangeEvent(events.EventTypeExpensesChanged, userID)); err != nil {
		s.logger.Error("failed to publish expense change", "error", err, "user_id", userID)
	}
}
