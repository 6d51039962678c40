package expense

import (
	"context"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/shopspring/decimal"
)

// LinkToCard points every expense in ids at cardID.
func (s *Service) LinkToCard(ctx context.Context, cardID string, ids []string) error {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return err
	}
	if appErr := (LinkDTO{ExpenseIDs: ids}).Validate(); appErr != nil {
		return appErr
	}

	byID, err := s.ownedSet(ctx, userID)
	if err != nil {
		return err
	}
	card, ok := byID[cardID]
	if !ok {
		return ErrCardNotFound
	}
	if !card.IsCreditCard() {
		return ErrNotACard
	}

	now := s.now()
	batch := s.repo.NewBatch()
	for _, id := range ids {
		if id == cardID {
			return ErrSelfLink
		}
		if _, ok := byID[id]; !ok {
			return ErrExpenseNotFound.WithDetails(map[string]string{"id": id})
		}
		p := NewPatch().With(FieldLinkedToCardID, cardID)
		p.UpdatedAt = now
		batch.Patch(id, p)
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("failed to link expenses to card", "error", err, "card_id", cardID, "count", len(ids))
		return err
	}

	s.logger.Info("expenses linked to card", "card_id", cardID, "user_id", userID, "count", len(ids))
	s.changed(ctx, userID)
	return nil
}

// UnlinkFromCard removes the card reference from every expense in ids.
func (s *Service) UnlinkFromCard(ctx context.Context, ids []string) error {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return err
	}
	if appErr := (LinkDTO{ExpenseIDs: ids}).Validate(); appErr != nil {
		return appErr
	}

	byID, err := s.ownedSet(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	batch := s.repo.NewBatch()
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return ErrExpenseNotFound.WithDetails(map[string]string{"id": id})
		}
		p := NewPatch().Without(FieldLinkedToCardID)
		p.UpdatedAt = now
		batch.Patch(id, p)
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("failed to unlink expenses", "error", err, "count", len(ids))
		return err
	}

	s.logger.Info("expenses unlinked from card", "user_id", userID, "count", len(ids))
	s.changed(ctx, userID)
	return nil
}

// Reconcile sums the children linked to cardID per currency and compares them
// with the totals stated on the card.
func (s *Service) Reconcile(ctx context.Context, cardID string) (*Reconciliation, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list expenses for reconciliation", "error", err, "user_id", userID)
		return nil, err
	}

	var card *Expense
	linked := make([]*Expense, 0)
	for _, e := range all {
		if e.ID == cardID {
			card = e
		} else if e.LinkedTo(cardID) {
			linked = append(linked, e)
		}
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if !card.IsCreditCard() {
		return nil, ErrNotACard
	}

	rec := &Reconciliation{
		CardID:    card.ID,
		CardName:  card.Name,
		StatedARS: valueOrZero(card.CardTotalARS),
		StatedUSD: valueOrZero(card.CardTotalUSD),
		LinkedARS: decimal.Zero,
		LinkedUSD: decimal.Zero,
		USDRate:   cloneDecimal(card.CardUSDRate),
		Linked:    linked,
	}
	for _, e := range linked {
		switch e.Currency {
		case CurrencyUSD:
			rec.LinkedUSD = rec.LinkedUSD.Add(e.Importe)
		default:
			rec.LinkedARS = rec.LinkedARS.Add(e.Importe)
		}
	}
	rec.DifferenceARS = rec.StatedARS.Sub(rec.LinkedARS)
	rec.DifferenceUSD = rec.StatedUSD.Sub(rec.LinkedUSD)
	if rec.USDRate != nil {
		total := rec.StatedARS.Add(rec.StatedUSD.Mul(*rec.USDRate))
		rec.TotalInARS = &total
	}

	return rec, nil
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
