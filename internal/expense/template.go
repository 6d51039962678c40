package expense

import (
	"context"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/shopspring/decimal"
)

// ApplyTemplate copies the source bucket into the target bucket.
//
// Every copy gets its id before anything is written, so card links inside the
// bucket are pointed at the new card records in memory and the whole copy is
// committed as one batch. Links to cards outside the source bucket are
// dropped. Running it twice copies twice.
func (s *Service) ApplyTemplate(ctx context.Context, req TemplateRequest) (TemplateResult, error) {
	userID, err := errors.RequireUser(ctx)
	if err != nil {
		return TemplateResult{}, err
	}
	if appErr := req.Validate(); appErr != nil {
		return TemplateResult{}, appErr
	}

	source, err := s.repo.ListByMonth(ctx, userID, req.SourceMonth, req.SourceYear)
	if err != nil {
		s.logger.Error("failed to read template source",
			"error", err,
			"user_id", userID,
			"month", req.SourceMonth,
			"year", req.SourceYear)
		return TemplateResult{}, err
	}
	if len(source) == 0 {
		s.logger.Info("template source is empty", "user_id", userID, "month", req.SourceMonth, "year", req.SourceYear)
		return TemplateResult{}, nil
	}

	newIDs := make(map[string]string, len(source))
	for _, src := range source {
		newIDs[src.ID] = s.repo.NewID()
	}

	now := s.now()
	var result TemplateResult
	batch := s.repo.NewBatch()
	for i, src := range source {
		cp := copyForTemplate(src, req, newIDs[src.ID], now)
		// source is newest first; stepping back keeps that order in the copy
		cp.CreatedAt = now.Add(-time.Duration(i) * time.Millisecond)

		if src.LinkedToCardID != nil {
			if cardID, ok := newIDs[*src.LinkedToCardID]; ok {
				cp.LinkedToCardID = &cardID
				result.Relinked++
			} else {
				result.Unlinked++
			}
		}

		batch.Create(cp)
		result.Copied++
	}

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error("failed to commit template copy",
			"error", err,
			"user_id", userID,
			"count", batch.Len())
		return TemplateResult{}, err
	}

	s.logger.Info("template applied",
		"user_id", userID,
		"source", bucketLabel(req.SourceMonth, req.SourceYear),
		"target", bucketLabel(req.TargetMonth, req.TargetYear),
		"copied", result.Copied,
		"relinked", result.Relinked,
		"unlinked", result.Unlinked)

	s.changed(ctx, userID)
	if s.bus != nil {
		event := events.NewTemplateAppliedEvent(userID, result.Copied, result.Relinked, result.Unlinked)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish template event", "error", err, "user_id", userID)
		}
	}

	return result, nil
}

func copyForTemplate(src *Expense, req TemplateRequest, id string, now time.Time) *Expense {
	cp := &Expense{
		ID:        id,
		UserID:    src.UserID,
		Name:      src.Name,
		Currency:  src.Currency,
		Payer:     src.Payer,
		Category:  src.Category,
		Month:     req.TargetMonth,
		Year:      req.TargetYear,
		Order:     src.Order,
		Icon:      cloneString(src.Icon),
		IconColor: cloneString(src.IconColor),
		UpdatedAt: now,
	}

	if req.retains(src.Status) {
		cp.Status = src.Status
		cp.Vto = src.Vto
		cp.FechaPago = src.FechaPago
		cp.Importe = src.Importe
	} else {
		cp.Status = StatusPendiente
		cp.Importe = decimal.Zero
	}

	if req.KeepCardLinks {
		cp.CardTotalARS = cloneDecimal(src.CardTotalARS)
		cp.CardTotalUSD = cloneDecimal(src.CardTotalUSD)
		cp.CardUSDRate = cloneDecimal(src.CardUSDRate)
	}

	return cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func bucketLabel(month, year int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
