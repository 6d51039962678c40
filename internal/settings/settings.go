package settings

import (
	"context"
	"time"

	"github.com/frahmantamala/household-ledger/internal/expense"
)

// StatusColors maps a payment status to a #rrggbb display color.
type StatusColors map[string]string

// DefaultStatusColors is the palette shown until the user overrides an entry.
func DefaultStatusColors() StatusColors {
	return StatusColors{
		string(expense.StatusPendiente):  "#f59e0b",
		string(expense.StatusPagado):     "#22c55e",
		string(expense.StatusVencido):    "#ef4444",
		string(expense.StatusPagoAnual):  "#3b82f6",
		string(expense.StatusBonificado): "#a855f7",
	}
}

// Overlay returns the defaults with overrides applied on top.
func Overlay(overrides StatusColors) StatusColors {
	merged := DefaultStatusColors()
	for status, color := range overrides {
		merged[status] = color
	}
	return merged
}

type Settings struct {
	UserID       string
	StatusColors StatusColors
	UpdatedAt    time.Time
}

// Repository stores one settings document per user. Get returns nil, nil
// when the user has never saved anything.
type Repository interface {
	Get(ctx context.Context, userID string) (*Settings, error)
	MergeStatusColors(ctx context.Context, userID string, colors StatusColors, at time.Time) error
	ClearStatusColors(ctx context.Context, userID string, at time.Time) error
}
