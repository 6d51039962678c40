package cmd

import (
	"log/slog"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/category"
	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/frahmantamala/household-ledger/internal/report"
	"github.com/frahmantamala/household-ledger/internal/settings"
)

type Services struct {
	Expenses   *expense.Service
	Categories *category.Service
	Settings   *settings.Service
	Reports    *report.Service
}

func newServices(cfg *internal.Config, stores *Stores, bus *events.EventBus, lg *slog.Logger) *Services {
	categories := category.NewService(stores.Categories, stores.Expenses, bus, lg).
		WithFanOut(cfg.Store.DeleteFanOut)

	return &Services{
		Expenses:   expense.NewService(stores.Expenses, bus, lg),
		Categories: categories,
		Settings:   settings.NewService(stores.Settings, bus, lg),
		Reports:    report.NewService(stores.Expenses, stores.Categories, lg),
	}
}
