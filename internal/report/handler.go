package report

import (
	"context"
	"net/http"

	"github.com/frahmantamala/household-ledger/internal/transport"
)

type ServiceAPI interface {
	MonthlyTotals(ctx context.Context, year int) ([]*MonthTotals, error)
	Month(ctx context.Context, month, year int) (*MonthTotals, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetMonthlyTotals accepts an optional year query parameter.
func (h *Handler) GetMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	year := 0
	if r.URL.Query().Get("year") != "" {
		y, err := h.IntParam(r, "year")
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		year = y
	}

	months, err := h.Service.MonthlyTotals(r.Context(), year)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MonthlyTotalsResponse{Months: months})
}

func (h *Handler) GetMonthTotals(w http.ResponseWriter, r *http.Request) {
	year, err := h.IntParam(r, "year")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	month, err := h.IntParam(r, "month")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	totals, err := h.Service.Month(r.Context(), month, year)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, totals)
}
