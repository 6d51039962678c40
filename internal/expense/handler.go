package expense

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/transport"
	"github.com/frahmantamala/household-ledger/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, month, year int) ([]*Expense, error)
	ListAll(ctx context.Context) ([]*Expense, error)
	Subscribe(ctx context.Context, month, year int, onChange func([]*Expense), onError func(error)) (*events.Subscription, error)
	SubscribeAll(ctx context.Context, onChange func([]*Expense), onError func(error)) (*events.Subscription, error)
	Get(ctx context.Context, id string) (*Expense, error)
	Add(ctx context.Context, dto CreateExpenseDTO) (*Expense, error)
	QuickAdd(ctx context.Context, dto QuickAddDTO) (*Expense, error)
	Update(ctx context.Context, id string, patch Patch) (*Expense, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
	ApplyTemplate(ctx context.Context, req TemplateRequest) (TemplateResult, error)
	ClearMonth(ctx context.Context, month, year int) (int, error)
	LinkToCard(ctx context.Context, cardID string, ids []string) error
	UnlinkFromCard(ctx context.Context, ids []string) error
	Reconcile(ctx context.Context, cardID string) (*Reconciliation, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	KeepAlive time.Duration
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	if baseHandler == nil {
		baseHandler = transport.NewBaseHandler(logger.LoggerWrapper())
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := h.IntParam(r, "month")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	year, err := h.IntParam(r, "year")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	expenses, err := h.Service.List(r.Context(), month, year)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})
}

func (h *Handler) ListAllExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Service.ListAll(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})
}

// StreamExpenses pushes the bucket, or every bucket when month and year are
// absent, on each change.
func (h *Handler) StreamExpenses(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("month") == "" && r.URL.Query().Get("year") == ""

	var month, year int
	if !all {
		var err error
		if month, err = h.IntParam(r, "month"); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		if year, err = h.IntParam(r, "year"); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	h.Stream(w, r, h.KeepAlive, func(send func(string, interface{})) (func(), error) {
		onChange := func(expenses []*Expense) { send("expenses", expenses) }
		onError := func(err error) { send("error", map[string]string{"message": "failed to load expenses"}) }

		var sub *events.Subscription
		var err error
		if all {
			sub, err = h.Service.SubscribeAll(r.Context(), onChange, onError)
		} else {
			sub, err = h.Service.Subscribe(r.Context(), month, year, onChange, onError)
		}
		if err != nil {
			return nil, err
		}
		return sub.Unsubscribe, nil
	})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var dto CreateExpenseDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.Add(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) QuickAddExpense(w http.ResponseWriter, r *http.Request) {
	var dto QuickAddDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.QuickAdd(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

// UpdateExpense applies a partial update. A null value removes the field.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := h.DecodeJSON(w, r, &raw); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	patch, err := ParsePatch(raw)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	e, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReorderExpenses(w http.ResponseWriter, r *http.Request) {
	var dto ReorderDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.Reorder(r.Context(), dto.IDs); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.ApplyTemplate(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ClearMonth(w http.ResponseWriter, r *http.Request) {
	if err := h.RequireConfirm(r); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	month, err := h.IntParam(r, "month")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	year, err := h.IntParam(r, "year")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	deleted, err := h.Service.ClearMonth(r.Context(), month, year)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ClearMonthResult{Deleted: deleted})
}

func (h *Handler) LinkToCard(w http.ResponseWriter, r *http.Request) {
	var dto LinkDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.LinkToCard(r.Context(), chi.URLParam(r, "cardId"), dto.ExpenseIDs); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnlinkFromCard(w http.ResponseWriter, r *http.Request) {
	if err := h.RequireConfirm(r); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto LinkDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.UnlinkFromCard(r.Context(), dto.ExpenseIDs); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Reconcile(r.Context(), chi.URLParam(r, "cardId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rec)
}
