package category

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/frahmantamala/household-ledger/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]*Category, error)
	Subscribe(ctx context.Context, onChange func([]*Category), onError func(error)) (*events.Subscription, error)
	Add(ctx context.Context, dto CreateCategoryDTO) (*Category, error)
	Delete(ctx context.Context, id string, cascade bool) (int, error)
	UpdateColors(ctx context.Context, id string, colors *Colors) (*Category, error)
	UpdateIcon(ctx context.Context, id, icon string) (*Category, error)
	ToggleIncludeInTotals(ctx context.Context, id string) (*Category, error)
	Rename(ctx context.Context, id, name string) (*Category, error)
	Reorder(ctx context.Context, ids []string) error
	FindOrphanedExpenses(ctx context.Context) ([]*expense.Expense, error)
	CleanupOrphanedExpenses(ctx context.Context) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	KeepAlive time.Duration
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (h *Handler) StreamCategories(w http.ResponseWriter, r *http.Request) {
	h.Stream(w, r, h.KeepAlive, func(send func(string, interface{})) (func(), error) {
		sub, err := h.Service.Subscribe(r.Context(),
			func(categories []*Category) { send("categories", categories) },
			func(error) { send("error", map[string]string{"message": "failed to load categories"}) })
		if err != nil {
			return nil, err
		}
		return sub.Unsubscribe, nil
	})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto CreateCategoryDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.Add(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

// DeleteCategory needs confirm=true when cascade=true.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	cascade := h.BoolQuery(r, "cascade")
	if cascade {
		if err := h.RequireConfirm(r); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	deleted, err := h.Service.Delete(r.Context(), chi.URLParam(r, "id"), cascade)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, DeleteResult{DeletedExpenses: deleted})
}

func (h *Handler) UpdateColors(w http.ResponseWriter, r *http.Request) {
	var dto ColorsDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.UpdateColors(r.Context(), chi.URLParam(r, "id"), dto.Colors)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateIcon(w http.ResponseWriter, r *http.Request) {
	var dto IconDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.UpdateIcon(r.Context(), chi.URLParam(r, "id"), dto.Icon)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) ToggleIncludeInTotals(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.ToggleIncludeInTotals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var dto CreateCategoryDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.Rename(r.Context(), chi.URLParam(r, "id"), dto.Name)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) ReorderCategories(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) GetOrphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.Service.FindOrphanedExpenses(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, OrphansResponse{Count: len(orphans), Expenses: orphans})
}

func (h *Handler) CleanupOrphans(w http.ResponseWriter, r *http.Request) {
	if err := h.RequireConfirm(r); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	removed, err := h.Service.CleanupOrphanedExpenses(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CleanupResult{Removed: removed})
}
