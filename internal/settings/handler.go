package settings

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/household-ledger/internal/core/events"
	"github.com/frahmantamala/household-ledger/internal/transport"
)

type ServiceAPI interface {
	StatusColors(ctx context.Context) (StatusColors, error)
	SaveStatusColors(ctx context.Context, colors StatusColors) (StatusColors, error)
	ResetStatusColors(ctx context.Context) (StatusColors, error)
	Subscribe(ctx context.Context, onChange func(StatusColors), onError func(error)) (*events.Subscription, error)
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

func (h *Handler) GetStatusColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.Service.StatusColors(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatusColorsResponse{StatusColors: colors})
}

func (h *Handler) SaveStatusColors(w http.ResponseWriter, r *http.Request) {
	var dto StatusColorsDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	colors, err := h.Service.SaveStatusColors(r.Context(), dto.StatusColors)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatusColorsResponse{StatusColors: colors})
}

func (h *Handler) ResetStatusColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.Service.ResetStatusColors(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatusColorsResponse{StatusColors: colors})
}

func (h *Handler) StreamStatusColors(w http.ResponseWriter, r *http.Request) {
	h.Stream(w, r, h.KeepAlive, func(send func(string, interface{})) (func(), error) {
		sub, err := h.Service.Subscribe(r.Context(),
			func(colors StatusColors) { send("statusColors", colors) },
			func(error) { send("error", map[string]string{"message": "failed to load settings"}) })
		if err != nil {
			return nil, err
		}
		return sub.Unsubscribe, nil
	})
}
