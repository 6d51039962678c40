package auth

import (
	"net/http"

	"github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/transport"
	"github.com/frahmantamala/household-ledger/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Verifier Verifier
}

func NewHandler(baseHandler *transport.BaseHandler, verifier Verifier) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Verifier:    verifier,
	}
}

// AuthMiddleware verifies the bearer token and puts the user id in the request
// context. Event streams may pass the token as the access_token query
// parameter since EventSource cannot set headers.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			h.HandleServiceError(w, r, ErrMissingToken)
			return
		}

		identity, err := h.Verifier.Verify(r.Context(), token)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), identity.UserID)
		ctx = logger.With(ctx, "user_id", identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Me returns the caller's user id.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := internal.RequireUser(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, Identity{UserID: userID})
}
