package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/pkg/logger"
	"github.com/go-chi/chi"
)

const maxBodyBytes = 1 << 20

// StreamObserver is told when event streams open and close.
type StreamObserver interface {
	StreamOpened()
	StreamClosed()
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger  *slog.Logger
	Streams StreamObserver
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an AppError body for a plain message
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	appErr := &errors.AppError{
		Type:       errorTypeFor(status),
		Code:       errors.ErrorCode(http.StatusText(status)),
		Message:    message,
		StatusCode: status,
	}
	h.writeAppError(w, appErr)
}

// HandleServiceError maps service errors onto status codes. Anything that is
// not an AppError is an internal failure and its text is not exposed.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	lg := logger.From(r.Context())
	if lg == nil {
		lg = h.Logger
	}

	if appErr, ok := errors.IsAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			lg.Error("request failed", "error", err, "path", r.URL.Path)
		} else {
			lg.Warn("request rejected", "code", appErr.Code, "message", appErr.GetDetailedMessage(), "path", r.URL.Path)
		}
		h.writeAppError(w, appErr)
		return
	}

	lg.Error("request failed", "error", err, "path", r.URL.Path)
	h.writeAppError(w, errors.NewInternalError("internal server error", err))
}

func (h *BaseHandler) writeAppError(w http.ResponseWriter, appErr *errors.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.WriteJSON(w, status, body)
}

func errorTypeFor(status int) errors.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return errors.ErrorTypeValidation
	case http.StatusUnauthorized:
		return errors.ErrorTypeUnauthenticated
	case http.StatusForbidden:
		return errors.ErrorTypeForbidden
	case http.StatusNotFound:
		return errors.ErrorTypeNotFound
	case http.StatusConflict:
		return errors.ErrorTypeConflict
	}
	return errors.ErrorTypeInternal
}

// DecodeJSON reads a bounded JSON body into dst.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.NewValidationError("request body is empty", errors.ErrCodeValidationFailed)
		}
		return errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// IntParam reads a URL or query integer.
func (h *BaseHandler) IntParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		raw = r.URL.Query().Get(name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationFieldError(name, fmt.Sprintf("%s must be an integer", name), errors.ErrCodeValidationFailed)
	}
	return n, nil
}

// BoolQuery reads an optional boolean query parameter.
func (h *BaseHandler) BoolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// RequireConfirm rejects destructive requests without confirm=true.
func (h *BaseHandler) RequireConfirm(r *http.Request) error {
	if !h.BoolQuery(r, "confirm") {
		return errors.ErrConfirmRequired
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	return BearerToken(r)
}

func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}

// Stream runs an event stream until the client goes away. subscribe receives
// a send function and returns a cancel function for its subscription.
func (h *BaseHandler) Stream(w http.ResponseWriter, r *http.Request, keepAlive time.Duration, subscribe func(send func(event string, data interface{})) (cancel func(), err error)) {
	sse, err := NewEventStream(w)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	updates := make(chan frame, 16)
	send := func(event string, data interface{}) {
		select {
		case updates <- frame{event: event, data: data}:
		case <-r.Context().Done():
		}
	}

	cancel, err := subscribe(send)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	defer cancel()

	sse.Open()
	if h.Streams != nil {
		h.Streams.StreamOpened()
		defer h.Streams.StreamClosed()
	}
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sse.Comment("keep-alive"); err != nil {
				return
			}
		case f := <-updates:
			if err := sse.Send(f.event, f.data); err != nil {
				h.Logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}

type frame struct {
	event string
	data  interface{}
}
