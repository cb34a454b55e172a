// Package handler exposes the per-session notification feed over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blockship/internal/notification"
	dErrors "blockship/pkg/domain-errors"
	"blockship/pkg/platform/httputil"
	"blockship/pkg/requestcontext"
)

// Handler serves the notification routes. Routes are mounted inside the
// authenticated group, so the session ID is always present in context.
type Handler struct {
	center *notification.Center
	logger *slog.Logger
}

func New(center *notification.Center, logger *slog.Logger) *Handler {
	return &Handler{center: center, logger: logger}
}

// Register mounts the notification routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Delete("/notifications/{id}", h.handleDismiss)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := requestcontext.SessionID(ctx)

	feed := h.center.List(ctx, sessionID)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": feed,
	})
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := requestcontext.SessionID(ctx)

	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "notification id must be a UUID"))
		return
	}

	if err := h.center.Dismiss(ctx, sessionID, notificationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
