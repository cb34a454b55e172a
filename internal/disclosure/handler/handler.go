// Package handler exposes the disclosure flow over HTTP. Session open is
// the only public route; everything else sits behind the session-token
// middleware and reads its session ID from the request context.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blockship/internal/disclosure"
	"blockship/internal/wallet"
	id "blockship/pkg/domain"
	"blockship/pkg/platform/httputil"
	"blockship/pkg/requestcontext"
)

// Service defines the disclosure operations the handler exposes.
type Service interface {
	OpenSession(ctx context.Context) (*disclosure.OpenedSession, error)
	CloseSession(ctx context.Context, sessionID id.SessionID) error
	View(ctx context.Context, sessionID id.SessionID) (*disclosure.SessionView, error)
	SignIn(ctx context.Context, sessionID id.SessionID, subject, password string) error
	WalletStatus(ctx context.Context, sessionID id.SessionID) (*disclosure.WalletView, error)
	ConnectWallet(ctx context.Context, sessionID id.SessionID) (*wallet.Info, error)
	Search(ctx context.Context, sessionID id.SessionID, rawQuery string) (*disclosure.SearchResult, error)
	OpenDocument(ctx context.Context, sessionID id.SessionID) (string, error)
	TokenLink(ctx context.Context, sessionID id.SessionID) (string, error)
	Claim(ctx context.Context, sessionID id.SessionID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/sessions", h.handleOpenSession)
}

// Register mounts the session-scoped routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Delete("/session", h.handleCloseSession)
	r.Post("/session/signin", h.handleSignIn)

	r.Get("/wallet", h.handleWalletStatus)
	r.Post("/wallet/connect", h.handleConnectWallet)

	r.Post("/shipments/search", h.handleSearch)

	r.Get("/disclosure", h.handleGetSession)
	r.Post("/disclosure/document", h.handleOpenDocument)
	r.Post("/disclosure/token", h.handleTokenLink)
	r.Post("/disclosure/claim", h.handleClaim)
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opened, err := h.service.OpenSession(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "session open failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.View(ctx, opened.Session.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, openSessionResponse{
		Token:   opened.Token,
		Session: newSessionResponse(view),
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.service.View(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSessionResponse(view))
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.CloseSession(ctx, requestcontext.SessionID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[signInRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.service.SignIn(ctx, requestcontext.SessionID(ctx), req.Subject, req.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.View(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSessionResponse(view))
}

func (h *Handler) handleWalletStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.service.WalletStatus(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newWalletResponse(view))
}

func (h *Handler) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := requestcontext.SessionID(ctx)

	info, err := h.service.ConnectWallet(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.WalletStatus(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := newWalletResponse(view)
	resp.Address = info.Address
	resp.Truncated = info.Truncated
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[searchRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.Search(ctx, requestcontext.SessionID(ctx), req.Query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// A lookup failure is a search outcome, not an HTTP error: the session
	// settled in the not-found-or-error state and the client renders that.
	httputil.WriteJSON(w, http.StatusOK, searchResponse{
		State:      result.State.String(),
		Record:     result.Record,
		Superseded: result.Superseded,
		Message:    result.FailureMessage,
	})
}

func (h *Handler) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	url, err := h.service.OpenDocument(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, linkResponse{URL: url})
}

func (h *Handler) handleTokenLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	url, err := h.service.TokenLink(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, linkResponse{URL: url})
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Claim never succeeds today: guards unmet is forbidden, guards met is
	// unavailable. Both surface through the standard error envelope.
	err := h.service.Claim(ctx, requestcontext.SessionID(ctx))
	httputil.WriteError(w, err)
}
