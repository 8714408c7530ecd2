// Package handler wires the identity registry to its HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scholarhub/internal/identity/models"
	"scholarhub/pkg/platform/httputil"
	"scholarhub/pkg/requestcontext"
)

// Service defines the interface for identity operations.
type Service interface {
	Register(ctx context.Context, caller string, externalID uint64, handle, integrityProof string) (*models.Account, error)
	GetAccount(ctx context.Context, handle string) (*models.Account, error)
	Count(ctx context.Context) (int, error)
}

// Handler wires identity endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated identity endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/accounts", h.HandleRegister)
}

// RegisterPublic mounts the read-only query surface.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/accounts/count", h.HandleCount)
	r.Get("/accounts/{handle}", h.HandleGetAccount)
}

// HandleRegister handles POST /accounts requests. Registration is always for
// the caller's own handle.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.service.Register(ctx, caller, req.ExternalID, req.Handle, req.IntegrityProof)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID, "handle", req.Handle, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromAccount(account))
}

// HandleGetAccount handles GET /accounts/{handle} requests.
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleCount handles GET /accounts/count requests.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}
