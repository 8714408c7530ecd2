// Package handler exposes the owner's administrative surface: rotating the
// verifier binding.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "scholarhub/pkg/domain-errors"
	"scholarhub/pkg/platform/httputil"
	"scholarhub/pkg/requestcontext"
)

// Roles is the slice of the access package this handler needs.
type Roles interface {
	SetVerifier(ctx context.Context, caller, verifier string) error
	Verifier() string
}

// Handler wires admin endpoints to the role model.
type Handler struct {
	roles  Roles
	logger *slog.Logger
}

func New(roles Roles, logger *slog.Logger) *Handler {
	return &Handler{roles: roles, logger: logger}
}

// Register mounts the authenticated admin endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/verifier", h.HandleRotateVerifier)
	r.Get("/admin/verifier", h.HandleGetVerifier)
}

// RotateVerifierRequest is the HTTP request body for POST /admin/verifier.
type RotateVerifierRequest struct {
	Verifier string `json:"verifier"`
}

// Validate checks the new verifier handle.
func (r *RotateVerifierRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Verifier = strings.TrimSpace(r.Verifier)
	if r.Verifier == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier is required")
	}
	return nil
}

// HandleRotateVerifier handles POST /admin/verifier requests.
func (h *Handler) HandleRotateVerifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)

	req, ok := httputil.DecodeAndPrepare[RotateVerifierRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.roles.SetVerifier(ctx, caller, req.Verifier); err != nil {
		h.logger.WarnContext(ctx, "verifier rotation rejected",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verifier rotated",
		"request_id", requestID, "verifier", req.Verifier)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"verifier": req.Verifier})
}

// HandleGetVerifier handles GET /admin/verifier requests.
func (h *Handler) HandleGetVerifier(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"verifier": h.roles.Verifier()})
}
