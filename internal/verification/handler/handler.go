// Package handler wires the verification ledger to its HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scholarhub/internal/verification/models"
	"scholarhub/internal/verification/service"
	"scholarhub/pkg/platform/httputil"
	"scholarhub/pkg/requestcontext"
)

// Service defines the interface for verification operations.
type Service interface {
	RecordEligibility(ctx context.Context, caller string, decision service.Decision) (*models.Record, error)
	RecordBatch(ctx context.Context, caller string, decisions []service.Decision) ([]service.BatchResult, error)
	History(ctx context.Context, handle string) ([]models.Record, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the authenticated verification endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleVerify)
	r.Post("/verifications/batch", h.HandleVerifyBatch)
}

// RegisterPublic mounts the read-only query surface.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/accounts/{handle}/verifications", h.HandleHistory)
}

// HandleVerify handles POST /verifications requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.RecordEligibility(ctx, caller, service.Decision{
		Handle:     req.Handle,
		ExternalID: req.ExternalID,
		Eligible:   req.Eligible,
		Reason:     req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "verification rejected",
			"request_id", requestID, "handle", req.Handle, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromRecord(record))
}

// HandleVerifyBatch handles POST /verifications/batch requests. Items fail
// independently; the response reports each outcome in input order.
func (h *Handler) HandleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchVerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decisions := make([]service.Decision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		decisions = append(decisions, service.Decision{
			Handle:     d.Handle,
			ExternalID: d.ExternalID,
			Eligible:   d.Eligible,
			Reason:     d.Reason,
		})
	}

	results, err := h.service.RecordBatch(ctx, caller, decisions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	response := BatchResponse{Results: make([]BatchItemResponse, 0, len(results))}
	for _, result := range results {
		response.Results = append(response.Results,
			batchItem(result.Decision.Handle, result.Record, result.Err))
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleHistory handles GET /accounts/{handle}/verifications requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.History(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]RecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, FromRecord(&records[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": responses})
}
