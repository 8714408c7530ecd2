// Package handler wires fund pool accounting and the claim processor to
// their HTTP endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"scholarhub/internal/fund/models"
	dErrors "scholarhub/pkg/domain-errors"
	"scholarhub/pkg/platform/httputil"
	"scholarhub/pkg/requestcontext"
)

// Service defines the interface for pool and claim operations.
type Service interface {
	CreatePool(ctx context.Context, caller, title string, capacity int, fundingAmount int64) (*models.Pool, error)
	CreateSponsoredPool(ctx context.Context, caller, title string, amount int64, sponsor, beneficiary string) (*models.Pool, error)
	Claim(ctx context.Context, caller string, poolID int64) (*models.ClaimReceipt, error)
	WithdrawResidual(ctx context.Context, caller string, poolID int64, amount int64) (*models.WithdrawalReceipt, error)
	GetPool(ctx context.Context, id int64) (*models.Pool, error)
	ListPools(ctx context.Context) ([]models.Pool, error)
	PoolCount(ctx context.Context) (int, error)
}

// Handler wires pool endpoints to the fund service. The snapshot cache is
// optional; without Redis every read goes straight to the store.
type Handler struct {
	service Service
	cache   *PoolCache
	logger  *slog.Logger
}

type Option func(*Handler)

func WithPoolCache(cache *PoolCache) Option {
	return func(h *Handler) { h.cache = cache }
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the authenticated pool endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pools", h.HandleCreatePool)
	r.Post("/pools/{id}/claims", h.HandleClaim)
	r.Post("/pools/{id}/withdrawals", h.HandleWithdraw)
}

// RegisterPublic mounts the read-only query surface.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/pools", h.HandleListPools)
	r.Get("/pools/count", h.HandlePoolCount)
	r.Get("/pools/{id}", h.HandleGetPool)
}

func poolID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "pool id must be a positive integer")
	}
	return id, nil
}

// HandleCreatePool handles POST /pools requests. A beneficiary in the body
// selects the sponsor-assigned variant, funded by the caller.
func (h *Handler) HandleCreatePool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)

	req, ok := httputil.DecodeAndPrepare[CreatePoolRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var (
		pool *models.Pool
		err  error
	)
	if req.Sponsored() {
		pool, err = h.service.CreateSponsoredPool(ctx, caller, req.Title,
			req.FundingAmount, caller, req.Beneficiary)
	} else {
		pool, err = h.service.CreatePool(ctx, caller, req.Title, req.Capacity, req.FundingAmount)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "pool creation rejected",
			"request_id", requestID, "title", req.Title, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromPool(pool))
}

// HandleClaim handles POST /pools/{id}/claims requests. Claims are always
// for the caller's own account.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)
	start := time.Now()

	id, err := poolID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.service.Claim(ctx, caller, id)
	if err != nil {
		h.logger.WarnContext(ctx, "claim rejected",
			"request_id", requestID, "pool_id", id, "handle", caller, "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.cache.Invalidate(ctx, id)

	h.logger.InfoContext(ctx, "claim disbursed",
		"request_id", requestID, "pool_id", id, "handle", caller,
		"amount", receipt.Amount, "duration_ms", time.Since(start).Milliseconds())
	httputil.WriteJSON(w, http.StatusOK, FromClaimReceipt(receipt))
}

// HandleWithdraw handles POST /pools/{id}/withdrawals requests.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Handle(ctx)

	id, err := poolID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[WithdrawRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.service.WithdrawResidual(ctx, caller, id, req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "withdrawal rejected",
			"request_id", requestID, "pool_id", id, "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.cache.Invalidate(ctx, id)

	httputil.WriteJSON(w, http.StatusOK, FromWithdrawalReceipt(receipt))
}

// HandleGetPool handles GET /pools/{id} requests, serving from the snapshot
// cache when one is configured.
func (h *Handler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := poolID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if cached, ok := h.cache.Get(ctx, id); ok {
		httputil.WriteJSON(w, http.StatusOK, cached)
		return
	}

	pool, err := h.service.GetPool(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	response := FromPool(pool)
	h.cache.Set(ctx, response)
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleListPools handles GET /pools requests.
func (h *Handler) HandleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.service.ListPools(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]PoolResponse, 0, len(pools))
	for i := range pools {
		responses = append(responses, FromPool(&pools[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pools": responses})
}

// HandlePoolCount handles GET /pools/count requests.
func (h *Handler) HandlePoolCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.PoolCount(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}
