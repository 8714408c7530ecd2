// Package httpapi assembles the HTTP surface: authenticated mutation
// endpoints, the public read-only query surface, the public audit feed, and
// operational endpoints.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "scholarhub/internal/admin/handler"
	fundhandler "scholarhub/internal/fund/handler"
	identityhandler "scholarhub/internal/identity/handler"
	"scholarhub/internal/platform/middleware"
	verificationhandler "scholarhub/internal/verification/handler"
	audit "scholarhub/pkg/platform/audit"
	"scholarhub/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Identity     *identityhandler.Handler
	Verification *verificationhandler.Handler
	Fund         *fundhandler.Handler
	Admin        *adminhandler.Handler
	AuditFeed    *audit.Publisher

	JWTSigningKey string
	Logger        *slog.Logger
}

const (
	defaultFeedLimit = 100
	maxFeedLimit     = 1000
)

// NewRouter wires all endpoints. Reads are public; every mutating endpoint
// sits behind bearer authentication so the caller handle is always known.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public query surface and audit feed.
	r.Group(func(r chi.Router) {
		deps.Identity.RegisterPublic(r)
		deps.Verification.RegisterPublic(r)
		deps.Fund.RegisterPublic(r)
		r.Get("/audit/events", handleAuditFeed(deps.AuditFeed))
	})

	// Mutations.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWTSigningKey, deps.Logger))
		deps.Identity.Register(r)
		deps.Verification.Register(r)
		deps.Fund.Register(r)
		deps.Admin.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuditFeed serves GET /audit/events. Cursor pagination over the
// feed's sequence numbers; consumers poll with after=<last seen seq>.
func handleAuditFeed(feed *audit.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = defaultFeedLimit
		}
		if limit > maxFeedLimit {
			limit = maxFeedLimit
		}

		events, err := feed.List(r.Context(), after, limit)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if events == nil {
			events = []audit.Event{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}
